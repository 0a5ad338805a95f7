package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"progress-service/internal/service"
)

type StatsHandler struct {
	Service *service.StatsService
}

func NewStatsHandler(s *service.StatsService) *StatsHandler {
	return &StatsHandler{Service: s}
}

func (h *StatsHandler) GetStatistics(c *gin.Context) {
	stats, err := h.Service.GetStatistics(context.Background(), c.Query("exam_category"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *StatsHandler) GetWeakAreas(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "5"))
	weak, err := h.Service.GetWeakAreas(context.Background(), c.Query("exam_category"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, weak)
}

func (h *StatsHandler) GetProgressOverTime(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))
	daily, err := h.Service.GetProgressOverTime(context.Background(), c.Query("exam_category"), days)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, daily)
}

func (h *StatsHandler) GetRecommendations(c *gin.Context) {
	recommendations, err := h.Service.GetRecommendations(context.Background(), c.Query("exam_category"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, recommendations)
}

func (h *StatsHandler) GetOverview(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))
	overview, err := h.Service.GetOverallProgress(context.Background(), c.Query("exam_category"), days)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, overview)
}
