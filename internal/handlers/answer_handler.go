package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"progress-service/internal/models"
	"progress-service/internal/service"
)

type AnswerHandler struct {
	Service *service.ProgressService
}

func NewAnswerHandler(s *service.ProgressService) *AnswerHandler {
	return &AnswerHandler{Service: s}
}

// RecordAnswer stores one answer and updates the category aggregates.
func (h *AnswerHandler) RecordAnswer(c *gin.Context) {
	var sub models.AnswerSubmission
	if err := c.ShouldBindJSON(&sub); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := h.Service.RecordAnswer(context.Background(), sub)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// BulkRecordAnswers stores a batch of answers as one unit.
func (h *AnswerHandler) BulkRecordAnswers(c *gin.Context) {
	var subs []models.AnswerSubmission
	if err := c.ShouldBindJSON(&subs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ids, err := h.Service.BulkRecordAnswers(context.Background(), subs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"record_ids": ids, "count": len(ids)})
}

// RecentActivity returns the newest answer records.
func (h *AnswerHandler) RecentActivity(c *gin.Context) {
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "10"), 10, 64)
	records, err := h.Service.RecentActivity(context.Background(), c.Query("exam_category"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}
