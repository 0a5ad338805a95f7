package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"progress-service/internal/service"
)

type AdminHandler struct {
	Service       *service.ProgressService
	RetentionDays int
}

func NewAdminHandler(s *service.ProgressService, retentionDays int) *AdminHandler {
	return &AdminHandler{Service: s, RetentionDays: retentionDays}
}

// CleanupRecords deletes answer records older than the retention window.
func (h *AdminHandler) CleanupRecords(c *gin.Context) {
	days := h.RetentionDays
	if v := c.Query("days"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be an integer"})
			return
		}
		days = parsed
	}
	deleted, err := h.Service.CleanupOldRecords(context.Background(), days)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted, "days": days})
}
