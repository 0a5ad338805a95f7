package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"progress-service/internal/models"
)

// statusFromError maps the core's error kinds to HTTP statuses.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrUnknownQuestion):
		return http.StatusNotFound
	case errors.Is(err, models.ErrNoActiveSession), errors.Is(err, models.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, models.ErrStorage):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	c.JSON(statusFromError(err), gin.H{"error": err.Error()})
}
