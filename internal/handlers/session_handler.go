package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"progress-service/internal/models"
	"progress-service/internal/service"
)

type SessionHandler struct {
	Service *service.SessionService
}

func NewSessionHandler(s *service.SessionService) *SessionHandler {
	return &SessionHandler{Service: s}
}

func userID(c *gin.Context) string {
	return c.GetHeader("X-User-ID")
}

// StartSession opens a study session for the caller. A still-active
// session is summarized and archived first.
func (h *SessionHandler) StartSession(c *gin.Context) {
	var req models.StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.Service.Start(context.Background(), userID(c), req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.Service.Status(userID(c)))
}

// SubmitAnswer records one answer within the caller's active session.
func (h *SessionHandler) SubmitAnswer(c *gin.Context) {
	var sub models.AnswerSubmission
	if err := c.ShouldBindJSON(&sub); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := h.Service.RecordAnswer(context.Background(), userID(c), sub)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// EndSession closes the active session and returns its summary.
func (h *SessionHandler) EndSession(c *gin.Context) {
	summary, err := h.Service.End(context.Background(), userID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// GetStatus reports whether the caller has an active session.
func (h *SessionHandler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.Service.Status(userID(c)))
}

// GetHistory lists the caller's archived session summaries.
func (h *SessionHandler) GetHistory(c *gin.Context) {
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "20"), 10, 64)
	summaries, err := h.Service.History(context.Background(), userID(c), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summaries)
}
