package matchmaker

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// POST /matchmaking/search?userId=...
func (h *Handler) Search(c *gin.Context) {
	userID := strings.TrimSpace(c.Query("userId"))
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId is required"})
		return
	}

	if err := h.svc.RequestMatch(c.Request.Context(), userID); err != nil {
		var throttled *ThrottledError
		if errors.As(err, &throttled) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":        "rate limit exceeded",
				"retryAfterMs": throttled.RetryAfter.Milliseconds(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process match request"})
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /matchmaking/match?userId=...
func (h *Handler) GetMatch(c *gin.Context) {
	userID := strings.TrimSpace(c.Query("userId"))
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId is required"})
		return
	}

	match, err := h.svc.GetMatchInfo(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve match information"})
		return
	}
	if match == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "match not found for this user"})
		return
	}
	c.JSON(http.StatusOK, match)
}
