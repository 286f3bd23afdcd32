package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ListClubSessions returns the scheduled calendar sessions from today on.
func (h HandlerSet) ListClubSessions(c *gin.Context) {
	today := time.Now().UTC().Truncate(24 * time.Hour)

	sessions, err := h.sessions.ListUpcoming(c.Request.Context(), today)
	if err != nil {
		h.log.Error().Err(err).Msg("list sessions failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list sessions"})
		return
	}

	items := make([]gin.H, 0, len(sessions))
	for _, session := range sessions {
		items = append(items, gin.H{
			"id":     session.ID,
			"title":  session.Title,
			"date":   session.Date.Format("2006-01-02"),
			"status": session.Status,
		})
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}
