package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"code404/api/internal/ids"
	"code404/api/internal/middleware"
	"code404/api/internal/models"
)

type decisionRequest struct {
	ID       string `json:"id" binding:"required"`
	Decision string `json:"decision" binding:"required"`
}

// AdminDecision records an approve/hold ruling on a pending request. The
// acting identity comes from the verified session, never from the body.
func (h HandlerSet) AdminDecision(c *gin.Context) {
	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "message": "Missing id or decision"})
		return
	}

	decision := models.AdminDecision{
		ID:        ids.New(),
		RequestID: req.ID,
		Decision:  req.Decision,
		ActedBy:   middleware.AdminActor(c),
	}

	if err := h.decisions.Create(c.Request.Context(), decision); err != nil {
		h.log.Error().Err(err).Msg("record decision failed")
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "message": "Unable to persist decision."})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "message": "Decision recorded."})
}

type regenerateRequest struct {
	SendEmails *bool `json:"sendEmails"`
}

func (h HandlerSet) RegenerateCredentials(c *gin.Context) {
	var req regenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "message": "Invalid request"})
		return
	}

	sendEmails := req.SendEmails == nil || *req.SendEmails

	issues, err := h.authService.RegenerateCredentials(c.Request.Context(), sendEmails)
	if err != nil {
		h.log.Error().Err(err).Msg("regenerate credentials failed")
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "message": "Failed to regenerate credentials"})
		return
	}

	if len(issues) == 0 {
		c.JSON(http.StatusOK, gin.H{"ok": false, "message": "No members found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "members": issues})
}
