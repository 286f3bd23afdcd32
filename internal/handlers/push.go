package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"code404/api/internal/models"
	"code404/api/internal/push"
	"code404/api/internal/repository"
)

func (h HandlerSet) VAPIDPublicKey(c *gin.Context) {
	key, err := h.pushService.PublicKey()
	if err != nil {
		h.log.Error().Err(err).Msg("vapid public key unavailable")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Push is not configured"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"publicKey": key})
}

type subscribeRequest struct {
	Subscription models.Subscription `json:"subscription" binding:"required"`
	UserID       *string             `json:"userId"`
}

func (h HandlerSet) Subscribe(c *gin.Context) {
	var req subscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Subscription.Endpoint == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid subscription"})
		return
	}

	if err := h.pushService.Register(c.Request.Context(), req.Subscription, req.UserID); err != nil {
		h.log.Error().Err(err).Msg("save subscription failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save subscription"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"ok": true})
}

type unsubscribeRequest struct {
	Subscription struct {
		Endpoint string `json:"endpoint" binding:"required"`
	} `json:"subscription" binding:"required"`
}

func (h HandlerSet) Unsubscribe(c *gin.Context) {
	var req unsubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid subscription"})
		return
	}

	if err := h.pushService.Unregister(c.Request.Context(), req.Subscription.Endpoint); err != nil {
		h.log.Error().Err(err).Msg("remove subscription failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove subscription"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h HandlerSet) ListSubscriptions(c *gin.Context) {
	subs, err := h.pushService.Subscriptions(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("list subscriptions failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list subscriptions"})
		return
	}

	items := make([]gin.H, 0, len(subs))
	for _, sub := range subs {
		items = append(items, gin.H{
			"endpoint":     sub.Endpoint,
			"subscription": sub.Subscription,
			"userId":       sub.UserID,
			"createdAt":    sub.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

type sendRequest struct {
	Payload models.NotificationPayload `json:"payload" binding:"required"`
	UserID  *string                    `json:"userId"`
}

// SendNotifications dispatches a payload to every registered subscription,
// or to one member's subscriptions when userId is given. Partial success is
// the normal case: the response always carries one entry per endpoint.
func (h HandlerSet) SendNotifications(c *gin.Context) {
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Payload.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
		return
	}

	var (
		results []push.Result
		err     error
	)
	if req.UserID != nil && *req.UserID != "" {
		results, err = h.pushService.SendToUser(c.Request.Context(), *req.UserID, req.Payload)
	} else {
		results, err = h.pushService.Broadcast(c.Request.Context(), req.Payload)
	}
	if err != nil {
		if errors.Is(err, push.ErrMissingVAPIDKeys) {
			h.log.Error().Err(err).Msg("push dispatch refused")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Push is not configured"})
			return
		}
		h.log.Error().Err(err).Msg("push dispatch failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send notifications"})
		return
	}

	out := make([]gin.H, 0, len(results))
	for _, r := range results {
		entry := gin.H{"endpoint": r.Endpoint, "success": r.Success}
		if r.StatusCode != 0 {
			entry["statusCode"] = r.StatusCode
		}
		out = append(out, entry)
	}

	c.JSON(http.StatusOK, gin.H{"results": out})
}

type scheduleRequest struct {
	SendAt   time.Time                  `json:"sendAt" binding:"required"`
	Payload  models.NotificationPayload `json:"payload" binding:"required"`
	Audience string                     `json:"audience"`
}

func (h HandlerSet) CreateSchedule(c *gin.Context) {
	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Payload.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid schedule"})
		return
	}

	schedule, err := h.pushService.Schedule(c.Request.Context(), req.SendAt, req.Payload, req.Audience)
	if err != nil {
		h.log.Error().Err(err).Msg("create schedule failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create schedule"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"ok": true, "id": schedule.ID})
}

type scheduleRetryRequest struct {
	ID string `json:"id" binding:"required"`
}

func (h HandlerSet) RetrySchedule(c *gin.Context) {
	var req scheduleRetryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing id"})
		return
	}

	if err := h.pushService.RetrySchedule(c.Request.Context(), req.ID); err != nil {
		if errors.Is(err, repository.ErrScheduleNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
			return
		}
		h.log.Error().Err(err).Msg("schedule retry failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retry schedule"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
