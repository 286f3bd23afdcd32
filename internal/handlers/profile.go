package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"code404/api/internal/middleware"
)

const maxAvatarBytes = 2 << 20 // 2 MiB

// UploadAvatar stores the uploaded image in the object store and saves the
// resulting URL on the member row.
func (h HandlerSet) UploadAvatar(c *gin.Context) {
	claims, ok := middleware.UserClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if h.avatars == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Avatar storage is not configured"})
		return
	}

	fileHeader, err := c.FormFile("avatar")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "avatar file is required"})
		return
	}
	if fileHeader.Size > maxAvatarBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "avatar too large"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable avatar file"})
		return
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	url, err := h.avatars.Put(c.Request.Context(), claims.UserID, contentType, fileHeader.Size, file)
	if err != nil {
		h.log.Error().Err(err).Str("member_id", claims.UserID).Msg("avatar upload failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to store avatar"})
		return
	}

	if err := h.members.UpdateAvatarURL(c.Request.Context(), claims.UserID, url); err != nil {
		h.log.Error().Err(err).Str("member_id", claims.UserID).Msg("avatar url update failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save avatar"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "avatarUrl": url})
}
