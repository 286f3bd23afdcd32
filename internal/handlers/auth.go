package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"code404/api/internal/models"
	"code404/api/internal/security"
	"code404/api/internal/service"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type memberResponse struct {
	ID        string  `json:"id"`
	Username  string  `json:"username"`
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	Role      string  `json:"role"`
	AvatarURL *string `json:"avatar,omitempty"`
	Points    int     `json:"points"`
	Badges    int     `json:"badges"`
	Github    *string `json:"github,omitempty"`
	Portfolio *string `json:"portfolio,omitempty"`
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "message": "Username and password are required"})
		return
	}

	member, token, err := h.authService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "message": "Invalid credentials."})
			return
		}
		h.log.Error().Err(err).Msg("login failed")
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "message": "Login failed"})
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(
		h.cfg.Security.AuthCookieName,
		token,
		int(h.cfg.Security.UserTokenTTL.Seconds()),
		"/",
		"",
		h.cfg.IsProduction(),
		true,
	)
	h.setLegacyProfileCookie(c, member)

	c.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"message": "Welcome back, " + strings.Split(member.Name, " ")[0] + "!",
		"user": memberResponse{
			ID:        member.ID,
			Username:  member.Username,
			Name:      member.Name,
			Email:     member.Email,
			Role:      string(member.Role),
			AvatarURL: member.AvatarURL,
			Points:    member.Points,
			Badges:    member.Badges,
			Github:    member.Github,
			Portfolio: member.Portfolio,
		},
	})
}

// setLegacyProfileCookie writes the client-readable profile cookie older
// frontend builds render from. It is display-only: authorization never reads
// it, since the client can edit it freely.
func (h HandlerSet) setLegacyProfileCookie(c *gin.Context, member models.Member) {
	profile, err := json.Marshal(map[string]string{
		"id":       member.ID,
		"username": member.Username,
		"name":     member.Name,
		"role":     string(member.Role),
	})
	if err != nil {
		return
	}
	// gin escapes the cookie value itself.
	c.SetCookie(
		h.cfg.Security.LegacyUserCookieName,
		string(profile),
		int(h.cfg.Security.UserTokenTTL.Seconds()),
		"/",
		"",
		h.cfg.IsProduction(),
		false,
	)
}

func (h HandlerSet) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cfg.Security.AuthCookieName, "", -1, "/", "", h.cfg.IsProduction(), true)
	c.SetCookie(h.cfg.Security.LegacyUserCookieName, "", -1, "/", "", h.cfg.IsProduction(), false)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Me returns the identity encoded in the session cookie, or null when the
// cookie is absent, expired or otherwise unverifiable.
func (h HandlerSet) Me(c *gin.Context) {
	cookie, err := c.Cookie(h.cfg.Security.AuthCookieName)
	if err != nil || cookie == "" {
		c.JSON(http.StatusOK, gin.H{"user": nil})
		return
	}

	claims, err := security.ParseUserToken(cookie, h.cfg.Security.JWTSecret)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"user": nil})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user": gin.H{
			"id":    claims.UserID,
			"email": claims.Email,
			"name":  claims.Name,
			"role":  claims.Role,
		},
	})
}

type adminAuthRequest struct {
	Password string `json:"password" binding:"required"`
}

func (h HandlerSet) AdminAuth(c *gin.Context) {
	var req adminAuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Password is required"})
		return
	}

	token, err := h.authService.AdminLogin(req.Password)
	if err != nil {
		if errors.Is(err, service.ErrAdminPasswordNotSet) {
			h.log.Error().Msg("admin password is not configured")
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Server configuration error"})
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid password"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "token": token})
}
