package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"code404/api/internal/config"
	"code404/api/internal/models"
	"code404/api/internal/security"
)

const (
	ctxUserClaims = "user_claims"
	ctxAdminActor = "admin_actor"

	adminTokenHeader = "X-Admin-Token"
	sendSecretHeader = "X-WebPush-Secret"
)

// Auth requires a valid member session: a verified user token in the session
// cookie. Anything else is 401.
func Auth(cfg *config.AppConfig, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := sessionClaims(c, cfg, log)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Set(ctxUserClaims, *claims)
		c.Next()
	}
}

// RequireAdmin authorizes admin surfaces. Accepted evidence, in order: a
// verified session token whose role is admin or mentor, or a verified admin
// token from the Authorization header or X-Admin-Token. The legacy
// client-editable profile cookie is never an authority: an unsigned role
// claim on its own always gets 401.
func RequireAdmin(cfg *config.AppConfig, log zerolog.Logger) gin.HandlerFunc {
	return requireAdmin(cfg, log, false)
}

// RequireAdminOrSecret additionally accepts the configured push send secret,
// for service-to-service senders without a session.
func RequireAdminOrSecret(cfg *config.AppConfig, log zerolog.Logger) gin.HandlerFunc {
	return requireAdmin(cfg, log, true)
}

func requireAdmin(cfg *config.AppConfig, log zerolog.Logger, allowSecret bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims := sessionClaims(c, cfg, log); claims != nil {
			role := models.MemberRole(strings.ToLower(claims.Role))
			if role.IsPrivileged() {
				c.Set(ctxUserClaims, *claims)
				c.Set(ctxAdminActor, claims.Name)
				c.Next()
				return
			}
			// A valid session without the role is forbidden, not
			// unauthenticated.
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}

		if tokenStr := adminToken(c); tokenStr != "" {
			_, err := security.ParseAdminToken(tokenStr, cfg.Security.JWTSecret)
			if err == nil {
				c.Set(ctxAdminActor, "Admin")
				c.Next()
				return
			}
			logTokenFailure(log, err, "admin token rejected")
		}

		if allowSecret && cfg.WebPush.SendSecret != "" {
			if security.SecureCompare(c.GetHeader(sendSecretHeader), cfg.WebPush.SendSecret) {
				c.Set(ctxAdminActor, "service")
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	}
}

// sessionClaims extracts and verifies the session cookie. Returns nil for a
// missing, malformed, tampered or expired token; expiry is only distinguished
// in logs.
func sessionClaims(c *gin.Context, cfg *config.AppConfig, log zerolog.Logger) *security.UserClaims {
	cookie, err := c.Cookie(cfg.Security.AuthCookieName)
	if err != nil || cookie == "" {
		return nil
	}

	claims, err := security.ParseUserToken(cookie, cfg.Security.JWTSecret)
	if err != nil {
		logTokenFailure(log, err, "session token rejected")
		return nil
	}
	return claims
}

func adminToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return c.GetHeader(adminTokenHeader)
}

func logTokenFailure(log zerolog.Logger, err error, msg string) {
	if errors.Is(err, security.ErrTokenExpired) {
		log.Debug().Msg(msg + ": expired")
		return
	}
	log.Debug().Err(err).Msg(msg)
}

// UserClaims returns the verified session claims set by Auth or RequireAdmin.
func UserClaims(c *gin.Context) (security.UserClaims, bool) {
	val, ok := c.Get(ctxUserClaims)
	if !ok {
		return security.UserClaims{}, false
	}
	claims, ok := val.(security.UserClaims)
	return claims, ok
}

// AdminActor is the display name recorded on admin audit entries.
func AdminActor(c *gin.Context) string {
	if val, ok := c.Get(ctxAdminActor); ok {
		if name, ok := val.(string); ok && name != "" {
			return name
		}
	}
	return "Admin"
}
