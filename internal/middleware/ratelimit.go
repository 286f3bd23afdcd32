package middleware

import (
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"code404/api/internal/ratelimit"
)

// RateLimit throttles by client address + route. Counting is best-effort:
// a failing counter store lets the request through rather than taking the
// route down with it.
func RateLimit(store ratelimit.CounterStore, limit ratelimit.Limit, log zerolog.Logger) gin.HandlerFunc {
	message := limit.Message
	if message == "" {
		message = "Too many requests. Please try again later."
	}
	scope := limit.Name
	if scope == "" {
		scope = "api"
	}

	return func(c *gin.Context) {
		key := fmt.Sprintf("%s:%s:%s", scope, c.ClientIP(), c.FullPath())

		count, remaining, err := store.Incr(c.Request.Context(), key, limit.Window)
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("rate limit store error")
			c.Next()
			return
		}

		if count > limit.MaxRequests {
			retryAfter := int(math.Ceil(remaining.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}

			c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
			c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", limit.MaxRequests))
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("X-RateLimit-Reset", time.Now().Add(remaining).UTC().Format(time.RFC3339))

			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success":    false,
				"error":      message,
				"retryAfter": retryAfter,
			})
			return
		}

		c.Next()
	}
}
