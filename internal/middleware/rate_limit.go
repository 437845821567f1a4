package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"launchpad/api/internal/cache"
)

type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) cache.Decision
}

// RateLimit throttles by client IP under the given route label.
func RateLimit(limiter Limiter, route string, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || limit <= 0 {
			c.Next()
			return
		}

		key := route + ":ip:" + c.ClientIP()
		decision := limiter.Allow(c.Request.Context(), key, limit, window)

		if !decision.Reset.IsZero() {
			h := c.Writer.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(decision.Reset.Unix(), 10))
		}

		if !decision.Allowed {
			retry := int(time.Until(decision.Reset).Seconds())
			if retry < 1 {
				retry = 1
			}
			c.Header("Retry-After", strconv.Itoa(retry))
			abort(c, http.StatusTooManyRequests, "rate_limited", "Too many requests, please try again later")
			return
		}

		c.Next()
	}
}
