package authgin

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// RateLimiter is implemented by the redis and in-memory limiters.
type RateLimiter interface {
	Allow(ctx context.Context, bucket, key string) (bool, error)
}

// Allow checks the caller against a named bucket, keyed by client IP, and
// writes a 429 on rejection. Limiter errors fail open; throttling must not
// take the API down with it.
func Allow(c *gin.Context, rl RateLimiter, bucket string) bool {
	if rl == nil {
		return true
	}
	ok, err := rl.Allow(c.Request.Context(), bucket, c.ClientIP())
	if err != nil {
		return true
	}
	if !ok {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate_limited", "reason": "too many requests"})
		return false
	}
	return true
}
