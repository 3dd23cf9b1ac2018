package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/dealership-api/internal/service"
)

// RateLimitMiddleware exposes the limiter to gin routes.
type RateLimitMiddleware struct {
	limiter *service.RateLimiter
}

func NewRateLimitMiddleware(limiter *service.RateLimiter) *RateLimitMiddleware {
	return &RateLimitMiddleware{limiter: limiter}
}

// LimitByIP counts requests per client IP under the given policy.
func (m *RateLimitMiddleware) LimitByIP(cfg service.RateLimitConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		res := m.limiter.Check(c.Request.Context(), c.ClientIP(), cfg)
		SetRateLimitHeaders(c, res)
		if !res.Allowed {
			AbortRateLimited(c, res)
			return
		}
		c.Next()
	}
}

// SetRateLimitHeaders writes the X-RateLimit-* headers for res.
func SetRateLimitHeaders(c *gin.Context, res service.RateLimitResult) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	c.Header("X-RateLimit-Reset", strconv.Itoa(res.ResetInSeconds))
}

// AbortRateLimited responds 429 with Retry-After.
func AbortRateLimited(c *gin.Context, res service.RateLimitResult) {
	c.Header("Retry-After", strconv.Itoa(res.RetryAfter))
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"error":       "Too many requests. Please try again later.",
		"error_type":  "rate_limited",
		"retry_after": res.RetryAfter,
	})
}
