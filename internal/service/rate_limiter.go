package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/dealership-api/internal/domain/repository"
)

// RateLimitConfig describes one fixed-window policy.
type RateLimitConfig struct {
	// MaxRequests allowed inside one Window.
	MaxRequests int
	Window      time.Duration
	// KeyPrefix separates policies sharing one store.
	KeyPrefix string
}

// RateLimitResult is the outcome of one Check.
type RateLimitResult struct {
	Allowed        bool
	Limit          int
	Remaining      int
	ResetInSeconds int
	// RetryAfter is set only when the request was rejected.
	RetryAfter int
}

// Fixed policies.
func OTPSendPolicy() RateLimitConfig {
	return RateLimitConfig{MaxRequests: 3, Window: time.Minute, KeyPrefix: "otp_send"}
}

func OTPVerifyPolicy() RateLimitConfig {
	return RateLimitConfig{MaxRequests: 5, Window: 5 * time.Minute, KeyPrefix: "otp_verify"}
}

func LoginPolicy() RateLimitConfig {
	return RateLimitConfig{MaxRequests: 5, Window: 15 * time.Minute, KeyPrefix: "login"}
}

func SMSPolicy() RateLimitConfig {
	return RateLimitConfig{MaxRequests: 10, Window: time.Hour, KeyPrefix: "sms"}
}

func APIPolicy() RateLimitConfig {
	return RateLimitConfig{MaxRequests: 100, Window: time.Minute, KeyPrefix: "api"}
}

// RateLimiter applies fixed-window policies on top of a counter store.
// Requests crossing a window boundary can burst up to twice the limit.
type RateLimiter struct {
	store  repository.RateLimitStore
	logger *zap.Logger
	now    func() time.Time
}

func NewRateLimiter(store repository.RateLimitStore, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimiter{store: store, logger: logger.Named("ratelimit"), now: time.Now}
}

// Check counts one request for identifier under cfg. A store failure is
// logged and the request is allowed.
func (l *RateLimiter) Check(ctx context.Context, identifier string, cfg RateLimitConfig) RateLimitResult {
	key := fmt.Sprintf("%s:%s", cfg.KeyPrefix, identifier)

	count, resetAt, err := l.store.Increment(ctx, key, cfg.Window)
	if err != nil {
		l.logger.Warn("rate limit store error, allowing request",
			zap.String("key", key), zap.Error(err))
		return RateLimitResult{
			Allowed:        true,
			Limit:          cfg.MaxRequests,
			Remaining:      cfg.MaxRequests,
			ResetInSeconds: int(cfg.Window.Seconds()),
		}
	}

	resetIn := ceilSeconds(resetAt.Sub(l.now()))
	remaining := cfg.MaxRequests - int(count)
	if remaining < 0 {
		remaining = 0
	}

	res := RateLimitResult{
		Allowed:        int(count) <= cfg.MaxRequests,
		Limit:          cfg.MaxRequests,
		Remaining:      remaining,
		ResetInSeconds: resetIn,
	}
	if !res.Allowed {
		res.RetryAfter = resetIn
		l.logger.Info("rate limit exceeded",
			zap.String("key", key), zap.Int64("count", count), zap.Int("limit", cfg.MaxRequests))
	}
	return res
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}
