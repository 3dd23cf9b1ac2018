package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/yourusername/dealership-api/internal/repository/memory"
)

func newTestRateLimiter(clock *fakeClock) *RateLimiter {
	store := memory.NewRateLimitStore().WithClock(clock.Now)
	l := NewRateLimiter(store, nil)
	l.now = clock.Now
	return l
}

func TestRateLimiter_OTPSendWindow(t *testing.T) {
	clock := newFakeClock()
	l := newTestRateLimiter(clock)
	ctx := context.Background()
	policy := OTPSendPolicy()

	var allowed []bool
	for i := 0; i < 4; i++ {
		allowed = append(allowed, l.Check(ctx, "94771234567", policy).Allowed)
	}
	assert.Equal(t, []bool{true, true, true, false}, allowed)

	clock.Advance(61 * time.Second)
	res := l.Check(ctx, "94771234567", policy)
	assert.True(t, res.Allowed)
	assert.Equal(t, policy.MaxRequests-1, res.Remaining, "window restarted with count 1")
}

func TestRateLimiter_RejectionCarriesRetryAfter(t *testing.T) {
	clock := newFakeClock()
	l := newTestRateLimiter(clock)
	ctx := context.Background()
	policy := OTPSendPolicy()

	for i := 0; i < 3; i++ {
		l.Check(ctx, "k", policy)
	}
	clock.Advance(20*time.Second + 300*time.Millisecond)

	res := l.Check(ctx, "k", policy)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.Equal(t, 40, res.RetryAfter, "ceil of 39.7s")
	assert.Equal(t, 40, res.ResetInSeconds)
}

func TestRateLimiter_PoliciesAreIndependent(t *testing.T) {
	clock := newFakeClock()
	l := newTestRateLimiter(clock)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		l.Check(ctx, "94771234567", OTPSendPolicy())
	}
	assert.False(t, l.Check(ctx, "94771234567", OTPSendPolicy()).Allowed)
	assert.True(t, l.Check(ctx, "94771234567", OTPVerifyPolicy()).Allowed)
	assert.True(t, l.Check(ctx, "94770000000", OTPSendPolicy()).Allowed)
}

func TestRateLimiter_FailOpen(t *testing.T) {
	l := NewRateLimiter(&failingRateStore{err: errors.New("redis down")}, nil)

	res := l.Check(context.Background(), "1.2.3.4", LoginPolicy())
	assert.True(t, res.Allowed)
	assert.Equal(t, 5, res.Limit)
	assert.Equal(t, 0, res.RetryAfter)
}

func TestRateLimitPolicies(t *testing.T) {
	tests := []struct {
		policy RateLimitConfig
		max    int
		window time.Duration
	}{
		{OTPSendPolicy(), 3, 60 * time.Second},
		{OTPVerifyPolicy(), 5, 300 * time.Second},
		{LoginPolicy(), 5, 900 * time.Second},
		{SMSPolicy(), 10, 3600 * time.Second},
		{APIPolicy(), 100, 60 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.policy.KeyPrefix, func(t *testing.T) {
			assert.Equal(t, tt.max, tt.policy.MaxRequests)
			assert.Equal(t, tt.window, tt.policy.Window)
		})
	}
}
