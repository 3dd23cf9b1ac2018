package repository

import (
	"context"
	"time"
)

// RateLimitStore holds fixed-window counters. Expiry of old windows is up to
// the store: the memory store sweeps, Redis uses key TTLs.
type RateLimitStore interface {
	// Increment adds one to the counter under key. If the key is absent or its
	// window has elapsed, the counter restarts at 1 with resetAt = now + window.
	Increment(ctx context.Context, key string, window time.Duration) (count int64, resetAt time.Time, err error)
}
