package memory

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/dealership-api/internal/pkg/logger"
)

type rateLimitWindow struct {
	count   int64
	resetAt time.Time
}

// RateLimitStore keeps fixed-window counters in process memory. It is only
// correct for a single instance; use the Redis store when scaling out.
type RateLimitStore struct {
	mu      sync.Mutex
	windows map[string]*rateLimitWindow
	now     func() time.Time
}

// NewRateLimitStore creates an empty store.
func NewRateLimitStore() *RateLimitStore {
	return &RateLimitStore{
		windows: make(map[string]*rateLimitWindow),
		now:     time.Now,
	}
}

// WithClock replaces the time source. Used by tests.
func (s *RateLimitStore) WithClock(now func() time.Time) *RateLimitStore {
	s.now = now
	return s
}

// Increment implements repository.RateLimitStore.
func (s *RateLimitStore) Increment(_ context.Context, key string, window time.Duration) (int64, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	w, ok := s.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &rateLimitWindow{count: 1, resetAt: now.Add(window)}
		s.windows[key] = w
		return w.count, w.resetAt, nil
	}

	w.count++
	return w.count, w.resetAt, nil
}

// Sweep removes windows that elapsed before now and returns how many were removed.
func (s *RateLimitStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, w := range s.windows {
		if !now.Before(w.resetAt) {
			delete(s.windows, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys.
func (s *RateLimitStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}

// RunSweeper calls Sweep every interval until ctx is cancelled.
func (s *RateLimitStore) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	log := logger.Named("ratelimit")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := s.Sweep(s.now()); removed > 0 {
				log.Debug("swept expired rate limit windows", zap.Int("removed", removed), zap.Int("remaining", s.Len()))
			}
		case <-ctx.Done():
			return
		}
	}
}
