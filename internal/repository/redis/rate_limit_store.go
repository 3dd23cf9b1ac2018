package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// incrWindowScript increments the counter, starts the window TTL on the first
// hit and returns {count, pttl}. A key that lost its TTL gets a fresh one.
var incrWindowScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// RateLimitStore implements repository.RateLimitStore on Redis so that all
// instances share one counter per key. Expiry is handled by key TTL.
type RateLimitStore struct {
	client    redis.UniversalClient
	keyPrefix string
	now       func() time.Time
}

// NewRateLimitStore creates a Redis-backed counter store.
func NewRateLimitStore(client redis.UniversalClient) (*RateLimitStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client cannot be nil for RateLimitStore")
	}
	return &RateLimitStore{client: client, keyPrefix: "rl:", now: time.Now}, nil
}

func (s *RateLimitStore) Increment(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	res, err := incrWindowScript.Run(ctx, s.client, []string{s.keyPrefix + key}, window.Milliseconds()).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("rate limit increment %s: %w", key, err)
	}

	vals, ok := res.([]interface{})
	if !ok || len(vals) != 2 {
		return 0, time.Time{}, fmt.Errorf("rate limit increment %s: unexpected reply %v", key, res)
	}
	count, _ := vals[0].(int64)
	ttlMs, _ := vals[1].(int64)

	return count, s.now().Add(time.Duration(ttlMs) * time.Millisecond), nil
}
