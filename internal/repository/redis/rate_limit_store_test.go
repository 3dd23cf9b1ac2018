package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimitStore_FixedWindow(t *testing.T) {
	mr, client := newTestClient(t)
	store, err := NewRateLimitStore(client)
	require.NoError(t, err)
	ctx := context.Background()

	var counts []int64
	var firstReset time.Time
	for i := 0; i < 4; i++ {
		count, resetAt, err := store.Increment(ctx, "otp_send:94771234567", time.Minute)
		require.NoError(t, err)
		counts = append(counts, count)
		if i == 0 {
			firstReset = resetAt
		}
	}
	assert.Equal(t, []int64{1, 2, 3, 4}, counts)
	assert.WithinDuration(t, time.Now().Add(time.Minute), firstReset, 2*time.Second)
	assert.True(t, mr.Exists("rl:otp_send:94771234567"))

	mr.FastForward(time.Minute)

	count, _, err := store.Increment(ctx, "otp_send:94771234567", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestRateLimitStore_RepairsMissingTTL(t *testing.T) {
	mr, client := newTestClient(t)
	store, err := NewRateLimitStore(client)
	require.NoError(t, err)

	require.NoError(t, mr.Set("rl:login:10.0.0.1", "3"))

	count, resetAt, err := store.Increment(context.Background(), "login:10.0.0.1", 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), resetAt, 2*time.Second)
	assert.Equal(t, 15*time.Minute, mr.TTL("rl:login:10.0.0.1"))
}

func TestNewStores_RejectNilClient(t *testing.T) {
	_, err := NewRateLimitStore(nil)
	assert.Error(t, err)
	_, err = NewLockStore(nil)
	assert.Error(t, err)
}
