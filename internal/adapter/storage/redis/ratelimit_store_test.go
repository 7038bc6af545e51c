package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// windowStart is a multiple of one minute, so it opens a fresh bucket.
var windowStart = time.Unix(1_700_000_040, 0)

func newClockedStore(t *testing.T) (*RateLimitStore, *time.Time) {
	t.Helper()
	_, client := newTestRedis(t)
	store := NewRateLimitStore(client)
	clock := windowStart
	store.now = func() time.Time { return clock }
	return store, &clock
}

func TestRateLimitStore_WithinWindow(t *testing.T) {
	store, _ := newClockedStore(t)
	ctx := context.Background()

	for want := int64(2); want >= 0; want-- {
		res, err := store.Allow(ctx, "user:1:checkout", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, want, res.Remaining)
		assert.Zero(t, res.RetryAfter)
	}

	res, err := store.Allow(ctx, "user:1:checkout", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, int64(0), res.Remaining)
	assert.Equal(t, time.Minute, res.RetryAfter)
}

func TestRateLimitStore_PreviousWindowStillWeighs(t *testing.T) {
	store, clock := newClockedStore(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := store.Allow(ctx, "ip:10.0.0.1:auth_login", 4, time.Minute)
		require.NoError(t, err)
	}

	// Halfway through the next minute half of the old bucket still counts.
	*clock = windowStart.Add(90 * time.Second)
	allowed := 0
	for i := 0; i < 4; i++ {
		res, err := store.Allow(ctx, "ip:10.0.0.1:auth_login", 4, time.Minute)
		require.NoError(t, err)
		if res.Allowed {
			allowed++
		} else {
			assert.Equal(t, 30*time.Second, res.RetryAfter)
		}
	}
	assert.Equal(t, 2, allowed)

	*clock = windowStart.Add(3 * time.Minute)
	res, err := store.Allow(ctx, "ip:10.0.0.1:auth_login", 4, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, int64(3), res.Remaining)
}

func TestRateLimitStore_RejectionsDoNotCount(t *testing.T) {
	store, clock := newClockedStore(t)
	ctx := context.Background()

	_, err := store.Allow(ctx, "user:2:wallet_recharge", 1, time.Minute)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		res, err := store.Allow(ctx, "user:2:wallet_recharge", 1, time.Minute)
		require.NoError(t, err)
		assert.False(t, res.Allowed)
	}

	*clock = windowStart.Add(2 * time.Minute)
	res, err := store.Allow(ctx, "user:2:wallet_recharge", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestRateLimitStore_KeysAreIndependent(t *testing.T) {
	store, _ := newClockedStore(t)
	ctx := context.Background()

	_, err := store.Allow(ctx, "user:a:checkout", 1, time.Minute)
	require.NoError(t, err)

	res, err := store.Allow(ctx, "user:b:checkout", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestRateLimitStore_BucketsExpire(t *testing.T) {
	s, client := newTestRedis(t)
	store := NewRateLimitStore(client)
	store.now = func() time.Time { return windowStart }

	_, err := store.Allow(context.Background(), "user:c:menu", 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, s.Keys(), 1)

	s.FastForward(2*time.Minute + time.Second)
	assert.Empty(t, s.Keys())
}

func TestRateLimitStore_ServerDown(t *testing.T) {
	s, client := newTestRedis(t)
	store := NewRateLimitStore(client)
	s.Close()

	_, err := store.Allow(context.Background(), "user:d:menu", 10, time.Minute)
	assert.Error(t, err)
}
