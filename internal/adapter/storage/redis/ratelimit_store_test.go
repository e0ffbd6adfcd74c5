package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimitStore_AllowWithinLimit(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewRateLimitStore(client)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		result, err := store.Allow(ctx, "user-1:auth_login", 5, 15*time.Minute)
		require.NoError(t, err)
		assert.True(t, result.Allowed, "request %d should be allowed", i)
		assert.Equal(t, int64(5-i), result.Remaining)
	}
}

func TestRateLimitStore_RejectOverLimit(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewRateLimitStore(client)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := store.Allow(ctx, "user-2:auth_login", 5, 15*time.Minute)
		require.NoError(t, err)
	}

	result, err := store.Allow(ctx, "user-2:auth_login", 5, 15*time.Minute)
	require.NoError(t, err)
	assert.False(t, result.Allowed, "sixth request should be rejected")
	assert.Equal(t, int64(0), result.Remaining)
}

func TestRateLimitStore_FreshWindowAfterExpiry(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewRateLimitStore(client)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		_, err := store.Allow(ctx, "user-3:auth_login", 5, time.Minute)
		require.NoError(t, err)
	}

	s.FastForward(2 * time.Minute)

	result, err := store.Allow(ctx, "user-3:auth_login", 5, time.Minute)
	require.NoError(t, err)
	assert.True(t, result.Allowed, "expired window should reset the allowance")
	assert.Equal(t, int64(4), result.Remaining)
}

func TestRateLimitStore_IndependentKeys(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewRateLimitStore(client)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		_, err := store.Allow(ctx, "user-4:purchase", 5, time.Minute)
		require.NoError(t, err)
	}

	// Different action for the same identity has its own counter.
	result, err := store.Allow(ctx, "user-4:auth_login", 5, time.Minute)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}
