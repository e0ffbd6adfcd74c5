package redis

import (
	"context"
	"testing"
	"time"

	"github.com/KapV33/v0-phoenix-market-e-commerce-sub001/internal/core/ports"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpotPriceCache_SetAndGet(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewSpotPriceCache(client)
	ctx := context.Background()

	// Get before set => nil
	result, err := cache.Get(ctx)
	assert.NoError(t, err)
	assert.Nil(t, result)

	price := &ports.SpotPrice{
		Rate: 16850000,
		AsOf: time.Now().UTC().Truncate(time.Second),
	}
	err = cache.Set(ctx, price, 15*time.Minute)
	require.NoError(t, err)

	result, err = cache.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, price.Rate, result.Rate)
	assert.True(t, price.AsOf.Equal(result.AsOf))
}

func TestSpotPriceCache_TTLExpiry(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewSpotPriceCache(client)
	ctx := context.Background()

	err := cache.Set(ctx, &ports.SpotPrice{Rate: 100}, time.Second)
	require.NoError(t, err)

	s.FastForward(2 * time.Second)

	result, err := cache.Get(ctx)
	assert.NoError(t, err)
	assert.Nil(t, result, "expired price should return nil")
}
