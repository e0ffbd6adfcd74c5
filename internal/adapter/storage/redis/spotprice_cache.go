package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/KapV33/v0-phoenix-market-e-commerce-sub001/internal/core/ports"

	goredis "github.com/redis/go-redis/v9"
)

// SpotPriceCache implements ports.PriceCache: it keeps the last good oracle
// rate so pricing can degrade to a stale value when the oracle is down.
type SpotPriceCache struct {
	client *goredis.Client
	key    string
}

// NewSpotPriceCache creates a new Redis-backed spot price cache.
func NewSpotPriceCache(client *goredis.Client) *SpotPriceCache {
	return &SpotPriceCache{
		client: client,
		key:    "oracle:spot_price",
	}
}

// Get retrieves the cached spot price. Returns nil, nil on miss.
func (c *SpotPriceCache) Get(ctx context.Context) (*ports.SpotPrice, error) {
	val, err := c.client.Get(ctx, c.key).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis spot price get: %w", err)
	}

	var price ports.SpotPrice
	if err := json.Unmarshal(val, &price); err != nil {
		return nil, fmt.Errorf("redis spot price decode: %w", err)
	}
	return &price, nil
}

// Set stores the spot price with TTL.
func (c *SpotPriceCache) Set(ctx context.Context, price *ports.SpotPrice, ttl time.Duration) error {
	data, err := json.Marshal(price)
	if err != nil {
		return fmt.Errorf("redis spot price encode: %w", err)
	}
	if err := c.client.Set(ctx, c.key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis spot price set: %w", err)
	}
	return nil
}
