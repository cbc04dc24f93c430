// Package cache keeps computed inflation results in Redis.
//
// Keys embed a generation number. Invalidate bumps the generation, which
// retires every cached result at once; stale keys expire through their TTL.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/trogers1052/grocery-inflation/internal/pricing"
)

const generationKey = "generation"

// InflationCache stores pricing.Result values in Redis
type InflationCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// New creates a cache over client. Keys are namespaced by prefix.
func New(client *redis.Client, prefix string, ttl time.Duration) *InflationCache {
	return &InflationCache{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

// Slot resolves key to its Redis key under the current generation
func (c *InflationCache) Slot(ctx context.Context, key string) (string, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%d:%s", c.prefix, gen, key), nil
}

// Load reads the result cached in slot into dst. It reports false on a miss.
func (c *InflationCache) Load(ctx context.Context, slot string, dst *pricing.Result) (bool, error) {
	data, err := c.client.Get(ctx, slot).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read cached result: %w", err)
	}

	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("failed to decode cached result: %w", err)
	}
	return true, nil
}

// Store caches a result in slot. A slot from a retired generation is
// written but never read again.
func (c *InflationCache) Store(ctx context.Context, slot string, r pricing.Result) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	if err := c.client.Set(ctx, slot, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache result: %w", err)
	}
	return nil
}

// Invalidate retires every cached result. Call it after price history changes.
func (c *InflationCache) Invalidate(ctx context.Context) error {
	if err := c.client.Incr(ctx, c.prefix+":"+generationKey).Err(); err != nil {
		return fmt.Errorf("failed to invalidate inflation cache: %w", err)
	}
	return nil
}

func (c *InflationCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, c.prefix+":"+generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read cache generation: %w", err)
	}
	return gen, nil
}
