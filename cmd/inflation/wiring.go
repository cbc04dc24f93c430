package main

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/trogers1052/grocery-inflation/internal/api"
	"github.com/trogers1052/grocery-inflation/internal/cache"
	"github.com/trogers1052/grocery-inflation/internal/config"
	"github.com/trogers1052/grocery-inflation/internal/kafka"
	"github.com/trogers1052/grocery-inflation/internal/pricing"
)

// servingStore is what the HTTP API and the ingestion consumer need
type servingStore interface {
	pricing.Store
	api.CatalogStore
	kafka.ObservationRepository
}

// openCache connects to Redis. The cache is optional: when Redis is
// disabled or unreachable the service runs without it.
func openCache(cfg config.RedisConfig) (*cache.InflationCache, func()) {
	if !cfg.Enabled {
		return nil, func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("Redis unavailable at %s, running without inflation cache: %v", cfg.Addr, err)
		client.Close()
		return nil, func() {}
	}

	log.Printf("Connected to Redis at %s", cfg.Addr)
	return cache.New(client, cfg.Prefix, cfg.TTL), func() { client.Close() }
}
