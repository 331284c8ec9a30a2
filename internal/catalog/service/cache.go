package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"scada_quote_backend/internal/pricing"

	"github.com/redis/go-redis/v9"
)

const catalogCacheKey = "catalog:pricing:v1"

// Cache stores the assembled pricing catalog.
type Cache interface {
	Get(ctx context.Context) (pricing.Catalog, bool, error)
	Set(ctx context.Context, catalog pricing.Catalog) error
	Invalidate(ctx context.Context) error
}

// RedisCache keeps the catalog as JSON under a single key.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a cache on an existing client. A non-positive ttl keeps entries until invalidated.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// NewRedisCacheFromURL parses a redis:// URL.
func NewRedisCacheFromURL(redisURL string, ttl time.Duration) (*RedisCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewRedisCache(redis.NewClient(opt), ttl), nil
}

func (c *RedisCache) Get(ctx context.Context) (pricing.Catalog, bool, error) {
	raw, err := c.client.Get(ctx, catalogCacheKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return pricing.Catalog{}, false, nil
	}
	if err != nil {
		return pricing.Catalog{}, false, fmt.Errorf("read catalog cache: %w", err)
	}

	var catalog pricing.Catalog
	if err := json.Unmarshal(raw, &catalog); err != nil {
		return pricing.Catalog{}, false, fmt.Errorf("decode catalog cache: %w", err)
	}
	return catalog, true, nil
}

func (c *RedisCache) Set(ctx context.Context, catalog pricing.Catalog) error {
	raw, err := json.Marshal(catalog)
	if err != nil {
		return fmt.Errorf("encode catalog cache: %w", err)
	}
	ttl := c.ttl
	if ttl < 0 {
		ttl = 0
	}
	return c.client.Set(ctx, catalogCacheKey, raw, ttl).Err()
}

func (c *RedisCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, catalogCacheKey).Err()
}

// Close releases the underlying client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// NoopCache never holds anything.
type NoopCache struct{}

func (NoopCache) Get(context.Context) (pricing.Catalog, bool, error) {
	return pricing.Catalog{}, false, nil
}

func (NoopCache) Set(context.Context, pricing.Catalog) error { return nil }

func (NoopCache) Invalidate(context.Context) error { return nil }
