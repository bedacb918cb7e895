// Package redis implements the result cache on Redis. TTLs are applied
// natively, so expiry needs no sweeping.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sitescope/sitescope/internal/analysis"
)

// keyPrefix namespaces analysis results inside a shared Redis.
const keyPrefix = "sitescope:analysis:"

// Config holds connection settings for the cache.
type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// Cache stores JSON-encoded results under a domain key.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New dials Redis and returns a Cache.
func New(cfg Config) *Cache {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})
	return NewWithClient(client, cfg.TTL)
}

// NewWithClient wraps an existing client, which tests use to point the
// cache at miniredis.
func NewWithClient(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Cache{client: client, ttl: ttl}
}

// Get fetches the cached result for a domain.
func (c *Cache) Get(ctx context.Context, domain string) (analysis.Result, bool, error) {
	raw, err := c.client.Get(ctx, keyPrefix+domain).Bytes()
	if errors.Is(err, redis.Nil) {
		return analysis.Result{}, false, nil
	}
	if err != nil {
		return analysis.Result{}, false, fmt.Errorf("redis get: %w", err)
	}

	var result analysis.Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return analysis.Result{}, false, fmt.Errorf("decode cached result: %w", err)
	}
	return result, true, nil
}

// Set stores a result with the cache TTL.
func (c *Cache) Set(ctx context.Context, domain string, result analysis.Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if err := c.client.Set(ctx, keyPrefix+domain, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Ping verifies the connection, used by startup checks.
func (c *Cache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (c *Cache) Close() error {
	return c.client.Close()
}
