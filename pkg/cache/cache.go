// Package cache provides read-through caching of hot list endpoints on
// Redis. A nil *Cache is a valid no-op so callers never branch on
// whether caching is configured.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL bounds staleness of cached listings.
const DefaultTTL = 300 * time.Second

// Cache wraps a Redis client with JSON serialization and a fixed TTL.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCache connects to Redis at redisURL. ttl <= 0 falls back to
// DefaultTTL.
func NewCache(ctx context.Context, logger *slog.Logger, redisURL string, ttl time.Duration) (*Cache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Cache{client: client, ttl: ttl, logger: logger}, nil
}

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Get unmarshals the cached value for key into target.
func (c *Cache) Get(ctx context.Context, key string, target any) error {
	if c == nil {
		return ErrMiss
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrMiss
		}

		return fmt.Errorf("failed to get cache key %s: %w", key, err)
	}

	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("failed to unmarshal cached value: %w", err)
	}

	return nil
}

// Set stores value under key for the configured TTL. Failures are
// logged, not returned; a degraded cache never fails a request.
func (c *Cache) Set(ctx context.Context, key string, value any) {
	if c == nil {
		return
	}

	data, err := json.Marshal(value)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to marshal cache value", "key", key, "error", err)

		return
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.ErrorContext(ctx, "failed to set cache key", "key", key, "error", err)
	}
}

// Invalidate removes every key matching pattern. Mutating operations
// call this so readers never see deleted records in cached listings.
func (c *Cache) Invalidate(ctx context.Context, pattern string) {
	if c == nil {
		return
	}

	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			c.logger.ErrorContext(ctx, "failed to delete cache key", "key", iter.Val(), "error", err)
		}
	}

	if err := iter.Err(); err != nil {
		c.logger.ErrorContext(ctx, "failed to scan cache keys", "pattern", pattern, "error", err)
	}
}

// Close releases the Redis connection.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}

	return c.client.Close()
}

// Cache key builders. Invalidation matches on the entity prefix.
func ArticlesListKey(page, limit int, status string) string {
	return fmt.Sprintf("articles:list:%d:%d:%s", page, limit, status)
}

func ArticlesPattern() string { return "articles:*" }

func FeedsListKey(activeOnly bool) string {
	return fmt.Sprintf("feeds:list:%t", activeOnly)
}

func FeedsPattern() string { return "feeds:*" }
