package cmd

import (
	"context"
	"log/slog"
	"time"

	"github.com/dukex/newscast/pkg/cache"
)

// NewCache connects to Redis when a URL is configured. An empty URL
// returns a nil cache, which every cache operation treats as a miss.
func NewCache(ctx context.Context, logger *slog.Logger, redisURL string, ttlSeconds int) (*cache.Cache, error) {
	if redisURL == "" {
		return nil, nil
	}

	return cache.NewCache(ctx, logger, redisURL, time.Duration(ttlSeconds)*time.Second)
}
