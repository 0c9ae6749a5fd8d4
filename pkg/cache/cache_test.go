package cache_test

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/newscast/pkg/cache"
)

func setupCache(t *testing.T) (*cache.Cache, *miniredis.Miniredis) {
	t.Helper()

	server := miniredis.RunT(t)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	c, err := cache.NewCache(context.Background(), logger, "redis://"+server.Addr(), 300*time.Second)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, c.Close())
	})

	return c, server
}

func TestCacheSetGet(t *testing.T) {
	c, _ := setupCache(t)
	ctx := context.Background()

	type page struct {
		Titles []string `json:"titles"`
	}

	key := cache.ArticlesListKey(1, 20, "APPROVED")
	c.Set(ctx, key, page{Titles: []string{"un", "deux"}})

	var got page
	require.NoError(t, c.Get(ctx, key, &got))
	assert.Equal(t, []string{"un", "deux"}, got.Titles)
}

func TestCacheMiss(t *testing.T) {
	c, _ := setupCache(t)

	var got map[string]any
	err := c.Get(context.Background(), "articles:list:9:20:", &got)
	assert.ErrorIs(t, err, cache.ErrMiss)
}

func TestCacheExpiry(t *testing.T) {
	c, server := setupCache(t)
	ctx := context.Background()

	key := cache.ArticlesListKey(1, 20, "")
	c.Set(ctx, key, map[string]string{"a": "b"})

	server.FastForward(301 * time.Second)

	var got map[string]string
	err := c.Get(ctx, key, &got)
	assert.ErrorIs(t, err, cache.ErrMiss)
}

func TestCacheInvalidatePattern(t *testing.T) {
	c, _ := setupCache(t)
	ctx := context.Background()

	c.Set(ctx, cache.ArticlesListKey(1, 20, ""), "page1")
	c.Set(ctx, cache.ArticlesListKey(2, 20, ""), "page2")
	c.Set(ctx, cache.FeedsListKey(true), "feeds")

	c.Invalidate(ctx, cache.ArticlesPattern())

	var got string
	assert.ErrorIs(t, c.Get(ctx, cache.ArticlesListKey(1, 20, ""), &got), cache.ErrMiss)
	assert.ErrorIs(t, c.Get(ctx, cache.ArticlesListKey(2, 20, ""), &got), cache.ErrMiss)

	require.NoError(t, c.Get(ctx, cache.FeedsListKey(true), &got))
	assert.Equal(t, "feeds", got)
}

func TestNilCacheIsNoOp(t *testing.T) {
	var c *cache.Cache

	ctx := context.Background()

	c.Set(ctx, "k", "v")
	c.Invalidate(ctx, "k*")

	var got string
	assert.ErrorIs(t, c.Get(ctx, "k", &got), cache.ErrMiss)
	assert.NoError(t, c.Close())
}
