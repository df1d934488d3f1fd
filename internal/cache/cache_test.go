package cache

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Day   int      `json:"day"`
	Names []string `json:"names"`
}

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb, "test:"), mr
}

func set(t *testing.T, c *Cache, key string, v payload, tag string) {
	t.Helper()
	ctx := context.Background()
	gen, err := c.Generation(ctx, tag)
	require.NoError(t, err)
	stored, err := c.SetAt(ctx, gen, key, v, time.Minute, tag)
	require.NoError(t, err)
	require.True(t, stored)
}

func TestCacheSetGet(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	var got payload
	hit, err := c.Get(ctx, "ranking:1:1", &got)
	require.NoError(t, err)
	assert.False(t, hit)

	want := payload{Day: 1, Names: []string{"kim", "lee"}}
	set(t, c, "ranking:1:1", want, "class:1")

	hit, err = c.Get(ctx, "ranking:1:1", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, want, got)
}

func TestCacheTTLExpires(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	set(t, c, "k", payload{Day: 2}, "class:9")
	mr.FastForward(2 * time.Minute)

	var got payload
	hit, err := c.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestCacheInvalidateTag(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	set(t, c, "ranking:1:1", payload{Day: 1}, "class:1")
	set(t, c, "ranking:1:2", payload{Day: 2}, "class:1")
	set(t, c, "ranking:2:1", payload{Day: 1}, "class:2")

	require.NoError(t, c.InvalidateTag(ctx, "class:1"))

	var got payload
	hit, err := c.Get(ctx, "ranking:1:1", &got)
	require.NoError(t, err)
	assert.False(t, hit)
	hit, err = c.Get(ctx, "ranking:1:2", &got)
	require.NoError(t, err)
	assert.False(t, hit)
	hit, err = c.Get(ctx, "ranking:2:1", &got)
	require.NoError(t, err)
	assert.True(t, hit, "other class must stay cached")
}

func TestNilCacheIsNoop(t *testing.T) {
	c := New(nil, "x:")
	ctx := context.Background()

	assert.False(t, c.Enabled())
	stored, err := c.SetAt(ctx, 0, "k", payload{}, time.Minute, "t")
	require.NoError(t, err)
	assert.False(t, stored)
	gen, err := c.Generation(ctx, "t")
	require.NoError(t, err)
	assert.Zero(t, gen)
	var got payload
	hit, err := c.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, hit)
	require.NoError(t, c.InvalidateTag(ctx, "t"))
}

func TestCacheSetAtDropsValueAfterInvalidate(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	gen, err := c.Generation(ctx, "class:1")
	require.NoError(t, err)
	// a trade commits while the ranking is being computed
	require.NoError(t, c.InvalidateTag(ctx, "class:1"))

	stored, err := c.SetAt(ctx, gen, "ranking:1:1", payload{Day: 1}, time.Minute, "class:1")
	require.NoError(t, err)
	assert.False(t, stored)

	var got payload
	hit, err := c.Get(ctx, "ranking:1:1", &got)
	require.NoError(t, err)
	assert.False(t, hit)

	next, err := c.Generation(ctx, "class:1")
	require.NoError(t, err)
	assert.Equal(t, gen+1, next)
	set(t, c, "ranking:1:1", payload{Day: 1}, "class:1")
}
