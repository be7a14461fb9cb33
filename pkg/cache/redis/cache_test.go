package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, prefix string) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := New(Options{Addr: mr.Addr(), Prefix: prefix})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestSetAndGet(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t, "")

	require.NoError(t, c.Set(ctx, "abc", "cached answer", time.Hour))

	got, ok, err := c.Get(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "cached answer", got)

	// Stored under the raw key with a one hour expiry.
	assert.Equal(t, time.Hour, mr.TTL("abc"))

	_, ok, err = c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.Entries)
	assert.EqualValues(t, 1, stats.Hits)
	assert.EqualValues(t, 1, stats.Misses)
}

func TestExpiry(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t, "")

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	mr.FastForward(2 * time.Minute)

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPrefixFlush(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t, "folio:")

	require.NoError(t, c.Set(ctx, "a", "1", time.Hour))
	require.NoError(t, c.Set(ctx, "b", "2", time.Hour))
	require.NoError(t, mr.Set("other", "keep"))

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.Entries)

	require.NoError(t, c.Flush(ctx))
	assert.False(t, mr.Exists("folio:a"))
	assert.False(t, mr.Exists("folio:b"))
	assert.True(t, mr.Exists("other"))
}

func TestFlushDB(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t, "")

	require.NoError(t, c.Set(ctx, "a", "1", time.Hour))
	require.NoError(t, c.Flush(ctx))
	assert.Empty(t, mr.Keys())
}

func TestUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	mr := miniredis.RunT(t)
	c, err := New(Options{Addr: mr.Addr()})
	require.NoError(t, err)
	defer c.Close()
	mr.Close()

	_, ok, err := c.Get(ctx, "k")
	assert.Error(t, err)
	assert.False(t, ok)
	assert.Error(t, c.Ping(ctx))
}

func TestNewRequiresAddress(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}
