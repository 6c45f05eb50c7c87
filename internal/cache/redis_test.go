package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisCacheTest(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := NewRedisCache(NewRedisClient(mr.Addr(), "", 0))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestNewRedisCache_NilClient(t *testing.T) {
	_, err := NewRedisCache(nil)
	assert.ErrorIs(t, err, ErrNilClient)
}

func TestRedisCache_GetMissing(t *testing.T) {
	c, _ := newRedisCacheTest(t)

	v, found, err := c.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, v)
}

func TestRedisCache_SetGetRemove(t *testing.T) {
	c, _ := newRedisCacheTest(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v1", 0))
	v, found, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "v1", v)

	require.NoError(t, c.Set(ctx, "k", "v2", 0))
	v, _, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v2", v)

	require.NoError(t, c.Remove(ctx, "k"))
	exists, err := c.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, c.Remove(ctx, "k"), "removing a missing key is not an error")
}

func TestRedisCache_SetNX(t *testing.T) {
	c, _ := newRedisCacheTest(t)
	ctx := context.Background()

	ok, err := c.SetNX(ctx, "k", "first", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.SetNX(ctx, "k", "second", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)

	v, _, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "first", v)
}

func TestRedisCache_TTLExpires(t *testing.T) {
	c, mr := newRedisCacheTest(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	assert.Equal(t, time.Minute, mr.TTL("k"))

	mr.FastForward(time.Minute + time.Second)

	exists, err := c.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRedisCache_PingContext(t *testing.T) {
	c, mr := newRedisCacheTest(t)
	require.NoError(t, c.PingContext(context.Background()))

	mr.Close()
	assert.Error(t, c.PingContext(context.Background()))
}
