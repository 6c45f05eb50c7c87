package revocation

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mini-iam/backend/internal/cache"
)

func newRevocationTest(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	store, err := cache.NewRedisCache(cache.NewRedisClient(mr.Addr(), "", 0))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return New(store, 0), mr
}

func TestKey_HashesToken(t *testing.T) {
	k := Key("header.payload.signature")
	assert.True(t, strings.HasPrefix(k, KeyPrefix))
	assert.NotContains(t, k, "payload")
	assert.Len(t, k, len(KeyPrefix)+64)
	assert.Equal(t, k, Key("header.payload.signature"))
}

func TestCache_RevokeAndIsRevoked(t *testing.T) {
	c, mr := newRevocationTest(t)
	ctx := context.Background()

	revoked, err := c.IsRevoked(ctx, "tok")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, c.Revoke(ctx, "tok"))

	revoked, err = c.IsRevoked(ctx, "tok")
	require.NoError(t, err)
	assert.True(t, revoked)
	assert.Equal(t, DefaultTTL, mr.TTL(Key("tok")))

	other, err := c.IsRevoked(ctx, "other")
	require.NoError(t, err)
	assert.False(t, other)
}

func TestCache_RevokeIsWriteOnce(t *testing.T) {
	c, mr := newRevocationTest(t)
	ctx := context.Background()

	first := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	c.now = func() time.Time { return first }
	require.NoError(t, c.Revoke(ctx, "tok"))

	mr.FastForward(time.Hour)
	c.now = func() time.Time { return first.Add(time.Hour) }
	require.NoError(t, c.Revoke(ctx, "tok"))

	at, ok, err := c.RevokedAt(ctx, "tok")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, at.Equal(first), "second revoke must not overwrite the timestamp")
	assert.Equal(t, DefaultTTL-time.Hour, mr.TTL(Key("tok")), "second revoke must not extend the TTL")
}

func TestCache_EntryExpires(t *testing.T) {
	c, mr := newRevocationTest(t)
	ctx := context.Background()

	require.NoError(t, c.Revoke(ctx, "tok"))
	mr.FastForward(DefaultTTL + time.Second)

	revoked, err := c.IsRevoked(ctx, "tok")
	require.NoError(t, err)
	assert.False(t, revoked)

	_, ok, err := c.RevokedAt(ctx, "tok")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_StoreFailure(t *testing.T) {
	c, mr := newRevocationTest(t)
	mr.Close()

	_, err := c.IsRevoked(context.Background(), "tok")
	assert.Error(t, err)
	assert.Error(t, c.Revoke(context.Background(), "tok"))
}
