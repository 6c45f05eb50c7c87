// Package revocation records logged-out access tokens so they are refused until they would have expired anyway.
package revocation

import (
	"context"
	"time"

	"mini-iam/backend/internal/cache"
	"mini-iam/backend/internal/security"
)

const (
	// KeyPrefix namespaces revocation entries in the cache.
	KeyPrefix = "blacklisted-jwt:"
	// DefaultTTL bounds how long a revocation entry is kept.
	DefaultTTL = 24 * time.Hour
)

// Cache is the revocation list. Entries are write-once: re-revoking keeps the first timestamp and TTL.
type Cache struct {
	store cache.Cache
	ttl   time.Duration
	now   func() time.Time
}

// New returns a revocation Cache over store. ttl <= 0 selects DefaultTTL.
func New(store cache.Cache, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{store: store, ttl: ttl, now: func() time.Time { return time.Now().UTC() }}
}

// Key returns the cache key for token. The token itself is hashed so raw bearer tokens never reach the cache.
func Key(token string) string {
	return KeyPrefix + security.HashToken(token)
}

// IsRevoked reports whether token has been revoked.
func (c *Cache) IsRevoked(ctx context.Context, token string) (bool, error) {
	return c.store.Exists(ctx, Key(token))
}

// Revoke adds token to the revocation list. Revoking an already revoked token is a no-op.
func (c *Cache) Revoke(ctx context.Context, token string) error {
	_, err := c.store.SetNX(ctx, Key(token), c.now().Format(time.RFC3339Nano), c.ttl)
	return err
}

// RevokedAt returns when token was first revoked. ok is false when it is not revoked.
func (c *Cache) RevokedAt(ctx context.Context, token string) (at time.Time, ok bool, err error) {
	v, found, err := c.store.Get(ctx, Key(token))
	if err != nil || !found {
		return time.Time{}, false, err
	}
	at, err = time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, false, err
	}
	return at, true, nil
}
