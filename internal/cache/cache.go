// Package cache defines the key/value cache used by the service and its Redis implementation.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNilClient is returned by NewRedisCache when no client is supplied.
var ErrNilClient = errors.New("cache: nil redis client")

// Cache is a string key/value store with per-key TTLs.
// A ttl of zero means the key does not expire.
type Cache interface {
	// Get returns the value for key. found is false when the key does not exist or has expired.
	Get(ctx context.Context, key string) (value string, found bool, err error)
	// Set stores value under key, overwriting any existing value.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// SetNX stores value under key only if key is absent. Returns true when it stored the value.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)
	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
}
