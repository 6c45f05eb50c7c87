package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache implements Cache on top of go-redis.
type RedisCache struct {
	rdb redis.UniversalClient
}

// NewRedisClient returns a go-redis client for addr. It does not dial; call PingContext to check connectivity.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// NewRedisCache wraps rdb.
func NewRedisCache(rdb redis.UniversalClient) (*RedisCache, error) {
	if rdb == nil {
		return nil, ErrNilClient
	}
	return &RedisCache{rdb: rdb}, nil
}

// Get returns the value for key. A missing key yields "", false, nil.
func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// Set stores value under key. A zero ttl means no expiry.
func (c *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

// SetNX stores value only if key is absent and reports whether it did.
func (c *RedisCache) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, key, value, ttl).Result()
}

// Exists reports whether key is present.
func (c *RedisCache) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Remove deletes key. Removing a missing key is not an error.
func (c *RedisCache) Remove(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, key).Err()
}

// PingContext checks the Redis connection. Used by the readiness check.
func (c *RedisCache) PingContext(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the underlying client.
func (c *RedisCache) Close() error {
	return c.rdb.Close()
}
