package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is the shared counter store used for rate limiting.
// Implementations must be safe for concurrent use.
type Cache interface {
	Ping(ctx context.Context) error
	// IncrWindow increments key and starts a window of the given length if
	// none is running. It returns the count within the window and the time
	// left until the window resets.
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// Revocations records access tokens signed out before they expire.
type Revocations interface {
	// RevokeToken blocks the token id for ttl, which should cover the
	// token's remaining lifetime.
	RevokeToken(ctx context.Context, id string, ttl time.Duration) error
	TokenRevoked(ctx context.Context, id string) (bool, error)
}

// RedisCache implements Cache and Revocations using go-redis/v9.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a new RedisCache from a Redis URL.
func NewRedisCache(redisURL string) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &RedisCache{client: redis.NewClient(opts)}, nil
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	ttl := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, err
	}
	left := ttl.Val()
	if left <= 0 || left > window {
		left = window
	}
	return incr.Val(), left, nil
}

func (c *RedisCache) RevokeToken(ctx context.Context, id string, ttl time.Duration) error {
	return c.client.Set(ctx, RevokedTokenKey(id), 1, ttl).Err()
}

func (c *RedisCache) TokenRevoked(ctx context.Context, id string) (bool, error) {
	n, err := c.client.Exists(ctx, RevokedTokenKey(id)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
