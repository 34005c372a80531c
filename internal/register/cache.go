package register

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tillpoint/pos-engine/pkg/redis"
)

// RedisCartCache persists live cart snapshots to Redis so a register can
// recover its cart after a restart.
type RedisCartCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCartCache wraps the shared Redis client. ttl bounds how long an
// abandoned cart survives.
func NewRedisCartCache(client *redis.Client, ttl time.Duration) (*RedisCartCache, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &RedisCartCache{client: client, ttl: ttl}, nil
}

func (c *RedisCartCache) SaveCart(ctx context.Context, registerID string, payload []byte) error {
	return c.client.Set(ctx, c.client.CartKey(registerID), string(payload), c.ttl)
}

func (c *RedisCartCache) LoadCart(ctx context.Context, registerID string) ([]byte, bool, error) {
	value, err := c.client.Get(ctx, c.client.CartKey(registerID))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return []byte(value), true, nil
}

func (c *RedisCartCache) DeleteCart(ctx context.Context, registerID string) error {
	return c.client.Del(ctx, c.client.CartKey(registerID))
}
