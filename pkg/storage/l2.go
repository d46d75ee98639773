package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// l2Cache wraps a Redis-compatible client as the network key-value cache
// tier. Every key is namespaced under a configurable prefix.
type l2Cache struct {
	client *redis.Client
	prefix string
}

func newL2Cache(addr, password string, db int, prefix string) (*l2Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &l2Cache{client: client, prefix: prefix}, nil
}

func (c *l2Cache) key(k string) string { return c.prefix + k }

func (c *l2Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("l2 get %s: %w", key, err)
	}
	return data, true, nil
}

func (c *l2Cache) Set(ctx context.Context, key string, value []byte) error {
	if err := c.client.Set(ctx, c.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("l2 set %s: %w", key, err)
	}
	return nil
}

func (c *l2Cache) SetEX(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("l2 setex %s: %w", key, err)
	}
	return nil
}

func (c *l2Cache) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = c.key(k)
	}
	if err := c.client.Del(ctx, prefixed...).Err(); err != nil {
		return fmt.Errorf("l2 del: %w", err)
	}
	return nil
}

func (c *l2Cache) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.client.Exists(ctx, c.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("l2 exists %s: %w", key, err)
	}
	return n > 0, nil
}

func (c *l2Cache) HealthCheck(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("l2 health check: %w", err)
	}
	return nil
}

func (c *l2Cache) Close() error {
	return c.client.Close()
}
