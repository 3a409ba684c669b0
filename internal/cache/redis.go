// Package cache provides the Redis access layer used for per-owner rate limits.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Options tunes the Redis connection pool. Zero values keep go-redis defaults.
type Options struct {
	PoolSize        int
	MinIdleConns    int
	PoolTimeout     time.Duration
	ConnMaxIdleTime time.Duration
}

func (o Options) apply(opt *redis.Options) {
	if o.PoolSize > 0 {
		opt.PoolSize = o.PoolSize
	}
	if o.MinIdleConns > 0 {
		opt.MinIdleConns = o.MinIdleConns
	}
	if o.PoolTimeout > 0 {
		opt.PoolTimeout = o.PoolTimeout
	}
	if o.ConnMaxIdleTime > 0 {
		opt.ConnMaxIdleTime = o.ConnMaxIdleTime
	}
}

// Cache wraps the Redis client shared by the limiter and readiness check.
type Cache struct {
	client *redis.Client
}

// New connects to redisURL and verifies the connection with a ping.
// Settings in opts override the ones encoded in the URL.
func New(ctx context.Context, redisURL string, opts Options) (*Cache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.apply(opt)

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Cache{client: client}, nil
}

// NewFromClient wraps an existing client.
func NewFromClient(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// Ping checks Redis connectivity.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Client returns the underlying Redis client.
func (c *Cache) Client() *redis.Client {
	return c.client
}
