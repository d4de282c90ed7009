// Package cache holds the Redis side of the service: the connection used by
// the search event stream and the trending leaderboard built from it.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// PoolOptions bounds the Redis connection pool.
type PoolOptions struct {
	PoolSize     int
	MinIdleConns int
}

// DefaultPoolOptions suits a single API instance running the trending worker
// next to request traffic.
func DefaultPoolOptions() PoolOptions {
	return PoolOptions{PoolSize: 10, MinIdleConns: 2}
}

// Cache wraps the Redis client shared by the publisher, the worker and the
// leaderboard reads.
type Cache struct {
	client *redis.Client
}

// New parses redisURL, applies opts and pings the server. Zero option
// fields fall back to DefaultPoolOptions.
func New(ctx context.Context, redisURL string, opts PoolOptions) (*Cache, error) {
	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	defaults := DefaultPoolOptions()
	if opts.PoolSize <= 0 {
		opts.PoolSize = defaults.PoolSize
	}
	if opts.MinIdleConns < 0 || opts.MinIdleConns > opts.PoolSize {
		opts.MinIdleConns = defaults.MinIdleConns
	}

	redisOpts.PoolSize = opts.PoolSize
	redisOpts.MinIdleConns = opts.MinIdleConns
	redisOpts.PoolTimeout = 4 * time.Second
	redisOpts.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(redisOpts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return &Cache{client: client}, nil
}

// NewFromClient wraps an existing client.
func NewFromClient(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// Ping reports whether Redis answers. It backs the readiness probe.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the pool. The publisher and worker must be stopped first.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Client exposes the raw client for the stream publisher and worker.
func (c *Cache) Client() *redis.Client {
	return c.client
}
