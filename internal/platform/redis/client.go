// Package redis connects the optional dispatch-record cache. The engine is
// fully functional without it; every lookup just falls through to Postgres.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"tempora/internal/platform/config"
)

// Client wraps the go-redis client behind this package's constructor.
type Client struct {
	*redis.Client
}

// New connects to Redis and verifies the connection with a ping. Returns nil
// when no URL is configured, which callers treat as "cache disabled".
func New(cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{Client: client}, nil
}

// Close closes the underlying connection pool.
func (c *Client) Close() error {
	return c.Client.Close()
}
