// Package redis wraps go-redis/v9 for the run-history cache: one key per
// published run plus a capped list of recent run IDs per benchmark.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Adithya-Monish-Kumar-K/search-bench/pkg/config"
)

type Client struct {
	rdb *redis.Client
}

// NewClient creates a Redis client and verifies the connection with a PING.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return &Client{rdb: rdb}, nil
}

// PushRun stores value under key with ttl and records id at the head of
// listKey, keeping at most keep entries. Both writes go in one MULTI.
func (c *Client) PushRun(ctx context.Context, key string, listKey string, id string, value []byte, ttl time.Duration, keep int64) error {
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, value, ttl)
		pipe.LPush(ctx, listKey, id)
		if keep > 0 {
			pipe.LTrim(ctx, listKey, 0, keep-1)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("storing run %s: %w", id, err)
	}
	return nil
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
