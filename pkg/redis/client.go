// Package redis wraps go-redis/v9 with the handful of operations the analysis
// cache needs: byte get/set with a TTL and prefix invalidation.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/config"
)

// scanBatch is both the SCAN COUNT hint and the number of keys unlinked per
// pipeline round trip.
const scanBatch = 200

// Client wraps a go-redis client.
type Client struct {
	rdb  redis.UniversalClient
	addr string
}

// NewClient connects to cfg.Addr and fails if the server does not answer a
// PING within five seconds.
func NewClient(cfg config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
	})
	c := &Client{rdb: rdb, addr: cfg.Addr}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Ping(ctx); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return c, nil
}

// Get returns the bytes stored at key. A missing key yields an error for
// which IsNilError reports true.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	return c.rdb.Get(ctx, key).Bytes()
}

// Set stores value at key for ttl.
func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

// FlushByPattern removes every key matching the glob pattern and returns how
// many were removed. Keys are unlinked in pipelined batches as the scan
// proceeds, so a partial count is returned alongside any error.
func (c *Client) FlushByPattern(ctx context.Context, pattern string) (int64, error) {
	var (
		removed int64
		batch   = make([]string, 0, scanBatch)
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		cmds, err := c.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
			for _, k := range batch {
				p.Unlink(ctx, k)
			}
			return nil
		})
		for _, cmd := range cmds {
			if ic, ok := cmd.(*redis.IntCmd); ok && ic.Err() == nil {
				removed += ic.Val()
			}
		}
		batch = batch[:0]
		return err
	}

	iter := c.rdb.Scan(ctx, 0, pattern, scanBatch).Iterator()
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatch {
			if err := flush(); err != nil {
				return removed, fmt.Errorf("unlinking keys for %q: %w", pattern, err)
			}
		}
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("scanning keys for %q: %w", pattern, err)
	}
	if err := flush(); err != nil {
		return removed, fmt.Errorf("unlinking keys for %q: %w", pattern, err)
	}
	return removed, nil
}

// IsNilError reports whether err means the key was not found.
func IsNilError(err error) bool {
	return errors.Is(err, redis.Nil)
}

// Ping checks the server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis %s: %w", c.addr, err)
	}
	return nil
}

// Close releases the connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}
