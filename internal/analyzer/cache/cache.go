// Package cache memoises scoring responses in Redis. Keys hash the lexicon
// version with the request, so a lexicon change never serves stale scores.
// Concurrent identical requests share one computation via singleflight and
// Redis failures trip a circuit breaker, after which requests are computed
// directly.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/resilience"
)

const keyPrefix = "sentiment:"

// Backend is the key-value store behind the cache. A missing key must be
// reported with an error for which pkgredis.IsNilError is true.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// Cache stores JSON-encoded results.
type Cache struct {
	backend Backend
	version string
	ttl     time.Duration
	breaker *resilience.Breaker
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New creates a cache. version identifies the lexicon in use; m may be nil.
func New(backend Backend, version string, ttl time.Duration, m *metrics.Metrics) *Cache {
	c := &Cache{
		backend: backend,
		version: version,
		ttl:     ttl,
		metrics: m,
		logger:  slog.Default().With("component", "analysis-cache"),
	}
	c.breaker = resilience.NewBreaker("redis-cache", resilience.BreakerSettings{
		Trip:      5,
		Cooldown:  30 * time.Second,
		IsFailure: func(err error) bool { return !pkgredis.IsNilError(err) },
		OnTransition: func(name string, _, to resilience.BreakerState) {
			if m != nil {
				m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			}
		},
	})
	return c
}

// Key builds the cache key for an operation and its inputs.
func (c *Cache) Key(op string, parts ...string) string {
	h := sha256.New()
	h.Write([]byte(c.version))
	h.Write([]byte{0})
	h.Write([]byte(op))
	for _, p := range parts {
		h.Write([]byte{0})
		h.Write([]byte(p))
	}
	return fmt.Sprintf("%s%s:%x", keyPrefix, op, h.Sum(nil)[:16])
}

// GetOrCompute returns the cached value for key, or runs compute, stores its
// result and returns it. hit reports whether the value came from Redis.
func GetOrCompute[T any](ctx context.Context, c *Cache, key string, compute func() (T, error)) (result T, hit bool, err error) {
	if c == nil {
		result, err = compute()
		return result, false, err
	}
	if v, ok := get[T](ctx, c, key); ok {
		return v, true, nil
	}
	val, err, _ := c.group.Do(key, func() (any, error) {
		if v, ok := get[T](ctx, c, key); ok {
			return v, nil
		}
		v, err := compute()
		if err != nil {
			return nil, err
		}
		c.set(ctx, key, v)
		return v, nil
	})
	if err != nil {
		return result, false, err
	}
	return val.(T), false, nil
}

func get[T any](ctx context.Context, c *Cache, key string) (T, bool) {
	var out T
	var data []byte
	err := c.breaker.Do(ctx, func(ctx context.Context) error {
		var err error
		data, err = c.backend.Get(ctx, key)
		return err
	})
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Debug("cache get failed", "key", key, "error", err)
		}
		c.miss()
		return out, false
	}
	if err := json.Unmarshal(data, &out); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.miss()
		return out, false
	}
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
	return out, true
}

func (c *Cache) set(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.breaker.Do(ctx, func(ctx context.Context) error {
		return c.backend.Set(ctx, key, data, c.ttl)
	})
	if err != nil {
		c.logger.Debug("cache set failed", "key", key, "error", err)
	}
}

func (c *Cache) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

// Invalidate removes every cached entry, or only those of op when given.
func (c *Cache) Invalidate(ctx context.Context, op string) (int64, error) {
	pattern := keyPrefix + "*"
	if op = strings.TrimSpace(op); op != "" {
		pattern = keyPrefix + op + ":*"
	}
	deleted, err := c.backend.FlushByPattern(ctx, pattern)
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "pattern", pattern, "keys_deleted", deleted)
	return deleted, nil
}

// Stats reports hit and miss counts since start.
type Stats struct {
	Hits     int64  `json:"hits"`
	Misses   int64  `json:"misses"`
	Breaker  string `json:"breaker"`
	Rejected uint64 `json:"breaker_rejected"`
}

// Stats returns current counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
		Breaker:  c.breaker.State().String(),
		Rejected: c.breaker.Counts().Rejected,
	}
}
