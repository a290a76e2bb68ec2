// Package rediscache provides a Redis-backed action.IdempotencyCache so that
// action deduplication spans every replica sharing the Redis instance rather
// than a single process. Redis TTLs replace the in-memory lazy compaction.
package rediscache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/helpmesh/helpmesh/action"
	"github.com/helpmesh/helpmesh/logging"
)

const keyPrefix = "helpmesh:action:"

// Cache implements action.IdempotencyCache on top of go-redis. Lookups are
// best-effort: a Redis outage degrades to cache misses, never to failed
// action calls.
type Cache struct {
	rdb     *redis.Client
	logger  logging.Logger
	timeout time.Duration
}

var _ action.IdempotencyCache = (*Cache)(nil)

// Options configure a Cache.
type Options struct {
	// Timeout bounds each Redis round trip.
	Timeout time.Duration

	// Logger defaults to NoOpLogger.
	Logger logging.Logger
}

// New creates a Cache from an existing Redis client.
func New(rdb *redis.Client, optFns ...func(o *Options)) *Cache {
	opts := Options{
		Timeout: 2 * time.Second,
		Logger:  logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Cache{rdb: rdb, logger: opts.Logger, timeout: opts.Timeout}
}

// Get implements action.IdempotencyCache.
func (c *Cache) Get(key string) (*action.Result, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	raw, err := c.rdb.Get(ctx, keyPrefix+key).Result()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("redis idempotency cache lookup failed", "error", err.Error())
		return nil, false
	}

	var result action.Result
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		c.logger.Warn("redis idempotency cache held malformed entry", "error", err.Error())
		return nil, false
	}
	return &result, true
}

// Set implements action.IdempotencyCache.
func (c *Cache) Set(key string, result *action.Result, ttl time.Duration) {
	raw, err := json.Marshal(result)
	if err != nil {
		c.logger.Warn("failed to marshal action result for redis cache", "error", err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	if err := c.rdb.Set(ctx, keyPrefix+key, raw, ttl).Err(); err != nil {
		c.logger.Warn("redis idempotency cache write failed", "error", err.Error())
	}
}
