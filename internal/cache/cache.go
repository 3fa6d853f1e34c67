// Package cache provides a Redis-backed cache for assembled report bundles.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/lvonguyen/reportforge/internal/observability"
)

const keyPrefix = "reportforge:bundle:"

// BundleCache caches serialized report bundles keyed by a digest of the
// input data and assembly options. All failures degrade to a miss; the
// pipeline never depends on Redis being up.
type BundleCache struct {
	redis   *redis.Client
	logger  *zap.Logger
	metrics *observability.Metrics
	ttl     time.Duration
}

// New creates a bundle cache. A nil client disables caching entirely.
func New(client *redis.Client, ttl time.Duration, logger *zap.Logger, metrics *observability.Metrics) *BundleCache {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &BundleCache{
		redis:   client,
		logger:  logger,
		metrics: metrics,
		ttl:     ttl,
	}
}

// Key derives the cache key for a request payload. The digest covers the
// raw input bytes plus the serialized options, so any change to either
// produces a fresh bundle.
func Key(payload []byte) string {
	sum := sha256.Sum256(payload)
	return keyPrefix + hex.EncodeToString(sum[:])
}

// Get returns the cached bundle for key, or nil on a miss.
func (c *BundleCache) Get(ctx context.Context, key string) []byte {
	if c == nil || c.redis == nil {
		return nil
	}

	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("Bundle cache read failed", zap.Error(err))
		}
		if c.metrics != nil {
			c.metrics.CacheMisses.Inc()
		}
		return nil
	}

	if c.metrics != nil {
		c.metrics.CacheHits.Inc()
	}
	return data
}

// Set stores a serialized bundle. Errors are logged and swallowed.
func (c *BundleCache) Set(ctx context.Context, key string, data []byte) {
	if c == nil || c.redis == nil {
		return
	}

	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("Bundle cache write failed", zap.Error(err))
	}
}

// Ping verifies connectivity for readiness checks.
func (c *BundleCache) Ping(ctx context.Context) error {
	if c == nil || c.redis == nil {
		return nil
	}
	return c.redis.Ping(ctx).Err()
}
