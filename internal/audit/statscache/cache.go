// Package statscache caches audit statistics aggregates in Redis for a short
// TTL. The aggregate query scans a whole trailing window, so dashboards
// polling it would otherwise hammer the store. All methods are nil-safe and
// best-effort: a missing or failing cache degrades to direct store reads.
package statscache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	platformredis "identra/internal/platform/redis"
)

// Cache wraps a Redis client with get/set for statistics payloads.
type Cache struct {
	client *platformredis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// New constructs a cache. Returns nil when the client is nil (Redis not
// configured), which disables caching entirely.
func New(client *platformredis.Client, ttl time.Duration, logger *slog.Logger) *Cache {
	if client == nil {
		return nil
	}
	return &Cache{client: client, ttl: ttl, logger: logger}
}

func key(windowDays int) string {
	return fmt.Sprintf("identra:audit:stats:%d", windowDays)
}

// Get returns the cached statistics for the window, if present. Any unmarshal
// or transport failure reads as a miss.
func Get[T any](ctx context.Context, c *Cache, windowDays int, out *T) bool {
	if c == nil {
		return false
	}

	raw, err := c.client.Get(ctx, key(windowDays)).Bytes()
	if err != nil {
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		c.logger.WarnContext(ctx, "discarding malformed statistics cache entry",
			"window_days", windowDays,
			"error", err,
		)
		return false
	}
	return true
}

// Set stores the statistics for the window. Failures are logged and ignored.
func Set[T any](ctx context.Context, c *Cache, windowDays int, stats T) {
	if c == nil {
		return
	}

	raw, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key(windowDays), raw, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "failed to cache audit statistics",
			"window_days", windowDays,
			"error", err,
		)
	}
}
