// Package cache provides the best-effort read cache in front of the primary store.
//
// Values are JSON documents. Every backend failure is logged and then treated as a
// miss or a no-op; callers never see a cache error.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// DefaultTTL bounds how long a stale entry can survive a missed invalidation.
const DefaultTTL = time.Hour

// Store is a raw key-value backend with per-entry expiry.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Cache wraps a Store with JSON encoding and the swallow-and-log error policy.
// A nil *Cache is valid and behaves as an always-missing cache.
type Cache struct {
	store  Store
	ttl    time.Duration
	logger *slog.Logger
}

// New creates a Cache over store. A non-positive ttl falls back to DefaultTTL.
func New(store Store, ttl time.Duration, logger *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{store: store, ttl: ttl, logger: logger}
}

// TTL returns the expiry applied to every entry.
func (c *Cache) TTL() time.Duration {
	if c == nil {
		return 0
	}
	return c.ttl
}

// Get decodes the entry stored under key into dest and reports whether it was a hit.
func (c *Cache) Get(ctx context.Context, key string, dest any) bool {
	if c == nil || c.store == nil {
		return false
	}
	data, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn("cache get failed", "key", key, "error", err)
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.Warn("cache entry undecodable, dropping", "key", key, "error", err)
		c.Delete(ctx, key)
		return false
	}
	return true
}

// Set stores value under key with the cache's TTL.
func (c *Cache) Set(ctx context.Context, key string, value any) {
	if c == nil || c.store == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("cache encode failed", "key", key, "error", err)
		return
	}
	if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

// Delete removes every key in keys. Duplicates and empty keys are ignored.
func (c *Cache) Delete(ctx context.Context, keys ...string) {
	if c == nil || c.store == nil || len(keys) == 0 {
		return
	}
	unique := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		unique = append(unique, k)
	}
	if len(unique) == 0 {
		return
	}
	if err := c.store.Delete(ctx, unique...); err != nil {
		c.logger.Warn("cache delete failed", "keys", unique, "error", err)
	}
}
