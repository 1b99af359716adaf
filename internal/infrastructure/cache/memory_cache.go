// Package cache provides the list caches of the registry. Entries are
// opaque serialized payloads keyed by list name; both backends are traced
// with OpenTelemetry.
package cache

import (
	"context"
	"errors"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ErrCacheMiss indicates a cache key was not found.
var ErrCacheMiss = errors.New("cache miss")

// MemoryCache provides an in-memory cache implementation using go-cache.
type MemoryCache struct {
	cache  *gocache.Cache
	logger *zap.Logger
}

// NewMemoryCache creates a new in-memory cache with specified TTL and cleanup intervals.
//
// Parameters:
//   - defaultTTL: Default time-to-live for cached items
//   - cleanupInterval: How often to clean up expired items
//   - logger: Zap logger for cache operations
//
// Returns:
//   - *MemoryCache: In-memory cache implementation
func NewMemoryCache(defaultTTL, cleanupInterval time.Duration, logger *zap.Logger) *MemoryCache {
	return &MemoryCache{
		cache:  gocache.New(defaultTTL, cleanupInterval),
		logger: logger,
	}
}

// Get retrieves a value from the cache by key.
//
// Returns:
//   - []byte: Cached value if found
//   - error: ErrCacheMiss if key is not found
func (m *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	_, span := otel.Tracer("cache").Start(ctx, "MemoryCache.Get")
	defer span.End()

	span.SetAttributes(attribute.String("cache.key", key))

	value, found := m.cache.Get(key)
	if !found {
		span.SetAttributes(attribute.Bool("cache.hit", false))
		m.logger.Debug("memory cache miss", zap.String("key", key))

		return nil, ErrCacheMiss
	}

	span.SetAttributes(attribute.Bool("cache.hit", true))
	m.logger.Debug("memory cache hit", zap.String("key", key))

	data := value.([]byte)
	out := make([]byte, len(data))
	copy(out, data)

	return out, nil
}

// Set stores a copy of value under key for ttl.
func (m *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, span := otel.Tracer("cache").Start(ctx, "MemoryCache.Set")
	defer span.End()

	span.SetAttributes(
		attribute.String("cache.key", key),
		attribute.Int("cache.value_size", len(value)),
		attribute.String("cache.ttl", ttl.String()),
	)

	data := make([]byte, len(value))
	copy(data, value)

	m.cache.Set(key, data, ttl)
	m.logger.Debug("memory cache set", zap.String("key", key))

	return nil
}

// Delete removes keys from the cache. Missing keys are ignored.
func (m *MemoryCache) Delete(ctx context.Context, keys ...string) error {
	_, span := otel.Tracer("cache").Start(ctx, "MemoryCache.Delete")
	defer span.End()

	span.SetAttributes(attribute.StringSlice("cache.keys", keys))

	for _, key := range keys {
		m.cache.Delete(key)
	}

	m.logger.Debug("memory cache delete", zap.Strings("keys", keys))

	return nil
}

// ItemCount returns the number of entries, including expired entries that
// have not been cleaned up yet.
func (m *MemoryCache) ItemCount() int {
	return m.cache.ItemCount()
}
