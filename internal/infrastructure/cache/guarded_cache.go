package cache

import (
	"context"
	"errors"
	"time"

	"github.com/sean-rowe/geotemp-service/internal/core/ports"
	"github.com/sean-rowe/geotemp-service/internal/infrastructure/circuitbreaker"
)

// Recorder receives cache hit and miss events.
// *observability.Telemetry satisfies it.
type Recorder interface {
	RecordCacheHit(ctx context.Context, key string)
	RecordCacheMiss(ctx context.Context, key string)
}

// GuardedCache runs every call of a remote cache through a circuit breaker
// so an unavailable backend fails fast. Misses do not count as failures.
type GuardedCache struct {
	next     ports.CacheService
	breaker  *circuitbreaker.CircuitBreakerWrapper
	recorder Recorder
}

// NewGuardedCache wraps next with breaker. recorder may be nil.
func NewGuardedCache(next ports.CacheService, breaker *circuitbreaker.CircuitBreakerWrapper, recorder Recorder) *GuardedCache {
	return &GuardedCache{
		next:     next,
		breaker:  breaker,
		recorder: recorder,
	}
}

// Get returns ErrCacheMiss for absent keys and the breaker error while open.
func (g *GuardedCache) Get(ctx context.Context, key string) ([]byte, error) {
	var (
		data []byte
		miss bool
	)

	err := g.breaker.Execute(ctx, "cache.get", func() error {
		var err error

		data, err = g.next.Get(ctx, key)
		if errors.Is(err, ErrCacheMiss) {
			miss = true
			return nil
		}

		return err
	})

	switch {
	case err != nil:
		return nil, err
	case miss:
		g.record(ctx, key, false)
		return nil, ErrCacheMiss
	default:
		g.record(ctx, key, true)
		return data, nil
	}
}

func (g *GuardedCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return g.breaker.Execute(ctx, "cache.set", func() error {
		return g.next.Set(ctx, key, value, ttl)
	})
}

func (g *GuardedCache) Delete(ctx context.Context, keys ...string) error {
	return g.breaker.Execute(ctx, "cache.delete", func() error {
		return g.next.Delete(ctx, keys...)
	})
}

func (g *GuardedCache) record(ctx context.Context, key string, hit bool) {
	if g.recorder == nil {
		return
	}

	if hit {
		g.recorder.RecordCacheHit(ctx, key)
	} else {
		g.recorder.RecordCacheMiss(ctx, key)
	}
}
