// Package services implements the business rules of the registry: ordering
// of existence and uniqueness pre-checks, transactional writes and the
// translation of store constraint violations into domain errors.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sean-rowe/geotemp-service/internal/core/domain"
	"github.com/sean-rowe/geotemp-service/internal/core/ports"
)

// DefaultCacheTTL is used for cached list responses unless overridden.
const DefaultCacheTTL = 5 * time.Minute

const (
	listGenerationKey = "lists:generation"
	countriesListKey  = "countries:list"
	citiesListKey     = "cities:list"
)

func citiesByCountryKey(countryID int64) string {
	return fmt.Sprintf("cities:country:%d", countryID)
}

// Option configures a service.
type Option func(*options)

type options struct {
	cacheTTL time.Duration
	now      func() time.Time
}

// WithCacheTTL sets the time-to-live of cached list responses.
func WithCacheTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.cacheTTL = ttl
		}
	}
}

// WithClock replaces the wall clock used to timestamp readings.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		cacheTTL: DefaultCacheTTL,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(&o)
	}

	return o
}

// listCache reads and writes JSON encoded list results. A nil cache disables
// caching; cache failures are logged and otherwise ignored.
//
// Entries are keyed under the current list generation. Every committed
// mutation replaces the generation, so a list read that raced with a write
// stores its result under a generation nobody reads any more.
type listCache struct {
	cache  ports.CacheService
	ttl    time.Duration
	logger *zap.Logger
}

// generation returns the current list generation, starting a new one when
// none is set. An empty result means caching is unavailable for this call.
func (c listCache) generation(ctx context.Context) string {
	if data, err := c.cache.Get(ctx, listGenerationKey); err == nil && len(data) > 0 {
		return string(data)
	}

	return c.advance(ctx)
}

// advance replaces the list generation and returns the new one, or an empty
// string when it could not be written.
func (c listCache) advance(ctx context.Context) string {
	generation := uuid.NewString()

	if err := c.cache.Set(ctx, listGenerationKey, []byte(generation), 0); err != nil {
		c.logger.Warn("failed to advance list generation", zap.Error(err))
		return ""
	}

	return generation
}

// load fills dst from the entry for key. The returned slot is where a fresh
// result for key belongs; it is empty when caching is unavailable.
func (c listCache) load(ctx context.Context, key string, dst any) (slot string, hit bool) {
	if c.cache == nil {
		return "", false
	}

	generation := c.generation(ctx)
	if generation == "" {
		return "", false
	}

	slot = key + "@" + generation

	data, err := c.cache.Get(ctx, slot)
	if err != nil || data == nil {
		return slot, false
	}

	if err := json.Unmarshal(data, dst); err != nil {
		c.logger.Warn("discarding undecodable cache entry", zap.String("key", slot), zap.Error(err))
		return slot, false
	}

	return slot, true
}

func (c listCache) store(ctx context.Context, slot string, value any) {
	if c.cache == nil || slot == "" {
		return
	}

	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("failed to encode cache entry", zap.String("key", slot), zap.Error(err))
		return
	}

	if err := c.cache.Set(ctx, slot, data, c.ttl); err != nil {
		c.logger.Warn("failed to write cache entry", zap.String("key", slot), zap.Error(err))
	}
}

// invalidate retires every cached list. It runs after the mutation committed.
func (c listCache) invalidate(ctx context.Context) {
	if c.cache == nil {
		return
	}

	c.advance(ctx)
}

// violations says which domain error a store constraint violation becomes.
// A nil entry falls through to an internal error.
type violations struct {
	unique     *domain.ServiceError
	foreignKey *domain.ServiceError
}

// translate converts an error returned from a store transaction into a
// domain error. Errors that already are domain errors pass through.
func translate(err error, operation string, v violations) error {
	var serviceErr *domain.ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr
	}

	switch {
	case errors.Is(err, domain.ErrUniqueViolation) && v.unique != nil:
		return v.unique.WithCause(err)
	case errors.Is(err, domain.ErrForeignKeyViolation) && v.foreignKey != nil:
		return v.foreignKey.WithCause(err)
	case errors.Is(err, domain.ErrRecordNotFound):
		return domain.NewError(domain.CodeReferenceNotFound, "Record not found").WithCause(err)
	default:
		return domain.NewError(domain.CodeInternal, "Failed to %s", operation).WithCause(err)
	}
}

func constraintViolation() *domain.ServiceError {
	return domain.NewError(domain.CodeConstraintViolation, "DB constraints violated")
}

func logOutcome(logger *zap.Logger, msg string, err error, fields ...zap.Field) {
	fields = append(fields, zap.Error(err))

	if domain.HasCode(err, domain.CodeInternal) {
		logger.Error(msg, fields...)
		return
	}

	logger.Info(msg, fields...)
}
