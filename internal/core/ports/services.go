package ports

import (
	"context"
	"time"

	"github.com/sean-rowe/geotemp-service/internal/core/domain"
)

// CountryService exposes the country use cases.
type CountryService interface {
	Create(ctx context.Context, country domain.Country) (int64, error)
	List(ctx context.Context) ([]domain.Country, error)
	Update(ctx context.Context, country domain.Country) error
	Delete(ctx context.Context, id int64) error
}

// CityService exposes the city use cases.
type CityService interface {
	Create(ctx context.Context, city domain.City) (int64, error)
	List(ctx context.Context) ([]domain.City, error)
	ListByCountry(ctx context.Context, countryID int64) ([]domain.City, error)
	Update(ctx context.Context, city domain.City) error
	Delete(ctx context.Context, id int64) error
}

// TemperatureService exposes the temperature use cases. Timestamps are
// always assigned by the service.
type TemperatureService interface {
	Create(ctx context.Context, cityID int64, value float64) (int64, error)
	List(ctx context.Context, filter domain.TemperatureFilter) ([]domain.Temperature, error)
	Update(ctx context.Context, id, cityID int64, value float64) error
	Delete(ctx context.Context, id int64) error
}

// CacheService stores serialized list responses.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}
