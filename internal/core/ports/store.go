// Package ports declares the interfaces between the core services and the
// adapters that drive them or that they drive.
package ports

import (
	"context"
	"time"

	"github.com/sean-rowe/geotemp-service/internal/core/domain"
)

// CountryRepository persists countries.
type CountryRepository interface {
	CreateCountry(ctx context.Context, country domain.Country) (int64, error)
	GetCountry(ctx context.Context, id int64) (*domain.Country, error)
	ListCountries(ctx context.Context) ([]domain.Country, error)
	// CountryNameTaken reports whether a country other than excludeID holds name.
	// Pass 0 to exclude nothing.
	CountryNameTaken(ctx context.Context, name string, excludeID int64) (bool, error)
	UpdateCountry(ctx context.Context, country domain.Country) error
	DeleteCountry(ctx context.Context, id int64) error
}

// CityRepository persists cities.
type CityRepository interface {
	CreateCity(ctx context.Context, city domain.City) (int64, error)
	GetCity(ctx context.Context, id int64) (*domain.City, error)
	ListCities(ctx context.Context) ([]domain.City, error)
	ListCitiesByCountry(ctx context.Context, countryID int64) ([]domain.City, error)
	// CityNameTaken reports whether a city other than excludeID holds
	// (countryID, name). Pass 0 to exclude nothing.
	CityNameTaken(ctx context.Context, countryID int64, name string, excludeID int64) (bool, error)
	UpdateCity(ctx context.Context, city domain.City) error
	DeleteCity(ctx context.Context, id int64) error
}

// TemperatureRepository persists temperature readings.
type TemperatureRepository interface {
	CreateTemperature(ctx context.Context, reading domain.Temperature) (int64, error)
	GetTemperature(ctx context.Context, id int64) (*domain.Temperature, error)
	// ReadingExists reports whether a reading other than excludeID is stored
	// for (cityID, timestamp). Pass 0 to exclude nothing.
	ReadingExists(ctx context.Context, cityID int64, timestamp time.Time, excludeID int64) (bool, error)
	UpdateTemperature(ctx context.Context, reading domain.Temperature) error
	DeleteTemperature(ctx context.Context, id int64) error
	ListTemperatures(ctx context.Context, filter domain.TemperatureFilter) ([]domain.Temperature, error)
}

// Repository groups every entity repository bound to one connection or
// transaction.
type Repository interface {
	CountryRepository
	CityRepository
	TemperatureRepository
}

// Store is the transactional relational store. Reads may go through the
// embedded Repository directly; multi-step mutations run inside InTx so that
// pre-checks and writes observe the same transaction.
type Store interface {
	Repository

	// InTx runs fn inside a transaction. The transaction is committed when fn
	// returns nil and rolled back otherwise; commit failures are returned.
	InTx(ctx context.Context, fn func(repo Repository) error) error

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error
}
