package services

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/sean-rowe/geotemp-service/internal/core/domain"
	"github.com/sean-rowe/geotemp-service/internal/core/ports"
)

type cityService struct {
	store  ports.Store
	cache  listCache
	logger *zap.Logger
}

// NewCityService creates the city use cases on top of store. cache may be nil.
func NewCityService(store ports.Store, cache ports.CacheService, logger *zap.Logger, opts ...Option) ports.CityService {
	o := buildOptions(opts)

	return &cityService{
		store:  store,
		cache:  listCache{cache: cache, ttl: o.cacheTTL, logger: logger},
		logger: logger,
	}
}

func cityNameConflict(cityName, countryName string) *domain.ServiceError {
	return domain.NewError(domain.CodeUniquenessConflict,
		"City '%s' already exists in country '%s'", cityName, countryName)
}

func cityNotFound(id int64) *domain.ServiceError {
	return domain.NewError(domain.CodeReferenceNotFound, "City with id %d doesn't exist", id)
}

// lookupCountry maps a missing country to a not-found domain error.
func lookupCountry(ctx context.Context, repo ports.Repository, id int64) (*domain.Country, error) {
	country, err := repo.GetCountry(ctx, id)
	if errors.Is(err, domain.ErrRecordNotFound) {
		return nil, countryNotFound(id)
	}

	return country, err
}

// Create registers a city in an existing country. A duplicate name within
// the country is reported by the store's unique constraint as a conflict.
func (s *cityService) Create(ctx context.Context, city domain.City) (int64, error) {
	var (
		id          int64
		countryName string
	)

	err := s.store.InTx(ctx, func(repo ports.Repository) error {
		country, err := lookupCountry(ctx, repo, city.CountryID)
		if err != nil {
			return err
		}

		countryName = country.Name
		id, err = repo.CreateCity(ctx, city)

		return err
	})

	if err != nil {
		err = translate(err, "create city", violations{
			unique:     cityNameConflict(city.Name, countryName),
			foreignKey: countryNotFound(city.CountryID),
		})
		logOutcome(s.logger, "city not created", err,
			zap.String("name", city.Name),
			zap.Int64("country_id", city.CountryID))

		return 0, err
	}

	s.cache.invalidate(ctx)
	s.logger.Info("city created", zap.Int64("id", id), zap.Int64("country_id", city.CountryID))

	return id, nil
}

// List returns every city ordered by id.
func (s *cityService) List(ctx context.Context) ([]domain.City, error) {
	var cities []domain.City
	slot, hit := s.cache.load(ctx, citiesListKey, &cities)
	if hit {
		return cities, nil
	}

	cities, err := s.store.ListCities(ctx)
	if err != nil {
		s.logger.Error("failed to list cities", zap.Error(err))
		return nil, translate(err, "list cities", violations{})
	}

	s.cache.store(ctx, slot, cities)

	return cities, nil
}

// ListByCountry returns the cities of one country. An unknown country yields
// an empty list.
func (s *cityService) ListByCountry(ctx context.Context, countryID int64) ([]domain.City, error) {
	key := citiesByCountryKey(countryID)

	var cities []domain.City
	slot, hit := s.cache.load(ctx, key, &cities)
	if hit {
		return cities, nil
	}

	cities, err := s.store.ListCitiesByCountry(ctx, countryID)
	if err != nil {
		s.logger.Error("failed to list cities by country", zap.Int64("country_id", countryID), zap.Error(err))
		return nil, translate(err, "list cities", violations{})
	}

	s.cache.store(ctx, slot, cities)

	return cities, nil
}

// Update replaces country, name and coordinates of an existing city.
func (s *cityService) Update(ctx context.Context, city domain.City) error {
	var previousCountryID int64

	err := s.store.InTx(ctx, func(repo ports.Repository) error {
		existing, err := repo.GetCity(ctx, city.ID)
		if err != nil {
			if errors.Is(err, domain.ErrRecordNotFound) {
				return cityNotFound(city.ID)
			}

			return err
		}

		previousCountryID = existing.CountryID

		country, err := lookupCountry(ctx, repo, city.CountryID)
		if err != nil {
			return err
		}

		taken, err := repo.CityNameTaken(ctx, city.CountryID, city.Name, city.ID)
		if err != nil {
			return err
		}

		if taken {
			return cityNameConflict(city.Name, country.Name)
		}

		return repo.UpdateCity(ctx, city)
	})

	if err != nil {
		err = translate(err, "update city", violations{
			unique:     constraintViolation(),
			foreignKey: constraintViolation(),
		})
		logOutcome(s.logger, "city not updated", err, zap.Int64("id", city.ID))

		return err
	}

	s.cache.invalidate(ctx)
	s.logger.Info("city updated",
		zap.Int64("id", city.ID),
		zap.Int64("country_id", city.CountryID),
		zap.Int64("previous_country_id", previousCountryID))

	return nil
}

// Delete removes a city and, through the store's cascade, its temperatures.
func (s *cityService) Delete(ctx context.Context, id int64) error {
	var countryID int64

	err := s.store.InTx(ctx, func(repo ports.Repository) error {
		existing, err := repo.GetCity(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrRecordNotFound) {
				return cityNotFound(id)
			}

			return err
		}

		countryID = existing.CountryID

		return repo.DeleteCity(ctx, id)
	})

	if err != nil {
		err = translate(err, "delete city", violations{})
		logOutcome(s.logger, "city not deleted", err, zap.Int64("id", id))

		return err
	}

	s.cache.invalidate(ctx)
	s.logger.Info("city deleted", zap.Int64("id", id), zap.Int64("country_id", countryID))

	return nil
}
