package services

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/sean-rowe/geotemp-service/internal/core/domain"
	"github.com/sean-rowe/geotemp-service/internal/core/ports"
)

type countryService struct {
	store  ports.Store
	cache  listCache
	logger *zap.Logger
}

// NewCountryService creates the country use cases on top of store. cache may
// be nil.
//
// Parameters:
//   - store: Transactional store holding the three entities
//   - cache: Optional list cache
//   - logger: Zap logger for business events
//   - opts: Optional settings such as WithCacheTTL
//
// Returns:
//   - ports.CountryService: Service implementation
func NewCountryService(store ports.Store, cache ports.CacheService, logger *zap.Logger, opts ...Option) ports.CountryService {
	o := buildOptions(opts)

	return &countryService{
		store:  store,
		cache:  listCache{cache: cache, ttl: o.cacheTTL, logger: logger},
		logger: logger,
	}
}

func countryNameConflict(name string) *domain.ServiceError {
	return domain.NewError(domain.CodeUniquenessConflict, "Country '%s' already exists", name)
}

func countryNotFound(id int64) *domain.ServiceError {
	return domain.NewError(domain.CodeReferenceNotFound, "Country with id %d doesn't exist", id)
}

// Create registers a country. A name already in use fails with a conflict,
// whether detected by the pre-check or by the store's unique constraint.
func (s *countryService) Create(ctx context.Context, country domain.Country) (int64, error) {
	var id int64

	err := s.store.InTx(ctx, func(repo ports.Repository) error {
		taken, err := repo.CountryNameTaken(ctx, country.Name, 0)
		if err != nil {
			return err
		}

		if taken {
			return countryNameConflict(country.Name)
		}

		id, err = repo.CreateCountry(ctx, country)

		return err
	})

	if err != nil {
		err = translate(err, "create country", violations{unique: countryNameConflict(country.Name)})
		logOutcome(s.logger, "country not created", err, zap.String("name", country.Name))

		return 0, err
	}

	s.cache.invalidate(ctx)
	s.logger.Info("country created", zap.Int64("id", id), zap.String("name", country.Name))

	return id, nil
}

// List returns every country ordered by id.
func (s *countryService) List(ctx context.Context) ([]domain.Country, error) {
	var countries []domain.Country
	slot, hit := s.cache.load(ctx, countriesListKey, &countries)
	if hit {
		return countries, nil
	}

	countries, err := s.store.ListCountries(ctx)
	if err != nil {
		s.logger.Error("failed to list countries", zap.Error(err))
		return nil, translate(err, "list countries", violations{})
	}

	s.cache.store(ctx, slot, countries)

	return countries, nil
}

// Update replaces name and coordinates of an existing country.
func (s *countryService) Update(ctx context.Context, country domain.Country) error {
	err := s.store.InTx(ctx, func(repo ports.Repository) error {
		if _, err := repo.GetCountry(ctx, country.ID); err != nil {
			if errors.Is(err, domain.ErrRecordNotFound) {
				return countryNotFound(country.ID)
			}

			return err
		}

		taken, err := repo.CountryNameTaken(ctx, country.Name, country.ID)
		if err != nil {
			return err
		}

		if taken {
			return countryNameConflict(country.Name)
		}

		return repo.UpdateCountry(ctx, country)
	})

	if err != nil {
		err = translate(err, "update country", violations{
			unique:     constraintViolation(),
			foreignKey: constraintViolation(),
		})
		logOutcome(s.logger, "country not updated", err, zap.Int64("id", country.ID))

		return err
	}

	s.cache.invalidate(ctx)
	s.logger.Info("country updated", zap.Int64("id", country.ID))

	return nil
}

// Delete removes a country. Its cities and their temperatures are removed by
// the store's cascade rules.
func (s *countryService) Delete(ctx context.Context, id int64) error {
	err := s.store.InTx(ctx, func(repo ports.Repository) error {
		if _, err := repo.GetCountry(ctx, id); err != nil {
			if errors.Is(err, domain.ErrRecordNotFound) {
				return countryNotFound(id)
			}

			return err
		}

		return repo.DeleteCountry(ctx, id)
	})

	if err != nil {
		err = translate(err, "delete country", violations{})
		logOutcome(s.logger, "country not deleted", err, zap.Int64("id", id))

		return err
	}

	s.cache.invalidate(ctx)
	s.logger.Info("country deleted", zap.Int64("id", id))

	return nil
}
