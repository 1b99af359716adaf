package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sean-rowe/geotemp-service/internal/core/domain"
	"github.com/sean-rowe/geotemp-service/internal/core/ports"
)

type temperatureService struct {
	store  ports.Store
	now    func() time.Time
	logger *zap.Logger
}

// NewTemperatureService creates the temperature use cases on top of store.
// Readings are timestamped with the service clock (see WithClock).
func NewTemperatureService(store ports.Store, logger *zap.Logger, opts ...Option) ports.TemperatureService {
	o := buildOptions(opts)

	return &temperatureService{
		store:  store,
		now:    o.now,
		logger: logger,
	}
}

func readingConflict(cityID int64, ts time.Time) *domain.ServiceError {
	return domain.NewError(domain.CodeUniquenessConflict,
		"A temperature for city %d at %s already exists", cityID, ts.Format(time.RFC3339Nano))
}

func readingNotFound(id int64) *domain.ServiceError {
	return domain.NewError(domain.CodeReferenceNotFound, "Temperature with id %d doesn't exist", id)
}

func (s *temperatureService) timestamp() time.Time {
	return domain.NewTimestamp(s.now())
}

// lookupCity maps a missing city to a not-found domain error.
func lookupCity(ctx context.Context, repo ports.Repository, id int64) error {
	_, err := repo.GetCity(ctx, id)
	if errors.Is(err, domain.ErrRecordNotFound) {
		return cityNotFound(id)
	}

	return err
}

// Create records a reading for an existing city at the current server time.
// A reading already stored for the same city and instant is a conflict.
func (s *temperatureService) Create(ctx context.Context, cityID int64, value float64) (int64, error) {
	var id int64

	ts := s.timestamp()

	err := s.store.InTx(ctx, func(repo ports.Repository) error {
		if err := lookupCity(ctx, repo, cityID); err != nil {
			return err
		}

		exists, err := repo.ReadingExists(ctx, cityID, ts, 0)
		if err != nil {
			return err
		}

		if exists {
			return readingConflict(cityID, ts)
		}

		id, err = repo.CreateTemperature(ctx, domain.Temperature{
			Value:     value,
			Timestamp: ts,
			CityID:    cityID,
		})

		return err
	})

	if err != nil {
		err = translate(err, "create temperature", violations{
			unique:     readingConflict(cityID, ts),
			foreignKey: cityNotFound(cityID),
		})
		logOutcome(s.logger, "temperature not created", err, zap.Int64("city_id", cityID))

		return 0, err
	}

	s.logger.Debug("temperature created",
		zap.Int64("id", id),
		zap.Int64("city_id", cityID),
		zap.Time("timestamp", ts))

	return id, nil
}

// List returns the readings matching filter ordered by timestamp.
func (s *temperatureService) List(ctx context.Context, filter domain.TemperatureFilter) ([]domain.Temperature, error) {
	readings, err := s.store.ListTemperatures(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list temperatures", zap.Error(err))
		return nil, translate(err, "list temperatures", violations{})
	}

	return readings, nil
}

// Update replaces city and value of a reading and re-timestamps it with the
// current server time.
func (s *temperatureService) Update(ctx context.Context, id, cityID int64, value float64) error {
	ts := s.timestamp()

	err := s.store.InTx(ctx, func(repo ports.Repository) error {
		if _, err := repo.GetTemperature(ctx, id); err != nil {
			if errors.Is(err, domain.ErrRecordNotFound) {
				return readingNotFound(id)
			}

			return err
		}

		if err := lookupCity(ctx, repo, cityID); err != nil {
			return err
		}

		exists, err := repo.ReadingExists(ctx, cityID, ts, id)
		if err != nil {
			return err
		}

		if exists {
			return readingConflict(cityID, ts)
		}

		return repo.UpdateTemperature(ctx, domain.Temperature{
			ID:        id,
			Value:     value,
			Timestamp: ts,
			CityID:    cityID,
		})
	})

	if err != nil {
		// Only the pre-check reports a collision as a conflict; a
		// violation raised by the write itself is a constraint error.
		err = translate(err, "update temperature", violations{
			unique:     constraintViolation(),
			foreignKey: constraintViolation(),
		})
		logOutcome(s.logger, "temperature not updated", err, zap.Int64("id", id))

		return err
	}

	s.logger.Debug("temperature updated", zap.Int64("id", id), zap.Time("timestamp", ts))

	return nil
}

// Delete removes a reading.
func (s *temperatureService) Delete(ctx context.Context, id int64) error {
	err := s.store.InTx(ctx, func(repo ports.Repository) error {
		if _, err := repo.GetTemperature(ctx, id); err != nil {
			if errors.Is(err, domain.ErrRecordNotFound) {
				return readingNotFound(id)
			}

			return err
		}

		return repo.DeleteTemperature(ctx, id)
	})

	if err != nil {
		err = translate(err, "delete temperature", violations{})
		logOutcome(s.logger, "temperature not deleted", err, zap.Int64("id", id))

		return err
	}

	s.logger.Debug("temperature deleted", zap.Int64("id", id))

	return nil
}
