package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/sean-rowe/geotemp-service/internal/core/domain"
	"github.com/sean-rowe/geotemp-service/internal/core/ports"
)

// MockStore is a mock implementation of the Store interface. InTx runs the
// callback against the mock itself and returns the configured commit error.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) InTx(ctx context.Context, fn func(repo ports.Repository) error) error {
	args := m.Called(ctx)

	if err := fn(m); err != nil {
		return err
	}

	return args.Error(0)
}

func (m *MockStore) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockStore) CreateCountry(ctx context.Context, country domain.Country) (int64, error) {
	args := m.Called(ctx, country)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) GetCountry(ctx context.Context, id int64) (*domain.Country, error) {
	args := m.Called(ctx, id)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.Country), args.Error(1)
}

func (m *MockStore) ListCountries(ctx context.Context) ([]domain.Country, error) {
	args := m.Called(ctx)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.Country), args.Error(1)
}

func (m *MockStore) CountryNameTaken(ctx context.Context, name string, excludeID int64) (bool, error) {
	args := m.Called(ctx, name, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) UpdateCountry(ctx context.Context, country domain.Country) error {
	return m.Called(ctx, country).Error(0)
}

func (m *MockStore) DeleteCountry(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockStore) CreateCity(ctx context.Context, city domain.City) (int64, error) {
	args := m.Called(ctx, city)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) GetCity(ctx context.Context, id int64) (*domain.City, error) {
	args := m.Called(ctx, id)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.City), args.Error(1)
}

func (m *MockStore) ListCities(ctx context.Context) ([]domain.City, error) {
	args := m.Called(ctx)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.City), args.Error(1)
}

func (m *MockStore) ListCitiesByCountry(ctx context.Context, countryID int64) ([]domain.City, error) {
	args := m.Called(ctx, countryID)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.City), args.Error(1)
}

func (m *MockStore) CityNameTaken(ctx context.Context, countryID int64, name string, excludeID int64) (bool, error) {
	args := m.Called(ctx, countryID, name, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) UpdateCity(ctx context.Context, city domain.City) error {
	return m.Called(ctx, city).Error(0)
}

func (m *MockStore) DeleteCity(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockStore) CreateTemperature(ctx context.Context, reading domain.Temperature) (int64, error) {
	args := m.Called(ctx, reading)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) GetTemperature(ctx context.Context, id int64) (*domain.Temperature, error) {
	args := m.Called(ctx, id)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.Temperature), args.Error(1)
}

func (m *MockStore) ReadingExists(ctx context.Context, cityID int64, timestamp time.Time, excludeID int64) (bool, error) {
	args := m.Called(ctx, cityID, timestamp, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) UpdateTemperature(ctx context.Context, reading domain.Temperature) error {
	return m.Called(ctx, reading).Error(0)
}

func (m *MockStore) DeleteTemperature(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockStore) ListTemperatures(ctx context.Context, filter domain.TemperatureFilter) ([]domain.Temperature, error) {
	args := m.Called(ctx, filter)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.Temperature), args.Error(1)
}

// MockCacheService is a mock implementation of the CacheService interface.
type MockCacheService struct {
	mock.Mock
}

func (m *MockCacheService) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockCacheService) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return m.Called(ctx, key, value, ttl).Error(0)
}

func (m *MockCacheService) Delete(ctx context.Context, keys ...string) error {
	return m.Called(ctx, keys).Error(0)
}

// expectListInvalidation expects the list generation to be replaced.
func expectListInvalidation(cache *MockCacheService) *mock.Call {
	return cache.On("Set", mock.Anything, listGenerationKey, mock.Anything, time.Duration(0))
}

// mapCache is a CacheService backed by a map, safe for concurrent use.
type mapCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string][]byte)}
}

func (c *mapCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, ok := c.entries[key]
	if !ok {
		return nil, errors.New("cache miss")
	}

	return data, nil
}

func (c *mapCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = value

	return nil
}

func (c *mapCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, key := range keys {
		delete(c.entries, key)
	}

	return nil
}
