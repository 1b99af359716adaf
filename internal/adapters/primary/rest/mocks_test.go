package rest

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sean-rowe/geotemp-service/internal/core/domain"
)

type MockCountryService struct {
	mock.Mock
}

func (m *MockCountryService) Create(ctx context.Context, country domain.Country) (int64, error) {
	args := m.Called(ctx, country)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCountryService) List(ctx context.Context) ([]domain.Country, error) {
	args := m.Called(ctx)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.Country), args.Error(1)
}

func (m *MockCountryService) Update(ctx context.Context, country domain.Country) error {
	return m.Called(ctx, country).Error(0)
}

func (m *MockCountryService) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

type MockCityService struct {
	mock.Mock
}

func (m *MockCityService) Create(ctx context.Context, city domain.City) (int64, error) {
	args := m.Called(ctx, city)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCityService) List(ctx context.Context) ([]domain.City, error) {
	args := m.Called(ctx)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.City), args.Error(1)
}

func (m *MockCityService) ListByCountry(ctx context.Context, countryID int64) ([]domain.City, error) {
	args := m.Called(ctx, countryID)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.City), args.Error(1)
}

func (m *MockCityService) Update(ctx context.Context, city domain.City) error {
	return m.Called(ctx, city).Error(0)
}

func (m *MockCityService) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

type MockTemperatureService struct {
	mock.Mock
}

func (m *MockTemperatureService) Create(ctx context.Context, cityID int64, value float64) (int64, error) {
	args := m.Called(ctx, cityID, value)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTemperatureService) List(ctx context.Context, filter domain.TemperatureFilter) ([]domain.Temperature, error) {
	args := m.Called(ctx, filter)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.Temperature), args.Error(1)
}

func (m *MockTemperatureService) Update(ctx context.Context, id, cityID int64, value float64) error {
	return m.Called(ctx, id, cityID, value).Error(0)
}

func (m *MockTemperatureService) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}
