package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sean-rowe/geotemp-service/internal/core/domain"
)

var cluj = domain.City{
	CountryID:   1,
	Name:        "Cluj-Napoca",
	Coordinates: domain.Coordinates{Latitude: 46.77, Longitude: 23.59},
}

func TestCityService_Create(t *testing.T) {
	tests := []struct {
		name            string
		setup           func(store *MockStore, cache *MockCacheService)
		expectedID      int64
		expectedErr     string
		expectedMessage string
	}{
		{
			name: "successful create",
			setup: func(store *MockStore, cache *MockCacheService) {
				store.On("InTx", mock.Anything).Return(nil)
				store.On("GetCountry", mock.Anything, int64(1)).Return(&domain.Country{ID: 1, Name: "Romania"}, nil)
				store.On("CreateCity", mock.Anything, cluj).Return(int64(4), nil)
				expectListInvalidation(cache).Return(nil)
			},
			expectedID: 4,
		},
		{
			name: "unknown country",
			setup: func(store *MockStore, cache *MockCacheService) {
				store.On("InTx", mock.Anything).Return(nil)
				store.On("GetCountry", mock.Anything, int64(1)).Return(nil, domain.ErrRecordNotFound)
			},
			expectedErr:     domain.CodeReferenceNotFound,
			expectedMessage: "Country with id 1 doesn't exist",
		},
		{
			name: "duplicate name in country",
			setup: func(store *MockStore, cache *MockCacheService) {
				store.On("InTx", mock.Anything).Return(nil)
				store.On("GetCountry", mock.Anything, int64(1)).Return(&domain.Country{ID: 1, Name: "Romania"}, nil)
				store.On("CreateCity", mock.Anything, cluj).Return(int64(0), domain.ErrUniqueViolation)
			},
			expectedErr:     domain.CodeUniquenessConflict,
			expectedMessage: "City 'Cluj-Napoca' already exists in country 'Romania'",
		},
		{
			name: "country removed concurrently",
			setup: func(store *MockStore, cache *MockCacheService) {
				store.On("InTx", mock.Anything).Return(nil)
				store.On("GetCountry", mock.Anything, int64(1)).Return(&domain.Country{ID: 1, Name: "Romania"}, nil)
				store.On("CreateCity", mock.Anything, cluj).Return(int64(0), domain.ErrForeignKeyViolation)
			},
			expectedErr: domain.CodeReferenceNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(MockStore)
			cache := new(MockCacheService)
			tt.setup(store, cache)

			id, err := NewCityService(store, cache, zap.NewNop()).Create(context.Background(), cluj)

			if tt.expectedErr != "" {
				assertCode(t, err, tt.expectedErr)

				if tt.expectedMessage != "" {
					var e *domain.ServiceError
					require.True(t, errors.As(err, &e))
					assert.Equal(t, tt.expectedMessage, e.Message)
				}
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expectedID, id)
			}

			store.AssertExpectations(t)
			cache.AssertExpectations(t)
		})
	}
}

func TestCityService_ListByCountry(t *testing.T) {
	store := new(MockStore)
	cache := new(MockCacheService)

	cache.On("Get", mock.Anything, listGenerationKey).Return([]byte("g1"), nil)
	cache.On("Get", mock.Anything, "cities:country:42@g1").Return(nil, errors.New("miss"))
	store.On("ListCitiesByCountry", mock.Anything, int64(42)).Return([]domain.City{}, nil)
	cache.On("Set", mock.Anything, "cities:country:42@g1", mock.Anything, DefaultCacheTTL).Return(nil)

	cities, err := NewCityService(store, cache, zap.NewNop()).ListByCountry(context.Background(), 42)

	require.NoError(t, err)
	assert.Empty(t, cities)
	store.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestCityService_Update(t *testing.T) {
	moved := domain.City{ID: 7, CountryID: 2, Name: "Chisinau"}

	tests := []struct {
		name        string
		setup       func(store *MockStore, cache *MockCacheService)
		expectedErr string
	}{
		{
			name: "successful move to another country",
			setup: func(store *MockStore, cache *MockCacheService) {
				store.On("InTx", mock.Anything).Return(nil)
				store.On("GetCity", mock.Anything, int64(7)).Return(&domain.City{ID: 7, CountryID: 1}, nil)
				store.On("GetCountry", mock.Anything, int64(2)).Return(&domain.Country{ID: 2, Name: "Moldova"}, nil)
				store.On("CityNameTaken", mock.Anything, int64(2), "Chisinau", int64(7)).Return(false, nil)
				store.On("UpdateCity", mock.Anything, moved).Return(nil)
				expectListInvalidation(cache).Return(nil)
			},
		},
		{
			name: "unknown city",
			setup: func(store *MockStore, cache *MockCacheService) {
				store.On("InTx", mock.Anything).Return(nil)
				store.On("GetCity", mock.Anything, int64(7)).Return(nil, domain.ErrRecordNotFound)
			},
			expectedErr: domain.CodeReferenceNotFound,
		},
		{
			name: "unknown country",
			setup: func(store *MockStore, cache *MockCacheService) {
				store.On("InTx", mock.Anything).Return(nil)
				store.On("GetCity", mock.Anything, int64(7)).Return(&domain.City{ID: 7, CountryID: 1}, nil)
				store.On("GetCountry", mock.Anything, int64(2)).Return(nil, domain.ErrRecordNotFound)
			},
			expectedErr: domain.CodeReferenceNotFound,
		},
		{
			name: "name taken by another city of the country",
			setup: func(store *MockStore, cache *MockCacheService) {
				store.On("InTx", mock.Anything).Return(nil)
				store.On("GetCity", mock.Anything, int64(7)).Return(&domain.City{ID: 7, CountryID: 1}, nil)
				store.On("GetCountry", mock.Anything, int64(2)).Return(&domain.Country{ID: 2, Name: "Moldova"}, nil)
				store.On("CityNameTaken", mock.Anything, int64(2), "Chisinau", int64(7)).Return(true, nil)
			},
			expectedErr: domain.CodeUniquenessConflict,
		},
		{
			name: "store unique violation is a constraint violation",
			setup: func(store *MockStore, cache *MockCacheService) {
				store.On("InTx", mock.Anything).Return(nil)
				store.On("GetCity", mock.Anything, int64(7)).Return(&domain.City{ID: 7, CountryID: 1}, nil)
				store.On("GetCountry", mock.Anything, int64(2)).Return(&domain.Country{ID: 2, Name: "Moldova"}, nil)
				store.On("CityNameTaken", mock.Anything, int64(2), "Chisinau", int64(7)).Return(false, nil)
				store.On("UpdateCity", mock.Anything, moved).Return(domain.ErrUniqueViolation)
			},
			expectedErr: domain.CodeConstraintViolation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(MockStore)
			cache := new(MockCacheService)
			tt.setup(store, cache)

			err := NewCityService(store, cache, zap.NewNop()).Update(context.Background(), moved)

			if tt.expectedErr != "" {
				assertCode(t, err, tt.expectedErr)
			} else {
				assert.NoError(t, err)
			}

			store.AssertExpectations(t)
			cache.AssertExpectations(t)
		})
	}
}

func TestCityService_Delete(t *testing.T) {
	store := new(MockStore)
	cache := new(MockCacheService)

	store.On("InTx", mock.Anything).Return(nil)
	store.On("GetCity", mock.Anything, int64(7)).Return(&domain.City{ID: 7, CountryID: 3}, nil)
	store.On("DeleteCity", mock.Anything, int64(7)).Return(nil)
	expectListInvalidation(cache).Return(nil)

	err := NewCityService(store, cache, zap.NewNop()).Delete(context.Background(), 7)

	assert.NoError(t, err)
	store.AssertExpectations(t)
	cache.AssertExpectations(t)
}
