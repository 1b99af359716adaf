package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sean-rowe/geotemp-service/internal/core/domain"
)

func assertCode(t *testing.T, err error, code string) {
	t.Helper()

	var e *domain.ServiceError
	require.True(t, errors.As(err, &e), "expected ServiceError, got %v", err)
	assert.Equal(t, code, e.Code)
}

var romania = domain.Country{
	Name:        "Romania",
	Coordinates: domain.Coordinates{Latitude: 45.94, Longitude: 24.97},
}

// TestCountryService_Create tests the create ordering of pre-check, insert and
// constraint fallback.
func TestCountryService_Create(t *testing.T) {
	tests := []struct {
		name        string
		setup       func(store *MockStore, cache *MockCacheService)
		expectedID  int64
		expectedErr string
	}{
		{
			name: "successful create invalidates list",
			setup: func(store *MockStore, cache *MockCacheService) {
				store.On("InTx", mock.Anything).Return(nil)
				store.On("CountryNameTaken", mock.Anything, "Romania", int64(0)).Return(false, nil)
				store.On("CreateCountry", mock.Anything, romania).Return(int64(1), nil)
				expectListInvalidation(cache).Return(nil)
			},
			expectedID: 1,
		},
		{
			name: "pre-check conflict skips insert",
			setup: func(store *MockStore, cache *MockCacheService) {
				store.On("InTx", mock.Anything).Return(nil)
				store.On("CountryNameTaken", mock.Anything, "Romania", int64(0)).Return(true, nil)
			},
			expectedErr: domain.CodeUniquenessConflict,
		},
		{
			name: "store unique violation is a conflict",
			setup: func(store *MockStore, cache *MockCacheService) {
				store.On("InTx", mock.Anything).Return(nil)
				store.On("CountryNameTaken", mock.Anything, "Romania", int64(0)).Return(false, nil)
				store.On("CreateCountry", mock.Anything, romania).
					Return(int64(0), domain.ErrUniqueViolation)
			},
			expectedErr: domain.CodeUniquenessConflict,
		},
		{
			name: "unique violation at commit is a conflict",
			setup: func(store *MockStore, cache *MockCacheService) {
				store.On("InTx", mock.Anything).Return(domain.ErrUniqueViolation)
				store.On("CountryNameTaken", mock.Anything, "Romania", int64(0)).Return(false, nil)
				store.On("CreateCountry", mock.Anything, romania).Return(int64(5), nil)
			},
			expectedErr: domain.CodeUniquenessConflict,
		},
		{
			name: "unexpected store failure",
			setup: func(store *MockStore, cache *MockCacheService) {
				store.On("InTx", mock.Anything).Return(nil)
				store.On("CountryNameTaken", mock.Anything, "Romania", int64(0)).
					Return(false, errors.New("connection reset"))
			},
			expectedErr: domain.CodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(MockStore)
			cache := new(MockCacheService)
			tt.setup(store, cache)

			service := NewCountryService(store, cache, zap.NewNop())
			id, err := service.Create(context.Background(), romania)

			if tt.expectedErr != "" {
				assertCode(t, err, tt.expectedErr)
				assert.Zero(t, id)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expectedID, id)
			}

			store.AssertExpectations(t)
			cache.AssertExpectations(t)
			store.AssertNotCalled(t, "UpdateCountry", mock.Anything, mock.Anything)
		})
	}
}

func TestCountryService_List(t *testing.T) {
	countries := []domain.Country{{ID: 1, Name: "Romania"}, {ID: 2, Name: "Moldova"}}

	t.Run("cache miss reads store and fills cache", func(t *testing.T) {
		store := new(MockStore)
		cache := new(MockCacheService)

		cache.On("Get", mock.Anything, listGenerationKey).Return([]byte("g1"), nil)
		cache.On("Get", mock.Anything, "countries:list@g1").Return(nil, errors.New("miss"))
		store.On("ListCountries", mock.Anything).Return(countries, nil)
		cache.On("Set", mock.Anything, "countries:list@g1", mock.Anything, DefaultCacheTTL).Return(nil)

		result, err := NewCountryService(store, cache, zap.NewNop()).List(context.Background())

		require.NoError(t, err)
		assert.Equal(t, countries, result)
		store.AssertExpectations(t)
		cache.AssertExpectations(t)
	})

	t.Run("cache hit skips store", func(t *testing.T) {
		store := new(MockStore)
		cache := new(MockCacheService)

		data, err := json.Marshal(countries)
		require.NoError(t, err)
		cache.On("Get", mock.Anything, listGenerationKey).Return([]byte("g1"), nil)
		cache.On("Get", mock.Anything, "countries:list@g1").Return(data, nil)

		result, err := NewCountryService(store, cache, zap.NewNop()).List(context.Background())

		require.NoError(t, err)
		assert.Equal(t, countries, result)
		store.AssertNotCalled(t, "ListCountries", mock.Anything)
	})

	t.Run("missing generation starts a new one", func(t *testing.T) {
		store := new(MockStore)
		cache := new(MockCacheService)

		cache.On("Get", mock.Anything, listGenerationKey).Return(nil, errors.New("miss"))
		expectListInvalidation(cache).Return(nil)
		cache.On("Get", mock.Anything, mock.MatchedBy(func(key string) bool {
			return strings.HasPrefix(key, countriesListKey+"@")
		})).Return(nil, errors.New("miss"))
		store.On("ListCountries", mock.Anything).Return(countries, nil)
		cache.On("Set", mock.Anything, mock.MatchedBy(func(key string) bool {
			return strings.HasPrefix(key, countriesListKey+"@")
		}), mock.Anything, DefaultCacheTTL).Return(nil)

		result, err := NewCountryService(store, cache, zap.NewNop()).List(context.Background())

		require.NoError(t, err)
		assert.Equal(t, countries, result)
		cache.AssertExpectations(t)
	})

	t.Run("unavailable cache falls through to store", func(t *testing.T) {
		store := new(MockStore)
		cache := new(MockCacheService)

		cache.On("Get", mock.Anything, listGenerationKey).Return(nil, errors.New("redis down"))
		expectListInvalidation(cache).Return(errors.New("redis down"))
		store.On("ListCountries", mock.Anything).Return(countries, nil)

		result, err := NewCountryService(store, cache, zap.NewNop()).List(context.Background())

		require.NoError(t, err)
		assert.Equal(t, countries, result)
		cache.AssertNumberOfCalls(t, "Set", 1)
		cache.AssertNumberOfCalls(t, "Get", 1)
	})

	t.Run("list racing a create does not cache the stale result", func(t *testing.T) {
		store := new(MockStore)
		service := NewCountryService(store, newMapCache(), zap.NewNop())
		ctx := context.Background()

		reading := make(chan struct{})
		release := make(chan struct{})

		store.On("ListCountries", mock.Anything).Return([]domain.Country{}, nil).Once().
			Run(func(mock.Arguments) {
				close(reading)
				<-release
			})
		store.On("InTx", mock.Anything).Return(nil)
		store.On("CountryNameTaken", mock.Anything, "Romania", int64(0)).Return(false, nil)
		store.On("CreateCountry", mock.Anything, romania).Return(int64(1), nil)
		store.On("ListCountries", mock.Anything).Return([]domain.Country{{ID: 1, Name: "Romania"}}, nil).Once()

		raced := make(chan []domain.Country, 1)
		go func() {
			result, _ := service.List(ctx)
			raced <- result
		}()

		<-reading
		id, err := service.Create(ctx, romania)
		require.NoError(t, err)
		assert.Equal(t, int64(1), id)
		close(release)
		assert.Empty(t, <-raced)

		result, err := service.List(ctx)
		require.NoError(t, err)
		require.Len(t, result, 1)
		assert.Equal(t, "Romania", result[0].Name)

		cached, err := service.List(ctx)
		require.NoError(t, err)
		assert.Len(t, cached, 1)
		store.AssertExpectations(t)
		store.AssertNumberOfCalls(t, "ListCountries", 2)
	})

	t.Run("no cache configured", func(t *testing.T) {
		store := new(MockStore)
		store.On("ListCountries", mock.Anything).Return([]domain.Country{}, nil)

		result, err := NewCountryService(store, nil, zap.NewNop()).List(context.Background())

		require.NoError(t, err)
		assert.Empty(t, result)
	})
}

func TestCountryService_Update(t *testing.T) {
	updated := domain.Country{ID: 3, Name: "Romania", Coordinates: domain.Coordinates{Latitude: 1, Longitude: 2}}

	tests := []struct {
		name        string
		setup       func(store *MockStore, cache *MockCacheService)
		expectedErr string
	}{
		{
			name: "successful update",
			setup: func(store *MockStore, cache *MockCacheService) {
				store.On("InTx", mock.Anything).Return(nil)
				store.On("GetCountry", mock.Anything, int64(3)).Return(&domain.Country{ID: 3, Name: "Old"}, nil)
				store.On("CountryNameTaken", mock.Anything, "Romania", int64(3)).Return(false, nil)
				store.On("UpdateCountry", mock.Anything, updated).Return(nil)
				expectListInvalidation(cache).Return(nil)
			},
		},
		{
			name: "unknown country",
			setup: func(store *MockStore, cache *MockCacheService) {
				store.On("InTx", mock.Anything).Return(nil)
				store.On("GetCountry", mock.Anything, int64(3)).Return(nil, domain.ErrRecordNotFound)
			},
			expectedErr: domain.CodeReferenceNotFound,
		},
		{
			name: "name held by another country",
			setup: func(store *MockStore, cache *MockCacheService) {
				store.On("InTx", mock.Anything).Return(nil)
				store.On("GetCountry", mock.Anything, int64(3)).Return(&domain.Country{ID: 3}, nil)
				store.On("CountryNameTaken", mock.Anything, "Romania", int64(3)).Return(true, nil)
			},
			expectedErr: domain.CodeUniquenessConflict,
		},
		{
			name: "store unique violation is a constraint violation",
			setup: func(store *MockStore, cache *MockCacheService) {
				store.On("InTx", mock.Anything).Return(nil)
				store.On("GetCountry", mock.Anything, int64(3)).Return(&domain.Country{ID: 3}, nil)
				store.On("CountryNameTaken", mock.Anything, "Romania", int64(3)).Return(false, nil)
				store.On("UpdateCountry", mock.Anything, updated).Return(domain.ErrUniqueViolation)
			},
			expectedErr: domain.CodeConstraintViolation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(MockStore)
			cache := new(MockCacheService)
			tt.setup(store, cache)

			err := NewCountryService(store, cache, zap.NewNop()).Update(context.Background(), updated)

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

func TestCountryService_Delete(t *testing.T) {
	t.Run("deletes and invalidates dependent lists", func(t *testing.T) {
		store := new(MockStore)
		cache := new(MockCacheService)

		store.On("InTx", mock.Anything).Return(nil)
		store.On("GetCountry", mock.Anything, int64(9)).Return(&domain.Country{ID: 9}, nil)
		store.On("DeleteCountry", mock.Anything, int64(9)).Return(nil)
		expectListInvalidation(cache).Return(nil)

		err := NewCountryService(store, cache, zap.NewNop()).Delete(context.Background(), 9)

		assert.NoError(t, err)
		store.AssertExpectations(t)
		cache.AssertExpectations(t)
	})

	t.Run("unknown country", func(t *testing.T) {
		store := new(MockStore)

		store.On("InTx", mock.Anything).Return(nil)
		store.On("GetCountry", mock.Anything, int64(9)).Return(nil, domain.ErrRecordNotFound)

		err := NewCountryService(store, nil, zap.NewNop()).Delete(context.Background(), 9)

		assertCode(t, err, domain.CodeReferenceNotFound)
		store.AssertNotCalled(t, "DeleteCountry", mock.Anything, mock.Anything)
	})

	t.Run("cache failure does not fail delete", func(t *testing.T) {
		store := new(MockStore)
		cache := new(MockCacheService)

		store.On("InTx", mock.Anything).Return(nil)
		store.On("GetCountry", mock.Anything, int64(9)).Return(&domain.Country{ID: 9}, nil)
		store.On("DeleteCountry", mock.Anything, int64(9)).Return(nil)
		expectListInvalidation(cache).Return(errors.New("redis down"))

		err := NewCountryService(store, cache, zap.NewNop()).Delete(context.Background(), 9)

		assert.NoError(t, err)
	})
}
