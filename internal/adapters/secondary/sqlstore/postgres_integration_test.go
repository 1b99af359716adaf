//go:build integration

package sqlstore

import (
	"context"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/sean-rowe/geotemp-service/internal/core/domain"
	"github.com/sean-rowe/geotemp-service/internal/infrastructure/database"
)

const postgresPort = nat.Port("5432/tcp")

func startPostgres(t *testing.T) database.Config {
	t.Helper()

	ctx := context.Background()

	req := tc.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{string(postgresPort)},
		Env: map[string]string{
			"POSTGRES_USER":     "geotemp",
			"POSTGRES_PASSWORD": "geotemp",
			"POSTGRES_DB":       "geotemp",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "start postgres container")

	t.Cleanup(func() {
		_ = c.Terminate(ctx)
	})

	host, err := c.Host(ctx)
	require.NoError(t, err)

	port, err := c.MappedPort(ctx, postgresPort)
	require.NoError(t, err)

	return database.Config{
		Driver:                database.DriverPostgres,
		Host:                  host,
		Port:                  port.Int(),
		User:                  "geotemp",
		Password:              "geotemp",
		Database:              "geotemp",
		SSLMode:               "disable",
		MaxConnections:        5,
		MaxIdleConnections:    2,
		ConnectionMaxLifetime: time.Minute,
	}
}

func TestPostgresStore(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()

	db, err := database.Open(ctx, startPostgres(t), logger)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, database.RunMigrations(db, database.DriverPostgres, logger))

	// Each migrator reserves a connection of its own; more calls than the
	// pool holds only succeed when every one of them is handed back.
	for i := 0; i < 6; i++ {
		version, _, err := database.SchemaVersion(db, database.DriverPostgres)
		require.NoError(t, err)
		assert.Equal(t, uint(1), version)
	}
	assert.Zero(t, db.Stats().InUse)

	store, err := New(db, database.DriverPostgres, logger)
	require.NoError(t, err)

	countryID, err := store.CreateCountry(ctx, domain.Country{Name: "Romania"})
	require.NoError(t, err)

	_, err = store.CreateCountry(ctx, domain.Country{Name: "Romania"})
	assert.ErrorIs(t, err, domain.ErrUniqueViolation)

	_, err = store.CreateCity(ctx, domain.City{CountryID: countryID + 100, Name: "Atlantis"})
	assert.ErrorIs(t, err, domain.ErrForeignKeyViolation)

	cityID, err := store.CreateCity(ctx, domain.City{
		CountryID:   countryID,
		Name:        "Brasov",
		Coordinates: domain.Coordinates{Latitude: 45.65, Longitude: 25.6},
	})
	require.NoError(t, err)

	ts := time.Date(2024, 2, 29, 23, 59, 59, 999000000, time.UTC)
	_, err = store.CreateTemperature(ctx, domain.Temperature{Value: -1.5, Timestamp: ts, CityID: cityID})
	require.NoError(t, err)

	_, err = store.CreateTemperature(ctx, domain.Temperature{Value: 2, Timestamp: ts, CityID: cityID})
	assert.ErrorIs(t, err, domain.ErrUniqueViolation)

	day := time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)
	lat := 45.65

	readings, err := store.ListTemperatures(ctx, domain.TemperatureFilter{From: &day, Until: &day, Latitude: &lat})
	require.NoError(t, err)
	require.Len(t, readings, 1)
	assert.True(t, ts.Equal(readings[0].Timestamp))

	require.NoError(t, store.DeleteCountry(ctx, countryID))

	readings, err = store.ListTemperatures(ctx, domain.TemperatureFilter{})
	require.NoError(t, err)
	assert.Empty(t, readings)
}
