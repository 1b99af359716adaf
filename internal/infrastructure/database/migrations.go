package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations/postgres/*.sql migrations/sqlite3/*.sql
var migrationsFS embed.FS

// newMigrator builds a migrate instance reading the embedded scripts of the
// given driver. The release func frees the connection and source held by the
// migrator and leaves db open; migrate's own Close would close db as well.
func newMigrator(db *sql.DB, driverName string) (*migrate.Migrate, func(), error) {
	ctx := context.Background()

	var (
		driver      migratedb.Driver
		conn        *sql.Conn
		closeDriver = func() {}
		err         error
	)

	switch driverName {
	case DriverPostgres:
		conn, err = db.Conn(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to reserve migration connection: %w", err)
		}

		closeDriver = func() { _ = conn.Close() }
		driver, err = postgres.WithConnection(ctx, conn, &postgres.Config{})
	case DriverSQLite:
		driver, err = sqlite3.WithInstance(db, &sqlite3.Config{})
	default:
		return nil, nil, fmt.Errorf("unsupported database driver %q", driverName)
	}

	if err != nil {
		closeDriver()
		return nil, nil, fmt.Errorf("failed to create migration driver: %w", err)
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations/"+driverName)
	if err != nil {
		closeDriver()
		return nil, nil, fmt.Errorf("failed to create source driver: %w", err)
	}

	release := func() {
		_ = sourceDriver.Close()
		closeDriver()
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, driverName, driver)
	if err != nil {
		release()
		return nil, nil, fmt.Errorf("failed to create migration instance: %w", err)
	}

	return m, release, nil
}

// RunMigrations applies all pending migrations. A dirty schema version is
// forced clean before migrating up.
func RunMigrations(db *sql.DB, driverName string, logger *zap.Logger) error {
	m, release, err := newMigrator(db, driverName)
	if err != nil {
		return err
	}
	defer release()

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if dirty {
		logger.Warn("database migrations are dirty",
			zap.Uint("version", version))

		if err := m.Force(int(version)); err != nil {
			return fmt.Errorf("failed to force migration version: %w", err)
		}
	}

	logger.Info("running database migrations",
		zap.String("driver", driverName),
		zap.Uint("current_version", version))

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	newVersion, _, err := m.Version()
	if err != nil {
		return fmt.Errorf("failed to get new migration version: %w", err)
	}

	logger.Info("database migrations completed",
		zap.Uint("version", newVersion))

	return nil
}

// MigrateDown rolls back the last applied migration.
func MigrateDown(db *sql.DB, driverName string, logger *zap.Logger) error {
	m, release, err := newMigrator(db, driverName)
	if err != nil {
		return err
	}
	defer release()

	version, _, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	logger.Info("rolling back migration",
		zap.Uint("current_version", version))

	if err := m.Steps(-1); err != nil {
		return fmt.Errorf("failed to rollback migration: %w", err)
	}

	newVersion, _, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get new migration version: %w", err)
	}

	logger.Info("migration rolled back",
		zap.Uint("version", newVersion))

	return nil
}

// MigrateToVersion migrates up or down to targetVersion.
func MigrateToVersion(db *sql.DB, driverName string, targetVersion uint, logger *zap.Logger) error {
	m, release, err := newMigrator(db, driverName)
	if err != nil {
		return err
	}
	defer release()

	currentVersion, _, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	logger.Info("migrating to version",
		zap.Uint("current_version", currentVersion),
		zap.Uint("target_version", targetVersion))

	if err := m.Migrate(targetVersion); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to migrate to version %d: %w", targetVersion, err)
	}

	logger.Info("migration completed",
		zap.Uint("version", targetVersion))

	return nil
}

// SchemaVersion reports the applied schema version. A database without any
// applied migration reports version 0.
func SchemaVersion(db *sql.DB, driverName string) (uint, bool, error) {
	m, release, err := newMigrator(db, driverName)
	if err != nil {
		return 0, false, err
	}
	defer release()

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}

	if err != nil {
		return 0, false, fmt.Errorf("failed to get migration version: %w", err)
	}

	return version, dirty, nil
}

// ForceVersion records version as applied without running any migration and
// clears the dirty flag. It is the manual recovery path after a failed
// migration was repaired by hand.
func ForceVersion(db *sql.DB, driverName string, version int, logger *zap.Logger) error {
	m, release, err := newMigrator(db, driverName)
	if err != nil {
		return err
	}
	defer release()

	if err := m.Force(version); err != nil {
		return fmt.Errorf("failed to force version %d: %w", version, err)
	}

	logger.Warn("forced migration version", zap.Int("version", version))

	return nil
}
