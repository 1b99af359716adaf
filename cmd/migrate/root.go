package main

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sean-rowe/geotemp-service/internal/config"
	"github.com/sean-rowe/geotemp-service/internal/infrastructure/database"
)

var (
	dbCfg   database.Config
	verbose bool

	db     *sql.DB
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the registry database schema",
	Long: `Apply or roll back the schema migrations embedded in the service.

Connection settings default to the same environment variables the server
reads (DB_DRIVER, DB_HOST, DB_PORT, DB_USER, DB_PASSWORD, DB_NAME,
DB_SSLMODE, SQLITE_PATH) and can be overridden with flags.

EXAMPLES:

  $ migrate up                          # Apply all pending migrations
  $ migrate down                        # Roll back every migration
  $ migrate goto 1                      # Migrate up or down to version 1
  $ migrate force 1                     # Mark version 1 as applied and clean
  $ migrate version --driver sqlite3 --sqlite-path geotemp.db`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" {
			return nil
		}

		var err error
		if verbose {
			logger, err = zap.NewDevelopment()
		} else {
			logger = zap.NewNop()
		}

		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		db, err = database.Open(ctx, dbCfg, logger)

		return err
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if db != nil {
			return db.Close()
		}

		return nil
	},
}

func init() {
	defaults := config.Load().Database

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&dbCfg.Driver, "driver", defaults.Driver, "database driver (postgres or sqlite3)")
	flags.StringVar(&dbCfg.Host, "host", defaults.Host, "database host")
	flags.IntVar(&dbCfg.Port, "port", defaults.Port, "database port")
	flags.StringVar(&dbCfg.User, "user", defaults.User, "database user")
	flags.StringVar(&dbCfg.Password, "password", defaults.Password, "database password")
	flags.StringVar(&dbCfg.Database, "database", defaults.Database, "database name")
	flags.StringVar(&dbCfg.SSLMode, "sslmode", defaults.SSLMode, "postgres SSL mode")
	flags.StringVar(&dbCfg.SQLitePath, "sqlite-path", defaults.SQLitePath, "SQLite database file")
	flags.BoolVarP(&verbose, "verbose", "v", false, "log migration steps")

	dbCfg.MaxConnections = 1
	dbCfg.MaxIdleConnections = 1
	dbCfg.ConnectionMaxLifetime = time.Minute

	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.AddCommand(upCmd, downCmd, gotoCmd, forceCmd, versionCmd)
}

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := database.RunMigrations(db, dbCfg.Driver, logger); err != nil {
			return err
		}

		return printVersion("✓ Schema is up to date")
	},
}

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back all migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := database.MigrateDown(db, dbCfg.Driver, logger); err != nil {
			return err
		}

		color.Yellow("✗ All migrations rolled back")

		return nil
	},
}

var gotoCmd = &cobra.Command{
	Use:   "goto <version>",
	Short: "Migrate up or down to a version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		version, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil || version == 0 {
			return fmt.Errorf("invalid version %q: expected a positive integer", args[0])
		}

		if err := database.MigrateToVersion(db, dbCfg.Driver, uint(version), logger); err != nil {
			return err
		}

		return printVersion("✓ Migrated")
	},
}

var forceCmd = &cobra.Command{
	Use:   "force <version>",
	Short: "Set the recorded version without running migrations",
	Long: `Set the recorded schema version and clear the dirty flag without running
any migration. Use it after repairing a failed migration by hand.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		version, err := strconv.Atoi(args[0])
		if err != nil || version < 0 {
			return fmt.Errorf("invalid version %q: expected a non-negative integer", args[0])
		}

		if err := database.ForceVersion(db, dbCfg.Driver, version, logger); err != nil {
			return err
		}

		color.Yellow("⚠ Forced schema version %d", version)

		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the applied schema version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printVersion("Schema")
	},
}

func printVersion(prefix string) error {
	version, dirty, err := database.SchemaVersion(db, dbCfg.Driver)
	if err != nil {
		return err
	}

	faint := color.New(color.Faint)

	if dirty {
		color.Red("%s: version %d (dirty)", prefix, version)
		faint.Println("  run 'migrate force <version>' after repairing the schema")

		return nil
	}

	color.Green("%s: version %d", prefix, version)
	faint.Printf("  driver %s\n", dbCfg.Driver)

	return nil
}
