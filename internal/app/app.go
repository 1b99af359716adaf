// Package app wires the registry together: it opens the store, selects the
// cache, builds services and handlers, and manages the lifecycle of the HTTP
// server and the optional MQTT ingest.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sean-rowe/geotemp-service/internal/adapters/primary/mqtt"
	"github.com/sean-rowe/geotemp-service/internal/adapters/secondary/sqlstore"
	"github.com/sean-rowe/geotemp-service/internal/config"
	"github.com/sean-rowe/geotemp-service/internal/core/ports"
	"github.com/sean-rowe/geotemp-service/internal/infrastructure/cache"
	"github.com/sean-rowe/geotemp-service/internal/infrastructure/circuitbreaker"
	"github.com/sean-rowe/geotemp-service/internal/infrastructure/database"
	"github.com/sean-rowe/geotemp-service/internal/observability"
)

const redisBreakerName = "redis-cache"

// App manages the application lifecycle and dependencies.
type App struct {
	cfg        *config.Config
	logger     *zap.Logger
	server     *http.Server
	handler    http.Handler
	telemetry  *observability.Telemetry
	db         *sql.DB
	redis      *cache.RedisCache
	breakers   *circuitbreaker.Manager
	subscriber *mqtt.Subscriber
}

// New loads the configuration from the environment and creates the
// application logger.
//
// Returns:
//   - *App: Configured application instance
//   - error: Invalid configuration or logger initialization error
func New() (*App, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	var (
		logger *zap.Logger
		err    error
	)

	if cfg.IsDevelopment() {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}

	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return NewWithConfig(cfg, logger), nil
}

// NewWithConfig creates an application from an explicit configuration.
func NewWithConfig(cfg *config.Config, logger *zap.Logger) *App {
	return &App{
		cfg:      cfg,
		logger:   logger,
		breakers: circuitbreaker.NewManager(logger),
	}
}

// Init connects the store and builds the HTTP handler. It is called by Start
// and may be called on its own to serve the handler in-process.
func (a *App) Init(ctx context.Context) error {
	if a.handler != nil {
		return nil
	}

	if err := a.initTelemetry(ctx); err != nil {
		a.logger.Warn("failed to initialize telemetry, continuing without it", zap.Error(err))
	}

	store, err := a.initStore(ctx)
	if err != nil {
		return err
	}

	svc := NewServices(store, a.initCache(ctx), a.cfg.Redis.CacheTTL, a.logger)

	if a.cfg.MQTT.Enabled {
		a.subscriber = mqtt.NewSubscriber(mqtt.Config{
			Broker:   a.cfg.MQTT.Broker,
			Port:     a.cfg.MQTT.Port,
			ClientID: a.cfg.MQTT.ClientID,
			Topic:    a.cfg.MQTT.Topic,
			QoS:      byte(a.cfg.MQTT.QoS),
		}, svc.Temperatures, a.telemetry, a.logger)
	}

	a.handler = NewRouter(svc, RouterConfig{
		APIPrefix: a.cfg.Server.APIPrefix,
		Store:     store,
		DB:        a.db,
		Breakers:  a.breakers,
		Telemetry: a.telemetry,
		Logger:    a.logger,
	})

	return nil
}

// Handler returns the HTTP handler built by Init.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Start initializes all components and starts serving.
//
// Parameters:
//   - ctx: Context for initialization
//
// Returns:
//   - error: Store initialization error
func (a *App) Start(ctx context.Context) error {
	if err := a.Init(ctx); err != nil {
		return err
	}

	if a.subscriber != nil {
		go func() {
			if err := a.subscriber.Connect(ctx); err != nil && !errors.Is(err, mqtt.ErrStopped) {
				a.logger.Error("failed to connect to mqtt broker", zap.Error(err))
			}
		}()
	}

	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%s", a.cfg.Server.Port),
		Handler:      a.handler,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
		IdleTimeout:  a.cfg.Server.IdleTimeout,
	}

	go func() {
		a.logger.Info("starting HTTP server",
			zap.String("port", a.cfg.Server.Port),
			zap.String("api_prefix", a.cfg.Server.APIPrefix))

		if err := a.server.ListenAndServe(); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				a.logger.Fatal("failed to start server", zap.Error(err))
			}
		}
	}()

	return nil
}

// Stop gracefully shuts down all application components.
func (a *App) Stop() {
	a.logger.Info("shutting down application...")

	if a.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("failed to shutdown server gracefully", zap.Error(err))
		}
	}

	if a.subscriber != nil {
		a.subscriber.Disconnect()
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("failed to close redis connection", zap.Error(err))
		}
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("failed to close database connection", zap.Error(err))
		}
	}

	if a.telemetry != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := a.telemetry.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("failed to shutdown telemetry", zap.Error(err))
		}
	}

	// Sync fails on some platforms for stdout/stderr.
	_ = a.logger.Sync()
}

// WaitForShutdown blocks until the server receives a shutdown signal.
func (a *App) WaitForShutdown() {
	quit := make(chan os.Signal, 1)

	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	a.logger.Info("shutdown signal received")
}

// initTelemetry sets up tracing and metrics. Metrics are always served on
// /metrics; traces leave the process only when OTEL_ENABLED is set.
func (a *App) initTelemetry(ctx context.Context) error {
	telemetryConfig := observability.Config{
		ServiceName:    a.cfg.Observability.ServiceName,
		ServiceVersion: a.cfg.Observability.ServiceVersion,
		Environment:    a.cfg.Observability.Environment,
		SampleRate:     a.cfg.Observability.SampleRate,
	}

	if a.cfg.Observability.Enabled {
		telemetryConfig.OTLPEndpoint = a.cfg.Observability.OTLPEndpoint
	}

	var err error
	a.telemetry, err = observability.InitTelemetry(ctx, telemetryConfig, a.logger)

	return err
}

// initStore opens the database, applies migrations when enabled and wraps
// the connection in the transactional store.
func (a *App) initStore(ctx context.Context) (ports.Store, error) {
	dbCfg := a.cfg.Database

	db, err := database.Open(ctx, database.Config{
		Driver:                dbCfg.Driver,
		Host:                  dbCfg.Host,
		Port:                  dbCfg.Port,
		User:                  dbCfg.User,
		Password:              dbCfg.Password,
		Database:              dbCfg.Database,
		SSLMode:               dbCfg.SSLMode,
		SQLitePath:            dbCfg.SQLitePath,
		MaxConnections:        dbCfg.MaxConnections,
		MaxIdleConnections:    dbCfg.MaxIdleConnections,
		ConnectionMaxLifetime: dbCfg.ConnectionMaxLifetime,
	}, a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	a.db = db

	if dbCfg.AutoMigrate {
		if err := database.RunMigrations(db, dbCfg.Driver, a.logger); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	store, err := sqlstore.New(db, dbCfg.Driver, a.logger, sqlstore.WithObserver(a.telemetry))
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}

	return store, nil
}

// initCache returns the Redis cache behind a circuit breaker. Without Redis
// it returns the in-memory cache when the fallback is enabled and nil
// otherwise, which turns list caching off.
func (a *App) initCache(ctx context.Context) ports.CacheService {
	if !a.cfg.Redis.Enabled {
		a.logger.Info("Redis disabled")
		return a.fallbackCache()
	}

	redisCache, err := cache.NewRedisCache(ctx, cache.Config{
		Addr:         a.cfg.Redis.Addr,
		Password:     a.cfg.Redis.Password,
		DB:           a.cfg.Redis.DB,
		KeyPrefix:    a.cfg.Redis.KeyPrefix,
		PoolSize:     a.cfg.Redis.PoolSize,
		MinIdleConns: a.cfg.Redis.MinIdleConns,
		MaxRetries:   a.cfg.Redis.MaxRetries,
		DialTimeout:  a.cfg.Redis.DialTimeout,
		ReadTimeout:  a.cfg.Redis.ReadTimeout,
		WriteTimeout: a.cfg.Redis.WriteTimeout,
	}, a.logger)
	if err != nil {
		a.logger.Warn("Redis connection failed", zap.Error(err))
		return a.fallbackCache()
	}

	a.logger.Info("Redis connected successfully", zap.String("addr", a.cfg.Redis.Addr))
	a.redis = redisCache

	breaker := a.breakers.GetBreaker(redisBreakerName, circuitbreaker.Config{
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
	})

	return cache.NewGuardedCache(redisCache, breaker, a.telemetry)
}

func (a *App) fallbackCache() ports.CacheService {
	if !a.cfg.Redis.MemoryFallback {
		a.logger.Info("list caching disabled")
		return nil
	}

	ttl := a.cfg.Redis.CacheTTL
	a.logger.Info("using process memory list cache", zap.Duration("ttl", ttl))

	return cache.NewMemoryCache(ttl, 2*ttl, a.logger)
}
