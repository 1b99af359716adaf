package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/sean-rowe/geotemp-service/internal/adapters/primary/rest"
	"github.com/sean-rowe/geotemp-service/internal/core/ports"
	"github.com/sean-rowe/geotemp-service/internal/core/services"
	"github.com/sean-rowe/geotemp-service/internal/infrastructure/circuitbreaker"
	"github.com/sean-rowe/geotemp-service/internal/middleware"
	"github.com/sean-rowe/geotemp-service/internal/observability"
	"github.com/sean-rowe/geotemp-service/internal/version"
)

// Services groups the use cases exposed over HTTP and MQTT.
type Services struct {
	Countries    ports.CountryService
	Cities       ports.CityService
	Temperatures ports.TemperatureService
}

// NewServices builds the services on top of store. cache may be nil.
func NewServices(store ports.Store, cache ports.CacheService, cacheTTL time.Duration, logger *zap.Logger) Services {
	return Services{
		Countries:    services.NewCountryService(store, cache, logger, services.WithCacheTTL(cacheTTL)),
		Cities:       services.NewCityService(store, cache, logger, services.WithCacheTTL(cacheTTL)),
		Temperatures: services.NewTemperatureService(store, logger),
	}
}

// RouterConfig holds what the operational endpoints report on. Only Logger
// is required.
type RouterConfig struct {
	APIPrefix string
	Store     ports.Store
	DB        *sql.DB
	Breakers  *circuitbreaker.Manager
	Telemetry *observability.Telemetry
	Logger    *zap.Logger
}

// NewRouter mounts the entity endpoints under cfg.APIPrefix next to the
// operational endpoints and applies the middleware chain.
func NewRouter(svc Services, cfg RouterConfig) http.Handler {
	router := mux.NewRouter()
	logger := cfg.Logger

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, logger, http.StatusNotFound, rest.ErrorResponse{
			Error:   "NOT_FOUND",
			Message: "No route for " + r.Method + " " + r.URL.Path,
		})
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, logger, http.StatusMethodNotAllowed, rest.ErrorResponse{
			Error:   "METHOD_NOT_ALLOWED",
			Message: r.Method + " is not supported on " + r.URL.Path,
		})
	})

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, logger, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	router.HandleFunc("/health/ready", readinessHandler(cfg)).Methods(http.MethodGet)

	router.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, logger, http.StatusOK, version.Get())
	}).Methods(http.MethodGet)

	router.Handle("/metrics", cfg.Telemetry.MetricsHandler()).Methods(http.MethodGet)
	router.HandleFunc("/stats", statsHandler(cfg)).Methods(http.MethodGet)

	api := router.PathPrefix(cfg.APIPrefix).Subrouter()
	if cfg.APIPrefix == "" || cfg.APIPrefix == "/" {
		api = router
	}

	rest.NewCountryHandler(svc.Countries, logger).RegisterRoutes(api)
	rest.NewCityHandler(svc.Cities, logger).RegisterRoutes(api)
	rest.NewTemperatureHandler(svc.Temperatures, logger).RegisterRoutes(api)

	obs := middleware.NewObservabilityMiddleware(cfg.Telemetry, logger)
	router.Use(obs.RecoveryMiddleware)
	router.Use(obs.TracingMiddleware)
	router.Use(obs.MetricsMiddleware)
	router.Use(obs.LoggingMiddleware)

	return router
}

func readinessHandler(cfg RouterConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Store == nil {
			writeJSON(w, cfg.Logger, http.StatusOK, map[string]string{"status": "ready"})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := cfg.Store.Ping(ctx); err != nil {
			cfg.Logger.Warn("readiness check failed", zap.Error(err))
			writeJSON(w, cfg.Logger, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"error":  "database unreachable",
			})

			return
		}

		writeJSON(w, cfg.Logger, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// StatsResponse is served by /stats.
type StatsResponse struct {
	CircuitBreakers []circuitbreaker.Stats `json:"circuitBreakers"`
	Database        *DatabaseStats         `json:"database,omitempty"`
}

// DatabaseStats is the connection pool snapshot.
type DatabaseStats struct {
	OpenConnections int    `json:"openConnections"`
	InUse           int    `json:"inUse"`
	Idle            int    `json:"idle"`
	WaitCount       int64  `json:"waitCount"`
	WaitDuration    string `json:"waitDuration"`
}

func statsHandler(cfg RouterConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := StatsResponse{CircuitBreakers: []circuitbreaker.Stats{}}

		if cfg.Breakers != nil {
			resp.CircuitBreakers = cfg.Breakers.Stats()
		}

		if cfg.DB != nil {
			s := cfg.DB.Stats()
			resp.Database = &DatabaseStats{
				OpenConnections: s.OpenConnections,
				InUse:           s.InUse,
				Idle:            s.Idle,
				WaitCount:       s.WaitCount,
				WaitDuration:    s.WaitDuration.String(),
			}
		}

		writeJSON(w, cfg.Logger, http.StatusOK, resp)
	}
}

func writeJSON(w http.ResponseWriter, logger *zap.Logger, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("failed to encode response", zap.Error(err))
	}
}
