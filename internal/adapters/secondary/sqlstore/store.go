// Package sqlstore implements the transactional store on database/sql. The
// same queries serve PostgreSQL and SQLite; placeholders are rebound and
// driver constraint errors are classified per dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/sean-rowe/geotemp-service/internal/core/ports"
)

// QueryObserver receives the duration and outcome of every store operation.
// *observability.Telemetry satisfies it.
type QueryObserver interface {
	RecordDBQuery(ctx context.Context, operation string, duration time.Duration, err error)
}

// Option configures a Store.
type Option func(*Store)

// WithObserver reports every operation to observer.
func WithObserver(observer QueryObserver) Option {
	return func(s *Store) {
		s.observer = observer
	}
}

// querier is the subset of *sql.DB and *sql.Tx the repository needs.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is the relational implementation of ports.Store.
type Store struct {
	repo

	db *sql.DB
}

var _ ports.Store = (*Store)(nil)

// New wraps an open database of the given driver ("postgres" or "sqlite3").
func New(db *sql.DB, driverName string, logger *zap.Logger, opts ...Option) (*Store, error) {
	d, err := dialectFor(driverName)
	if err != nil {
		return nil, err
	}

	s := &Store{
		repo: repo{
			q:       db,
			dialect: d,
			tracer:  otel.Tracer("database"),
			logger:  logger,
		},
		db: db,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// InTx runs fn against a repository bound to a new transaction.
func (s *Store) InTx(ctx context.Context, fn func(repo ports.Repository) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			s.logger.Warn("failed to roll back transaction", zap.Error(err))
		}
	}()

	txRepo := s.repo
	txRepo.q = tx

	if err := fn(&txRepo); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", s.dialect.classify(err))
	}

	return nil
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// repo runs the entity queries against a connection pool or a transaction.
type repo struct {
	q        querier
	dialect  dialect
	tracer   trace.Tracer
	observer QueryObserver
	logger   *zap.Logger
}

// observe traces and measures one store operation. fn receives the span
// context and returns an already classified error.
func (r *repo) observe(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	ctx, span := r.tracer.Start(ctx, operation)
	defer span.End()

	span.SetAttributes(attribute.String("db.system", r.dialect.name))

	start := time.Now()
	err := fn(ctx)
	duration := time.Since(start)

	if r.observer != nil {
		r.observer.RecordDBQuery(ctx, operation, duration, err)
	}

	if err != nil {
		span.RecordError(err)
	}

	r.logger.Debug("store operation",
		zap.String("operation", operation),
		zap.Duration("duration", duration),
		zap.Error(err))

	return err
}

func (r *repo) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	res, err := r.q.ExecContext(ctx, r.dialect.rebind(query), args...)
	if err != nil {
		return nil, r.dialect.classify(err)
	}

	return res, nil
}

// execOne executes a statement that must affect exactly one row.
func (r *repo) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.exec(ctx, query, args...)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if affected == 0 {
		return errNotFound
	}

	return nil
}

func (r *repo) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return r.q.QueryRowContext(ctx, r.dialect.rebind(query), args...)
}

func (r *repo) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	rows, err := r.q.QueryContext(ctx, r.dialect.rebind(query), args...)
	if err != nil {
		return nil, r.dialect.classify(err)
	}

	return rows, nil
}
