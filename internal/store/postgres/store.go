// Package postgres provides the PostgreSQL implementation of the store interfaces.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jeevandhara/bloodbank/internal/store"
)

// queryable abstracts *sql.DB and *sql.Tx for sub-stores.
type queryable interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresStore implements the Store interface using PostgreSQL.
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger

	donors        *DonorStore
	appointments  *AppointmentStore
	bloodUnits    *BloodUnitStore
	bloodRequests *BloodRequestStore
}

// Config holds PostgreSQL connection configuration.
type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig(dsn string) *Config {
	return &Config{
		DSN:             dsn,
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 1 * time.Minute,
	}
}

// NewPostgresStore creates a new PostgreSQL store with the given configuration.
func NewPostgresStore(cfg *Config, logger *slog.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	s := &PostgresStore{
		db:     db,
		logger: logger,
	}

	s.donors = &DonorStore{db: db, logger: logger}
	s.appointments = &AppointmentStore{db: db, logger: logger}
	s.bloodUnits = &BloodUnitStore{db: db, logger: logger}
	s.bloodRequests = &BloodRequestStore{db: db, logger: logger}

	logger.Info("connected to PostgreSQL database")
	return s, nil
}

// Donors returns the DonorStore.
func (s *PostgresStore) Donors() store.DonorStore {
	return s.donors
}

// Appointments returns the AppointmentStore.
func (s *PostgresStore) Appointments() store.AppointmentStore {
	return s.appointments
}

// BloodUnits returns the BloodUnitStore.
func (s *PostgresStore) BloodUnits() store.BloodUnitStore {
	return s.bloodUnits
}

// BloodRequests returns the BloodRequestStore.
func (s *PostgresStore) BloodRequests() store.BloodRequestStore {
	return s.bloodRequests
}

// WithTx executes the given function within a database transaction.
func (s *PostgresStore) WithTx(ctx context.Context, fn func(store.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	txs := &txStore{
		tx:     tx,
		logger: s.logger,
	}

	if err := fn(txs); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("failed to rollback transaction", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

// Ping verifies the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	s.logger.Info("closing PostgreSQL connection")
	return s.db.Close()
}

// DB returns the underlying database connection.
// This is useful for components that need direct database access.
func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

// txStore wraps a transaction and implements the Store interface.
type txStore struct {
	tx     *sql.Tx
	logger *slog.Logger

	donors        *DonorStore
	appointments  *AppointmentStore
	bloodUnits    *BloodUnitStore
	bloodRequests *BloodRequestStore
}

func (s *txStore) Donors() store.DonorStore {
	if s.donors == nil {
		s.donors = &DonorStore{tx: s.tx, logger: s.logger}
	}
	return s.donors
}

func (s *txStore) Appointments() store.AppointmentStore {
	if s.appointments == nil {
		s.appointments = &AppointmentStore{tx: s.tx, logger: s.logger}
	}
	return s.appointments
}

func (s *txStore) BloodUnits() store.BloodUnitStore {
	if s.bloodUnits == nil {
		s.bloodUnits = &BloodUnitStore{tx: s.tx, logger: s.logger}
	}
	return s.bloodUnits
}

func (s *txStore) BloodRequests() store.BloodRequestStore {
	if s.bloodRequests == nil {
		s.bloodRequests = &BloodRequestStore{tx: s.tx, logger: s.logger}
	}
	return s.bloodRequests
}

func (s *txStore) WithTx(ctx context.Context, fn func(store.Store) error) error {
	// Already in a transaction, just execute the function
	return fn(s)
}

func (s *txStore) Ping(ctx context.Context) error {
	return nil
}

func (s *txStore) Close() error {
	return nil
}
