// Package postgres implements the storage interfaces against PostgreSQL
// using database/sql and hand-written SQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/cinelog/cinelog/pkg/storage"
)

// Store implements storage.Store using PostgreSQL.
type Store struct {
	db     *sql.DB
	config storage.Config
}

// New creates a Store over an already-open database handle. The handle's
// lifecycle is owned by the caller (process entry point).
func New(db *sql.DB, config storage.Config) *Store {
	return &Store{db: db, config: config}
}

// DB exposes the underlying handle for health checks.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Connect opens and verifies a PostgreSQL connection pool.
func Connect(ctx context.Context, config storage.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", config.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	db.SetMaxOpenConns(config.PostgresMaxConns)
	db.SetMaxIdleConns(config.PostgresMinConns)
	db.SetConnMaxLifetime(config.MaxConnLifetime)
	db.SetConnMaxIdleTime(config.MaxConnIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, config.PostgresTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return db, nil
}

// isUniqueViolation reports whether err is a duplicate-key error from the
// driver (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

// translateErr maps driver errors onto the storage sentinels. Wrapped errors
// translate too.
func translateErr(err error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return storage.ErrNotFound
	case isUniqueViolation(err):
		return storage.ErrConflict
	default:
		return err
	}
}
