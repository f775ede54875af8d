// Package postgres provides a trace.Storage backed by PostgreSQL, for
// deployments where execution history must survive individual hosts.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flowdeck/flowdeck/internal/core/trace"
)

// pgDiskFull is the PostgreSQL error class for insufficient resources.
const pgDiskFull = "53100"

// Store implements trace.Storage over a single key-value table.
type Store struct {
	pool      *pgxpool.Pool
	tableName string
}

// New wraps an open connection pool. Call CreateTables before first use.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, tableName: "history_blobs"}
}

// Load returns the blob for key.
func (s *Store) Load(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, trace.ErrInvalidKey
	}

	query := fmt.Sprintf("SELECT value FROM %s WHERE key = $1", s.tableName)
	var value []byte
	err := s.pool.QueryRow(ctx, query, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, trace.ErrNotFound
		}
		return nil, fmt.Errorf("postgres store: load: %w", err)
	}
	return value, nil
}

// Save upserts the blob for key.
func (s *Store) Save(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return trace.ErrInvalidKey
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at
	`, s.tableName)

	_, err := s.pool.Exec(ctx, query, key, value, time.Now())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgDiskFull {
			return trace.ErrQuotaExceeded
		}
		return fmt.Errorf("postgres store: save: %w", err)
	}
	return nil
}

// Delete removes the key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if key == "" {
		return trace.ErrInvalidKey
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE key = $1", s.tableName)
	if _, err := s.pool.Exec(ctx, query, key); err != nil {
		return fmt.Errorf("postgres store: delete: %w", err)
	}
	return nil
}

// CreateTables creates the key-value table if it does not exist.
func (s *Store) CreateTables(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			key VARCHAR(255) PRIMARY KEY,
			value BYTEA NOT NULL,
			updated_at TIMESTAMP NOT NULL DEFAULT NOW()
		);
	`, s.tableName)

	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("postgres store: create tables: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}
