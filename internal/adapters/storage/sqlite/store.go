// Package sqlite provides a trace.Storage backed by an embedded SQLite
// database, for deployments that want durable history without an external
// service.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/flowdeck/flowdeck/internal/core/trace"
)

// Store implements trace.Storage over a single key-value table.
type Store struct {
	db        *sql.DB
	tableName string
}

// New wraps an open database handle. Call CreateTables before first use.
func New(db *sql.DB) *Store {
	return &Store{db: db, tableName: "history_blobs"}
}

// Open opens (or creates) a SQLite database at path and prepares the
// schema.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: open %s: %w", path, err)
	}
	s := New(db)
	if err := s.CreateTables(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// WithTableName overrides the default table name with validation.
// Only alphanumeric and underscore are permitted to prevent SQL injection
// via identifiers.
func (s *Store) WithTableName(name string) *Store {
	if isSafeIdent(name) {
		s.tableName = name
	}
	return s
}

func isSafeIdent(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			continue
		}
		return false
	}
	return true
}

// Load returns the blob for key.
func (s *Store) Load(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, trace.ErrInvalidKey
	}

	query := fmt.Sprintf("SELECT value FROM %s WHERE key = ?", s.tableName)
	var value []byte
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, trace.ErrNotFound
		}
		return nil, fmt.Errorf("sqlite store: load: %w", err)
	}
	return value, nil
}

// Save upserts the blob for key.
func (s *Store) Save(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return trace.ErrInvalidKey
	}

	query := fmt.Sprintf(`
		INSERT OR REPLACE INTO %s (key, value, updated_at)
		VALUES (?, ?, ?)
	`, s.tableName)

	_, err := s.db.ExecContext(ctx, query, key, value, time.Now().Unix())
	if err != nil {
		if strings.Contains(err.Error(), "database or disk is full") {
			return trace.ErrQuotaExceeded
		}
		return fmt.Errorf("sqlite store: save: %w", err)
	}
	return nil
}

// Delete removes the key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if key == "" {
		return trace.ErrInvalidKey
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE key = ?", s.tableName)
	if _, err := s.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("sqlite store: delete: %w", err)
	}
	return nil
}

// CreateTables creates the key-value table if it does not exist.
func (s *Store) CreateTables(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL,
			updated_at INTEGER NOT NULL
		);
	`, s.tableName)

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("sqlite store: create tables: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
