package sqlite

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowdeck/flowdeck/internal/core/trace"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := New(db)
	require.NoError(t, s.CreateTables(context.Background()))
	return s
}

func TestSQLiteStore_SaveLoadDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.Load(ctx, "missing")
	assert.ErrorIs(t, err, trace.ErrNotFound)

	require.NoError(t, s.Save(ctx, "k", []byte("v1")))
	got, err := s.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)

	// Upsert replaces
	require.NoError(t, s.Save(ctx, "k", []byte("v2")))
	got, err = s.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)

	require.NoError(t, s.Delete(ctx, "k"))
	_, err = s.Load(ctx, "k")
	assert.ErrorIs(t, err, trace.ErrNotFound)
}

func TestSQLiteStore_EmptyKey(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.Load(ctx, "")
	assert.ErrorIs(t, err, trace.ErrInvalidKey)
	assert.ErrorIs(t, s.Save(ctx, "", []byte("v")), trace.ErrInvalidKey)
	assert.ErrorIs(t, s.Delete(ctx, ""), trace.ErrInvalidKey)
}

func TestSQLiteStore_WithTableName(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	defer db.Close()

	s := New(db).WithTableName("custom_history")
	require.NoError(t, s.CreateTables(context.Background()))
	require.NoError(t, s.Save(context.Background(), "k", []byte("v")))

	got, err := s.Load(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	// Unsafe identifiers are rejected and the default kept.
	s2 := New(db).WithTableName("bad; DROP TABLE custom_history")
	assert.Equal(t, "history_blobs", s2.tableName)
}

func TestSQLiteStore_Open(t *testing.T) {
	path := t.TempDir() + "/history.db"
	s, err := Open(context.Background(), path)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Save(context.Background(), "k", []byte("v")))

	// Reopening sees the persisted row.
	s2, err := Open(context.Background(), path)
	require.NoError(t, err)
	defer s2.Close()

	got, err := s2.Load(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}
