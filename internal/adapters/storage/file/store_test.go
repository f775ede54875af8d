package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowdeck/flowdeck/internal/core/trace"
)

func TestFileStore_SaveLoadDelete(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = s.Load(ctx, "missing")
	assert.ErrorIs(t, err, trace.ErrNotFound)

	require.NoError(t, s.Save(ctx, "k", []byte("v1")))
	got, err := s.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)

	require.NoError(t, s.Save(ctx, "k", []byte("v2")))
	got, err = s.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)

	require.NoError(t, s.Delete(ctx, "k"))
	_, err = s.Load(ctx, "k")
	assert.ErrorIs(t, err, trace.ErrNotFound)

	// Deleting a missing key is not an error.
	require.NoError(t, s.Delete(ctx, "k"))
}

func TestFileStore_NamespacedKeys(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "flowdeck/execution-history", []byte("blob")))

	// The blob lands inside the store directory, not a subdirectory.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "flowdeck__execution-history.bin", entries[0].Name())

	got, err := s.Load(ctx, "flowdeck/execution-history")
	require.NoError(t, err)
	assert.Equal(t, []byte("blob"), got)
}

func TestFileStore_EmptyKey(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = s.Load(ctx, "")
	assert.ErrorIs(t, err, trace.ErrInvalidKey)
	assert.ErrorIs(t, s.Save(ctx, "", []byte("v")), trace.ErrInvalidKey)
}

func TestFileStore_EmptyDir(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
}

func TestFileStore_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "history")
	_, err := New(dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestIsNoSpace(t *testing.T) {
	full := &fs.PathError{Op: "write", Path: "history.bin.tmp", Err: syscall.ENOSPC}
	assert.True(t, isNoSpace(full))
	assert.True(t, isNoSpace(fmt.Errorf("file store: write: %w", full)))

	assert.False(t, isNoSpace(&fs.PathError{Op: "write", Path: "x", Err: syscall.EACCES}))
	assert.False(t, isNoSpace(errors.New("no space left on device")), "message text alone must not match")
	assert.False(t, isNoSpace(nil))
}

func TestFileStore_NoTempFileLeftBehind(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)

	require.NoError(t, s.Save(context.Background(), "k", []byte("v")))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NotContains(t, entries[0].Name(), ".tmp")
}
