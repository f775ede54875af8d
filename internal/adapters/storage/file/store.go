// Package file provides a trace.Storage backed by one file per key in a
// local directory. Writes go through a temp file and rename so a crash
// mid-write never leaves a half-written history blob behind.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/flowdeck/flowdeck/internal/core/trace"
)

// Store implements trace.Storage on a directory of blob files.
type Store struct {
	dir string
}

// New creates the directory if needed and returns a store over it.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("file store: directory must not be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("file store: create directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Load reads the blob for key.
func (s *Store) Load(_ context.Context, key string) ([]byte, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, trace.ErrNotFound
		}
		return nil, fmt.Errorf("file store: read %s: %w", path, err)
	}
	return data, nil
}

// Save writes the blob atomically (temp file + rename). A full disk is
// reported as trace.ErrQuotaExceeded so the history tier can trim.
func (s *Store) Save(_ context.Context, key string, value []byte) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, value, 0o644); err != nil {
		if isNoSpace(err) {
			return trace.ErrQuotaExceeded
		}
		return fmt.Errorf("file store: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("file store: rename %s: %w", tmp, err)
	}
	return nil
}

// Delete removes the blob for key.
func (s *Store) Delete(_ context.Context, key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("file store: remove %s: %w", path, err)
	}
	return nil
}

// path maps a key to a file name, flattening separators so namespaced keys
// like "flowdeck/execution-history" stay inside the store directory.
func (s *Store) path(key string) (string, error) {
	if key == "" {
		return "", trace.ErrInvalidKey
	}
	name := strings.NewReplacer("/", "__", "\\", "__", "..", "_").Replace(key)
	return filepath.Join(s.dir, name+".bin"), nil
}

func isNoSpace(err error) bool {
	return errors.Is(err, syscall.ENOSPC)
}
