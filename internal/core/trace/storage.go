// Package trace provides the persistence port for the history tier
package trace

import (
	"context"
	"errors"
)

// Storage is the durable key-value contract behind the history tier.
// Implementations live under internal/adapters/storage; the eviction and
// trim logic here never depends on which one is plugged in.
// PRINCIPLES:
// - ISP: three methods, nothing speculative
// - DIP: the store depends on this port, not a backend
type Storage interface {
	// Load returns the value for key, or ErrNotFound.
	Load(ctx context.Context, key string) ([]byte, error)

	// Save persists the value under key. A backend out of space
	// reports ErrQuotaExceeded so the caller can trim and retry.
	Save(ctx context.Context, key string, value []byte) error

	// Delete removes the key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

var (
	// ErrNotFound means the key has never been written (or was deleted).
	ErrNotFound = errors.New("key not found")
	// ErrQuotaExceeded means the backend refused the write for lack of space.
	ErrQuotaExceeded = errors.New("storage quota exceeded")
	// ErrInvalidKey means the key is empty or unusable for the backend.
	ErrInvalidKey = errors.New("invalid storage key")
)
