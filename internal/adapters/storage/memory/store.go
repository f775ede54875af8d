// Package memory provides an in-memory trace.Storage, primarily for tests
// and for runtimes that opt out of durability. An optional byte quota makes
// the quota-fallback path of the history tier testable.
package memory

import (
	"context"
	"sync"

	"github.com/flowdeck/flowdeck/internal/core/trace"
)

// Store implements trace.Storage with a mutex-guarded map.
type Store struct {
	mu       sync.RWMutex
	values   map[string][]byte
	maxBytes int
}

// Option configures a Store.
type Option func(*Store)

// WithQuota caps the total stored bytes; writes beyond the cap fail with
// trace.ErrQuotaExceeded.
func WithQuota(maxBytes int) Option {
	return func(s *Store) { s.maxBytes = maxBytes }
}

// New creates an empty in-memory store.
func New(opts ...Option) *Store {
	s := &Store{values: make(map[string][]byte)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load returns the value for key.
func (s *Store) Load(_ context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, trace.ErrInvalidKey
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	if !ok {
		return nil, trace.ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// Save stores a copy of value under key, enforcing the quota if set.
func (s *Store) Save(_ context.Context, key string, value []byte) error {
	if key == "" {
		return trace.ErrInvalidKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.maxBytes > 0 {
		total := len(value)
		for k, v := range s.values {
			if k != key {
				total += len(v)
			}
		}
		if total > s.maxBytes {
			return trace.ErrQuotaExceeded
		}
	}

	buf := make([]byte, len(value))
	copy(buf, value)
	s.values[key] = buf
	return nil
}

// Delete removes the key.
func (s *Store) Delete(_ context.Context, key string) error {
	if key == "" {
		return trace.ErrInvalidKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

// Len returns the number of stored keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}
