// Package trace provides the two-tier execution store
package trace

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/flowdeck/flowdeck/internal/infrastructure/metrics"
	"github.com/flowdeck/flowdeck/pkg/serialization"
)

// DefaultHistoryKey is the single namespaced key under which the whole
// per-flow history map is persisted.
const DefaultHistoryKey = "flowdeck/execution-history"

const (
	defaultHistoryCap  = 20
	defaultFallbackCap = 5
)

// StoreConfig holds configuration for the execution store.
type StoreConfig struct {
	// HistoryCap bounds each flow's archived runs (default 20).
	HistoryCap int
	// FallbackCap is the reduced bound applied when the durable layer
	// rejects a write (default 5).
	FallbackCap int
	// Storage is the durable backend. Nil disables persistence; the
	// history tier then lives only as long as the process.
	Storage Storage
	// Serializer encodes history blobs (default msgpack+zstd).
	Serializer *serialization.Serializer
	// Key is the storage key for the history blob.
	Key string
	// Logger receives persistence diagnostics.
	Logger *slog.Logger
}

// Store tracks live executions and archives terminal ones. The live tier
// is volatile and written on every step-status change; the history tier is
// bounded, newest-first, and persisted on every archival write.
//
// All mutating calls notify subscribers synchronously, after the internal
// state is fully consistent.
type Store struct {
	mu        sync.RWMutex
	live      map[string]*FlowExecution
	history   map[string][]*FlowExecution // oldest first internally
	snapshots map[string][]*FlowExecution // cached newest-first views

	listeners  map[int]func()
	listenerID int

	historyCap  int
	fallbackCap int
	storage     Storage
	serializer  *serialization.Serializer
	key         string
	logger      *slog.Logger
}

// NewStore creates an execution store and loads any persisted history.
// Corrupted or missing persisted data is treated as empty history, never
// as an error.
func NewStore(ctx context.Context, config StoreConfig) *Store {
	if config.HistoryCap <= 0 {
		config.HistoryCap = defaultHistoryCap
	}
	if config.FallbackCap <= 0 {
		config.FallbackCap = defaultFallbackCap
	}
	if config.Serializer == nil {
		config.Serializer = serialization.DefaultSerializer()
	}
	if config.Key == "" {
		config.Key = DefaultHistoryKey
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	s := &Store{
		live:        make(map[string]*FlowExecution),
		history:     make(map[string][]*FlowExecution),
		snapshots:   make(map[string][]*FlowExecution),
		listeners:   make(map[int]func()),
		historyCap:  config.HistoryCap,
		fallbackCap: config.FallbackCap,
		storage:     config.Storage,
		serializer:  config.Serializer,
		key:         config.Key,
		logger:      config.Logger,
	}
	s.loadHistory(ctx)
	return s
}

// SetExecution updates the live tier unconditionally. If the execution is
// terminal it is also upserted into that flow's history (replace by id,
// else append-then-trim), the history is persisted, and subscribers are
// notified.
func (s *Store) SetExecution(ctx context.Context, flowID string, exec *FlowExecution) error {
	if exec == nil {
		return ErrNilExecution
	}
	if err := exec.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	s.live[flowID] = exec

	if exec.Terminal() {
		s.archiveLocked(flowID, exec)
		s.persistLocked(ctx)
		metrics.IncExecutionsArchived()
	}
	s.mu.Unlock()

	s.notify()
	return nil
}

// GetExecution returns the live execution for a flow, if any.
func (s *Store) GetExecution(flowID string) (*FlowExecution, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	exec, ok := s.live[flowID]
	return exec, ok
}

// AllExecutions returns the live tier as a new map.
func (s *Store) AllExecutions() map[string]*FlowExecution {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*FlowExecution, len(s.live))
	for id, exec := range s.live {
		out[id] = exec
	}
	return out
}

// ClearExecution drops a flow's live record, notifying subscribers.
// History is unaffected.
func (s *Store) ClearExecution(flowID string) {
	s.mu.Lock()
	delete(s.live, flowID)
	s.mu.Unlock()
	s.notify()
}

// ExecutionHistory returns the archived runs for a flow, newest first.
// The returned slice is referentially stable across calls until the
// underlying history changes, so subscription-driven consumers can use
// identity comparison to skip redundant work.
func (s *Store) ExecutionHistory(flowID string) []*FlowExecution {
	s.mu.RLock()
	if snap, ok := s.snapshots[flowID]; ok {
		s.mu.RUnlock()
		return snap
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if snap, ok := s.snapshots[flowID]; ok {
		return snap
	}
	runs := s.history[flowID]
	snap := make([]*FlowExecution, len(runs))
	for i, run := range runs {
		snap[len(runs)-1-i] = run
	}
	s.snapshots[flowID] = snap
	return snap
}

// Subscribe registers a listener invoked synchronously after every state
// change. The returned function unsubscribes it.
func (s *Store) Subscribe(listener func()) func() {
	s.mu.Lock()
	id := s.listenerID
	s.listenerID++
	s.listeners[id] = listener
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// archiveLocked upserts a terminal execution into the flow's history and
// trims to the cap. Caller holds the write lock.
func (s *Store) archiveLocked(flowID string, exec *FlowExecution) {
	runs := s.history[flowID]
	replaced := false
	for i, run := range runs {
		if run.ID == exec.ID {
			runs[i] = exec
			replaced = true
			break
		}
	}
	if !replaced {
		runs = append(runs, exec)
		if len(runs) > s.historyCap {
			runs = runs[len(runs)-s.historyCap:]
		}
	}
	s.history[flowID] = runs
	delete(s.snapshots, flowID)
}

// persistLocked writes the history blob through the storage port with the
// trim-and-retry quota fallback. Failures degrade silently by design: a
// full disk must never crash a caller reporting step progress.
func (s *Store) persistLocked(ctx context.Context) {
	if s.storage == nil {
		return
	}
	if s.saveLocked(ctx) == nil {
		return
	}

	// Quota fallback: trim every flow's history to the reduced cap and
	// retry once.
	metrics.IncPersistRetries()
	for flowID, runs := range s.history {
		if len(runs) > s.fallbackCap {
			s.history[flowID] = runs[len(runs)-s.fallbackCap:]
			delete(s.snapshots, flowID)
		}
	}
	if err := s.saveLocked(ctx); err != nil {
		metrics.IncPersistDrops()
		s.logger.Warn("dropping history write after trim-and-retry", "error", err)
	}
}

func (s *Store) saveLocked(ctx context.Context) error {
	data, err := s.serializer.Serialize(s.history)
	if err != nil {
		return err
	}
	return s.storage.Save(ctx, s.key, data)
}

// loadHistory restores the persisted history map. Any failure - missing
// key, unreadable backend, corrupted blob - yields empty history.
func (s *Store) loadHistory(ctx context.Context) {
	if s.storage == nil {
		return
	}
	data, err := s.storage.Load(ctx, s.key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Warn("could not load persisted history, starting empty", "error", err)
		}
		return
	}

	var history map[string][]*FlowExecution
	if err := s.serializer.Deserialize(data, &history); err != nil {
		s.logger.Warn("persisted history corrupted, starting empty", "error", err)
		return
	}
	for flowID, runs := range history {
		if len(runs) > s.historyCap {
			runs = runs[len(runs)-s.historyCap:]
		}
		s.history[flowID] = runs
	}
}

// notify invokes every listener outside the lock, after state is fully
// consistent.
func (s *Store) notify() {
	s.mu.RLock()
	listeners := make([]func(), 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.RUnlock()

	for _, l := range listeners {
		l()
	}
}
