package trace

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowdeck/flowdeck/pkg/serialization"
)

// fakeStorage implements Storage in-process, with scriptable failures.
type fakeStorage struct {
	values   map[string][]byte
	saveErrs []error // popped per Save call; nil entry means success
	saves    int
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{values: make(map[string][]byte)}
}

func (f *fakeStorage) Load(_ context.Context, key string) ([]byte, error) {
	v, ok := f.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

func (f *fakeStorage) Save(_ context.Context, key string, value []byte) error {
	f.saves++
	if len(f.saveErrs) > 0 {
		err := f.saveErrs[0]
		f.saveErrs = f.saveErrs[1:]
		if err != nil {
			return err
		}
	}
	f.values[key] = value
	return nil
}

func (f *fakeStorage) Delete(_ context.Context, key string) error {
	delete(f.values, key)
	return nil
}

func running(flowID, id string) *FlowExecution {
	return &FlowExecution{
		ID:        id,
		FlowID:    flowID,
		Status:    StatusRunning,
		StartedAt: time.Now(),
		Steps:     map[string]*StepExecution{},
	}
}

func completed(flowID, id string) *FlowExecution {
	exec := running(flowID, id)
	exec.Status = StatusCompleted
	done := time.Now()
	exec.CompletedAt = &done
	return exec
}

func TestSetExecution_LiveTier(t *testing.T) {
	s := NewStore(context.Background(), StoreConfig{})

	exec := running("video-pipeline", "run-1")
	require.NoError(t, s.SetExecution(context.Background(), "video-pipeline", exec))

	got, ok := s.GetExecution("video-pipeline")
	require.True(t, ok)
	assert.Same(t, exec, got)

	// A running execution is not archived.
	assert.Empty(t, s.ExecutionHistory("video-pipeline"))

	all := s.AllExecutions()
	assert.Len(t, all, 1)
}

func TestSetExecution_ArchivesTerminal(t *testing.T) {
	s := NewStore(context.Background(), StoreConfig{})
	ctx := context.Background()

	require.NoError(t, s.SetExecution(ctx, "vp", completed("vp", "run-1")))
	history := s.ExecutionHistory("vp")
	require.Len(t, history, 1)
	assert.Equal(t, "run-1", history[0].ID)
}

func TestSetExecution_UpsertsByExecutionID(t *testing.T) {
	s := NewStore(context.Background(), StoreConfig{})
	ctx := context.Background()

	first := completed("vp", "run-1")
	require.NoError(t, s.SetExecution(ctx, "vp", first))

	// Same id again, updated payload: replaced in place, not duplicated.
	updated := completed("vp", "run-1")
	updated.Status = StatusFailed
	require.NoError(t, s.SetExecution(ctx, "vp", updated))

	history := s.ExecutionHistory("vp")
	require.Len(t, history, 1)
	assert.Equal(t, StatusFailed, history[0].Status)
}

func TestSetExecution_HistoryCapAndOrder(t *testing.T) {
	s := NewStore(context.Background(), StoreConfig{HistoryCap: 3})
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		require.NoError(t, s.SetExecution(ctx, "vp", completed("vp", fmt.Sprintf("run-%d", i))))
	}

	history := s.ExecutionHistory("vp")
	require.Len(t, history, 3, "history never exceeds the cap")
	// Newest first; oldest entries were evicted.
	assert.Equal(t, "run-5", history[0].ID)
	assert.Equal(t, "run-4", history[1].ID)
	assert.Equal(t, "run-3", history[2].ID)
}

func TestExecutionHistory_SnapshotStability(t *testing.T) {
	s := NewStore(context.Background(), StoreConfig{})
	ctx := context.Background()

	require.NoError(t, s.SetExecution(ctx, "vp", completed("vp", "run-1")))

	first := s.ExecutionHistory("vp")
	second := s.ExecutionHistory("vp")
	assert.Equal(t, fmt.Sprintf("%p", first), fmt.Sprintf("%p", second),
		"snapshot must be referentially stable until the data changes")

	require.NoError(t, s.SetExecution(ctx, "vp", completed("vp", "run-2")))
	third := s.ExecutionHistory("vp")
	assert.NotEqual(t, fmt.Sprintf("%p", first), fmt.Sprintf("%p", third))
	require.Len(t, third, 2)
}

func TestSubscribe(t *testing.T) {
	s := NewStore(context.Background(), StoreConfig{})
	ctx := context.Background()

	calls := 0
	unsubscribe := s.Subscribe(func() { calls++ })

	require.NoError(t, s.SetExecution(ctx, "vp", running("vp", "run-1")))
	assert.Equal(t, 1, calls, "notified synchronously on every write")

	require.NoError(t, s.SetExecution(ctx, "vp", completed("vp", "run-1")))
	assert.Equal(t, 2, calls)

	// Listener observes fully consistent state.
	s.Subscribe(func() {
		history := s.ExecutionHistory("vp")
		assert.NotEmpty(t, history)
	})
	require.NoError(t, s.SetExecution(ctx, "vp", completed("vp", "run-2")))

	unsubscribe()
	before := calls
	s.ClearExecution("vp")
	assert.Equal(t, before, calls, "unsubscribed listener is not called")
}

func TestPersistence_RoundTrip(t *testing.T) {
	storage := newFakeStorage()
	ctx := context.Background()

	s := NewStore(ctx, StoreConfig{Storage: storage})
	require.NoError(t, s.SetExecution(ctx, "vp", completed("vp", "run-1")))
	require.NoError(t, s.SetExecution(ctx, "vp", completed("vp", "run-2")))

	// A fresh store over the same backend restores the archive; the live
	// tier does not survive.
	restored := NewStore(ctx, StoreConfig{Storage: storage})
	history := restored.ExecutionHistory("vp")
	require.Len(t, history, 2)
	assert.Equal(t, "run-2", history[0].ID)
	_, ok := restored.GetExecution("vp")
	assert.False(t, ok)
}

func TestPersistence_QuotaFallback(t *testing.T) {
	storage := newFakeStorage()
	ctx := context.Background()

	s := NewStore(ctx, StoreConfig{Storage: storage, FallbackCap: 2})
	for i := 1; i <= 6; i++ {
		require.NoError(t, s.SetExecution(ctx, "vp", completed("vp", fmt.Sprintf("run-%d", i))))
	}

	// Next archival write hits the quota once; the store trims to the
	// fallback cap and the retry succeeds.
	storage.saveErrs = []error{ErrQuotaExceeded}
	require.NoError(t, s.SetExecution(ctx, "vp", completed("vp", "run-7")))

	history := s.ExecutionHistory("vp")
	require.Len(t, history, 2)
	assert.Equal(t, "run-7", history[0].ID)
	assert.Equal(t, "run-6", history[1].ID)

	// The trimmed state is what got persisted.
	restored := NewStore(ctx, StoreConfig{Storage: storage})
	assert.Len(t, restored.ExecutionHistory("vp"), 2)
}

func TestPersistence_DoubleFailureDropsSilently(t *testing.T) {
	storage := newFakeStorage()
	ctx := context.Background()

	s := NewStore(ctx, StoreConfig{Storage: storage})
	storage.saveErrs = []error{ErrQuotaExceeded, ErrQuotaExceeded}

	// The write is dropped without surfacing an error to the caller.
	require.NoError(t, s.SetExecution(ctx, "vp", completed("vp", "run-1")))

	// In-memory history still reflects the archive.
	assert.Len(t, s.ExecutionHistory("vp"), 1)
}

func TestNewStore_CorruptedPersistedData(t *testing.T) {
	storage := newFakeStorage()
	storage.values[DefaultHistoryKey] = []byte("not a valid blob")

	s := NewStore(context.Background(), StoreConfig{Storage: storage})
	assert.Empty(t, s.ExecutionHistory("vp"), "corrupted data is treated as empty history")
}

func TestNewStore_TrimsOversizedPersistedHistory(t *testing.T) {
	storage := newFakeStorage()
	ctx := context.Background()

	big := NewStore(ctx, StoreConfig{Storage: storage, HistoryCap: 10})
	for i := 1; i <= 10; i++ {
		require.NoError(t, big.SetExecution(ctx, "vp", completed("vp", fmt.Sprintf("run-%d", i))))
	}

	small := NewStore(ctx, StoreConfig{Storage: storage, HistoryCap: 4})
	history := small.ExecutionHistory("vp")
	require.Len(t, history, 4)
	assert.Equal(t, "run-10", history[0].ID)
}

func TestSetExecution_Validation(t *testing.T) {
	s := NewStore(context.Background(), StoreConfig{})
	ctx := context.Background()

	assert.ErrorIs(t, s.SetExecution(ctx, "vp", nil), ErrNilExecution)
	assert.ErrorIs(t, s.SetExecution(ctx, "vp", &FlowExecution{FlowID: "vp"}), ErrInvalidExecutionID)
	assert.ErrorIs(t, s.SetExecution(ctx, "vp", &FlowExecution{ID: "run-1"}), ErrInvalidFlowID)
}

func TestStore_CustomSerializer(t *testing.T) {
	storage := newFakeStorage()
	ctx := context.Background()
	ser := serialization.NewSerializer(serialization.Config{
		Codec:       serialization.NewJSONCodec(),
		Compression: serialization.CompressionGzip,
	})

	s := NewStore(ctx, StoreConfig{Storage: storage, Serializer: ser})
	require.NoError(t, s.SetExecution(ctx, "vp", completed("vp", "run-1")))

	restored := NewStore(ctx, StoreConfig{Storage: storage, Serializer: ser})
	assert.Len(t, restored.ExecutionHistory("vp"), 1)
}
