package main

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/flowdeck/flowdeck/internal/core/flow"
	"github.com/flowdeck/flowdeck/internal/core/mutation"
	"github.com/flowdeck/flowdeck/internal/core/trace"
	"github.com/flowdeck/flowdeck/pkg/flowdeck"
)

type workloadManager struct {
	mu     sync.Mutex
	cancel context.CancelFunc
}

var wm workloadManager

func (m *workloadManager) start(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		http.Error(w, "workload already running", http.StatusConflict)
		return
	}
	rate := 200 * time.Millisecond
	if v := r.URL.Query().Get("rate_ms"); v != "" {
		if ms, err := time.ParseDuration(v + "ms"); err == nil {
			rate = ms
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	go func() { runEngineLoop(ctx, rate) }()
	w.WriteHeader(http.StatusAccepted)
	fmt.Fprintf(w, "engine workload started at %v\n", rate)
}

func (m *workloadManager) stop(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, "engine workload stopped\n")
}

func workloadFlow() *flowdeck.Flow {
	return &flowdeck.Flow{
		ID:      "workload",
		Name:    "Workload",
		Version: "1.0.0",
		Steps: []*flowdeck.Step{
			{ID: "fetch", Kind: flow.KindModelCall},
			{ID: "shape", Kind: flow.KindTransform, DependsOn: []string{"fetch"}},
			{ID: "show", Kind: flow.KindDisplay, DependsOn: []string{"shape"}},
		},
	}
}

// runEngineLoop exercises one full engine pass per tick: registry
// admission, a mutation round-trip, a layout, and an archived execution.
func runEngineLoop(ctx context.Context, hz time.Duration) {
	ticker := time.NewTicker(hz)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rt := flowdeck.NewRuntime(ctx, []*flowdeck.Flow{workloadFlow()})
			res := rt.Mutate("workload", mutation.Connect{From: "fetch", To: "show"})
			if res.Err == nil && res.Valid {
				_ = rt.Apply(res.Flow, mutation.Disconnect{From: "fetch", To: "show"})
			}
			_, _ = rt.Layout("workload")
			if _, err := rt.StartExecution(ctx, "workload"); err == nil {
				_ = rt.FinishExecution(ctx, "workload", trace.StatusCompleted)
			}
		}
	}
}
