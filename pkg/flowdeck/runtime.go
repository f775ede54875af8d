package flowdeck

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/flowdeck/flowdeck/internal/core/cost"
	"github.com/flowdeck/flowdeck/internal/core/flow"
	"github.com/flowdeck/flowdeck/internal/core/layout"
	"github.com/flowdeck/flowdeck/internal/core/mutation"
	"github.com/flowdeck/flowdeck/internal/core/registry"
	"github.com/flowdeck/flowdeck/internal/core/trace"
)

// Re-export core flow types for convenience
type Flow = flow.Flow
type Step = flow.Step
type StepKind = flow.StepKind
type FieldSchema = flow.FieldSchema
type OutputDescriptor = flow.OutputDescriptor

// Execution trace types
type FlowExecution = trace.FlowExecution
type StepExecution = trace.StepExecution
type TokenUsage = trace.TokenUsage

// Registry and mutation outcomes
type Report = registry.Report
type Mutation = mutation.Mutation
type MutationResult = mutation.Result

// Pricing configuration for the cost estimator
type PricingModel = cost.PricingModel

// defaultPricing is used when no pricing model is configured.
var defaultPricing = PricingModel{
	Model:       "gpt-4o-mini",
	InputPer1K:  0.00015,
	OutputPer1K: 0.0006,
}

// Runtime bundles a validated flow catalog, an execution trace store, and
// a cost estimator behind one object. The default runtime keeps history in
// memory only; pass WithStorage to persist it.
type Runtime struct {
	registry  *registry.Registry
	store     *trace.Store
	estimator *cost.Estimator
}

// Option configures a Runtime.
type Option func(*config)

type config struct {
	store   trace.StoreConfig
	pricing PricingModel
	regOpts []registry.Option
}

// WithStorage persists execution history through the given backend.
func WithStorage(s trace.Storage) Option {
	return func(c *config) { c.store.Storage = s }
}

// WithHistoryCap bounds each flow's archived runs.
func WithHistoryCap(n int) Option {
	return func(c *config) { c.store.HistoryCap = n }
}

// WithPricing sets the default pricing model for cost estimates.
func WithPricing(p PricingModel) Option {
	return func(c *config) { c.pricing = p }
}

// WithRegistryOptions forwards options to the flow registry.
func WithRegistryOptions(opts ...registry.Option) Option {
	return func(c *config) { c.regOpts = append(c.regOpts, opts...) }
}

// NewRuntime validates the candidate flows and constructs a runtime over
// the admitted ones. Invalid candidates are excluded, not fatal; inspect
// Reports for what was dropped and why.
func NewRuntime(ctx context.Context, flows []*Flow, opts ...Option) *Runtime {
	c := config{pricing: defaultPricing}
	for _, opt := range opts {
		opt(&c)
	}

	return &Runtime{
		registry:  registry.New(flows, c.regOpts...),
		store:     trace.NewStore(ctx, c.store),
		estimator: cost.NewEstimator(c.pricing),
	}
}

// Flow returns the admitted flow with the given id.
func (rt *Runtime) Flow(id string) (*Flow, bool) {
	return rt.registry.Get(id)
}

// Flows returns all admitted flows in registration order.
func (rt *Runtime) Flows() []*Flow {
	return rt.registry.All()
}

// Reports returns the exclusion reports for rejected flow definitions.
func (rt *Runtime) Reports() []Report {
	return rt.registry.Reports()
}

// Layout computes node coordinates and edge curves for an admitted flow.
func (rt *Runtime) Layout(flowID string) (*layout.Layout, error) {
	f, ok := rt.registry.Get(flowID)
	if !ok {
		return nil, flow.ErrFlowNotFound
	}
	return layout.Compute(f.Steps), nil
}

// Mutate applies a mutation to an admitted flow and re-validates the
// result. The registered flow is never modified; the result carries the
// new value for the caller to keep, discard, or mutate further.
func (rt *Runtime) Mutate(flowID string, m Mutation) MutationResult {
	f, ok := rt.registry.Get(flowID)
	if !ok {
		return MutationResult{Err: flow.ErrFlowNotFound}
	}
	return mutation.Apply(f, m)
}

// Apply applies a mutation to an arbitrary in-memory flow, supporting
// edit loops over values produced by earlier mutations.
func (rt *Runtime) Apply(f *Flow, m Mutation) MutationResult {
	return mutation.Apply(f, m)
}

// StartExecution creates a running execution record for a flow, assigns it
// a fresh id, and writes it to the live tier.
func (rt *Runtime) StartExecution(ctx context.Context, flowID string) (*FlowExecution, error) {
	if _, ok := rt.registry.Get(flowID); !ok {
		return nil, flow.ErrFlowNotFound
	}
	exec := &FlowExecution{
		ID:        uuid.NewString(),
		FlowID:    flowID,
		Status:    trace.StatusRunning,
		StartedAt: time.Now(),
		Steps:     make(map[string]*StepExecution),
	}
	if err := rt.store.SetExecution(ctx, flowID, exec); err != nil {
		return nil, err
	}
	return exec, nil
}

// UpdateStep mutates one step record of the live execution through fn and
// republishes the execution, notifying subscribers.
func (rt *Runtime) UpdateStep(ctx context.Context, flowID, stepID string, fn func(*StepExecution)) error {
	exec, ok := rt.store.GetExecution(flowID)
	if !ok {
		return trace.ErrNoLiveExecution
	}
	fn(exec.Step(stepID))
	return rt.store.SetExecution(ctx, flowID, exec)
}

// FinishExecution marks the live execution terminal, which archives it
// into the flow's history.
func (rt *Runtime) FinishExecution(ctx context.Context, flowID string, status trace.Status) error {
	exec, ok := rt.store.GetExecution(flowID)
	if !ok {
		return trace.ErrNoLiveExecution
	}
	exec.Status = status
	now := time.Now()
	exec.CompletedAt = &now
	return rt.store.SetExecution(ctx, flowID, exec)
}

// Execution returns the live execution for a flow, if any.
func (rt *Runtime) Execution(flowID string) (*FlowExecution, bool) {
	return rt.store.GetExecution(flowID)
}

// ExecutionHistory returns the archived runs for a flow, newest first.
func (rt *Runtime) ExecutionHistory(flowID string) []*FlowExecution {
	return rt.store.ExecutionHistory(flowID)
}

// Subscribe registers a listener for store changes. The returned function
// unsubscribes it.
func (rt *Runtime) Subscribe(listener func()) func() {
	return rt.store.Subscribe(listener)
}

// EstimateCost prices the live execution of a flow under the current
// pricing model. Returns zero when no execution exists.
func (rt *Runtime) EstimateCost(flowID string) float64 {
	exec, ok := rt.store.GetExecution(flowID)
	if !ok {
		return 0
	}
	return rt.estimator.Estimate(exec)
}

// SetPricing swaps the pricing model used for cost estimates.
func (rt *Runtime) SetPricing(p PricingModel) {
	rt.estimator.SetModel(p)
}

// FormatCost renders an estimated cost for display.
func FormatCost(v float64) string {
	return cost.Format(v)
}
