// Package cost prices a flow execution from the token usage its steps
// recorded. Estimation is a pure function over step records and a pricing
// model; the only state anywhere is the estimator's swappable default
// model slot.
package cost

import (
	"fmt"
	"sync"

	"github.com/flowdeck/flowdeck/internal/core/trace"
)

// floorThreshold is the smallest value Format renders as dollars; anything
// below collapses to the floor marker.
const floorThreshold = 0.001

// PricingModel holds per-1000-token rates for one model.
type PricingModel struct {
	Model       string  `json:"model"`
	InputPer1K  float64 `json:"input_per_1k"`
	OutputPer1K float64 `json:"output_per_1k"`
}

// Estimate sums the priced token usage over every step carrying usage
// data. Steps without usage contribute nothing, so the estimate stays
// meaningful while a run is still in flight.
func Estimate(steps map[string]*trace.StepExecution, model PricingModel) float64 {
	total := 0.0
	for _, step := range steps {
		if step == nil || step.Usage == nil {
			continue
		}
		total += float64(step.Usage.PromptTokens)/1000.0*model.InputPer1K +
			float64(step.Usage.CompletionTokens)/1000.0*model.OutputPer1K
	}
	return total
}

// Format renders a cost for display. Values below a tenth of a cent
// collapse to a floor marker instead of a misleading "$0.0000".
func Format(v float64) string {
	if v < floorThreshold {
		return "<$0.001"
	}
	return fmt.Sprintf("$%.4f", v)
}

// Estimator pairs Estimate with a swappable default pricing model, so
// consumers that do not care which model ran can price executions against
// one ambient configuration.
type Estimator struct {
	mu    sync.RWMutex
	model PricingModel
}

// NewEstimator creates an estimator with the given default pricing.
func NewEstimator(model PricingModel) *Estimator {
	return &Estimator{model: model}
}

// Model returns the current default pricing model.
func (e *Estimator) Model() PricingModel {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.model
}

// SetModel swaps the default pricing model. Safe to call at runtime; in
// flight estimates keep the model they started with.
func (e *Estimator) SetModel(model PricingModel) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.model = model
}

// Estimate prices an execution's steps under the default model.
func (e *Estimator) Estimate(exec *trace.FlowExecution) float64 {
	if exec == nil {
		return 0
	}
	return Estimate(exec.Steps, e.Model())
}
