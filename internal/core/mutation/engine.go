// Package mutation provides the apply/re-validate engine
package mutation

import (
	"github.com/flowdeck/flowdeck/internal/core/flow"
	"github.com/flowdeck/flowdeck/internal/infrastructure/metrics"
	"github.com/flowdeck/flowdeck/pkg/validation"
)

// Result reports the outcome of applying one mutation.
//
// When Err is set the mutation referenced something that does not exist or
// carried malformed arguments; Flow is then the original input, untouched.
// Otherwise Flow is a new value reflecting the change, and Valid/Violations
// carry the structural re-check of that new value. An invalid result is
// still returned in full so the caller can decide whether to discard it.
type Result struct {
	Flow        *flow.Flow
	Valid       bool
	Violations  []validation.Violation
	Err         error
	Description string
}

// Apply runs one mutation against the flow and re-validates the outcome.
// The input flow is never modified.
func Apply(f *flow.Flow, m Mutation) Result {
	if f == nil {
		return Result{Flow: f, Err: flow.ErrFlowNotFound, Description: describe(m)}
	}
	if m == nil {
		return Result{Flow: f, Err: ErrNilMutation, Description: "no-op"}
	}

	next := f.Clone()
	desc, err := m.apply(next)
	if err != nil {
		metrics.IncMutationsRejected()
		return Result{Flow: f, Err: err, Description: m.Describe()}
	}

	violations := validation.ValidateFlow(next)
	valid := len(violations) == 0
	if valid {
		metrics.IncMutationsApplied()
	} else {
		metrics.IncMutationsRejected()
	}
	return Result{
		Flow:        next,
		Valid:       valid,
		Violations:  violations,
		Description: desc,
	}
}

func describe(m Mutation) string {
	if m == nil {
		return "no-op"
	}
	return m.Describe()
}
