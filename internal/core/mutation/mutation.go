// Package mutation provides pure, re-validated transformations of flow
// definitions. Every mutation returns a new flow value; the input is never
// touched, and misuse (unknown ids, malformed arguments) is reported through
// the Result rather than thrown.
package mutation

import (
	"fmt"

	"github.com/flowdeck/flowdeck/internal/core/flow"
)

// Mutation is the closed variant set of flow transformations. The unexported
// apply method seals the interface to this package.
type Mutation interface {
	// Describe returns a human-readable summary of the mutation.
	Describe() string

	// apply transforms the flow in place (the engine hands it a private
	// clone) and returns the applied-change description.
	apply(f *flow.Flow) (string, error)
}

// AddStep inserts a new step into the flow.
type AddStep struct {
	Step *flow.Step
}

func (m AddStep) Describe() string {
	if m.Step == nil {
		return "add step"
	}
	return fmt.Sprintf("add step %q", m.Step.ID)
}

func (m AddStep) apply(f *flow.Flow) (string, error) {
	if m.Step == nil {
		return "", flow.ErrNilStep
	}
	if err := m.Step.Validate(); err != nil {
		return "", err
	}
	if f.HasStep(m.Step.ID) {
		return "", fmt.Errorf("add step: %w: %q", flow.ErrDuplicateStep, m.Step.ID)
	}
	f.Steps = append(f.Steps, m.Step.Clone())
	return fmt.Sprintf("added step %q", m.Step.ID), nil
}

// RemoveStep deletes a step and prunes its id from every other step's
// dependency list, so deletion cannot introduce dangling references.
type RemoveStep struct {
	ID string
}

func (m RemoveStep) Describe() string { return fmt.Sprintf("remove step %q", m.ID) }

func (m RemoveStep) apply(f *flow.Flow) (string, error) {
	if !f.HasStep(m.ID) {
		return "", fmt.Errorf("remove step: %w: %q", flow.ErrStepNotFound, m.ID)
	}
	steps := f.Steps[:0]
	for _, s := range f.Steps {
		if s.ID == m.ID {
			continue
		}
		if s.DependsOnStep(m.ID) {
			deps := s.DependsOn[:0]
			for _, dep := range s.DependsOn {
				if dep != m.ID {
					deps = append(deps, dep)
				}
			}
			s.DependsOn = deps
		}
		steps = append(steps, s)
	}
	f.Steps = steps
	return fmt.Sprintf("removed step %q and pruned its dependents", m.ID), nil
}

// StepPatch carries the optional field updates of an UpdateStep mutation.
// Nil fields are left unchanged.
type StepPatch struct {
	Description  *string
	Prompt       *string
	Model        *string
	Parallel     *bool
	InputSchema  *[]flow.FieldSchema
	OutputSchema *[]flow.FieldSchema
}

// UpdateStep patches the mutable fields of an existing step. Structure
// (id, kind, dependencies) is changed through the dedicated mutations.
type UpdateStep struct {
	ID    string
	Patch StepPatch
}

func (m UpdateStep) Describe() string { return fmt.Sprintf("update step %q", m.ID) }

func (m UpdateStep) apply(f *flow.Flow) (string, error) {
	s := f.Step(m.ID)
	if s == nil {
		return "", fmt.Errorf("update step: %w: %q", flow.ErrStepNotFound, m.ID)
	}
	if m.Patch.Description != nil {
		s.Description = *m.Patch.Description
	}
	if m.Patch.Prompt != nil {
		s.Prompt = *m.Patch.Prompt
	}
	if m.Patch.Model != nil {
		s.Model = *m.Patch.Model
	}
	if m.Patch.Parallel != nil {
		s.Parallel = *m.Patch.Parallel
	}
	if m.Patch.InputSchema != nil {
		s.InputSchema = append([]flow.FieldSchema(nil), (*m.Patch.InputSchema)...)
	}
	if m.Patch.OutputSchema != nil {
		s.OutputSchema = append([]flow.FieldSchema(nil), (*m.Patch.OutputSchema)...)
	}
	return fmt.Sprintf("updated step %q", m.ID), nil
}

// Connect makes To depend on From. Connecting an already-connected pair is
// a no-op reported as success.
type Connect struct {
	From string
	To   string
}

func (m Connect) Describe() string { return fmt.Sprintf("connect %q -> %q", m.From, m.To) }

func (m Connect) apply(f *flow.Flow) (string, error) {
	if !f.HasStep(m.From) {
		return "", fmt.Errorf("connect: %w: %q", flow.ErrStepNotFound, m.From)
	}
	to := f.Step(m.To)
	if to == nil {
		return "", fmt.Errorf("connect: %w: %q", flow.ErrStepNotFound, m.To)
	}
	if to.DependsOnStep(m.From) {
		return fmt.Sprintf("steps %q and %q already connected", m.From, m.To), nil
	}
	to.DependsOn = append(to.DependsOn, m.From)
	return fmt.Sprintf("connected %q -> %q", m.From, m.To), nil
}

// Disconnect removes From from To's dependency list.
type Disconnect struct {
	From string
	To   string
}

func (m Disconnect) Describe() string { return fmt.Sprintf("disconnect %q -> %q", m.From, m.To) }

func (m Disconnect) apply(f *flow.Flow) (string, error) {
	if !f.HasStep(m.From) {
		return "", fmt.Errorf("disconnect: %w: %q", flow.ErrStepNotFound, m.From)
	}
	to := f.Step(m.To)
	if to == nil {
		return "", fmt.Errorf("disconnect: %w: %q", flow.ErrStepNotFound, m.To)
	}
	if !to.DependsOnStep(m.From) {
		return fmt.Sprintf("steps %q and %q were not connected", m.From, m.To), nil
	}
	deps := to.DependsOn[:0]
	for _, dep := range to.DependsOn {
		if dep != m.From {
			deps = append(deps, dep)
		}
	}
	to.DependsOn = deps
	return fmt.Sprintf("disconnected %q -> %q", m.From, m.To), nil
}

// ChangeKind switches a step to a different kind.
type ChangeKind struct {
	ID   string
	Kind flow.StepKind
}

func (m ChangeKind) Describe() string {
	return fmt.Sprintf("change kind of step %q to %q", m.ID, m.Kind)
}

func (m ChangeKind) apply(f *flow.Flow) (string, error) {
	s := f.Step(m.ID)
	if s == nil {
		return "", fmt.Errorf("change kind: %w: %q", flow.ErrStepNotFound, m.ID)
	}
	if !m.Kind.Valid() {
		return "", fmt.Errorf("change kind: %w: %q", flow.ErrInvalidStepKind, m.Kind)
	}
	s.Kind = m.Kind
	return fmt.Sprintf("changed kind of step %q to %q", m.ID, m.Kind), nil
}

// ReorderDeps rewrites a step's dependency list with a permutation of its
// current entries. Dependency order carries no structural meaning, but
// builders may care about presentation order.
type ReorderDeps struct {
	ID    string
	Order []string
}

func (m ReorderDeps) Describe() string { return fmt.Sprintf("reorder dependencies of step %q", m.ID) }

func (m ReorderDeps) apply(f *flow.Flow) (string, error) {
	s := f.Step(m.ID)
	if s == nil {
		return "", fmt.Errorf("reorder dependencies: %w: %q", flow.ErrStepNotFound, m.ID)
	}
	if len(m.Order) != len(s.DependsOn) {
		return "", fmt.Errorf("reorder dependencies: order lists %d ids, step %q has %d dependencies",
			len(m.Order), m.ID, len(s.DependsOn))
	}
	current := make(map[string]bool, len(s.DependsOn))
	for _, dep := range s.DependsOn {
		current[dep] = true
	}
	for _, dep := range m.Order {
		if !current[dep] {
			return "", fmt.Errorf("reorder dependencies: %q is not a dependency of step %q", dep, m.ID)
		}
		delete(current, dep) // reject repeated ids
	}
	s.DependsOn = append([]string(nil), m.Order...)
	return fmt.Sprintf("reordered dependencies of step %q", m.ID), nil
}

// Batch applies its sub-mutations in sequence and validates only the final
// result. Intermediate states are allowed to be invalid; a batch whose final
// state is invalid is rejected as a whole. Per-step validation would make
// reorderings like swap-two-edges impossible to express.
type Batch struct {
	Mutations   []Mutation
	Description string
}

func (m Batch) Describe() string {
	if m.Description != "" {
		return m.Description
	}
	return fmt.Sprintf("batch of %d mutations", len(m.Mutations))
}

func (m Batch) apply(f *flow.Flow) (string, error) {
	for i, sub := range m.Mutations {
		if sub == nil {
			return "", fmt.Errorf("batch: mutation %d is nil", i)
		}
		if _, err := sub.apply(f); err != nil {
			return "", fmt.Errorf("batch: mutation %d (%s): %w", i, sub.Describe(), err)
		}
	}
	return m.Describe(), nil
}
