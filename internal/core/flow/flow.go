// Package flow provides the core flow definition entities
// following Clean Architecture principles with zero external dependencies.
package flow

// Flow represents a named, versioned DAG of steps describing one
// AI-assisted task. The step collection must form a DAG; that property
// is enforced by pkg/validation, not by this entity.
type Flow struct {
	ID          string            `json:"id" validate:"required,step_id"`
	Name        string            `json:"name" validate:"required,min=1,max=200"`
	Description string            `json:"description,omitempty" validate:"omitempty,max=1000"`
	Version     string            `json:"version" validate:"required,semver"`
	Tags        []string          `json:"tags,omitempty"`
	Steps       []*Step           `json:"steps" validate:"required,min=1,dive,required"`
	Output      *OutputDescriptor `json:"output,omitempty"`
}

// OutputDescriptor describes the single logical output of a flow.
type OutputDescriptor struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// Validate ensures basic flow integrity. Structural invariants
// (acyclicity, reachability, id uniqueness) live in pkg/validation.
func (f *Flow) Validate() error {
	if f.ID == "" {
		return ErrInvalidFlowID
	}
	if f.Name == "" {
		return ErrInvalidFlowName
	}
	if len(f.Steps) == 0 {
		return ErrNoSteps
	}
	return nil
}

// Step returns the step with the given id, or nil if absent.
func (f *Flow) Step(id string) *Step {
	for _, s := range f.Steps {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// HasStep reports whether a step with the given id exists.
func (f *Flow) HasStep(id string) bool {
	return f.Step(id) != nil
}

// Clone returns a deep copy of the flow. The mutation engine relies on
// this to keep every transformation pure.
func (f *Flow) Clone() *Flow {
	if f == nil {
		return nil
	}
	out := &Flow{
		ID:          f.ID,
		Name:        f.Name,
		Description: f.Description,
		Version:     f.Version,
	}
	if f.Tags != nil {
		out.Tags = make([]string, len(f.Tags))
		copy(out.Tags, f.Tags)
	}
	if f.Output != nil {
		o := *f.Output
		out.Output = &o
	}
	if f.Steps != nil {
		out.Steps = make([]*Step, len(f.Steps))
		for i, s := range f.Steps {
			out.Steps[i] = s.Clone()
		}
	}
	return out
}
