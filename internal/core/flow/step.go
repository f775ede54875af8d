// Package flow provides step definitions
package flow

// StepKind represents the runtime contract of a step.
type StepKind string

const (
	// KindModelCall represents a step that calls an external model.
	KindModelCall StepKind = "model-call"
	// KindUserInput represents a step that blocks on user action.
	KindUserInput StepKind = "user-input"
	// KindTransform represents a pure data-shaping step.
	KindTransform StepKind = "transform"
	// KindValidate represents a step that checks upstream output.
	KindValidate StepKind = "validate"
	// KindDisplay represents a step that presents output to the user.
	KindDisplay StepKind = "display"
)

// Kinds lists every valid step kind.
var Kinds = []StepKind{KindModelCall, KindUserInput, KindTransform, KindValidate, KindDisplay}

// Valid reports whether the kind is a member of the closed kind set.
func (k StepKind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// FieldSchema describes one input or output field of a step.
type FieldSchema struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Example     string `json:"example,omitempty"`
}

// Step represents one node of a flow graph. DependsOn is the graph's
// only source of structure; order within it carries no meaning.
type Step struct {
	ID           string        `json:"id" validate:"required,step_id"`
	Kind         StepKind      `json:"kind" validate:"required"`
	Description  string        `json:"description,omitempty"`
	DependsOn    []string      `json:"depends_on"`
	Parallel     bool          `json:"parallel,omitempty"`
	Prompt       string        `json:"prompt,omitempty"`
	InputSchema  []FieldSchema `json:"input_schema,omitempty"`
	OutputSchema []FieldSchema `json:"output_schema,omitempty"`
	Model        string        `json:"model,omitempty"`
}

// Validate ensures step integrity.
func (s *Step) Validate() error {
	if s.ID == "" {
		return ErrInvalidStepID
	}
	if !s.Kind.Valid() {
		return ErrInvalidStepKind
	}
	return nil
}

// DependsOnStep reports whether the step lists id as a dependency.
func (s *Step) DependsOnStep(id string) bool {
	for _, dep := range s.DependsOn {
		if dep == id {
			return true
		}
	}
	return false
}

// IsRoot reports whether the step has no dependencies.
func (s *Step) IsRoot() bool {
	return len(s.DependsOn) == 0
}

// Clone returns a deep copy of the step.
func (s *Step) Clone() *Step {
	if s == nil {
		return nil
	}
	out := *s
	if s.DependsOn != nil {
		out.DependsOn = make([]string, len(s.DependsOn))
		copy(out.DependsOn, s.DependsOn)
	}
	if s.InputSchema != nil {
		out.InputSchema = make([]FieldSchema, len(s.InputSchema))
		copy(out.InputSchema, s.InputSchema)
	}
	if s.OutputSchema != nil {
		out.OutputSchema = make([]FieldSchema, len(s.OutputSchema))
		copy(out.OutputSchema, s.OutputSchema)
	}
	return &out
}
