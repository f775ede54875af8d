// Package trace provides the runtime execution records of a flow run and
// the two-tier store that tracks them: a live in-memory tier updated on
// every step-status change, and a bounded, persisted history of terminal
// runs.
package trace

import (
	"time"
)

// Status represents the overall state of one flow run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether the status is an end state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// StepStatus represents the state of a single step within a run.
type StepStatus string

const (
	StepIdle    StepStatus = "idle"
	StepRunning StepStatus = "running"
	StepSuccess StepStatus = "success"
	StepError   StepStatus = "error"
	StepSkipped StepStatus = "skipped"
)

// TokenUsage carries the model token counters reported for one step.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// StepExecution is the runtime record of one step within a run.
type StepExecution struct {
	Status      StepStatus             `json:"status"`
	StartedAt   *time.Time             `json:"started_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	DurationMs  int64                  `json:"duration_ms,omitempty"`
	Input       map[string]interface{} `json:"input,omitempty"`
	Output      map[string]interface{} `json:"output,omitempty"`
	Error       string                 `json:"error,omitempty"`
	RawResponse string                 `json:"raw_response,omitempty"`
	Usage       *TokenUsage            `json:"usage,omitempty"`
}

// FlowExecution is one run of a flow: created when the run starts, mutated
// step by step while live, frozen once terminal.
type FlowExecution struct {
	ID          string                    `json:"id"`
	FlowID      string                    `json:"flow_id"`
	Status      Status                    `json:"status"`
	StartedAt   time.Time                 `json:"started_at"`
	CompletedAt *time.Time                `json:"completed_at,omitempty"`
	Steps       map[string]*StepExecution `json:"steps"`
}

// Validate ensures execution record integrity.
func (e *FlowExecution) Validate() error {
	if e.ID == "" {
		return ErrInvalidExecutionID
	}
	if e.FlowID == "" {
		return ErrInvalidFlowID
	}
	return nil
}

// Terminal reports whether the run has reached an end state.
func (e *FlowExecution) Terminal() bool {
	return e.Status.Terminal()
}

// Step returns the record for the given step id, creating an idle one if
// it does not exist yet.
func (e *FlowExecution) Step(stepID string) *StepExecution {
	if e.Steps == nil {
		e.Steps = make(map[string]*StepExecution)
	}
	se, ok := e.Steps[stepID]
	if !ok {
		se = &StepExecution{Status: StepIdle}
		e.Steps[stepID] = se
	}
	return se
}

// Clone returns a deep copy of the execution record.
func (e *FlowExecution) Clone() *FlowExecution {
	if e == nil {
		return nil
	}
	out := *e
	if e.CompletedAt != nil {
		t := *e.CompletedAt
		out.CompletedAt = &t
	}
	if e.Steps != nil {
		out.Steps = make(map[string]*StepExecution, len(e.Steps))
		for id, se := range e.Steps {
			out.Steps[id] = se.Clone()
		}
	}
	return &out
}

// Clone returns a deep copy of the step record.
func (se *StepExecution) Clone() *StepExecution {
	if se == nil {
		return nil
	}
	out := *se
	if se.StartedAt != nil {
		t := *se.StartedAt
		out.StartedAt = &t
	}
	if se.CompletedAt != nil {
		t := *se.CompletedAt
		out.CompletedAt = &t
	}
	if se.Usage != nil {
		u := *se.Usage
		out.Usage = &u
	}
	if se.Input != nil {
		out.Input = make(map[string]interface{}, len(se.Input))
		for k, v := range se.Input {
			out.Input[k] = v
		}
	}
	if se.Output != nil {
		out.Output = make(map[string]interface{}, len(se.Output))
		for k, v := range se.Output {
			out.Output[k] = v
		}
	}
	return &out
}
