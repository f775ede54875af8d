// Package flow defines domain-specific errors
package flow

import "errors"

// Domain errors - DRY principle: defined once, used everywhere
var (
	// Flow errors
	ErrInvalidFlowID   = errors.New("invalid flow ID")
	ErrInvalidFlowName = errors.New("invalid flow name")
	ErrNoSteps         = errors.New("flow has no steps")
	ErrFlowNotFound    = errors.New("flow not found")

	// Step errors
	ErrNilStep         = errors.New("step cannot be nil")
	ErrInvalidStepID   = errors.New("invalid step ID")
	ErrInvalidStepKind = errors.New("invalid step kind")
	ErrStepNotFound    = errors.New("step not found")
	ErrDuplicateStep   = errors.New("duplicate step ID")
)
