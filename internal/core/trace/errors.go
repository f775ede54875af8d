// Package trace defines domain-specific errors
package trace

import "errors"

var (
	ErrInvalidExecutionID = errors.New("invalid execution ID")
	ErrInvalidFlowID      = errors.New("invalid flow ID")
	ErrNilExecution       = errors.New("execution cannot be nil")
	ErrNoLiveExecution    = errors.New("no live execution for flow")
)
