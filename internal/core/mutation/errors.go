// Package mutation defines engine-specific errors
package mutation

import "errors"

var (
	// ErrNilMutation is returned when Apply is handed a nil mutation.
	ErrNilMutation = errors.New("mutation cannot be nil")
)
