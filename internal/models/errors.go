package models

import "errors"

var (
	// ErrNotFound marks an unknown entry or patient id.
	ErrNotFound = errors.New("not found")
	// ErrInvalidTransition marks a status change that violates the
	// waiting -> in_progress -> completed state machine.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// ValidationError wraps the field-level detail of a rejected registration
// payload. Nothing has been mutated or broadcast when it is returned.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return "invalid registration input: " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
