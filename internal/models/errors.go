package models

import (
	"errors"
	"fmt"
)

// Common domain errors. Handlers translate these to fixed HTTP status codes;
// services never coerce them into default values.
var (
	// ErrNotFound is returned when a referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned on a uniqueness violation (duplicate email or bag ID).
	ErrConflict = errors.New("conflict")
	// ErrInvalidTransition is returned when a status change violates the state machine.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrInvalidState is returned when a unit is not in the state an operation requires.
	ErrInvalidState = errors.New("invalid state")
	// ErrInsufficientStock is returned when a reservation cannot be satisfied.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// ValidationError represents a field-level validation failure.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// AdapterError wraps a persistence-layer failure. It distinguishes
// infrastructure trouble from domain rejections so the handler layer can map
// it to a 500 without leaking storage internals.
type AdapterError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *AdapterError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *AdapterError) Unwrap() error {
	return e.Err
}

// NewAdapterError wraps err as an AdapterError. A nil err returns nil.
func NewAdapterError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &AdapterError{Op: op, Err: err}
}

// IsAdapterError reports whether err is (or wraps) an AdapterError.
func IsAdapterError(err error) bool {
	var ae *AdapterError
	return errors.As(err, &ae)
}
