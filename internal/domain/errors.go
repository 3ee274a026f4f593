// Package domain defines the core business entities and errors.
package domain

import (
	"errors"
	"fmt"
)

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrInvalidRating is returned when a review rating is outside Again..Easy.
	ErrInvalidRating = errors.New("invalid rating")

	// ErrRetentionOutOfRange is returned when a retention target is outside
	// [MinRetentionTarget, MaxRetentionTarget].
	ErrRetentionOutOfRange = errors.New("retention target out of range")

	// ErrInvalidState is returned when an operation is not permitted in the
	// entity's current state.
	ErrInvalidState = errors.New("invalid state for operation")

	// ErrNoReviewsToUndo is returned when undo is requested on a card
	// whose review log is empty.
	ErrNoReviewsToUndo = fmt.Errorf("%w: no reviews to undo", ErrInvalidState)
)

// ValidationError describes a single invalid field. It wraps one of the
// sentinel errors above so callers can still match with errors.Is.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// Unwrap returns the wrapped sentinel error.
func (e *ValidationError) Unwrap() error {
	if e.Err == nil {
		return ErrValidation
	}
	return e.Err
}

// Is reports ErrValidation as a match for every ValidationError, whatever
// more specific sentinel it wraps.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field, message string, err error) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Err:     err,
	}
}
