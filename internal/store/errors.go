package store

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by every store implementation. Callers test for
// them with errors.Is; implementations may wrap them with driver detail.
var (
	ErrNotFound        = errors.New("entity not found")
	ErrDuplicate       = errors.New("entity already exists")
	ErrInvalidEntity   = errors.New("invalid entity")
	ErrVersionConflict = errors.New("version conflict")

	ErrCardNotFound  = fmt.Errorf("%w: card", ErrNotFound)
	ErrTopicNotFound = fmt.Errorf("%w: topic", ErrNotFound)
)

// IsNotFoundError reports whether err is ErrNotFound or one of its
// entity-specific forms.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError reports whether err is ErrDuplicate.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// StoreError records which statement failed. Err is the driver error after
// the engine's mapping, so sentinels stay reachable through errors.Is.
type StoreError struct {
	Entity    string // "card", "topic", "settings"
	Operation string // "insert", "update", "find", ...
	Message   string
	Err       error
}

func (e *StoreError) Error() string {
	msg := fmt.Sprintf("store: %s %s: %s", e.Entity, e.Operation, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a StoreError.
func NewStoreError(entity, operation, message string, err error) *StoreError {
	return &StoreError{
		Entity:    entity,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
