// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrAircraftNotFound indicates an aircraft was not found by the given identifier.
	ErrAircraftNotFound = errors.New("aircraft not found")

	// ErrWorkflowStateNotFound indicates an aircraft has no workflow state yet.
	ErrWorkflowStateNotFound = errors.New("workflow state not found")

	// ErrRecordNotFound indicates a stage record was not found by the given identifier.
	ErrRecordNotFound = errors.New("record not found")

	// ErrJobCardNotFound indicates a job card was not found by the given identifier.
	ErrJobCardNotFound = errors.New("job card not found")
)

// RecordError wraps record-related errors with additional context.
type RecordError struct {
	Op         string // Operation being performed (e.g., "ByID", "Save")
	Collection string // Record collection (e.g., "servicing", "acceptances")
	ID         string // Record ID if applicable
	Err        error  // Underlying error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("%s operation failed for %s %s: %v", e.Op, e.Collection, e.ID, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for record errors.
func (e *RecordError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewRecordError creates a new record error with context.
func NewRecordError(op, collection, id string, err error) *RecordError {
	return &RecordError{
		Op:         op,
		Collection: collection,
		ID:         id,
		Err:        err,
	}
}

// IsAircraftNotFound checks if an error indicates an aircraft was not found.
func IsAircraftNotFound(err error) bool {
	return errors.Is(err, ErrAircraftNotFound)
}

// IsWorkflowStateNotFound checks if an error indicates a missing workflow state.
func IsWorkflowStateNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowStateNotFound)
}

// IsRecordNotFound checks if an error indicates a stage record was not found.
func IsRecordNotFound(err error) bool {
	return errors.Is(err, ErrRecordNotFound)
}

// IsJobCardNotFound checks if an error indicates a job card was not found.
func IsJobCardNotFound(err error) bool {
	return errors.Is(err, ErrJobCardNotFound)
}

// IsNotFound reports whether err is any of the not-found errors.
func IsNotFound(err error) bool {
	return IsAircraftNotFound(err) || IsWorkflowStateNotFound(err) || IsRecordNotFound(err) || IsJobCardNotFound(err)
}
