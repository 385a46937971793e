package ledger

import "fmt"

// ValidationError reports an event that failed invariant checks before it
// reached a storage backend.
type ValidationError struct {
	EventID string // Event ID of the rejected event, may be empty
	Cause   error  // Underlying error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.EventID != "" {
		return fmt.Sprintf("validation error [event_id=%s]: %v", e.EventID, e.Cause)
	}
	return fmt.Sprintf("validation error: %v", e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// NewValidationError creates a new ValidationError.
func NewValidationError(eventID string, cause error) *ValidationError {
	return &ValidationError{
		EventID: eventID,
		Cause:   cause,
	}
}

// StorageError represents an error from the storage backend.
type StorageError struct {
	Backend   string // Storage backend type ("sqlite", "memory", etc.)
	Operation string // Operation that failed ("record", "aggregate", etc.)
	Cause     error  // Underlying error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{
		Backend:   backend,
		Operation: operation,
		Cause:     cause,
	}
}

// RecorderError represents an error on the asynchronous recording path.
type RecorderError struct {
	EventID string // Event ID of the affected event
	Cause   error  // Underlying error
}

// Error implements the error interface.
func (e *RecorderError) Error() string {
	if e.EventID != "" {
		return fmt.Sprintf("recorder error [event_id=%s]: %v", e.EventID, e.Cause)
	}
	return fmt.Sprintf("recorder error: %v", e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *RecorderError) Unwrap() error {
	return e.Cause
}

// NewRecorderError creates a new RecorderError.
func NewRecorderError(eventID string, cause error) *RecorderError {
	return &RecorderError{
		EventID: eventID,
		Cause:   cause,
	}
}
