// Package apperrors provides sentinel and custom error types shared by the service and HTTP layers.
package apperrors

// ErrNotFound represents a "not found" error.
// Use when a requested resource (e.g. a session) doesn't exist or has expired.
var ErrNotFound = &NotFoundError{}

// NotFoundError is a sentinel error for resources that are not found.
type NotFoundError struct {
	Resource string
	Message  string
}

// NewNotFoundError creates a new NotFoundError with a custom message.
func NewNotFoundError(resource, message string) *NotFoundError {
	return &NotFoundError{
		Resource: resource,
		Message:  message,
	}
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	if e.Resource != "" {
		return e.Resource + " not found"
	}

	return "resource not found"
}

// Is implements the error interface for error comparison.
func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)

	return ok
}

// ErrConflict is the sentinel for conflict errors (e.g. a submission while one is already in flight).
var ErrConflict = &ConflictError{}

// ConflictError is a sentinel error for state conflicts.
type ConflictError struct {
	Message string
}

// NewConflictError creates a ConflictError with a custom message.
func NewConflictError(message string) *ConflictError {
	return &ConflictError{Message: message}
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	return "conflict"
}

// Is matches the ErrConflict category sentinel. Two conflicts with different messages do not match each other.
func (e *ConflictError) Is(target error) bool {
	t, ok := target.(*ConflictError)

	return ok && t.Message == ""
}
