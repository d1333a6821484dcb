package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	// ErrNotFound indicates that a requested entity was not found
	// or is not in the state required by the operation.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates that the operation conflicts with existing state.
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput indicates that the input data is invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates that the request lacks valid authentication.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates that the request is not allowed for the authenticated user.
	ErrForbidden = errors.New("forbidden")

	// ErrDependency indicates a failure in the database or another downstream collaborator.
	ErrDependency = errors.New("dependency failure")
)

// ValidationError represents a validation error for a specific field.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NotFoundError provides details about a missing or wrong-state entity.
type NotFoundError struct {
	Entity string
	ID     string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// ConflictError provides details about a state conflict, such as a duplicate
// pending request or a submitter that already holds the author role.
type ConflictError struct {
	Entity string
	Reason string
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s conflict: %s", e.Entity, e.Reason)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

// ForbiddenError provides details about a failed role or ownership check.
type ForbiddenError struct {
	Reason string
}

// Error implements the error interface.
func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("forbidden: %s", e.Reason)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *ForbiddenError) Unwrap() error {
	return ErrForbidden
}

// DependencyError wraps a failure from the entity store or the notification
// gateway. Step identifies the approval step that failed, when applicable.
type DependencyError struct {
	Step  string
	Cause error
}

// Error implements the error interface.
func (e *DependencyError) Error() string {
	if e.Step != "" {
		return fmt.Sprintf("dependency failure at %s: %v", e.Step, e.Cause)
	}
	return fmt.Sprintf("dependency failure: %v", e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *DependencyError) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches the ErrDependency sentinel.
func (e *DependencyError) Is(target error) bool {
	return target == ErrDependency
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{
		Entity: entity,
		ID:     id,
	}
}

// NewConflictError creates a new ConflictError.
func NewConflictError(entity, reason string) *ConflictError {
	return &ConflictError{
		Entity: entity,
		Reason: reason,
	}
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// NewForbiddenError creates a new ForbiddenError.
func NewForbiddenError(reason string) *ForbiddenError {
	return &ForbiddenError{Reason: reason}
}

// NewDependencyError creates a new DependencyError for a named step.
func NewDependencyError(step string, cause error) *DependencyError {
	return &DependencyError{
		Step:  step,
		Cause: cause,
	}
}
