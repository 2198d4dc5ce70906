// Package apperrors defines the error kinds the service layer returns.
// Handlers map each kind to an HTTP status; repositories wrap database
// failures as StoreError so a transaction rollback is never reported as a
// user mistake.
package apperrors

import "fmt"

// ValidationError names the offending field and, for valve arrays, the
// 1-based valve index. It is always raised before any write happens.
type ValidationError struct {
	Field      string `json:"field,omitempty"`
	ValveIndex int    `json:"valve_index,omitempty"`
	Message    string `json:"message"`
}

func (e *ValidationError) Error() string { return e.Message }

// Validation creates a field-level validation error
func Validation(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// ValveValidation creates a validation error for one valve in the array
func ValveValidation(index int, field, message string) *ValidationError {
	return &ValidationError{
		Field:      field,
		ValveIndex: index,
		Message:    fmt.Sprintf("Valve %d: %s", index, message),
	}
}

// ForbiddenError means the caller is authenticated but not allowed to touch
// this resource
type ForbiddenError struct {
	Message string
}

func (e *ForbiddenError) Error() string { return e.Message }

func Forbidden(message string) *ForbiddenError {
	return &ForbiddenError{Message: message}
}

// NotFoundError means the id resolved in neither storage shape
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string { return e.Resource + " not found" }

func NotFound(resource string) *NotFoundError {
	return &NotFoundError{Resource: resource}
}

// ConflictError reports a uniqueness violation as a user-correctable
// condition rather than a crash
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

func Conflict(message string) *ConflictError {
	return &ConflictError{Message: message}
}

// StoreError wraps an underlying persistence failure. The enclosing
// transaction has already been rolled back by the time it surfaces.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *StoreError) Unwrap() error { return e.Err }

func Store(op string, err error) *StoreError {
	return &StoreError{Op: op, Err: err}
}
