// internal/pkg/apperrors/errors.go
package apperrors

import (
	"errors"
	"fmt"
)

// Sentinel kinds for errors.Is checks at the HTTP boundary.
var (
	ErrConflict          = errors.New("conflict")
	ErrInvalidState      = errors.New("invalid state")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrNotFound          = errors.New("not found")
	ErrUnauthorized      = errors.New("unauthorized")
)

// ConflictError reports an operation that collides with existing state,
// e.g. an operator who already holds an open production session.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// NewConflict creates a ConflictError with a formatted message.
func NewConflict(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// InvalidStateError reports an operation attempted from a state that
// forbids it (double close, transfer already processed). Callers can
// treat it as "already done".
type InvalidStateError struct {
	Message string
}

func (e *InvalidStateError) Error() string { return e.Message }
func (e *InvalidStateError) Is(target error) bool {
	return target == ErrInvalidState
}

// NewInvalidState creates an InvalidStateError with a formatted message.
func NewInvalidState(format string, args ...interface{}) *InvalidStateError {
	return &InvalidStateError{Message: fmt.Sprintf(format, args...)}
}

// InsufficientStockError carries available vs requested quantities for
// user display.
type InsufficientStockError struct {
	ItemName  string
	Available float64
	Requested float64
}

func (e *InsufficientStockError) Error() string {
	if e.ItemName != "" {
		return fmt.Sprintf("insufficient stock for '%s': available %g, requested %g", e.ItemName, e.Available, e.Requested)
	}
	return fmt.Sprintf("insufficient stock: available %g, requested %g", e.Available, e.Requested)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// NotFoundError reports a missing order/machine/material/transfer.
type NotFoundError struct {
	Resource string
	ID       interface{}
}

func (e *NotFoundError) Error() string {
	if e.ID != nil {
		return fmt.Sprintf("%s %v not found", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFound creates a NotFoundError for a resource and optional identifier.
func NewNotFound(resource string, id interface{}) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// UnauthorizedError reports a missing or insufficient actor.
type UnauthorizedError struct {
	Message string
}

func (e *UnauthorizedError) Error() string { return e.Message }
func (e *UnauthorizedError) Is(target error) bool {
	return target == ErrUnauthorized
}
