package shared

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
)

// Pricing and dispatch errors. Each one is a distinct, non-defaultable outcome:
// callers must never substitute a zero value when they see one of these.
var (
	// ErrDependencyUnavailable is returned when the store or an external API cannot be reached
	ErrDependencyUnavailable = NewDomainError("DEPENDENCY_UNAVAILABLE", "A required dependency is unavailable")
	// ErrNoRoute is returned when no shipping service can carry a parcel
	ErrNoRoute = NewDomainError("NO_ROUTE", "No shipping service matches the parcel")
	// ErrMarginUnattainable is returned when fees alone exceed the margin budget
	ErrMarginUnattainable = NewDomainError("MARGIN_UNATTAINABLE", "Fee structure exceeds the target margin budget")
	// ErrInvalidTransition is returned when a status change is not in the transition table
	ErrInvalidTransition = NewDomainError("INVALID_TRANSITION", "Status transition is not allowed")
	// ErrAdapterRejected is returned when a marketplace refuses a listing
	ErrAdapterRejected = NewDomainError("ADAPTER_ERROR", "Marketplace rejected the request")
)

// WrapError attaches detail to a domain error while keeping it matchable with errors.Is
func WrapError(base *DomainError, format string, args ...any) error {
	return fmt.Errorf("%w: %s", base, fmt.Sprintf(format, args...))
}

// Unavailable wraps a store or transport failure as ErrDependencyUnavailable
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrDependencyUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", ErrDependencyUnavailable, op, err)
}

// ErrorCode returns the domain error code carried by err, or "" if none
func ErrorCode(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}
