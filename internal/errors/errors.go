// Package errors provides error handling utilities.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Type identifies the category of error
type Type string

const (
	// TypeInput indicates an input validation error
	TypeInput Type = "INPUT_ERROR"

	// TypeConfig indicates a configuration error
	TypeConfig Type = "CONFIG_ERROR"

	// TypeInternal indicates an internal error
	TypeInternal Type = "INTERNAL_ERROR"

	// TypeNotFound indicates a resource not found error
	TypeNotFound Type = "NOT_FOUND"

	// TypeProvider indicates the plan/price provider returned incomplete data
	TypeProvider Type = "PROVIDER_ERROR"

	// TypeMalformedPlan indicates a change-set that is not a sequence of records
	TypeMalformedPlan Type = "MALFORMED_PLAN"

	// TypeEmptyCatalog indicates there is no VM baseline to select from
	TypeEmptyCatalog Type = "EMPTY_CATALOG"

	// TypeBudgetExceeded indicates selection authorized no variant
	TypeBudgetExceeded Type = "BUDGET_EXCEEDED"

	// TypeProvision indicates the apply action failed
	TypeProvision Type = "PROVISION_ERROR"
)

// Error represents a domain error with context
type Error struct {
	Type    Type                   `json:"type"`
	Message string                 `json:"message"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// HasType checks if the error is of a specific type
func (e *Error) HasType(t Type) bool {
	return e.Type == t
}

// WithContext adds context to the error
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a new error
func New(errType Type, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
	}
}

// Newf creates a new formatted error
func Newf(errType Type, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an error with context
func Wrap(errType Type, message string, cause error) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Cause:   cause,
	}
}

// Wrapf wraps an error with formatted context
func Wrapf(errType Type, cause error, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// IsType reports whether any error in err's chain is a domain error of type t.
func IsType(err error, t Type) bool {
	var e *Error
	for err != nil {
		if !stderrors.As(err, &e) {
			return false
		}
		if e.Type == t {
			return true
		}
		err = e.Cause
	}
	return false
}

// As returns the outermost domain error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Input creates an input error
func Input(message string) *Error {
	return New(TypeInput, message)
}

// Config wraps a configuration error
func Config(message string, cause error) *Error {
	return Wrap(TypeConfig, message, cause)
}

// NotFound creates a not found error
func NotFound(resourceType, identifier string) *Error {
	return Newf(TypeNotFound, "%s not found: %s", resourceType, identifier)
}

// Internal creates an internal error
func Internal(message string, cause error) *Error {
	return Wrap(TypeInternal, message, cause)
}

// Provider creates a provider error
func Provider(message string, cause error) *Error {
	return Wrap(TypeProvider, message, cause)
}

// MalformedPlan creates a malformed plan error
func MalformedPlan(message string, cause error) *Error {
	return Wrap(TypeMalformedPlan, message, cause)
}

// EmptyCatalog creates an empty catalog error
func EmptyCatalog(message string) *Error {
	return New(TypeEmptyCatalog, message)
}

// BudgetExceeded creates a budget exceeded error
func BudgetExceeded(message string) *Error {
	return New(TypeBudgetExceeded, message)
}

// Provision creates a provision error
func Provision(message string, cause error) *Error {
	return Wrap(TypeProvision, message, cause)
}
