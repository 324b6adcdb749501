// Package errors provides standardized error values for contract
// violations inside the symbol table.
package errors

import (
	stderrors "errors"
	"fmt"
	"runtime"
)

// ErrorCategory represents different categories of errors
type ErrorCategory string

const (
	// CategoryContract marks caller bugs: broken preconditions that must fail fast.
	CategoryContract ErrorCategory = "CONTRACT"
	// CategoryValidation marks rejected user input (config files, symbol graphs).
	CategoryValidation ErrorCategory = "VALIDATION"
)

// Sentinels usable with errors.Is.
var (
	ErrInvalidConstruction = stderrors.New("invalid construction")
	ErrInvalidInput        = stderrors.New("invalid input")
)

// StandardError provides a consistent error format
type StandardError struct {
	Category ErrorCategory
	Code     string
	Message  string
	Context  map[string]interface{}
	Caller   string
	cause    error
}

// Error implements the error interface
func (e *StandardError) Error() string {
	return fmt.Sprintf("[%s:%s] %s (caller: %s)", e.Category, e.Code, e.Message, e.Caller)
}

// Unwrap exposes the category sentinel.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// NewStandardError creates a new standardized error. The caller recorded
// is the function that invoked the constructor helper.
func NewStandardError(category ErrorCategory, code, message string, context map[string]interface{}) *StandardError {
	return newStandardError(2, category, code, message, context)
}

func newStandardError(skip int, category ErrorCategory, code, message string, context map[string]interface{}) *StandardError {
	pc, _, _, ok := runtime.Caller(skip)
	caller := "unknown"
	if ok {
		if fn := runtime.FuncForPC(pc); fn != nil {
			caller = fn.Name()
		}
	}

	var cause error
	switch category {
	case CategoryContract:
		cause = ErrInvalidConstruction
	case CategoryValidation:
		cause = ErrInvalidInput
	}

	return &StandardError{
		Category: category,
		Code:     code,
		Message:  message,
		Context:  context,
		Caller:   caller,
		cause:    cause,
	}
}

// InvalidConstruction reports a broken construction precondition.
func InvalidConstruction(code, format string, args ...interface{}) *StandardError {
	return newStandardError(2, CategoryContract, code, fmt.Sprintf(format, args...), nil)
}

// InvalidInput reports rejected user input.
func InvalidInput(code, format string, args ...interface{}) *StandardError {
	return newStandardError(2, CategoryValidation, code, fmt.Sprintf(format, args...), nil)
}

// Common precondition failures.

func NilUnderlying(operation string) *StandardError {
	return newStandardError(2, CategoryContract, "NIL_UNDERLYING",
		fmt.Sprintf("%s: underlying type parameter is nil", operation),
		map[string]interface{}{"operation": operation})
}

func NestedWrapper(family, name string) *StandardError {
	return newStandardError(2, CategoryContract, "NESTED_WRAPPER",
		fmt.Sprintf("type parameter %s is already wrapped by the %s strategy family", name, family),
		map[string]interface{}{"family": family, "name": name})
}

func ConflictingFlags(name string) *StandardError {
	return newStandardError(2, CategoryContract, "CONFLICTING_FLAGS",
		fmt.Sprintf("type parameter %s cannot have both reference-type and value-type constraints", name),
		map[string]interface{}{"name": name})
}

func SealedParameter(name string) *StandardError {
	return newStandardError(2, CategoryContract, "SEALED_PARAMETER",
		fmt.Sprintf("constraints of type parameter %s changed after resolution started", name),
		map[string]interface{}{"name": name})
}
