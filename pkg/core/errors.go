package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ExecutionError represents a structured error with category and details
type ExecutionError struct {
	Category ErrorCategory
	Code     string                 // Machine-readable code: element_not_found, timeout, etc.
	Message  string                 // Human-readable message
	Details  map[string]interface{} // Additional context
	Cause    error                  // Underlying error
}

// Error implements the error interface
func (e *ExecutionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// Is matches on Code so that derived copies (WithCause, WithDetails, ...)
// still satisfy errors.Is against the predefined errors.
func (e *ExecutionError) Is(target error) bool {
	t, ok := target.(*ExecutionError)
	if !ok {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

// WithCause returns a copy of the error with the given cause
func (e *ExecutionError) WithCause(cause error) *ExecutionError {
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  e.Message,
		Details:  e.Details,
		Cause:    cause,
	}
}

// WithMessage returns a copy of the error with a custom message
func (e *ExecutionError) WithMessage(msg string) *ExecutionError {
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  msg,
		Details:  e.Details,
		Cause:    e.Cause,
	}
}

// WithDetails returns a copy of the error with additional details
func (e *ExecutionError) WithDetails(details map[string]interface{}) *ExecutionError {
	merged := make(map[string]interface{})
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  e.Message,
		Details:  merged,
		Cause:    e.Cause,
	}
}

// Predefined errors
var (
	// ErrHarnessFault is the only error allowed to abort a whole run.
	ErrHarnessFault = &ExecutionError{
		Category: ErrCategoryHarness,
		Code:     "harness_fault",
		Message:  "automation harness is unhealthy",
	}

	ErrElementNotFound = &ExecutionError{
		Category: ErrCategoryElement,
		Code:     "element_not_found",
		Message:  "no selector candidate resolved to an interactable element",
	}
	ErrActionFailed = &ExecutionError{
		Category: ErrCategoryAction,
		Code:     "action_failed",
		Message:  "action failed",
	}

	ErrPreconditionUnmet = &ExecutionError{
		Category: ErrCategoryPrecondition,
		Code:     "precondition_unmet",
		Message:  "precondition not established",
	}

	ErrTimeout = &ExecutionError{
		Category: ErrCategoryTimeout,
		Code:     "timeout",
		Message:  "operation timed out",
	}

	ErrInvalidConfig = &ExecutionError{
		Category: ErrCategoryConfig,
		Code:     "invalid_config",
		Message:  "invalid configuration",
	}
)

// NewElementNotFound reports that none of the tried selectors resolved.
func NewElementNotFound(tried []string) *ExecutionError {
	return ErrElementNotFound.
		WithMessage(fmt.Sprintf("element not found (tried %s)", strings.Join(tried, " | "))).
		WithDetails(map[string]interface{}{"triedSelectors": tried})
}

// NewActionFailed wraps the cause of a failed click/type/select.
func NewActionFailed(action string, selectors []string, cause error) *ExecutionError {
	return ErrActionFailed.
		WithMessage(fmt.Sprintf("%s failed", action)).
		WithDetails(map[string]interface{}{"action": action, "selectors": selectors}).
		WithCause(cause)
}

// NewTimeout reports an exceeded budget for op.
func NewTimeout(op string, cause error) *ExecutionError {
	return ErrTimeout.
		WithMessage(fmt.Sprintf("%s timed out", op)).
		WithCause(cause)
}

// NewHarnessFault reports a broken automation environment.
func NewHarnessFault(issues []string) *ExecutionError {
	msg := ErrHarnessFault.Message
	if len(issues) > 0 {
		msg = fmt.Sprintf("%s: %s", msg, strings.Join(issues, "; "))
	}
	return ErrHarnessFault.
		WithMessage(msg).
		WithDetails(map[string]interface{}{"issues": issues})
}

// NewPreconditionUnmet reports that a step was blocked by precondition.
func NewPreconditionUnmet(precondition, reason string) *ExecutionError {
	return ErrPreconditionUnmet.
		WithMessage(reason).
		WithDetails(map[string]interface{}{"precondition": precondition})
}

// TriedSelectors returns the selectors recorded on an element_not_found
// error anywhere in err's chain.
func TriedSelectors(err error) []string {
	for e := err; e != nil; e = errors.Unwrap(e) {
		ee, ok := e.(*ExecutionError)
		if !ok || ee.Code != ErrElementNotFound.Code {
			continue
		}
		if tried, ok := ee.Details["triedSelectors"].([]string); ok {
			return tried
		}
	}
	return nil
}

// Classify maps an error to the category that explains it best.
// A timeout anywhere in the chain wins, so a budget overrun is never
// reported as a missing element.
func Classify(err error) ErrorCategory {
	switch {
	case err == nil:
		return ErrCategoryNone
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return ErrCategoryTimeout
	case errors.Is(err, ErrHarnessFault):
		return ErrCategoryHarness
	case errors.Is(err, ErrPreconditionUnmet):
		return ErrCategoryPrecondition
	case errors.Is(err, ErrElementNotFound):
		return ErrCategoryElement
	case errors.Is(err, ErrInvalidConfig):
		return ErrCategoryConfig
	default:
		return ErrCategoryAction
	}
}

// Code returns the machine-readable code for err's category.
func Code(err error) string {
	switch Classify(err) {
	case ErrCategoryTimeout:
		return ErrTimeout.Code
	case ErrCategoryHarness:
		return ErrHarnessFault.Code
	case ErrCategoryPrecondition:
		return ErrPreconditionUnmet.Code
	case ErrCategoryElement:
		return ErrElementNotFound.Code
	case ErrCategoryConfig:
		return ErrInvalidConfig.Code
	case ErrCategoryNone:
		return ""
	default:
		return ErrActionFailed.Code
	}
}
