package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestExecutionError_Error(t *testing.T) {
	err := &ExecutionError{
		Category: ErrCategoryElement,
		Code:     "test_error",
		Message:  "test message",
	}

	if got := err.Error(); got != "test message" {
		t.Errorf("Error() = %q, want %q", got, "test message")
	}
}

func TestExecutionError_ErrorWithCause(t *testing.T) {
	cause := errors.New("underlying error")
	err := &ExecutionError{
		Category: ErrCategoryAction,
		Code:     "test_error",
		Message:  "test message",
		Cause:    cause,
	}

	got := err.Error()
	if !strings.Contains(got, "test message") {
		t.Errorf("Error() = %q, should contain 'test message'", got)
	}
	if !strings.Contains(got, "underlying error") {
		t.Errorf("Error() = %q, should contain 'underlying error'", got)
	}
}

func TestExecutionError_WithCause(t *testing.T) {
	original := ErrElementNotFound
	cause := errors.New("custom cause")

	newErr := original.WithCause(cause)

	if newErr.Cause != cause {
		t.Error("WithCause() did not set cause")
	}
	if newErr.Code != original.Code {
		t.Error("WithCause() changed code")
	}
	if original.Cause != nil {
		t.Error("WithCause() modified original error")
	}
}

func TestExecutionError_WithDetails(t *testing.T) {
	original := ErrActionFailed.WithDetails(map[string]interface{}{"a": 1})
	merged := original.WithDetails(map[string]interface{}{"b": 2})

	if merged.Details["a"] != 1 || merged.Details["b"] != 2 {
		t.Errorf("Details = %v, want a=1 b=2", merged.Details)
	}
	if _, ok := original.Details["b"]; ok {
		t.Error("WithDetails() modified original details")
	}
}

func TestExecutionError_IsMatchesDerivedCopies(t *testing.T) {
	derived := ErrElementNotFound.WithMessage("other").WithCause(errors.New("x"))
	wrapped := fmt.Errorf("step failed: %w", derived)

	if !errors.Is(wrapped, ErrElementNotFound) {
		t.Error("errors.Is(wrapped, ErrElementNotFound) = false, want true")
	}
	if errors.Is(wrapped, ErrTimeout) {
		t.Error("errors.Is(wrapped, ErrTimeout) = true, want false")
	}
}

func TestNewElementNotFound_RecordsTriedSelectors(t *testing.T) {
	tried := []string{"css:#email", "css:input[type=email]"}
	err := NewActionFailed("type", tried, NewElementNotFound(tried))

	got := TriedSelectors(fmt.Errorf("wrap: %w", err))
	if len(got) != 2 || got[0] != "css:#email" {
		t.Errorf("TriedSelectors() = %v, want %v", got, tried)
	}
	if !strings.Contains(err.Error(), "css:input[type=email]") {
		t.Errorf("Error() = %q, should list tried selectors", err.Error())
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCategory
	}{
		{"nil", nil, ErrCategoryNone},
		{"not found", NewElementNotFound([]string{"a"}), ErrCategoryElement},
		{"action wrapping not found", NewActionFailed("click", nil, NewElementNotFound(nil)), ErrCategoryElement},
		{"action wrapping timeout", NewActionFailed("click", nil, NewTimeout("resolve", nil)), ErrCategoryTimeout},
		{"context deadline", fmt.Errorf("nav: %w", context.DeadlineExceeded), ErrCategoryTimeout},
		{"harness", NewHarnessFault([]string{"driver gone"}), ErrCategoryHarness},
		{"precondition", NewPreconditionUnmet("products_discovered", "no products discovered"), ErrCategoryPrecondition},
		{"plain", errors.New("boom"), ErrCategoryAction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCode_TimeoutDistinctFromNotFound(t *testing.T) {
	timeout := Code(NewActionFailed("click", nil, NewTimeout("resolve", context.DeadlineExceeded)))
	notFound := Code(NewActionFailed("click", nil, NewElementNotFound([]string{"x"})))

	if timeout != "timeout" {
		t.Errorf("Code(timeout) = %q, want timeout", timeout)
	}
	if notFound != "element_not_found" {
		t.Errorf("Code(not found) = %q, want element_not_found", notFound)
	}
}

func TestDiagnosticVerdict_Err(t *testing.T) {
	healthy := DiagnosticVerdict{HarnessHealthy: true}
	if err := healthy.Err(); err != nil {
		t.Errorf("Err() = %v, want nil", err)
	}

	broken := DiagnosticVerdict{Issues: []string{"reference page unreachable"}}
	err := broken.Err()
	if !errors.Is(err, ErrHarnessFault) {
		t.Errorf("Err() = %v, want ErrHarnessFault", err)
	}
	if !strings.Contains(err.Error(), "reference page unreachable") {
		t.Errorf("Err() = %q, should carry the issue", err.Error())
	}
}
