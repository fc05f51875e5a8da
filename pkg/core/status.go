package core

import "fmt"

// StepStatus represents the execution status of a step
type StepStatus int

const (
	StatusPending StepStatus = iota // Not yet started
	StatusRunning                   // Currently executing
	StatusPassed                    // Completed successfully
	StatusFailed                    // Site did not behave as expected, or the step timed out
	StatusSkipped                   // A precondition the step depends on was not established
)

// String returns the string representation of StepStatus
func (s StepStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusPassed:
		return "passed"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// IsTerminal returns true if the status is a final state
func (s StepStatus) IsTerminal() bool {
	switch s {
	case StatusPassed, StatusFailed, StatusSkipped:
		return true
	default:
		return false
	}
}

// MarshalText encodes the status by name so the report JSON stays readable.
func (s StepStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status name.
func (s *StepStatus) UnmarshalText(b []byte) error {
	switch string(b) {
	case "pending":
		*s = StatusPending
	case "running":
		*s = StatusRunning
	case "passed":
		*s = StatusPassed
	case "failed":
		*s = StatusFailed
	case "skipped":
		*s = StatusSkipped
	default:
		return fmt.Errorf("unknown step status %q", string(b))
	}
	return nil
}

// ErrorCategory classifies the type of error for better debugging and reporting
type ErrorCategory int

const (
	ErrCategoryNone         ErrorCategory = iota // No error
	ErrCategoryHarness                           // Automation environment is broken (driver, network, config of the browser)
	ErrCategoryElement                           // No selector candidate resolved to an interactable element
	ErrCategoryAction                            // Element resolved but the click/type/select did not go through
	ErrCategoryPrecondition                      // Upstream state the step depends on was not established
	ErrCategoryTimeout                           // A suspension point exceeded its budget
	ErrCategoryConfig                            // Invalid configuration
)

// String returns the string representation of ErrorCategory
func (c ErrorCategory) String() string {
	switch c {
	case ErrCategoryNone:
		return "none"
	case ErrCategoryHarness:
		return "harness"
	case ErrCategoryElement:
		return "element"
	case ErrCategoryAction:
		return "action"
	case ErrCategoryPrecondition:
		return "precondition"
	case ErrCategoryTimeout:
		return "timeout"
	case ErrCategoryConfig:
		return "config"
	default:
		return "unknown"
	}
}

// MarshalText encodes the category by name.
func (c ErrorCategory) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText decodes a category name. Unknown names decode to none.
func (c *ErrorCategory) UnmarshalText(b []byte) error {
	for cat := ErrCategoryNone; cat <= ErrCategoryConfig; cat++ {
		if cat.String() == string(b) {
			*c = cat
			return nil
		}
	}
	*c = ErrCategoryNone
	return nil
}
