package core

import (
	"encoding/json"
	"testing"
)

func TestStepStatus_String(t *testing.T) {
	tests := []struct {
		status   StepStatus
		expected string
	}{
		{StatusPending, "pending"},
		{StatusRunning, "running"},
		{StatusPassed, "passed"},
		{StatusFailed, "failed"},
		{StatusSkipped, "skipped"},
		{StepStatus(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.status.String(); got != tt.expected {
			t.Errorf("StepStatus(%d).String() = %q, want %q", tt.status, got, tt.expected)
		}
	}
}

func TestStepStatus_IsTerminal(t *testing.T) {
	terminalStatuses := []StepStatus{StatusPassed, StatusFailed, StatusSkipped}
	nonTerminalStatuses := []StepStatus{StatusPending, StatusRunning}

	for _, s := range terminalStatuses {
		if !s.IsTerminal() {
			t.Errorf("StepStatus(%s).IsTerminal() = false, want true", s)
		}
	}

	for _, s := range nonTerminalStatuses {
		if s.IsTerminal() {
			t.Errorf("StepStatus(%s).IsTerminal() = true, want false", s)
		}
	}
}

func TestStepStatus_JSON(t *testing.T) {
	data, err := json.Marshal(struct {
		Status StepStatus `json:"status"`
	}{StatusSkipped})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `{"status":"skipped"}` {
		t.Errorf("Marshal() = %s, want {\"status\":\"skipped\"}", data)
	}

	var decoded struct {
		Status StepStatus `json:"status"`
	}
	if err := json.Unmarshal([]byte(`{"status":"failed"}`), &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if decoded.Status != StatusFailed {
		t.Errorf("Status = %s, want failed", decoded.Status)
	}

	if err := json.Unmarshal([]byte(`{"status":"exploded"}`), &decoded); err == nil {
		t.Error("Unmarshal() of unknown status should fail")
	}
}

func TestErrorCategory_String(t *testing.T) {
	tests := []struct {
		category ErrorCategory
		expected string
	}{
		{ErrCategoryNone, "none"},
		{ErrCategoryHarness, "harness"},
		{ErrCategoryElement, "element"},
		{ErrCategoryAction, "action"},
		{ErrCategoryPrecondition, "precondition"},
		{ErrCategoryTimeout, "timeout"},
		{ErrCategoryConfig, "config"},
		{ErrorCategory(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.category.String(); got != tt.expected {
			t.Errorf("ErrorCategory(%d).String() = %q, want %q", tt.category, got, tt.expected)
		}
	}
}

func TestErrorCategory_TextRoundTrip(t *testing.T) {
	for c := ErrCategoryNone; c <= ErrCategoryConfig; c++ {
		text, _ := c.MarshalText()
		var got ErrorCategory
		if err := got.UnmarshalText(text); err != nil {
			t.Fatalf("UnmarshalText(%s) error = %v", text, err)
		}
		if got != c {
			t.Errorf("round trip of %s = %s", c, got)
		}
	}
}
