package core

import (
	"time"
)

// MetricKind identifies what a MetricScore measures.
type MetricKind string

// MetricKind values
const (
	MetricPerformance   MetricKind = "performance"
	MetricAccessibility MetricKind = "accessibility"
)

// MetricScore is a 0-100 heuristic score for one instrumented page visit.
type MetricScore struct {
	Kind     MetricKind `json:"kind"`
	Score    int        `json:"score"`
	Issues   []string   `json:"issues"`
	Warnings []string   `json:"warnings"`
	URL      string     `json:"url,omitempty"`
}

// StepResult captures the outcome of one named stage of the purchase flow.
// It is immutable once appended to a FlowResult.
type StepResult struct {
	// Identity
	Name  string `json:"stepName"`
	Index int    `json:"index"` // 0-based position in the pipeline

	// Status
	Status   StepStatus    `json:"status"`
	Category ErrorCategory `json:"errorCategory,omitempty"`

	// Timing
	StartTime time.Time `json:"timestampStart"`
	EndTime   time.Time `json:"timestampEnd"`

	// Output
	Detail string                 `json:"detail"`
	Error  string                 `json:"error,omitempty"`
	Data   map[string]interface{} `json:"data,omitempty"`

	// BlockedBy names the precondition that caused a skip.
	BlockedBy string `json:"blockedBy,omitempty"`

	Metrics     []MetricScore `json:"metrics,omitempty"`
	Attachments []Attachment  `json:"attachments,omitempty"`
}

// Duration returns the wall-clock time spent in the step.
func (s StepResult) Duration() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}

// Inconclusive reports whether the failure is attributable to the harness
// rather than the site.
func (s StepResult) Inconclusive() bool {
	return s.Status == StatusFailed && s.Category == ErrCategoryHarness
}

// FlowResult is the recorded state of one (language, persona) run.
type FlowResult struct {
	// Identity
	Language    string `json:"language"`
	Persona     string `json:"persona"`
	PersonaName string `json:"personaName,omitempty"`

	// Status (aggregated from steps)
	Status StepStatus `json:"status"`

	// Timing
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`

	// Results
	Steps         []StepResult    `json:"steps"`
	Preconditions map[string]bool `json:"preconditions,omitempty"`
	OrderID       string          `json:"orderId,omitempty"`

	// Summary (computed)
	TotalSteps   int `json:"totalSteps"`
	PassedSteps  int `json:"passedSteps"`
	FailedSteps  int `json:"failedSteps"`
	SkippedSteps int `json:"skippedSteps"`

	// Error info (if the flow could not run at all)
	Error string `json:"error,omitempty"`
}

// ComputeSummary calculates step counts from the Steps slice
func (f *FlowResult) ComputeSummary() {
	f.TotalSteps = len(f.Steps)
	f.PassedSteps = 0
	f.FailedSteps = 0
	f.SkippedSteps = 0

	for _, step := range f.Steps {
		switch step.Status {
		case StatusPassed:
			f.PassedSteps++
		case StatusFailed:
			f.FailedSteps++
		case StatusSkipped:
			f.SkippedSteps++
		}
	}
}

// AggregateStatus determines the flow status from step results.
// Any failed step fails the flow; skips alone do not.
func (f *FlowResult) AggregateStatus() StepStatus {
	passed := 0
	for _, step := range f.Steps {
		switch step.Status {
		case StatusFailed:
			return StatusFailed
		case StatusPassed:
			passed++
		}
	}
	if passed == 0 && len(f.Steps) > 0 {
		return StatusSkipped
	}
	return StatusPassed
}

// Metrics returns every metric score recorded across the flow's steps.
func (f *FlowResult) Metrics() []MetricScore {
	var out []MetricScore
	for _, step := range f.Steps {
		out = append(out, step.Metrics...)
	}
	return out
}

// DiagnosticCheck is one probe of the diagnostic battery.
type DiagnosticCheck struct {
	Name     string        `json:"name"`
	Target   string        `json:"target"` // harness or site
	Passed   bool          `json:"passed"`
	Detail   string        `json:"detail,omitempty"`
	Duration time.Duration `json:"durationNs"`
}

// DiagnosticVerdict is computed once, before any flow runs.
type DiagnosticVerdict struct {
	HarnessHealthy bool              `json:"harnessHealthy"`
	SiteReachable  bool              `json:"siteReachable"`
	Issues         []string          `json:"issues"`
	Checks         []DiagnosticCheck `json:"checks,omitempty"`
	CheckedAt      time.Time         `json:"checkedAt"`
}

// Err returns ErrHarnessFault when the harness is unhealthy, nil otherwise.
func (v DiagnosticVerdict) Err() error {
	if v.HarnessHealthy {
		return nil
	}
	return NewHarnessFault(v.Issues)
}
