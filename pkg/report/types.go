// Package report aggregates flow results into a run report.
//
// Outputs:
//   - report.json: the full RunReport, flows and steps included
//   - report.html: a self-contained rendering of the same data
//
// Flows from concurrent language contexts are merged through an
// Accumulator; Aggregate computes every derived figure in one pass.
package report

import (
	"time"

	"github.com/devicelab-dev/shopcheck/pkg/core"
)

// Version is the report schema version.
const Version = "1.0.0"

// Verdict is the overall outcome of a run.
type Verdict string

// Verdict values.
const (
	// VerdictPassed: the harness was healthy and no step failed.
	VerdictPassed Verdict = "passed"
	// VerdictFailed: the site failed at least one step or was unreachable.
	VerdictFailed Verdict = "failed"
	// VerdictInconclusive: the harness itself was unhealthy, so site
	// failures cannot be trusted.
	VerdictInconclusive Verdict = "inconclusive"
)

// ============================================================================
// RUN REPORT (report.json)
// ============================================================================

// RunReport is the single structured output of a run.
type RunReport struct {
	Version     string                 `json:"version"`
	RunID       string                 `json:"runId"`
	Verdict     Verdict                `json:"verdict"`
	StartTime   time.Time              `json:"startTime"`
	EndTime     time.Time              `json:"endTime"`
	Diagnostics core.DiagnosticVerdict `json:"diagnostics"`

	Summary     Summary           `json:"summary"`
	PerLanguage map[string]Bucket `json:"perLanguage"`
	PerPersona  map[string]Bucket `json:"perPersona"`

	PerfSummary ScoreSummary `json:"performance"`
	A11ySummary ScoreSummary `json:"accessibility"`

	TopIssues []Issue  `json:"topIssues"`
	IssueList []string `json:"issues"` // Distinct audit issues, first-seen order

	Flows []*core.FlowResult `json:"flows"`
}

// Summary holds global step counts.
// Steps == Passed + Failed + Skipped; Inconclusive <= Failed.
type Summary struct {
	Flows        int     `json:"flows"`
	Steps        int     `json:"steps"`
	Passed       int     `json:"passed"`
	Failed       int     `json:"failed"`       // Every failed step, inconclusive ones included
	Skipped      int     `json:"skipped"`      // Blocked by a precondition
	Inconclusive int     `json:"inconclusive"` // Failed steps attributed to the harness
	SuccessRatio float64 `json:"successRatio"` // passed / (passed + failed - inconclusive)
}

// Bucket holds step counts for one language or persona, with the same
// meaning as in Summary.
type Bucket struct {
	Passed       int     `json:"passed"`
	Failed       int     `json:"failed"`
	Skipped      int     `json:"skipped"`
	Inconclusive int     `json:"inconclusive"`
	SuccessRatio float64 `json:"successRatio"`
}

// ScoreSummary aggregates one kind of metric score across page visits.
type ScoreSummary struct {
	Samples int     `json:"samples"`
	Average float64 `json:"average"`
	Min     int     `json:"min"`
	Max     int     `json:"max"`
}

// Issue is a frequently failing step.
type Issue struct {
	Step      string   `json:"step"`
	Count     int      `json:"count"`
	Languages []string `json:"languages"`
}

// Options tunes aggregation.
type Options struct {
	TopIssues int       // Number of failing steps surfaced; 0 uses DefaultTopIssues
	RunID     string    // Generated when empty
	StartTime time.Time // Earliest flow start when zero
	EndTime   time.Time // Now when zero
}

// DefaultTopIssues is the number of top issues when Options leaves it unset.
const DefaultTopIssues = 5
