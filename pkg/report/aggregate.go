package report

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/devicelab-dev/shopcheck/pkg/core"
)

// Accumulator collects flow results from concurrent language contexts.
// Adds are append-only and order-independent: Aggregate sorts the flows.
type Accumulator struct {
	mu    sync.Mutex
	flows []*core.FlowResult
}

// Add appends a finished flow.
func (a *Accumulator) Add(f *core.FlowResult) {
	if f == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.flows = append(a.flows, f)
}

// Flows returns a snapshot of the collected flows.
func (a *Accumulator) Flows() []*core.FlowResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]*core.FlowResult(nil), a.flows...)
}

// Len returns the number of collected flows.
func (a *Accumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.flows)
}

// Aggregate builds the run report from every flow and the diagnostic
// verdict. The input slice is not modified.
func Aggregate(flows []*core.FlowResult, diag core.DiagnosticVerdict, opts Options) *RunReport {
	sorted := append([]*core.FlowResult(nil), flows...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Language != sorted[j].Language {
			return sorted[i].Language < sorted[j].Language
		}
		return sorted[i].Persona < sorted[j].Persona
	})

	r := &RunReport{
		Version:     Version,
		RunID:       opts.RunID,
		StartTime:   opts.StartTime,
		EndTime:     opts.EndTime,
		Diagnostics: diag,
		PerLanguage: make(map[string]Bucket),
		PerPersona:  make(map[string]Bucket),
		TopIssues:   []Issue{},
		IssueList:   []string{},
		Flows:       sorted,
	}
	if r.RunID == "" {
		r.RunID = uuid.NewString()
	}
	if r.EndTime.IsZero() {
		r.EndTime = time.Now()
	}

	var perf, a11y scoreAcc
	seenIssue := make(map[string]bool)
	failures := make(map[string]*Issue)

	for _, f := range sorted {
		if r.StartTime.IsZero() || (!f.StartTime.IsZero() && f.StartTime.Before(r.StartTime)) {
			r.StartTime = f.StartTime
		}
		r.Summary.Flows++

		lang := r.PerLanguage[f.Language]
		persona := r.PerPersona[f.Persona]
		for _, step := range f.Steps {
			r.Summary.Steps++
			switch {
			case step.Status == core.StatusPassed:
				r.Summary.Passed++
				lang.Passed++
				persona.Passed++
			case step.Status == core.StatusFailed:
				r.Summary.Failed++
				lang.Failed++
				persona.Failed++
				// Inconclusive is a subset of Failed.
				if step.Inconclusive() {
					r.Summary.Inconclusive++
					lang.Inconclusive++
					persona.Inconclusive++
				} else {
					addFailure(failures, step.Name, f.Language)
				}
			default:
				r.Summary.Skipped++
				lang.Skipped++
				persona.Skipped++
			}

			for _, m := range step.Metrics {
				switch m.Kind {
				case core.MetricPerformance:
					perf.add(m.Score)
				case core.MetricAccessibility:
					a11y.add(m.Score)
				}
				for _, issue := range m.Issues {
					line := fmt.Sprintf("%s: %s", m.Kind, issue)
					if !seenIssue[line] {
						seenIssue[line] = true
						r.IssueList = append(r.IssueList, line)
					}
				}
			}
		}
		r.PerLanguage[f.Language] = lang
		r.PerPersona[f.Persona] = persona
	}

	r.Summary.SuccessRatio = successRatio(r.Summary.Passed, r.Summary.Failed-r.Summary.Inconclusive)
	for k, b := range r.PerLanguage {
		b.SuccessRatio = successRatio(b.Passed, b.Failed-b.Inconclusive)
		r.PerLanguage[k] = b
	}
	for k, b := range r.PerPersona {
		b.SuccessRatio = successRatio(b.Passed, b.Failed-b.Inconclusive)
		r.PerPersona[k] = b
	}

	r.PerfSummary = perf.summary()
	r.A11ySummary = a11y.summary()
	r.TopIssues = topIssues(failures, opts.TopIssues)
	r.Verdict = ComputeVerdict(diag, sorted)
	return r
}

// ComputeVerdict decides the run outcome. An unhealthy harness or any
// harness-attributed failure makes the run inconclusive; otherwise any
// failure or an unreachable site fails it.
func ComputeVerdict(diag core.DiagnosticVerdict, flows []*core.FlowResult) Verdict {
	if !diag.HarnessHealthy {
		return VerdictInconclusive
	}
	failed := !diag.SiteReachable
	for _, f := range flows {
		for _, step := range f.Steps {
			if step.Inconclusive() {
				return VerdictInconclusive
			}
			if step.Status == core.StatusFailed {
				failed = true
			}
		}
	}
	if failed {
		return VerdictFailed
	}
	return VerdictPassed
}

// successRatio is passed / (passed + siteFailed), where siteFailed excludes
// inconclusive failures; 0 when no step reached a verdict on the site.
func successRatio(passed, siteFailed int) float64 {
	if passed+siteFailed == 0 {
		return 0
	}
	return float64(passed) / float64(passed+siteFailed)
}

func addFailure(failures map[string]*Issue, step, lang string) {
	issue, ok := failures[step]
	if !ok {
		issue = &Issue{Step: step}
		failures[step] = issue
	}
	issue.Count++
	for _, l := range issue.Languages {
		if l == lang {
			return
		}
	}
	issue.Languages = append(issue.Languages, lang)
}

// topIssues orders failing steps by count, then name, and keeps the first n.
func topIssues(failures map[string]*Issue, n int) []Issue {
	if n <= 0 {
		n = DefaultTopIssues
	}
	out := make([]Issue, 0, len(failures))
	for _, issue := range failures {
		sort.Strings(issue.Languages)
		out = append(out, *issue)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Step < out[j].Step
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

type scoreAcc struct {
	n, sum, min, max int
}

func (a *scoreAcc) add(score int) {
	if a.n == 0 || score < a.min {
		a.min = score
	}
	if a.n == 0 || score > a.max {
		a.max = score
	}
	a.n++
	a.sum += score
}

func (a scoreAcc) summary() ScoreSummary {
	if a.n == 0 {
		return ScoreSummary{}
	}
	return ScoreSummary{
		Samples: a.n,
		Average: float64(a.sum) / float64(a.n),
		Min:     a.min,
		Max:     a.max,
	}
}
