package report

import (
	"sync"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/devicelab-dev/shopcheck/pkg/core"
)

func healthy() core.DiagnosticVerdict {
	return core.DiagnosticVerdict{HarnessHealthy: true, SiteReachable: true}
}

func step(name string, status core.StepStatus, cat core.ErrorCategory) core.StepResult {
	return core.StepResult{Name: name, Status: status, Category: cat}
}

func flowOf(lang, persona string, steps ...core.StepResult) *core.FlowResult {
	f := &core.FlowResult{Language: lang, Persona: persona, Steps: steps, StartTime: time.Now()}
	f.ComputeSummary()
	f.Status = f.AggregateStatus()
	return f
}

func TestAggregate_Counts(t *testing.T) {
	flows := []*core.FlowResult{
		flowOf("en", "quick_buyer",
			step("homepage", core.StatusPassed, core.ErrCategoryNone),
			step("discovery", core.StatusFailed, core.ErrCategoryElement),
			step("product_detail", core.StatusSkipped, core.ErrCategoryPrecondition),
		),
		flowOf("de", "quick_buyer",
			step("homepage", core.StatusPassed, core.ErrCategoryNone),
			step("discovery", core.StatusFailed, core.ErrCategoryElement),
			step("checkout_form", core.StatusFailed, core.ErrCategoryElement),
		),
	}

	r := Aggregate(flows, healthy(), Options{TopIssues: 5})

	if r.Summary.Flows != 2 || r.Summary.Steps != 6 {
		t.Fatalf("flows/steps = %d/%d, want 2/6", r.Summary.Flows, r.Summary.Steps)
	}
	if r.Summary.Passed != 2 || r.Summary.Failed != 3 || r.Summary.Skipped != 1 {
		t.Errorf("summary = %+v", r.Summary)
	}
	if got, want := r.Summary.SuccessRatio, 2.0/5.0; got != want {
		t.Errorf("SuccessRatio = %v, want %v", got, want)
	}
	if b := r.PerLanguage["en"]; b.Passed != 1 || b.Failed != 1 || b.Skipped != 1 || b.SuccessRatio != 0.5 {
		t.Errorf("en bucket = %+v", b)
	}
	if b := r.PerPersona["quick_buyer"]; b.Passed != 2 || b.Failed != 3 {
		t.Errorf("persona bucket = %+v", b)
	}
	if r.Verdict != VerdictFailed {
		t.Errorf("Verdict = %s, want failed", r.Verdict)
	}
	if r.RunID == "" {
		t.Error("RunID not generated")
	}
	// Sorted by language
	if r.Flows[0].Language != "de" {
		t.Errorf("first flow language = %s, want de", r.Flows[0].Language)
	}
}

func TestAggregate_InconclusiveIsSubsetOfFailed(t *testing.T) {
	f := flowOf("en", "p",
		step("homepage", core.StatusPassed, core.ErrCategoryNone),
		step("discovery", core.StatusFailed, core.ErrCategoryHarness),
		step("product_detail", core.StatusFailed, core.ErrCategoryElement),
		step("add_to_cart", core.StatusSkipped, core.ErrCategoryPrecondition),
	)
	r := Aggregate([]*core.FlowResult{f}, healthy(), Options{TopIssues: 5})

	s := r.Summary
	if s.Steps != 4 || s.Passed != 1 || s.Failed != 2 || s.Skipped != 1 || s.Inconclusive != 1 {
		t.Fatalf("summary = %+v", s)
	}
	if s.Passed+s.Failed+s.Skipped != s.Steps {
		t.Errorf("passed+failed+skipped = %d, want %d", s.Passed+s.Failed+s.Skipped, s.Steps)
	}
	// The harness failure is left out of the ratio denominator.
	if s.SuccessRatio != 0.5 {
		t.Errorf("SuccessRatio = %v, want 0.5", s.SuccessRatio)
	}
	if b := r.PerLanguage["en"]; b.Failed != 2 || b.Inconclusive != 1 || b.SuccessRatio != 0.5 {
		t.Errorf("en bucket = %+v", b)
	}
	if len(r.TopIssues) != 1 || r.TopIssues[0].Step != "product_detail" {
		t.Errorf("TopIssues = %+v", r.TopIssues)
	}
	if r.Verdict != VerdictInconclusive {
		t.Errorf("Verdict = %s, want inconclusive", r.Verdict)
	}
}

func TestAggregate_SkipsExcludedFromRatio(t *testing.T) {
	f := flowOf("en", "p",
		step("homepage", core.StatusPassed, core.ErrCategoryNone),
		step("payment_method", core.StatusSkipped, core.ErrCategoryPrecondition),
		step("submission", core.StatusSkipped, core.ErrCategoryPrecondition),
	)
	r := Aggregate([]*core.FlowResult{f}, healthy(), Options{})
	if r.Summary.SuccessRatio != 1 {
		t.Errorf("SuccessRatio = %v, want 1", r.Summary.SuccessRatio)
	}
	if r.Verdict != VerdictPassed {
		t.Errorf("Verdict = %s, want passed", r.Verdict)
	}
}

func TestAggregate_TopIssues(t *testing.T) {
	var flows []*core.FlowResult
	for _, lang := range []string{"en", "de", "fr"} {
		flows = append(flows, flowOf(lang, "p",
			step("add_to_cart", core.StatusFailed, core.ErrCategoryAction),
			step("consent", core.StatusPassed, core.ErrCategoryNone),
		))
	}
	flows = append(flows,
		flowOf("de", "q", step("checkout_form", core.StatusFailed, core.ErrCategoryElement)),
		flowOf("en", "q", step("checkout_form", core.StatusFailed, core.ErrCategoryElement)),
		flowOf("en", "q", step("confirmation", core.StatusFailed, core.ErrCategoryElement)),
		flowOf("fr", "q", step("homepage", core.StatusFailed, core.ErrCategoryElement)),
	)

	r := Aggregate(flows, healthy(), Options{TopIssues: 3})

	want := []Issue{
		{Step: "add_to_cart", Count: 3, Languages: []string{"de", "en", "fr"}},
		{Step: "checkout_form", Count: 2, Languages: []string{"de", "en"}},
		{Step: "confirmation", Count: 1, Languages: []string{"en"}},
	}
	if len(r.TopIssues) != len(want) {
		t.Fatalf("TopIssues = %+v", r.TopIssues)
	}
	for i := range want {
		got := r.TopIssues[i]
		if got.Step != want[i].Step || got.Count != want[i].Count || len(got.Languages) != len(want[i].Languages) {
			t.Errorf("TopIssues[%d] = %+v, want %+v", i, got, want[i])
			continue
		}
		for j := range want[i].Languages {
			if got.Languages[j] != want[i].Languages[j] {
				t.Errorf("TopIssues[%d].Languages = %v, want %v", i, got.Languages, want[i].Languages)
			}
		}
	}
}

func TestAggregate_MetricSummaries(t *testing.T) {
	s := step("homepage", core.StatusPassed, core.ErrCategoryNone)
	s.Metrics = []core.MetricScore{
		{Kind: core.MetricPerformance, Score: 80, Issues: []string{"load time 4200ms exceeds 3000ms"}},
		{Kind: core.MetricAccessibility, Score: 65, Issues: []string{"2 images missing alt text"}},
	}
	s2 := step("product_detail", core.StatusPassed, core.ErrCategoryNone)
	s2.Metrics = []core.MetricScore{
		{Kind: core.MetricPerformance, Score: 100},
		{Kind: core.MetricAccessibility, Score: 65, Issues: []string{"2 images missing alt text"}},
	}

	r := Aggregate([]*core.FlowResult{flowOf("en", "p", s, s2)}, healthy(), Options{})

	if r.PerfSummary != (ScoreSummary{Samples: 2, Average: 90, Min: 80, Max: 100}) {
		t.Errorf("PerfSummary = %+v", r.PerfSummary)
	}
	if r.A11ySummary != (ScoreSummary{Samples: 2, Average: 65, Min: 65, Max: 65}) {
		t.Errorf("A11ySummary = %+v", r.A11ySummary)
	}
	if len(r.IssueList) != 2 {
		t.Errorf("IssueList = %v, want 2 distinct entries", r.IssueList)
	}
	if r.IssueList[0] != "performance: load time 4200ms exceeds 3000ms" {
		t.Errorf("IssueList[0] = %q", r.IssueList[0])
	}
}

func TestComputeVerdict(t *testing.T) {
	passed := flowOf("en", "p", step("homepage", core.StatusPassed, core.ErrCategoryNone))
	failed := flowOf("en", "p", step("homepage", core.StatusFailed, core.ErrCategoryElement))
	harness := flowOf("en", "p", step("homepage", core.StatusFailed, core.ErrCategoryHarness))

	tests := []struct {
		name  string
		diag  core.DiagnosticVerdict
		flows []*core.FlowResult
		want  Verdict
	}{
		{"all passed", healthy(), []*core.FlowResult{passed}, VerdictPassed},
		{"site failure", healthy(), []*core.FlowResult{passed, failed}, VerdictFailed},
		{"harness unhealthy", core.DiagnosticVerdict{}, nil, VerdictInconclusive},
		{"harness step failure", healthy(), []*core.FlowResult{failed, harness}, VerdictInconclusive},
		{"site unreachable", core.DiagnosticVerdict{HarnessHealthy: true}, []*core.FlowResult{passed}, VerdictFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComputeVerdict(tt.diag, tt.flows); got != tt.want {
				t.Errorf("ComputeVerdict() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestAggregate_HarnessAbort(t *testing.T) {
	diag := core.DiagnosticVerdict{Issues: []string{"harness: session: no chrome"}}
	r := Aggregate(nil, diag, Options{})
	if r.Verdict != VerdictInconclusive {
		t.Errorf("Verdict = %s", r.Verdict)
	}
	if r.Summary.Steps != 0 || len(r.Flows) != 0 {
		t.Errorf("expected empty report, got %+v", r.Summary)
	}
	if r.Summary.SuccessRatio != 0 {
		t.Errorf("SuccessRatio = %v", r.Summary.SuccessRatio)
	}
}

func TestAccumulator_ConcurrentAdd(t *testing.T) {
	acc := &Accumulator{}
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			acc.Add(flowOf("en", "p", step("homepage", core.StatusPassed, core.ErrCategoryNone)))
		}()
	}
	wg.Wait()
	acc.Add(nil)

	if acc.Len() != 20 {
		t.Errorf("Len() = %d, want 20", acc.Len())
	}
	r := Aggregate(acc.Flows(), healthy(), Options{})
	if r.Summary.Passed != 20 {
		t.Errorf("Passed = %d, want 20", r.Summary.Passed)
	}
}

// Every step lands in exactly one bucket, globally and per language.
func TestAggregate_CountConservation(t *testing.T) {
	statuses := []core.StepStatus{core.StatusPassed, core.StatusFailed, core.StatusSkipped}
	categories := []core.ErrorCategory{core.ErrCategoryElement, core.ErrCategoryTimeout, core.ErrCategoryHarness}

	rapid.Check(t, func(rt *rapid.T) {
		nFlows := rapid.IntRange(0, 6).Draw(rt, "flows")
		var flows []*core.FlowResult
		total := 0
		for i := 0; i < nFlows; i++ {
			lang := rapid.SampledFrom([]string{"en", "de", "fr"}).Draw(rt, "lang")
			persona := rapid.SampledFrom([]string{"a", "b"}).Draw(rt, "persona")
			nSteps := rapid.IntRange(0, 9).Draw(rt, "steps")
			var steps []core.StepResult
			for j := 0; j < nSteps; j++ {
				st := rapid.SampledFrom(statuses).Draw(rt, "status")
				cat := core.ErrCategoryNone
				if st == core.StatusFailed {
					cat = rapid.SampledFrom(categories).Draw(rt, "category")
				}
				steps = append(steps, step("s", st, cat))
			}
			total += nSteps
			flows = append(flows, flowOf(lang, persona, steps...))
		}

		r := Aggregate(flows, healthy(), Options{})
		s := r.Summary
		if s.Steps != total || s.Passed+s.Failed+s.Skipped != total {
			rt.Fatalf("summary %+v does not add up to %d", s, total)
		}
		if s.Inconclusive > s.Failed {
			rt.Fatalf("inconclusive %d exceeds failed %d", s.Inconclusive, s.Failed)
		}
		sum := 0
		for _, b := range r.PerLanguage {
			sum += b.Passed + b.Failed + b.Skipped
			if b.Inconclusive > b.Failed {
				rt.Fatalf("bucket %+v: inconclusive exceeds failed", b)
			}
			if b.SuccessRatio < 0 || b.SuccessRatio > 1 {
				rt.Fatalf("ratio out of range: %v", b.SuccessRatio)
			}
		}
		if sum != total {
			rt.Fatalf("language buckets sum to %d, want %d", sum, total)
		}
	})
}
