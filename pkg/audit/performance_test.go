package audit

import (
	"context"
	"testing"

	"pgregory.net/rapid"

	"github.com/devicelab-dev/shopcheck/pkg/core"
	"github.com/devicelab-dev/shopcheck/pkg/driver/mock"
)

func TestScorePerformance(t *testing.T) {
	w := DefaultPerformanceWeights()

	tests := []struct {
		name       string
		timing     Timing
		wantScore  int
		wantIssues int
	}{
		{"fast page", Timing{LoadTime: 900, DOMContentLoaded: 400, FirstPaint: 200, FirstContentfulPaint: 250}, 100, 0},
		{"slow load only", Timing{LoadTime: 4200, DOMContentLoaded: 1500, FirstContentfulPaint: 1200}, 80, 1},
		{"at thresholds", Timing{LoadTime: 3000, DOMContentLoaded: 2000, FirstContentfulPaint: 1500}, 100, 0},
		{"everything slow", Timing{LoadTime: 9000, DOMContentLoaded: 5000, FirstContentfulPaint: 4000}, 55, 3},
		{"slow fcp and dcl", Timing{LoadTime: 2000, DOMContentLoaded: 2500, FirstContentfulPaint: 1600}, 75, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScorePerformance(tt.timing, w)
			if got.Score != tt.wantScore {
				t.Errorf("Score = %d, want %d (issues %v)", got.Score, tt.wantScore, got.Issues)
			}
			if len(got.Issues) != tt.wantIssues {
				t.Errorf("Issues = %v, want %d", got.Issues, tt.wantIssues)
			}
			if got.Kind != core.MetricPerformance {
				t.Errorf("Kind = %s", got.Kind)
			}
		})
	}
}

func TestScorePerformance_MissingPaintIsWarning(t *testing.T) {
	got := ScorePerformance(Timing{LoadTime: 1000, DOMContentLoaded: 500}, DefaultPerformanceWeights())
	if got.Score != 100 {
		t.Errorf("Score = %d, want 100", got.Score)
	}
	if len(got.Warnings) != 1 || got.Warnings[0] != "first contentful paint not recorded" {
		t.Errorf("Warnings = %v", got.Warnings)
	}
}

func TestScorePerformance_FloorsAtZero(t *testing.T) {
	w := DefaultPerformanceWeights()
	w.LoadPenalty, w.FCPPenalty, w.DCLPenalty = 60, 60, 60
	got := ScorePerformance(Timing{LoadTime: 9000, DOMContentLoaded: 9000, FirstContentfulPaint: 9000}, w)
	if got.Score != 0 {
		t.Errorf("Score = %d, want 0", got.Score)
	}
}

func TestScorePerformance_Properties(t *testing.T) {
	w := DefaultPerformanceWeights()
	rapid.Check(t, func(rt *rapid.T) {
		base := Timing{
			LoadTime:             rapid.Float64Range(1, 20000).Draw(rt, "load"),
			DOMContentLoaded:     rapid.Float64Range(1, 20000).Draw(rt, "dcl"),
			FirstContentfulPaint: rapid.Float64Range(1, 20000).Draw(rt, "fcp"),
		}
		delta := rapid.Float64Range(0, 20000).Draw(rt, "delta")
		field := rapid.IntRange(0, 2).Draw(rt, "field")

		worse := base
		switch field {
		case 0:
			worse.LoadTime += delta
		case 1:
			worse.DOMContentLoaded += delta
		case 2:
			worse.FirstContentfulPaint += delta
		}

		a, b := ScorePerformance(base, w).Score, ScorePerformance(worse, w).Score
		if b > a {
			rt.Fatalf("score increased from %d to %d when timing worsened", a, b)
		}
		if a < 0 || a > 100 || b < 0 || b > 100 {
			rt.Fatalf("score out of range: %d, %d", a, b)
		}
	})
}

func TestPerformanceMonitor_Measure(t *testing.T) {
	site := mock.NewSite()
	site.Pages["https://shop.test/"] = &mock.Page{Eval: map[string]interface{}{
		TimingScript: map[string]interface{}{
			"loadTime": 4200, "domContentLoaded": 1500, "firstPaint": 900, "firstContentfulPaint": 1200,
		},
	}}
	d := mock.New(site)
	ctx := context.Background()
	_ = d.Navigate(ctx, "https://shop.test/", core.WaitLoad)

	got, err := NewPerformanceMonitor(DefaultPerformanceWeights()).Measure(ctx, d)
	if err != nil {
		t.Fatalf("Measure() error = %v", err)
	}
	if got.Score != 80 {
		t.Errorf("Score = %d, want 80", got.Score)
	}
	if got.URL != "https://shop.test/" {
		t.Errorf("URL = %q", got.URL)
	}
}

func TestPerformanceMonitor_EvalError(t *testing.T) {
	site := mock.NewSite()
	site.Pages["u"] = &mock.Page{Broken: true}
	d := mock.New(site)
	_ = d.Navigate(context.Background(), "u", core.WaitLoad)

	if _, err := NewPerformanceMonitor(DefaultPerformanceWeights()).Measure(context.Background(), d); err == nil {
		t.Error("expected error from a broken page")
	}
}
