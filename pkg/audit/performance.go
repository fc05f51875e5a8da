// Package audit scores page visits for performance and accessibility.
//
// The scores are heuristics, not certifications: each starts at 100 and
// deducts configurable weights when a threshold is missed.
package audit

import (
	"context"
	"fmt"

	"github.com/devicelab-dev/shopcheck/pkg/core"
)

// TimingScript reads Navigation Timing and Paint Timing for the current
// document. Values are milliseconds relative to navigation start; null when
// the browser has not recorded the entry.
const TimingScript = `() => {
	const nav = performance.getEntriesByType('navigation')[0];
	const paint = {};
	for (const p of performance.getEntriesByType('paint')) paint[p.name] = p.startTime;
	const t = performance.timing;
	const load = nav ? nav.loadEventEnd : (t.loadEventEnd ? t.loadEventEnd - t.navigationStart : 0);
	const dcl = nav ? nav.domContentLoadedEventEnd : (t.domContentLoadedEventEnd ? t.domContentLoadedEventEnd - t.navigationStart : 0);
	return {
		loadTime: load || null,
		domContentLoaded: dcl || null,
		firstPaint: paint['first-paint'] ?? null,
		firstContentfulPaint: paint['first-contentful-paint'] ?? null,
	};
}`

// Timing holds page timing in milliseconds. Zero means not recorded.
type Timing struct {
	LoadTime             float64 `json:"loadTime"`
	DOMContentLoaded     float64 `json:"domContentLoaded"`
	FirstPaint           float64 `json:"firstPaint"`
	FirstContentfulPaint float64 `json:"firstContentfulPaint"`
}

// PerformanceWeights are the thresholds (ms) and deductions of the
// performance score.
type PerformanceWeights struct {
	LoadThresholdMs float64 `yaml:"loadThresholdMs" json:"loadThresholdMs"`
	LoadPenalty     int     `yaml:"loadPenalty" json:"loadPenalty"`
	FCPThresholdMs  float64 `yaml:"fcpThresholdMs" json:"fcpThresholdMs"`
	FCPPenalty      int     `yaml:"fcpPenalty" json:"fcpPenalty"`
	DCLThresholdMs  float64 `yaml:"dclThresholdMs" json:"dclThresholdMs"`
	DCLPenalty      int     `yaml:"dclPenalty" json:"dclPenalty"`
}

// DefaultPerformanceWeights returns the standard policy: -20 for load over
// 3000ms, -15 for first contentful paint over 1500ms, -10 for DOM content
// loaded over 2000ms.
func DefaultPerformanceWeights() PerformanceWeights {
	return PerformanceWeights{
		LoadThresholdMs: 3000,
		LoadPenalty:     20,
		FCPThresholdMs:  1500,
		FCPPenalty:      15,
		DCLThresholdMs:  2000,
		DCLPenalty:      10,
	}
}

// ScorePerformance computes the performance score for t.
// Missing entries produce warnings, never deductions.
func ScorePerformance(t Timing, w PerformanceWeights) core.MetricScore {
	score := core.MetricScore{Kind: core.MetricPerformance, Score: 100, Issues: []string{}, Warnings: []string{}}

	check := func(value, threshold float64, penalty int, label string) {
		if value <= 0 {
			score.Warnings = append(score.Warnings, fmt.Sprintf("%s not recorded", label))
			return
		}
		if value > threshold {
			score.Score -= penalty
			score.Issues = append(score.Issues, fmt.Sprintf("%s %.0fms exceeds %.0fms", label, value, threshold))
		}
	}

	check(t.LoadTime, w.LoadThresholdMs, w.LoadPenalty, "load time")
	check(t.FirstContentfulPaint, w.FCPThresholdMs, w.FCPPenalty, "first contentful paint")
	check(t.DOMContentLoaded, w.DCLThresholdMs, w.DCLPenalty, "DOM content loaded")

	score.Score = clamp(score.Score)
	return score
}

// PerformanceMonitor measures the page currently loaded in a driver.
type PerformanceMonitor struct {
	Weights PerformanceWeights
}

// NewPerformanceMonitor creates a monitor with the given weights.
func NewPerformanceMonitor(w PerformanceWeights) *PerformanceMonitor {
	return &PerformanceMonitor{Weights: w}
}

// Measure reads timing from the current page and scores it.
func (m *PerformanceMonitor) Measure(ctx context.Context, d core.Driver) (core.MetricScore, error) {
	var t Timing
	if err := d.Evaluate(ctx, TimingScript, &t); err != nil {
		return core.MetricScore{}, fmt.Errorf("read page timing: %w", err)
	}
	score := ScorePerformance(t, m.Weights)
	score.URL = currentURL(ctx, d)
	return score, nil
}

func clamp(score int) int {
	switch {
	case score < 0:
		return 0
	case score > 100:
		return 100
	default:
		return score
	}
}

func currentURL(ctx context.Context, d core.Driver) string {
	u, err := d.CurrentURL(ctx)
	if err != nil {
		return ""
	}
	return u
}
