// Package executor runs the purchase-flow matrix: one FlowRunner per
// (language, persona) pair, gated by the diagnostic battery.
package executor

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/devicelab-dev/shopcheck/pkg/config"
	"github.com/devicelab-dev/shopcheck/pkg/core"
	"github.com/devicelab-dev/shopcheck/pkg/diagnostics"
	"github.com/devicelab-dev/shopcheck/pkg/logger"
	"github.com/devicelab-dev/shopcheck/pkg/report"
)

// Observer receives results as they are produced. Implementations must be
// safe for concurrent use.
type Observer interface {
	ObserveDiagnostics(v core.DiagnosticVerdict)
	ObserveFlow(f *core.FlowResult)
}

// RunnerConfig configures the matrix runner.
type RunnerConfig struct {
	Config    *config.Config
	OutputDir string // Screenshots go under OutputDir/artifacts; empty keeps them in memory

	// Diagnostic retry policy for the reference navigation
	DiagnosticRetries       uint64
	DiagnosticRetryInterval time.Duration

	Observer Observer

	// Live progress callbacks. Flows of different languages run
	// concurrently, so callbacks may be invoked from several goroutines.
	OnDiagnostics  func(v core.DiagnosticVerdict)
	OnFlowStart    func(lang, persona string)
	OnStepComplete func(lang, persona string, step core.StepResult)
	OnFlowEnd      func(f *core.FlowResult)
}

// Runner orchestrates the language x persona matrix.
type Runner struct {
	config  RunnerConfig
	browser core.Browser
}

// New creates a new Runner.
func New(browser core.Browser, cfg RunnerConfig) *Runner {
	if cfg.DiagnosticRetries == 0 {
		cfg.DiagnosticRetries = 2
	}
	if cfg.DiagnosticRetryInterval <= 0 {
		cfg.DiagnosticRetryInterval = 500 * time.Millisecond
	}
	return &Runner{config: cfg, browser: browser}
}

// Diagnose runs the diagnostic battery only.
func (r *Runner) Diagnose(ctx context.Context) core.DiagnosticVerdict {
	cfg := r.config.Config
	dr := &diagnostics.Runner{
		Browser:           r.browser,
		ReferenceURL:      cfg.ReferenceURL,
		SiteURL:           cfg.PageURL(firstLanguage(cfg), "/"),
		NavigationTimeout: cfg.Timeouts.Navigation,
		SiteTimeout:       cfg.Timeouts.SiteReachability,
		Retries:           r.config.DiagnosticRetries,
		RetryInterval:     r.config.DiagnosticRetryInterval,
	}
	v := dr.Run(ctx)

	if r.config.OnDiagnostics != nil {
		r.config.OnDiagnostics(v)
	}
	if r.config.Observer != nil {
		r.config.Observer.ObserveDiagnostics(v)
	}
	return v
}

// Run executes diagnostics, then every flow of the matrix, and aggregates
// the report. A harness fault aborts before any flow starts: the returned
// report is inconclusive and the error is ErrHarnessFault.
func (r *Runner) Run(ctx context.Context) (*report.RunReport, error) {
	cfg := r.config.Config
	start := time.Now()
	opts := report.Options{TopIssues: cfg.TopIssues, StartTime: start}

	verdict := r.Diagnose(ctx)
	if err := verdict.Err(); err != nil {
		logger.Error("harness unhealthy, no flows run: %v", err)
		return report.Aggregate(nil, verdict, opts), err
	}
	if !verdict.SiteReachable {
		logger.Warn("storefront unreachable: %v", verdict.Issues)
	}

	acc := &report.Accumulator{}

	parallel := cfg.Parallelism
	if parallel <= 0 {
		parallel = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)

	for _, lang := range cfg.Languages {
		lang := lang
		g.Go(func() error {
			// Personas share nothing but still run one at a time per
			// language.
			for _, persona := range cfg.Personas {
				acc.Add(r.runFlow(gctx, lang, persona))
			}
			return nil
		})
	}
	_ = g.Wait()

	return report.Aggregate(acc.Flows(), verdict, opts), nil
}

// runFlow opens an isolated session and runs one flow on it.
func (r *Runner) runFlow(ctx context.Context, lang string, persona config.Persona) *core.FlowResult {
	if r.config.OnFlowStart != nil {
		r.config.OnFlowStart(lang, persona.ID)
	}

	result := r.execute(ctx, lang, persona)

	if r.config.Observer != nil {
		r.config.Observer.ObserveFlow(result)
	}
	if r.config.OnFlowEnd != nil {
		r.config.OnFlowEnd(result)
	}
	return result
}

func (r *Runner) execute(ctx context.Context, lang string, persona config.Persona) *core.FlowResult {
	if err := ctx.Err(); err != nil {
		return FailedFlow(lang, persona, core.ErrHarnessFault.WithMessage("run cancelled").WithCause(err))
	}

	d, err := r.browser.NewSession(ctx)
	if err != nil {
		logger.Error("open session for %s/%s: %v", lang, persona.ID, err)
		return FailedFlow(lang, persona, core.ErrHarnessFault.WithMessage("open browser session").WithCause(err))
	}
	defer func() {
		if err := d.Close(); err != nil {
			logger.Warn("close session for %s/%s: %v", lang, persona.ID, err)
		}
	}()

	fr := NewFlowRunner(r.config.Config, d)
	if r.config.OutputDir != "" {
		fr.ReportDir = r.config.OutputDir
		fr.ArtifactDir = filepath.Join(r.config.OutputDir, "artifacts", fmt.Sprintf("%s_%s", lang, persona.ID))
	}
	if r.config.OnStepComplete != nil {
		fr.OnStepComplete = func(step core.StepResult) {
			r.config.OnStepComplete(lang, persona.ID, step)
		}
	}

	result := fr.Run(ctx, lang, persona)
	if ctx.Err() != nil {
		// Steps cut short by cancellation say nothing about the site.
		for i := range result.Steps {
			s := &result.Steps[i]
			if s.Status == core.StatusFailed && s.Category == core.ErrCategoryTimeout {
				s.Category = core.ErrCategoryHarness
			}
		}
	}
	return result
}

func firstLanguage(cfg *config.Config) string {
	if len(cfg.Languages) == 0 {
		return ""
	}
	return cfg.Languages[0]
}
