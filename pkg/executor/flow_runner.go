package executor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/devicelab-dev/shopcheck/pkg/audit"
	"github.com/devicelab-dev/shopcheck/pkg/config"
	"github.com/devicelab-dev/shopcheck/pkg/core"
	"github.com/devicelab-dev/shopcheck/pkg/flow"
	"github.com/devicelab-dev/shopcheck/pkg/logger"
)

// StepOutput collects what a step reports besides its error.
type StepOutput struct {
	Detail  string
	Data    map[string]interface{}
	Metrics []core.MetricScore
}

// Set records a data value.
func (o *StepOutput) Set(key string, value interface{}) {
	if o.Data == nil {
		o.Data = make(map[string]interface{})
	}
	o.Data[key] = value
}

// stepFunc runs one pipeline step. A nil error means the step passed.
type stepFunc func(ctx context.Context, fc *FlowContext, out *StepOutput) error

// FlowRunner executes the purchase-flow pipeline for one (language, persona)
// pair on one browser session.
type FlowRunner struct {
	Config *config.Config
	Driver core.Driver

	Perf *audit.PerformanceMonitor
	A11y *audit.AccessibilityAuditor

	// ArtifactDir receives step screenshots; empty keeps them in memory only.
	// Recorded paths are relative to ReportDir when it is set.
	ArtifactDir string
	ReportDir   string

	OnStepComplete func(step core.StepResult)

	steps map[flow.StepName]stepFunc
}

// NewFlowRunner creates a runner for one session.
func NewFlowRunner(cfg *config.Config, d core.Driver) *FlowRunner {
	fr := &FlowRunner{
		Config: cfg,
		Driver: d,
		Perf:   audit.NewPerformanceMonitor(cfg.Scoring.Performance),
		A11y:   audit.NewAccessibilityAuditor(cfg.Scoring.Accessibility),
	}
	fr.steps = map[flow.StepName]stepFunc{
		flow.StepHomepage:      fr.homepage,
		flow.StepConsent:       fr.consent,
		flow.StepDiscovery:     fr.discovery,
		flow.StepProductDetail: fr.productDetail,
		flow.StepAddToCart:     fr.addToCart,
		flow.StepCheckoutForm:  fr.checkoutForm,
		flow.StepPaymentMethod: fr.paymentMethod,
		flow.StepSubmission:    fr.submission,
		flow.StepConfirmation:  fr.confirmation,
	}
	return fr
}

// Run executes every pipeline step in order and returns the flow result.
// It never returns early: each step is recorded as passed, failed or skipped.
func (fr *FlowRunner) Run(ctx context.Context, lang string, persona config.Persona) *core.FlowResult {
	result := &core.FlowResult{
		Language:      lang,
		Persona:       persona.ID,
		PersonaName:   persona.Name(),
		StartTime:     time.Now(),
		Preconditions: make(map[string]bool),
	}

	loc, err := fr.Config.Locale(lang)
	if err != nil {
		return FailedFlow(lang, persona, err)
	}
	fc := newFlowContext(fr.Config, fr.Driver, loc, persona, result)

	flowCtx, cancel := context.WithTimeout(ctx, fr.Config.Timeouts.Flow)
	defer cancel()

	log := logger.With("language", lang, "persona", persona.ID)
	log.Infof("flow started")

	for i, spec := range flow.Pipeline() {
		var step core.StepResult
		if err := flowCtx.Err(); err != nil {
			step = failedStep(i, spec, core.NewTimeout("flow", err).WithMessage("flow ceiling exceeded before step started"))
		} else if p, blocked := flow.FirstUnmet(spec.Requires, fc.Met); blocked {
			step = skippedStep(i, spec, p)
		} else {
			step = fr.runStep(ctx, flowCtx, fc, i, spec)
		}

		if step.Status == core.StatusPassed && spec.Establishes != "" {
			fc.Establish(spec.Establishes)
		}
		fc.Record(step)
		log.Infow("step finished", "step", step.Name, "status", step.Status.String(), "detail", step.Detail)

		if fr.OnStepComplete != nil {
			fr.OnStepComplete(step)
		}
	}

	result.EndTime = time.Now()
	result.ComputeSummary()
	result.Status = result.AggregateStatus()
	log.Infof("flow finished: %s (%d passed, %d failed, %d skipped)",
		result.Status, result.PassedSteps, result.FailedSteps, result.SkippedSteps)
	return result
}

// runStep executes one step under the per-step timeout and converts every
// outcome, panics included, into a StepResult.
func (fr *FlowRunner) runStep(parent, flowCtx context.Context, fc *FlowContext, idx int, spec flow.StepSpec) core.StepResult {
	stepCtx, cancel := context.WithTimeout(flowCtx, fr.Config.Timeouts.Step)
	defer cancel()

	out := &StepOutput{}
	start := time.Now()
	err := safeCall(func() error { return fr.steps[spec.Name](stepCtx, fc, out) })
	end := time.Now()
	if end.Before(start) {
		end = start
	}

	if err != nil && stepCtx.Err() != nil && core.Classify(err) != core.ErrCategoryTimeout {
		err = core.NewTimeout(string(spec.Name), err)
	}

	step := core.StepResult{
		Name:      string(spec.Name),
		Index:     idx,
		StartTime: start,
		EndTime:   end,
		Data:      out.Data,
		Metrics:   out.Metrics,
	}
	if err == nil {
		step.Status = core.StatusPassed
		step.Detail = out.Detail
	} else {
		step.Status = core.StatusFailed
		step.Category = core.Classify(err)
		step.Error = err.Error()
		detail := out.Detail
		if detail == "" {
			detail = err.Error()
		}
		step.Detail = fmt.Sprintf("%s: %s", core.Code(err), detail)
	}

	if fr.Config.Artifacts.ShouldCapture(step.Status) {
		if a, ok := fr.capture(parent, fc, step); ok {
			step.Attachments = append(step.Attachments, a)
		}
	}
	return step
}

// capture takes a screenshot with a fresh budget, since the step context
// may already be expired.
func (fr *FlowRunner) capture(parent context.Context, fc *FlowContext, step core.StepResult) (core.Attachment, bool) {
	ctx, cancel := context.WithTimeout(parent, 5*time.Second)
	defer cancel()

	data, err := fr.Driver.Screenshot(ctx)
	if err != nil {
		logger.Warn("screenshot for %s failed: %v", step.Name, err)
		return core.Attachment{}, false
	}

	name := fmt.Sprintf("%s_%s_%02d_%s.png", fc.Language, fc.Persona.ID, step.Index, step.Name)
	if fr.ArtifactDir == "" {
		return core.NewScreenshotAttachment("", data), true
	}
	if err := os.MkdirAll(fr.ArtifactDir, 0o755); err != nil {
		logger.Warn("create artifact dir: %v", err)
		return core.NewScreenshotAttachment("", data), true
	}
	if err := os.WriteFile(filepath.Join(fr.ArtifactDir, name), data, 0o644); err != nil { //#nosec G306 -- report artifact
		logger.Warn("write screenshot: %v", err)
		return core.NewScreenshotAttachment("", data), true
	}
	path := filepath.Join(fr.ArtifactDir, name)
	if fr.ReportDir != "" {
		if rel, err := filepath.Rel(fr.ReportDir, path); err == nil {
			path = rel
		}
	}
	return core.NewScreenshotAttachment(path, data), true
}

// safeCall runs fn, turning a panic into a harness fault.
func safeCall(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = core.ErrHarnessFault.WithMessage(fmt.Sprintf("step panicked: %v", r))
		}
	}()
	return fn()
}

func skippedStep(idx int, spec flow.StepSpec, p flow.Precondition) core.StepResult {
	now := time.Now()
	err := core.NewPreconditionUnmet(string(p), p.Reason())
	return core.StepResult{
		Name:      string(spec.Name),
		Index:     idx,
		Status:    core.StatusSkipped,
		Category:  core.ErrCategoryPrecondition,
		StartTime: now,
		EndTime:   now,
		Detail:    "skipped: " + p.Reason(),
		Error:     err.Error(),
		BlockedBy: string(p),
	}
}

func failedStep(idx int, spec flow.StepSpec, err error) core.StepResult {
	now := time.Now()
	return core.StepResult{
		Name:      string(spec.Name),
		Index:     idx,
		Status:    core.StatusFailed,
		Category:  core.Classify(err),
		StartTime: now,
		EndTime:   now,
		Detail:    fmt.Sprintf("%s: %v", core.Code(err), err),
		Error:     err.Error(),
	}
}

// FailedFlow records every pipeline step as failed with err, for flows that
// could not start (no browser session, unknown locale).
func FailedFlow(lang string, persona config.Persona, err error) *core.FlowResult {
	now := time.Now()
	result := &core.FlowResult{
		Language:      lang,
		Persona:       persona.ID,
		PersonaName:   persona.Name(),
		StartTime:     now,
		EndTime:       now,
		Preconditions: make(map[string]bool),
		Error:         err.Error(),
	}
	for i, spec := range flow.Pipeline() {
		result.Steps = append(result.Steps, failedStep(i, spec, err))
	}
	result.ComputeSummary()
	result.Status = result.AggregateStatus()
	return result
}
