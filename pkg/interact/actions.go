package interact

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/devicelab-dev/shopcheck/pkg/core"
	"github.com/devicelab-dev/shopcheck/pkg/flow"
)

// Defaults for ActionExecutor.
const (
	DefaultResolveTimeout    = 10 * time.Second
	DefaultStabilityInterval = 100 * time.Millisecond
	DefaultMaxSettleChecks   = 5
)

// errNotSettled is the cause recorded when an element keeps moving.
var errNotSettled = errors.New("element did not settle")

// ActionOptions tunes one action.
type ActionOptions struct {
	Timeout time.Duration // Resolution budget; 0 uses the executor default
	Cadence time.Duration // Delay between typed runes; 0 inputs the text at once
}

// ActionExecutor performs UI actions on resolved elements.
// Every failure is an ErrActionFailed carrying the tried selectors.
type ActionExecutor struct {
	Resolver          *Resolver
	ResolveTimeout    time.Duration
	StabilityInterval time.Duration
	MaxSettleChecks   int
}

// NewActionExecutor creates an executor with default timings.
func NewActionExecutor(r *Resolver) *ActionExecutor {
	return &ActionExecutor{
		Resolver:          r,
		ResolveTimeout:    DefaultResolveTimeout,
		StabilityInterval: DefaultStabilityInterval,
		MaxSettleChecks:   DefaultMaxSettleChecks,
	}
}

// Click resolves cands and clicks the element.
func (a *ActionExecutor) Click(ctx context.Context, cands flow.Candidates, opts ActionOptions) (*Resolved, error) {
	res, err := a.prepare(ctx, "click", cands, opts)
	if err != nil {
		return nil, err
	}
	if err := res.Element.Click(ctx); err != nil {
		return nil, a.fail("click", cands, err)
	}
	return res, nil
}

// Type clears the resolved field, enters text and dispatches input, change
// and blur so framework-level validation runs.
func (a *ActionExecutor) Type(ctx context.Context, cands flow.Candidates, text string, opts ActionOptions) error {
	res, err := a.prepare(ctx, "type", cands, opts)
	if err != nil {
		return err
	}
	el := res.Element

	if err := el.Click(ctx); err != nil {
		return a.fail("type", cands, err)
	}
	if err := el.Clear(ctx); err != nil {
		return a.fail("type", cands, err)
	}

	if opts.Cadence > 0 {
		for _, r := range text {
			if err := el.Input(ctx, string(r)); err != nil {
				return a.fail("type", cands, err)
			}
			if err := sleep(ctx, opts.Cadence); err != nil {
				return a.fail("type", cands, err)
			}
		}
	} else if text != "" {
		if err := el.Input(ctx, text); err != nil {
			return a.fail("type", cands, err)
		}
	}

	if err := el.Dispatch(ctx, "input", "change", "blur"); err != nil {
		return a.fail("type", cands, err)
	}
	return nil
}

// Select chooses value in the resolved select element.
func (a *ActionExecutor) Select(ctx context.Context, cands flow.Candidates, value string, opts ActionOptions) error {
	res, err := a.prepare(ctx, "select", cands, opts)
	if err != nil {
		return err
	}
	if err := res.Element.Select(ctx, value); err != nil {
		return a.fail("select", cands, err)
	}
	return nil
}

// Options returns the option labels of the resolved select element.
func (a *ActionExecutor) Options(ctx context.Context, cands flow.Candidates, opts ActionOptions) ([]string, error) {
	res, err := a.resolve(ctx, "options", cands, opts)
	if err != nil {
		return nil, err
	}
	options, err := res.Element.Options(ctx)
	if err != nil {
		return nil, a.fail("options", cands, err)
	}
	return options, nil
}

// ReadText returns the trimmed visible text of the resolved element.
func (a *ActionExecutor) ReadText(ctx context.Context, cands flow.Candidates, opts ActionOptions) (string, error) {
	res, err := a.resolve(ctx, "readText", cands, opts)
	if err != nil {
		return "", err
	}
	text, err := res.Element.Text(ctx)
	if err != nil {
		return "", a.fail("readText", cands, err)
	}
	return strings.TrimSpace(text), nil
}

// PressEnter sends Enter to the resolved element.
func (a *ActionExecutor) PressEnter(ctx context.Context, cands flow.Candidates, opts ActionOptions) error {
	res, err := a.prepare(ctx, "pressEnter", cands, opts)
	if err != nil {
		return err
	}
	if err := res.Element.PressEnter(ctx); err != nil {
		return a.fail("pressEnter", cands, err)
	}
	return nil
}

// resolve finds the target without touching it.
func (a *ActionExecutor) resolve(ctx context.Context, action string, cands flow.Candidates, opts ActionOptions) (*Resolved, error) {
	budget := opts.Timeout
	if budget <= 0 {
		budget = a.ResolveTimeout
	}
	res, err := a.Resolver.Resolve(ctx, cands, budget)
	if err != nil {
		return nil, a.fail(action, cands, err)
	}
	return res, nil
}

// prepare resolves the target, scrolls it into view and waits until its
// box stops moving.
func (a *ActionExecutor) prepare(ctx context.Context, action string, cands flow.Candidates, opts ActionOptions) (*Resolved, error) {
	res, err := a.resolve(ctx, action, cands, opts)
	if err != nil {
		return nil, err
	}
	if err := res.Element.ScrollIntoView(ctx); err != nil {
		return nil, a.fail(action, cands, err)
	}
	if err := a.WaitStable(ctx, res.Element); err != nil {
		return nil, a.fail(action, cands, err)
	}
	return res, nil
}

// WaitStable waits until two consecutive box reads, one stability interval
// apart, are equal.
func (a *ActionExecutor) WaitStable(ctx context.Context, el core.Element) error {
	prev, err := el.Box(ctx)
	if err != nil {
		return err
	}
	checks := a.MaxSettleChecks
	if checks <= 0 {
		checks = DefaultMaxSettleChecks
	}
	for i := 0; i < checks; i++ {
		if err := sleep(ctx, a.StabilityInterval); err != nil {
			return err
		}
		cur, err := el.Box(ctx)
		if err != nil {
			return err
		}
		if cur == prev {
			return nil
		}
		prev = cur
	}
	return errNotSettled
}

func (a *ActionExecutor) fail(action string, cands flow.Candidates, cause error) error {
	if errors.Is(cause, context.DeadlineExceeded) && !errors.Is(cause, core.ErrTimeout) {
		cause = core.NewTimeout(action, cause)
	}
	return core.NewActionFailed(action, cands.Describe(), cause)
}
