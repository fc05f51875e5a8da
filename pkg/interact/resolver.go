// Package interact locates storefront UI targets and acts on them.
//
// A Resolver turns an ordered list of selector candidates into one
// interactable element; an ActionExecutor clicks, types and selects on
// resolved elements with layout-shift protection.
package interact

import (
	"context"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/devicelab-dev/shopcheck/pkg/core"
	"github.com/devicelab-dev/shopcheck/pkg/flow"
	"github.com/devicelab-dev/shopcheck/pkg/logger"
)

// DefaultPollInterval is how often a candidate is re-queried while waiting.
const DefaultPollInterval = 100 * time.Millisecond

// Resolved is the element a candidate list resolved to.
type Resolved struct {
	Element  core.Element
	Selector flow.Selector
	Index    int // Position of Selector in the candidate list
}

// Resolver finds the first interactable element of a candidate list.
// Not safe for concurrent use: each flow owns its resolver.
type Resolver struct {
	driver       core.Driver
	pollInterval time.Duration
	lower        cases.Caser
}

// NewResolver creates a resolver over d. Text predicates are folded with the
// casing rules of lang.
func NewResolver(d core.Driver, pollInterval time.Duration, lang language.Tag) *Resolver {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &Resolver{
		driver:       d,
		pollInterval: pollInterval,
		lower:        cases.Lower(lang),
	}
}

// Resolve returns the first candidate, in list order, that matches an
// interactable element. The budget is split evenly across candidates and
// each gets at least one probe.
//
// Fails with ErrElementNotFound listing the tried selectors, or ErrTimeout
// when ctx expires first.
func (r *Resolver) Resolve(ctx context.Context, cands flow.Candidates, budget time.Duration) (*Resolved, error) {
	tried := cands.Describe()
	if len(cands) == 0 {
		return nil, core.NewElementNotFound(tried)
	}

	share := budget / time.Duration(len(cands))
	for i, cand := range cands {
		deadline := time.Now().Add(share)
		for {
			el, err := r.find(ctx, cand)
			if err != nil {
				return nil, core.NewTimeout("resolve", err).
					WithDetails(map[string]interface{}{"triedSelectors": tried})
			}
			if el != nil {
				return &Resolved{Element: el, Selector: cand, Index: i}, nil
			}

			remaining := time.Until(deadline)
			if remaining <= 0 {
				break
			}
			if err := sleep(ctx, minDuration(r.pollInterval, remaining)); err != nil {
				return nil, core.NewTimeout("resolve", err).
					WithDetails(map[string]interface{}{"triedSelectors": tried})
			}
		}
	}

	logger.Debug("element not found: %s", strings.Join(tried, " | "))
	return nil, core.NewElementNotFound(tried)
}

// Probe reports whether any candidate resolves within budget.
func (r *Resolver) Probe(ctx context.Context, cands flow.Candidates, budget time.Duration) bool {
	_, err := r.Resolve(ctx, cands, budget)
	return err == nil
}

// All returns every interactable element matched by any candidate, without
// waiting. Candidates are scanned in order and elements in document order.
func (r *Resolver) All(ctx context.Context, cands flow.Candidates) ([]core.Element, error) {
	var out []core.Element
	for _, cand := range cands {
		els, err := r.driver.Query(ctx, cand)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		for _, el := range els {
			if ok, _ := r.matches(ctx, cand, el); ok {
				out = append(out, el)
			}
		}
	}
	return out, nil
}

// find returns the first interactable element matching cand, or nil.
// Only context errors are returned; a failed query counts as no match.
func (r *Resolver) find(ctx context.Context, cand flow.Selector) (core.Element, error) {
	els, err := r.driver.Query(ctx, cand)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.Debug("query %s failed: %v", cand.Describe(), err)
		return nil, nil
	}

	for _, el := range els {
		ok, err := r.matches(ctx, cand, el)
		if err != nil && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if ok {
			return el, nil
		}
	}
	return nil, nil
}

func (r *Resolver) matches(ctx context.Context, cand flow.Selector, el core.Element) (bool, error) {
	if cand.Text != "" {
		text, err := el.Text(ctx)
		if err != nil {
			return false, err
		}
		if !strings.Contains(r.lower.String(strings.TrimSpace(text)), r.lower.String(strings.TrimSpace(cand.Text))) {
			return false, nil
		}
	}
	return Interactable(ctx, el)
}

// Interactable reports whether el has a non-empty box and a visible
// computed style.
func Interactable(ctx context.Context, el core.Element) (bool, error) {
	box, err := el.Box(ctx)
	if err != nil {
		return false, err
	}
	if box.Empty() {
		return false, nil
	}
	style, err := el.Style(ctx)
	if err != nil {
		return false, err
	}
	return !style.Hidden(), nil
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
