// Package diagnostics separates a broken automation harness from a broken
// storefront before any flow runs.
package diagnostics

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/devicelab-dev/shopcheck/pkg/core"
	"github.com/devicelab-dev/shopcheck/pkg/flow"
	"github.com/devicelab-dev/shopcheck/pkg/logger"
)

// Check targets.
const (
	TargetHarness = "harness"
	TargetSite    = "site"
)

// Runner executes the diagnostic battery.
type Runner struct {
	Browser      core.Browser
	ReferenceURL string // Neutral, stable page for the harness self-check
	SiteURL      string // Storefront homepage

	NavigationTimeout time.Duration // Per attempt on the reference page
	SiteTimeout       time.Duration // Generous ceiling for the storefront load
	Retries           uint64        // Extra attempts for the reference navigation
	RetryInterval     time.Duration // Initial backoff interval
}

// Run computes the verdict. It never returns an error: every failure is
// recorded as a failed check and an issue.
func (r *Runner) Run(ctx context.Context) core.DiagnosticVerdict {
	v := core.DiagnosticVerdict{HarnessHealthy: true, SiteReachable: true, Issues: []string{}, CheckedAt: time.Now()}

	record := func(name, target string, start time.Time, err error) bool {
		c := core.DiagnosticCheck{Name: name, Target: target, Passed: err == nil, Duration: time.Since(start)}
		if err != nil {
			c.Detail = err.Error()
			issue := fmt.Sprintf("%s: %s: %v", target, name, err)
			v.Issues = append(v.Issues, issue)
			if target == TargetHarness {
				v.HarnessHealthy = false
			} else {
				v.SiteReachable = false
			}
			logger.Warn("diagnostic %s failed: %v", name, err)
		} else {
			logger.Info("diagnostic %s passed", name)
		}
		v.Checks = append(v.Checks, c)
		return err == nil
	}

	start := time.Now()
	d, err := r.Browser.NewSession(ctx)
	if !record("session", TargetHarness, start, err) {
		v.SiteReachable = false
		return v
	}
	defer d.Close()

	if !r.checkHarness(ctx, d, record) {
		// Site results would be meaningless on a broken harness.
		v.SiteReachable = false
		return v
	}
	r.checkSite(ctx, d, record)
	return v
}

type recordFunc func(name, target string, start time.Time, err error) bool

func (r *Runner) checkHarness(ctx context.Context, d core.Driver, record recordFunc) bool {
	start := time.Now()
	err := backoff.Retry(func() error {
		navCtx, cancel := context.WithTimeout(ctx, r.navigationTimeout())
		defer cancel()
		if err := d.Navigate(navCtx, r.ReferenceURL, core.WaitLoad); err != nil {
			logger.Debug("reference navigation failed: %v", err)
			return err
		}
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(r.backoff(), r.Retries), ctx))
	if !record("reference_navigation", TargetHarness, start, err) {
		return false
	}

	start = time.Now()
	els, err := d.Query(ctx, flow.CSS("body"))
	if err == nil && len(els) == 0 {
		err = fmt.Errorf("query for body returned no elements")
	}
	if !record("dom_query", TargetHarness, start, err) {
		return false
	}

	start = time.Now()
	var ok bool
	err = d.Evaluate(ctx, core.ProbeScript, &ok)
	if err == nil && !ok {
		err = fmt.Errorf("probe script returned false")
	}
	return record("script_eval", TargetHarness, start, err)
}

func (r *Runner) checkSite(ctx context.Context, d core.Driver, record recordFunc) {
	siteCtx, cancel := context.WithTimeout(ctx, r.siteTimeout())
	defer cancel()

	start := time.Now()
	err := d.Navigate(siteCtx, r.SiteURL, core.WaitLoad)
	if err != nil && siteCtx.Err() != nil {
		err = core.NewTimeout("site load", err)
	}
	if !record("site_load", TargetSite, start, err) {
		return
	}

	start = time.Now()
	err = nil
	for _, tag := range []string{"head", "body"} {
		els, qerr := d.Query(siteCtx, flow.CSS(tag))
		if qerr != nil {
			err = qerr
			break
		}
		if len(els) == 0 {
			err = fmt.Errorf("no <%s> element", tag)
			break
		}
	}
	record("site_structure", TargetSite, start, err)

	start = time.Now()
	var state string
	err = d.Evaluate(siteCtx, core.ReadyStateScript, &state)
	if err == nil && state == "" {
		err = fmt.Errorf("document.readyState is empty")
	}
	record("site_script", TargetSite, start, err)
}

func (r *Runner) backoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if r.RetryInterval > 0 {
		b.InitialInterval = r.RetryInterval
	}
	b.MaxElapsedTime = 0
	return b
}

func (r *Runner) navigationTimeout() time.Duration {
	if r.NavigationTimeout > 0 {
		return r.NavigationTimeout
	}
	return 30 * time.Second
}

func (r *Runner) siteTimeout() time.Duration {
	if r.SiteTimeout > 0 {
		return r.SiteTimeout
	}
	return 60 * time.Second
}
