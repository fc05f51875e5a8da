package executor

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/devicelab-dev/shopcheck/pkg/config"
	"github.com/devicelab-dev/shopcheck/pkg/core"
	"github.com/devicelab-dev/shopcheck/pkg/flow"
	"github.com/devicelab-dev/shopcheck/pkg/interact"
)

// FlowContext is the mutable state of one (language, persona) run.
// It is owned by exactly one FlowRunner and never shared.
type FlowContext struct {
	Language string
	Locale   config.Locale
	Persona  config.Persona
	Profile  config.Profile

	Driver   core.Driver
	Resolver *interact.Resolver
	Actions  *interact.ActionExecutor

	// CartPresumed is set only after the cart page was checked for an
	// empty-cart marker and none was found.
	CartPresumed bool

	// Products holds absolute product URLs found by discovery.
	Products []string

	Result *core.FlowResult

	cfg           *config.Config
	lower         cases.Caser
	preconditions map[flow.Precondition]bool
}

func newFlowContext(cfg *config.Config, d core.Driver, loc config.Locale, persona config.Persona, result *core.FlowResult) *FlowContext {
	tag := language.Make(loc.Code)
	resolver := interact.NewResolver(d, cfg.Timeouts.Poll, tag)

	actions := interact.NewActionExecutor(resolver)
	actions.ResolveTimeout = cfg.Timeouts.Resolve
	actions.StabilityInterval = cfg.Timeouts.Stability

	return &FlowContext{
		Language:      loc.Code,
		Locale:        loc,
		Persona:       persona,
		Profile:       persona.ProfileFor(loc.Code),
		Driver:        d,
		Resolver:      resolver,
		Actions:       actions,
		Result:        result,
		cfg:           cfg,
		lower:         cases.Lower(tag),
		preconditions: make(map[flow.Precondition]bool),
	}
}

// Establish records that a precondition holds.
func (c *FlowContext) Establish(p flow.Precondition) {
	c.preconditions[p] = true
	c.Result.Preconditions[string(p)] = true
}

// Met reports whether a precondition has been established.
func (c *FlowContext) Met(p flow.Precondition) bool {
	return c.preconditions[p]
}

// Record appends a finished step to the flow result.
func (c *FlowContext) Record(step core.StepResult) {
	c.Result.Steps = append(c.Result.Steps, step)
}

// PageURL builds a URL under the flow's localized storefront.
func (c *FlowContext) PageURL(path string) string {
	return c.cfg.PageURL(c.Language, path)
}

// Navigate loads u within the navigation timeout.
func (c *FlowContext) Navigate(ctx context.Context, u string) error {
	navCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeouts.Navigation)
	defer cancel()

	if err := c.Driver.Navigate(navCtx, u, core.WaitLoad); err != nil {
		if navCtx.Err() != nil {
			return core.NewTimeout("navigate "+u, err)
		}
		return core.NewActionFailed("navigate", []string{u}, err)
	}
	return nil
}

// PageText returns the visible text of the current page.
func (c *FlowContext) PageText(ctx context.Context) (string, error) {
	var text string
	if err := c.Driver.Evaluate(ctx, core.PageTextScript, &text); err != nil {
		return "", fmt.Errorf("read page text: %w", err)
	}
	return text, nil
}

// ContainsKeyword returns the first keyword found in text, compared with
// the locale's case folding.
func (c *FlowContext) ContainsKeyword(text string, keywords []string) (string, bool) {
	folded := c.lower.String(text)
	for _, k := range keywords {
		if k = strings.TrimSpace(k); k != "" && strings.Contains(folded, c.lower.String(k)) {
			return k, true
		}
	}
	return "", false
}

// CurrentURL returns the current page URL, or "" when it cannot be read.
func (c *FlowContext) CurrentURL(ctx context.Context) string {
	u, err := c.Driver.CurrentURL(ctx)
	if err != nil {
		return ""
	}
	return u
}

// absoluteURL resolves href against base. Fragment-only and script links
// yield "".
func absoluteURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil || !b.IsAbs() {
		if ref.IsAbs() {
			return ref.String()
		}
		return ""
	}
	return b.ResolveReference(ref).String()
}
