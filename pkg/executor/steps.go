package executor

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/devicelab-dev/shopcheck/pkg/config"
	"github.com/devicelab-dev/shopcheck/pkg/core"
	"github.com/devicelab-dev/shopcheck/pkg/flow"
	"github.com/devicelab-dev/shopcheck/pkg/interact"
	"github.com/devicelab-dev/shopcheck/pkg/logger"
)

// orderDigits is the fallback order-number pattern: the first run of four or
// more digits in the confirmation page text.
var orderDigits = regexp.MustCompile(`\d{4,}`)

// paymentScope limits payment label matching to selectable controls.
const paymentScope = `label, button, [role="radio"]`

// ============================================
// Homepage and consent
// ============================================

func (fr *FlowRunner) homepage(ctx context.Context, fc *FlowContext, out *StepOutput) error {
	if err := fc.Navigate(ctx, fc.PageURL("/")); err != nil {
		return err
	}

	probe := fr.Config.Timeouts.MarkerProbe
	var missing []string
	for _, target := range []string{config.TargetLogo, config.TargetNav, config.TargetFooter} {
		if !fc.Resolver.Probe(ctx, fr.Config.Candidates(target), probe) {
			missing = append(missing, target)
		}
	}
	hero := fc.Resolver.Probe(ctx, fr.Config.Candidates(config.TargetHero), probe)
	out.Set("hero", hero)
	out.Set("missingLandmarks", missing)

	fr.instrument(ctx, fc, out)

	if len(missing) > 0 {
		return core.ErrElementNotFound.
			WithMessage("missing landmarks: " + strings.Join(missing, ", ")).
			WithDetails(map[string]interface{}{"missingLandmarks": missing})
	}
	out.Detail = "homepage loaded; landmarks present"
	if !hero {
		out.Detail += " (no hero)"
	}
	return nil
}

func (fr *FlowRunner) consent(ctx context.Context, fc *FlowContext, out *StepOutput) error {
	cands := fr.Config.Candidates(config.TargetConsent).
		With(flow.TextCandidates("", fc.Locale.ConsentKeywords)...)

	res, err := fc.Actions.Click(ctx, cands, interact.ActionOptions{Timeout: fr.Config.Timeouts.MarkerProbe})
	if err != nil {
		if core.Classify(err) == core.ErrCategoryElement {
			out.Set("bannerFound", false)
			out.Detail = "no consent banner"
			return nil
		}
		return err
	}
	out.Set("bannerFound", true)
	out.Set("selector", res.Selector.Describe())
	out.Detail = "consent banner dismissed"
	return nil
}

// ============================================
// Discovery
// ============================================

func (fr *FlowRunner) discovery(ctx context.Context, fc *FlowContext, out *StepOutput) error {
	var attempts []string
	for _, strategy := range fc.Persona.Behavior.DiscoveryOrder() {
		products, err := fr.discover(ctx, fc, strategy)
		if ctx.Err() != nil {
			return core.NewTimeout("discovery", ctx.Err())
		}
		switch {
		case err != nil:
			attempts = append(attempts, strategy+": "+err.Error())
			continue
		case len(products) == 0:
			attempts = append(attempts, strategy+": no product links")
			continue
		}

		fc.Products = products
		out.Set("strategy", strategy)
		out.Set("products", len(products))
		out.Set("firstProduct", products[0])
		if len(attempts) > 0 {
			out.Set("fallbacks", attempts)
		}
		out.Detail = fmt.Sprintf("%d products discovered via %s", len(products), strategy)
		return nil
	}

	out.Set("attempts", attempts)
	return core.ErrElementNotFound.WithMessage("no products discovered (" + strings.Join(attempts, "; ") + ")")
}

// discover runs one strategy and returns the product URLs it found.
func (fr *FlowRunner) discover(ctx context.Context, fc *FlowContext, strategy string) ([]string, error) {
	probe := interact.ActionOptions{Timeout: fr.Config.Timeouts.MarkerProbe}

	switch strategy {
	case config.DiscoveryDirect:
		if err := fc.Navigate(ctx, fc.PageURL("/")); err != nil {
			return nil, err
		}
		products := fr.collectProducts(ctx, fc)
		for _, u := range fr.Config.ProductURLs {
			products = appendUnique(products, fc.PageURL(u))
		}
		return products, nil

	case config.DiscoveryCategory:
		if err := fc.Navigate(ctx, fc.PageURL("/")); err != nil {
			return nil, err
		}
		cands := fr.Config.Candidates(config.TargetCategoryLink).
			With(flow.TextCandidates("a", fc.Locale.CategoryKeywords)...)
		if _, err := fc.Actions.Click(ctx, cands, probe); err != nil {
			return nil, err
		}
		return fr.collectProducts(ctx, fc), nil

	case config.DiscoverySearch:
		if err := fc.Navigate(ctx, fc.PageURL("/")); err != nil {
			return nil, err
		}
		term := fc.Persona.Behavior.SearchTerm
		if term == "" {
			term = fc.Locale.SearchTerm
		}
		cands := fr.Config.Candidates(config.TargetSearchInput)
		if err := fc.Actions.Type(ctx, cands, term, interact.ActionOptions{
			Timeout: fr.Config.Timeouts.MarkerProbe,
			Cadence: fc.Persona.Behavior.TypingCadence,
		}); err != nil {
			return nil, err
		}
		if err := fc.Actions.PressEnter(ctx, cands, probe); err != nil {
			return nil, err
		}
		return fr.collectProducts(ctx, fc), nil

	case config.DiscoveryFeatured:
		if err := fc.Navigate(ctx, fc.PageURL(fc.Locale.ListingPath)); err != nil {
			return nil, err
		}
		return fr.collectProducts(ctx, fc), nil

	default:
		return nil, fmt.Errorf("unknown discovery strategy %q", strategy)
	}
}

// collectProducts waits briefly for a product link, then returns the
// absolute URL of every visible one, deduplicated in document order.
func (fr *FlowRunner) collectProducts(ctx context.Context, fc *FlowContext) []string {
	cands := fr.Config.Candidates(config.TargetProductLink)
	if !fc.Resolver.Probe(ctx, cands, fr.Config.Timeouts.MarkerProbe) {
		return nil
	}
	els, err := fc.Resolver.All(ctx, cands)
	if err != nil {
		return nil
	}

	base := fc.CurrentURL(ctx)
	var products []string
	for _, el := range els {
		href, err := el.Attribute(ctx, "href")
		if err != nil {
			continue
		}
		if u := absoluteURL(base, href); u != "" {
			products = appendUnique(products, u)
		}
	}
	return products
}

func appendUnique(list []string, v string) []string {
	for _, have := range list {
		if have == v {
			return list
		}
	}
	return append(list, v)
}

// ============================================
// Product and cart
// ============================================

func (fr *FlowRunner) addToCartCandidates(fc *FlowContext) flow.Candidates {
	return fr.Config.Candidates(config.TargetAddToCart).
		With(flow.TextCandidates("", fc.Locale.AddToCartKeywords)...)
}

func (fr *FlowRunner) productDetail(ctx context.Context, fc *FlowContext, out *StepOutput) error {
	product := fc.Products[0]
	out.Set("product", product)
	if err := fc.Navigate(ctx, product); err != nil {
		return err
	}

	title, err := fc.Actions.ReadText(ctx, fr.Config.Candidates(config.TargetProductTitle), interact.ActionOptions{})
	if err != nil && ctx.Err() != nil {
		return err
	}
	var missing []string
	if err != nil {
		missing = append(missing, config.TargetProductTitle)
	} else {
		out.Set("title", title)
	}

	probe := fr.Config.Timeouts.MarkerProbe
	if !fc.Resolver.Probe(ctx, fr.Config.Candidates(config.TargetProductPrice), probe) {
		missing = append(missing, config.TargetProductPrice)
	}
	if !fc.Resolver.Probe(ctx, fr.addToCartCandidates(fc), probe) {
		missing = append(missing, config.TargetAddToCart)
	}

	behavior := fc.Persona.Behavior
	var warnings []string
	if behavior.SelectVariant {
		if variant, err := fr.selectVariant(ctx, fc); err != nil {
			warnings = append(warnings, "variant: "+err.Error())
		} else if variant != "" {
			out.Set("variant", variant)
		}
	}
	if behavior.Quantity > 1 {
		qty := strconv.Itoa(behavior.Quantity)
		err := fc.Actions.Type(ctx, fr.Config.Candidates(config.TargetQuantity), qty,
			interact.ActionOptions{Timeout: probe})
		if err != nil {
			warnings = append(warnings, "quantity: "+err.Error())
		} else {
			out.Set("quantity", behavior.Quantity)
		}
	}
	if len(warnings) > 0 {
		out.Set("warnings", warnings)
	}

	fr.instrument(ctx, fc, out)

	if len(missing) > 0 {
		return core.ErrElementNotFound.
			WithMessage("product page incomplete, missing: " + strings.Join(missing, ", ")).
			WithDetails(map[string]interface{}{"missing": missing})
	}
	out.Detail = "product page complete"
	if title != "" {
		out.Detail += ": " + title
	}
	return nil
}

// selectVariant picks the first option after the placeholder.
func (fr *FlowRunner) selectVariant(ctx context.Context, fc *FlowContext) (string, error) {
	cands := fr.Config.Candidates(config.TargetVariant)
	opts := interact.ActionOptions{Timeout: fr.Config.Timeouts.MarkerProbe}

	options, err := fc.Actions.Options(ctx, cands, opts)
	if err != nil {
		return "", err
	}
	if len(options) < 2 {
		return "", nil
	}
	if err := fc.Actions.Select(ctx, cands, options[1], opts); err != nil {
		return "", err
	}
	return options[1], nil
}

func (fr *FlowRunner) addToCart(ctx context.Context, fc *FlowContext, out *StepOutput) error {
	_, clickErr := fc.Actions.Click(ctx, fr.addToCartCandidates(fc), interact.ActionOptions{})
	clickRegistered := clickErr == nil
	out.Set("clickRegistered", clickRegistered)
	if clickErr != nil {
		if ctx.Err() != nil {
			return clickErr
		}
		out.Set("clickError", clickErr.Error())
	}

	// The click acknowledgement is not trusted: the cart page decides.
	persisted, err := fr.cartPersisted(ctx, fc, out)
	if err != nil {
		return err
	}
	fc.CartPresumed = persisted
	out.Set("cartPersisted", persisted)

	clickPhrase := "click registered"
	if !clickRegistered {
		clickPhrase = "click not registered"
	}
	cartPhrase := "cart state persisted"
	if !persisted {
		cartPhrase = "cart state not persisted"
	}
	out.Detail = clickPhrase + "; " + cartPhrase

	if !persisted {
		e := core.ErrActionFailed.WithMessage("cart state not persisted after add to cart")
		if clickErr != nil {
			e = e.WithCause(clickErr)
		}
		return e
	}
	return nil
}

// cartPersisted opens the cart page and looks for an empty-cart marker or
// empty-cart text.
func (fr *FlowRunner) cartPersisted(ctx context.Context, fc *FlowContext, out *StepOutput) (bool, error) {
	if err := fc.Navigate(ctx, fc.PageURL(fc.Locale.CartPath)); err != nil {
		return false, err
	}

	probe := fr.Config.Timeouts.MarkerProbe
	if fc.Resolver.Probe(ctx, fr.Config.Candidates(config.TargetEmptyCart), probe) {
		out.Set("emptyCartMarker", "element")
		return false, nil
	}
	if ctx.Err() != nil {
		return false, core.NewTimeout("cart verification", ctx.Err())
	}

	text, err := fc.PageText(ctx)
	if err != nil {
		return false, core.NewActionFailed("read cart page", nil, err)
	}
	if kw, ok := fc.ContainsKeyword(text, fc.Locale.EmptyCartKeywords); ok {
		out.Set("emptyCartMarker", kw)
		return false, nil
	}

	out.Set("cartItemVisible", fc.Resolver.Probe(ctx, fr.Config.Candidates(config.TargetCartItem), probe))
	return true, nil
}

// ============================================
// Checkout
// ============================================

func (fr *FlowRunner) checkoutForm(ctx context.Context, fc *FlowContext, out *StepOutput) error {
	entry, err := fr.ensureCheckout(ctx, fc)
	if err != nil {
		return err
	}
	out.Set("checkoutEntry", entry)

	fields := config.CheckoutFields()
	values := fc.Profile.Fields()
	opts := interact.ActionOptions{
		Timeout: fr.Config.Timeouts.MarkerProbe,
		Cadence: fc.Persona.Behavior.TypingCadence,
	}

	found, filled := 0, 0
	var missing []string
	for _, field := range fields {
		cands := fr.Config.Candidates(field)
		if !fc.Resolver.Probe(ctx, cands, fr.Config.Timeouts.MarkerProbe) {
			if ctx.Err() != nil {
				return core.NewTimeout("checkout form", ctx.Err())
			}
			missing = append(missing, field)
			continue
		}
		found++
		if err := fc.Actions.Type(ctx, cands, values[field], opts); err != nil {
			logger.Debug("fill %s failed: %v", field, err)
			continue
		}
		filled++
	}

	completeness := float64(filled) / float64(len(fields))
	out.Set("fieldsExpected", len(fields))
	out.Set("fieldsFound", found)
	out.Set("fieldsFilled", filled)
	out.Set("completeness", completeness)
	if len(missing) > 0 {
		out.Set("missingFields", missing)
	}
	out.Detail = fmt.Sprintf("%d of %d fields filled (%.0f%%)", filled, len(fields), completeness*100)

	threshold := fr.Config.MinFormCompleteness
	if completeness >= threshold {
		return nil
	}
	msg := fmt.Sprintf("checkout form %.0f%% complete, below %.0f%%", completeness*100, threshold*100)
	if float64(found)/float64(len(fields)) < threshold {
		return core.ErrElementNotFound.WithMessage(msg)
	}
	return core.ErrActionFailed.WithMessage(msg)
}

// Ways the checkout page was reached.
const (
	checkoutLoaded     = "loaded"
	checkoutButton     = "button"
	checkoutNavigation = "navigation"
)

// ensureCheckout gets to the checkout page the way a shopper would: a
// proceed-to-checkout control on the current page first, then the checkout
// URL directly.
func (fr *FlowRunner) ensureCheckout(ctx context.Context, fc *FlowContext) (string, error) {
	checkout := fc.PageURL(fc.Locale.CheckoutPath)
	if strings.HasPrefix(fc.CurrentURL(ctx), checkout) {
		return checkoutLoaded, nil
	}

	cands := flow.TextCandidates("", fc.Locale.CheckoutKeywords)
	if _, err := fc.Actions.Click(ctx, cands, interact.ActionOptions{Timeout: fr.Config.Timeouts.MarkerProbe}); err == nil {
		if strings.HasPrefix(fc.CurrentURL(ctx), checkout) {
			return checkoutButton, nil
		}
		logger.Debug("checkout control did not reach %s", checkout)
	} else if ctx.Err() != nil {
		return "", core.NewTimeout("checkout", ctx.Err())
	}

	if err := fc.Navigate(ctx, checkout); err != nil {
		return "", err
	}
	return checkoutNavigation, nil
}

func (fr *FlowRunner) paymentMethod(ctx context.Context, fc *FlowContext, out *StepOutput) error {
	if _, err := fr.ensureCheckout(ctx, fc); err != nil {
		return err
	}

	cands := fr.Config.Candidates(config.TargetPaymentMethod).
		With(flow.TextCandidates(paymentScope, fc.Locale.PaymentLabels)...)
	res, err := fc.Actions.Click(ctx, cands, interact.ActionOptions{})
	if err != nil {
		return err
	}

	label, err := res.Element.Text(ctx)
	if err != nil {
		logger.Debug("read payment label: %v", err)
	}
	label = strings.TrimSpace(label)
	out.Set("selector", res.Selector.Describe())
	if label != "" {
		out.Set("method", label)
		out.Detail = "payment method selected: " + label
	} else {
		out.Detail = "payment method selected"
	}
	return nil
}

func (fr *FlowRunner) submission(ctx context.Context, fc *FlowContext, out *StepOutput) error {
	cands := fr.Config.Candidates(config.TargetSubmitOrder).
		With(flow.TextCandidates("", fc.Locale.SubmitKeywords)...)
	if _, err := fc.Actions.Click(ctx, cands, interact.ActionOptions{}); err != nil {
		return err
	}

	waitCtx, cancel := context.WithTimeout(ctx, fr.Config.Timeouts.Submission)
	defer cancel()

	patterns := fc.Locale.SuccessURLRegexps()
	poll := fr.Config.Timeouts.Poll
	if poll <= 0 {
		poll = interact.DefaultPollInterval
	}
	start := time.Now()
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		if u := fc.CurrentURL(waitCtx); u != "" {
			for _, re := range patterns {
				if re.MatchString(u) {
					out.Set("successSignal", "url")
					out.Set("url", u)
					out.Detail = "order submitted; success URL " + u
					return nil
				}
			}
		}
		if text, err := fc.PageText(waitCtx); err == nil {
			if kw, ok := fc.ContainsKeyword(text, fc.Locale.SuccessKeywords); ok {
				out.Set("successSignal", "keyword")
				out.Set("keyword", kw)
				out.Detail = fmt.Sprintf("order submitted; success text %q", kw)
				return nil
			}
		}

		select {
		case <-waitCtx.Done():
			out.Set("waited", time.Since(start).String())
			return core.NewTimeout("order confirmation wait", waitCtx.Err()).
				WithMessage("no success URL or keyword after submission")
		case <-ticker.C:
		}
	}
}

func (fr *FlowRunner) confirmation(ctx context.Context, fc *FlowContext, out *StepOutput) error {
	text, err := fc.Actions.ReadText(ctx, fr.Config.Candidates(config.TargetOrderNumber),
		interact.ActionOptions{Timeout: fr.Config.Timeouts.MarkerProbe})
	if err == nil && text != "" {
		id := text
		if m := orderDigits.FindString(text); m != "" {
			id = m
		}
		fc.Result.OrderID = id
		out.Set("orderId", id)
		out.Set("orderIdHeuristic", false)
		out.Detail = "order number " + id
		return nil
	}
	if ctx.Err() != nil {
		return core.NewTimeout("confirmation", ctx.Err())
	}

	page, err := fc.PageText(ctx)
	if err != nil {
		return core.NewActionFailed("read confirmation page", nil, err)
	}
	if id := orderDigits.FindString(page); id != "" {
		fc.Result.OrderID = id
		out.Set("orderId", id)
		out.Set("orderIdHeuristic", true)
		out.Set("warnings", []string{"order number taken from the first 4+ digit run in page text"})
		out.Detail = "order number " + id + " (heuristic)"
		return nil
	}
	return core.ErrElementNotFound.WithMessage("no order number on confirmation page")
}

// ============================================
// Instrumentation
// ============================================

// instrument attaches performance and accessibility scores for the current
// page. Audit failures are recorded as warnings and never fail the step.
func (fr *FlowRunner) instrument(ctx context.Context, fc *FlowContext, out *StepOutput) {
	var warnings []string
	if fr.Perf != nil {
		if score, err := fr.Perf.Measure(ctx, fc.Driver); err != nil {
			warnings = append(warnings, "performance: "+err.Error())
		} else {
			out.Metrics = append(out.Metrics, score)
		}
	}
	if fr.A11y != nil {
		if score, err := fr.A11y.Audit(ctx, fc.Driver); err != nil {
			warnings = append(warnings, "accessibility: "+err.Error())
		} else {
			out.Metrics = append(out.Metrics, score)
		}
	}
	if len(warnings) > 0 {
		out.Set("auditWarnings", warnings)
	}
}
