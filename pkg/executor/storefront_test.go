package executor

import (
	"context"
	"time"

	"github.com/devicelab-dev/shopcheck/pkg/audit"
	"github.com/devicelab-dev/shopcheck/pkg/config"
	"github.com/devicelab-dev/shopcheck/pkg/core"
	"github.com/devicelab-dev/shopcheck/pkg/driver/mock"
	"github.com/devicelab-dev/shopcheck/pkg/flow"
)

const shopBase = "https://shop.test"

// testConfig targets the mock storefront with one "#<target>" selector per
// target and millisecond budgets.
func testConfig() *config.Config {
	cfg := config.Default()
	cfg.BaseURL = shopBase
	cfg.Languages = []string{"en", "de"}
	cfg.Personas = cfg.Personas[:1] // quick_buyer
	cfg.Artifacts = core.ArtifactConfig{}
	cfg.Timeouts = config.Timeouts{
		Resolve:          50 * time.Millisecond,
		MarkerProbe:      10 * time.Millisecond,
		Navigation:       time.Second,
		SiteReachability: time.Second,
		Submission:       200 * time.Millisecond,
		Step:             5 * time.Second,
		Flow:             30 * time.Second,
		Stability:        time.Millisecond,
		Poll:             time.Millisecond,
	}

	targets := []string{
		config.TargetLogo, config.TargetNav, config.TargetHero, config.TargetFooter,
		config.TargetConsent, config.TargetProductLink, config.TargetCategoryLink,
		config.TargetSearchInput, config.TargetProductTitle, config.TargetProductPrice,
		config.TargetAddToCart, config.TargetQuantity, config.TargetVariant,
		config.TargetCartItem, config.TargetEmptyCart, config.TargetPaymentMethod,
		config.TargetSubmitOrder, config.TargetOrderNumber,
	}
	targets = append(targets, config.CheckoutFields()...)
	cfg.Selectors = make(map[string]flow.Candidates, len(targets))
	for _, target := range targets {
		cfg.Selectors[target] = flow.Candidates{flow.CSS("#" + target)}
	}
	return cfg
}

// shopOptions switches storefront behaviors per test.
type shopOptions struct {
	noProducts     map[string]bool // language prefix -> homepage has no product links
	cartIgnoresAdd bool            // add-to-cart click succeeds but the cart stays empty
	panicOnAdd     bool
	homeDelay      time.Duration
}

func el(target, label string) *mock.Element {
	return mock.Visible(target, label, "#"+target)
}

// newStorefront builds a fresh site serving the en ("") and de ("/de")
// storefronts.
func newStorefront(opts shopOptions) *mock.Site {
	site := mock.NewSite()

	site.Pages[shopBase+"/products/shirt"] = &mock.Page{
		Text: "Oxford Shirt 49.00",
		Elements: []*mock.Element{
			el(config.TargetProductTitle, "Oxford Shirt"),
			el(config.TargetProductPrice, "49.00"),
			addToCartButton(opts),
			el(config.TargetQuantity, ""),
		},
	}

	for _, prefix := range []string{"", "/de"} {
		prefix := prefix
		root := shopBase + prefix

		home := &mock.Page{
			Text:      "Welcome",
			LoadDelay: opts.homeDelay,
			Elements: []*mock.Element{
				el(config.TargetLogo, "Shop"),
				el(config.TargetNav, "Menu"),
				el(config.TargetHero, "Summer sale"),
				el(config.TargetFooter, "Imprint"),
			},
			Eval: map[string]interface{}{
				audit.TimingScript: map[string]interface{}{
					"loadTime": 4200, "domContentLoaded": 1500, "firstPaint": 900, "firstContentfulPaint": 1200,
				},
				audit.AccessibilityScript: map[string]interface{}{
					"images": 10, "imagesWithAlt": 10, "fields": 1, "labeledFields": 1,
					"linkTexts": []string{"Oxford Shirt"}, "headingLevels": []int{1, 2},
				},
			},
		}
		if !opts.noProducts[prefix] {
			home.Elements = append(home.Elements,
				mock.Link(config.TargetProductLink, "Oxford Shirt", "/products/shirt", "#"+config.TargetProductLink))
		}
		site.Pages[root+"/"] = home

		site.Routes[root+"/cart"] = func(s *mock.Site) *mock.Page {
			if s.CartCount() == 0 {
				return &mock.Page{
					Text:     "Your cart is empty",
					Elements: []*mock.Element{el(config.TargetEmptyCart, "Your cart is empty")},
				}
			}
			return &mock.Page{
				Text:     "Oxford Shirt x1",
				Elements: []*mock.Element{el(config.TargetCartItem, "Oxford Shirt")},
			}
		}

		checkout := &mock.Page{Text: "Checkout"}
		for _, field := range config.CheckoutFields() {
			checkout.Elements = append(checkout.Elements, el(field, ""))
		}
		checkout.Elements = append(checkout.Elements, el(config.TargetPaymentMethod, "Invoice"))
		submit := el(config.TargetSubmitOrder, "Place order")
		submit.OnClick = func(d *mock.Driver) error {
			d.Site().PlaceOrder()
			return d.Navigate(context.Background(), root+"/thank-you", core.WaitLoad)
		}
		checkout.Elements = append(checkout.Elements, submit)
		site.Pages[root+"/checkout"] = checkout

		site.Pages[root+"/thank-you"] = &mock.Page{
			Text:     "Thank you for your order! Order #123456",
			Elements: []*mock.Element{el(config.TargetOrderNumber, "Order #123456")},
		}
	}
	return site
}

func addToCartButton(opts shopOptions) *mock.Element {
	b := el(config.TargetAddToCart, "Add to cart")
	b.OnClick = func(d *mock.Driver) error {
		if opts.panicOnAdd {
			panic("boom")
		}
		if !opts.cartIgnoresAdd {
			d.Site().AddToCart(1)
		}
		return nil
	}
	return b
}

func storefrontBrowser(opts shopOptions) *mock.Browser {
	return &mock.Browser{NewSite: func() *mock.Site { return newStorefront(opts) }}
}

func stepByName(f *core.FlowResult, name flow.StepName) core.StepResult {
	for _, s := range f.Steps {
		if s.Name == string(name) {
			return s
		}
	}
	return core.StepResult{}
}
