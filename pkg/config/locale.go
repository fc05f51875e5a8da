package config

import (
	"regexp"
)

// Locale holds the per-language storefront paths and the keyword lists used
// to recognize localized UI text. Keywords are matched case-insensitively as
// substrings of the element's visible label.
type Locale struct {
	Code string `yaml:"-"`

	Path         string `yaml:"path"`         // Path prefix of the localized storefront, e.g. /de
	ListingPath  string `yaml:"listingPath"`  // Product listing, used by featured discovery
	CartPath     string `yaml:"cartPath"`     // Cart page, used to verify cart state
	CheckoutPath string `yaml:"checkoutPath"` // Checkout page
	SearchTerm   string `yaml:"searchTerm"`   // Default search query

	ConsentKeywords   []string `yaml:"consentKeywords"`   // Accept buttons of cookie/privacy banners
	CategoryKeywords  []string `yaml:"categoryKeywords"`  // Category navigation links
	AddToCartKeywords []string `yaml:"addToCartKeywords"` // Add-to-cart buttons
	EmptyCartKeywords []string `yaml:"emptyCartKeywords"` // Text shown by an empty cart
	CheckoutKeywords  []string `yaml:"checkoutKeywords"`  // Proceed-to-checkout buttons
	PaymentLabels     []string `yaml:"paymentLabels"`     // Payment method labels
	SubmitKeywords    []string `yaml:"submitKeywords"`    // Place-order buttons
	SuccessKeywords   []string `yaml:"successKeywords"`   // Order confirmation text

	SuccessURLPatterns []string `yaml:"successURLPatterns"` // Regexps matched against the post-submit URL
}

// SuccessURLRegexps compiles the success URL patterns, skipping invalid ones.
// Validate reports invalid patterns.
func (l Locale) SuccessURLRegexps() []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(l.SuccessURLPatterns))
	for _, p := range l.SuccessURLPatterns {
		if re, err := regexp.Compile(p); err == nil {
			out = append(out, re)
		}
	}
	return out
}

// fillFrom copies fields left empty by YAML from def.
func (l *Locale) fillFrom(def Locale) {
	fill := func(dst *string, v string) {
		if *dst == "" {
			*dst = v
		}
	}
	fillList := func(dst *[]string, v []string) {
		if len(*dst) == 0 {
			*dst = v
		}
	}

	fill(&l.ListingPath, firstNonEmpty(def.ListingPath, "/products"))
	fill(&l.CartPath, firstNonEmpty(def.CartPath, "/cart"))
	fill(&l.CheckoutPath, firstNonEmpty(def.CheckoutPath, "/checkout"))
	fill(&l.SearchTerm, def.SearchTerm)

	en := defaultLocales()["en"]
	fillList(&l.ConsentKeywords, firstList(def.ConsentKeywords, en.ConsentKeywords))
	fillList(&l.CategoryKeywords, firstList(def.CategoryKeywords, en.CategoryKeywords))
	fillList(&l.AddToCartKeywords, firstList(def.AddToCartKeywords, en.AddToCartKeywords))
	fillList(&l.EmptyCartKeywords, firstList(def.EmptyCartKeywords, en.EmptyCartKeywords))
	fillList(&l.CheckoutKeywords, firstList(def.CheckoutKeywords, en.CheckoutKeywords))
	fillList(&l.PaymentLabels, firstList(def.PaymentLabels, en.PaymentLabels))
	fillList(&l.SubmitKeywords, firstList(def.SubmitKeywords, en.SubmitKeywords))
	fillList(&l.SuccessKeywords, firstList(def.SuccessKeywords, en.SuccessKeywords))
	fillList(&l.SuccessURLPatterns, firstList(def.SuccessURLPatterns, en.SuccessURLPatterns))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstList(lists ...[]string) []string {
	for _, l := range lists {
		if len(l) > 0 {
			return l
		}
	}
	return nil
}
