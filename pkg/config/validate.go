package config

import (
	"fmt"
	"net/url"
	"regexp"
	"time"

	"golang.org/x/text/language"
)

// ValidationError represents a configuration error with the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the configuration and returns every problem found.
func (c *Config) Validate() []error {
	var errs []error
	add := func(field, format string, args ...interface{}) {
		errs = append(errs, &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if u, err := url.Parse(c.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		add("baseURL", "must be an absolute http(s) URL, got %q", c.BaseURL)
	}
	if u, err := url.Parse(c.ReferenceURL); err != nil || u.Host == "" {
		add("referenceURL", "must be an absolute URL, got %q", c.ReferenceURL)
	}

	if len(c.Languages) == 0 {
		add("languages", "at least one language is required")
	}
	for _, lang := range c.Languages {
		loc, ok := c.Locales[lang]
		if !ok {
			add("languages", "no locale defined for %q", lang)
			continue
		}
		if _, err := language.Parse(lang); err != nil {
			add("locales."+lang, "not a BCP 47 language tag: %v", err)
		}
		for _, p := range loc.SuccessURLPatterns {
			if _, err := regexp.Compile(p); err != nil {
				add("locales."+lang+".successURLPatterns", "invalid pattern %q: %v", p, err)
			}
		}
		if len(loc.AddToCartKeywords) == 0 {
			add("locales."+lang+".addToCartKeywords", "must not be empty")
		}
	}

	if len(c.Personas) == 0 {
		add("personas", "at least one persona is required")
	}
	seen := make(map[string]bool)
	strategies := make(map[string]bool)
	for _, s := range DiscoveryStrategies() {
		strategies[s] = true
	}
	for i, p := range c.Personas {
		field := fmt.Sprintf("personas[%d]", i)
		if p.ID == "" {
			add(field+".id", "must not be empty")
		} else if seen[p.ID] {
			add(field+".id", "duplicate persona %q", p.ID)
		}
		seen[p.ID] = true

		if !strategies[p.Behavior.Discovery] {
			add(field+".behavior.discovery", "unknown strategy %q", p.Behavior.Discovery)
		}
		if p.Behavior.TypingCadence < 0 {
			add(field+".behavior.typingCadence", "must not be negative")
		}
		for _, lang := range c.Languages {
			if p.ProfileFor(lang).Email == "" {
				add(field+".profiles", "no profile with an email for %q and no default", lang)
			}
		}
	}

	for target, cands := range c.Selectors {
		for i, s := range cands {
			if s.IsEmpty() {
				add(fmt.Sprintf("selectors.%s[%d]", target, i), "selector has no css, xpath or text")
			}
		}
	}

	t := c.Timeouts
	for name, d := range map[string]time.Duration{
		"resolve": t.Resolve, "markerProbe": t.MarkerProbe, "navigation": t.Navigation,
		"siteReachability": t.SiteReachability, "submission": t.Submission, "step": t.Step,
		"flow": t.Flow, "stability": t.Stability, "poll": t.Poll,
	} {
		if d <= 0 {
			add("timeouts."+name, "must be positive")
		}
	}

	if c.MinFormCompleteness <= 0 || c.MinFormCompleteness > 1 {
		add("minFormCompleteness", "must be in (0, 1], got %v", c.MinFormCompleteness)
	}
	if c.Parallelism < 1 {
		add("parallelism", "must be at least 1")
	}
	if c.Browser.RemoteURL != "" {
		if u, err := url.Parse(c.Browser.RemoteURL); err != nil || u.Host == "" {
			add("browser.remoteURL", "must be a ws:// or http:// URL, got %q", c.Browser.RemoteURL)
		}
	}

	return errs
}
