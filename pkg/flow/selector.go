// Package flow defines the purchase-flow pipeline and the selector
// candidates used to locate storefront UI targets.
package flow

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// ClickableCSS scopes text-only selectors to elements a shopper can activate.
const ClickableCSS = `button, a, [role="button"], input[type="submit"], input[type="button"], label`

// Selector is one locator strategy for a UI target.
// Pure data structure - the resolver decides how to use it.
type Selector struct {
	CSS   string `yaml:"css" json:"css,omitempty"`     // CSS selector
	XPath string `yaml:"xpath" json:"xpath,omitempty"` // XPath expression (used when CSS is empty)
	Text  string `yaml:"text" json:"text,omitempty"`   // Case-insensitive substring of the element's visible label
	Label string `yaml:"label" json:"label,omitempty"` // Optional name for reports
}

// selectorRaw is used for YAML parsing.
type selectorRaw struct {
	CSS   string `yaml:"css"`
	XPath string `yaml:"xpath"`
	Text  string `yaml:"text"`
	Label string `yaml:"label"`
}

// UnmarshalYAML allows Selector to be unmarshaled from a CSS string or struct.
func (s *Selector) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		s.CSS = node.Value
		return nil
	}

	var raw selectorRaw
	if err := node.Decode(&raw); err != nil {
		return err
	}
	*s = Selector(raw)
	return nil
}

// CSSOrDefault returns the CSS query to run. Text-only selectors are scoped
// to clickable elements.
func (s Selector) CSSOrDefault() string {
	if s.CSS == "" && s.XPath == "" && s.Text != "" {
		return ClickableCSS
	}
	return s.CSS
}

// IsEmpty returns true if no selector properties are set.
func (s Selector) IsEmpty() bool {
	return s.CSS == "" && s.XPath == "" && s.Text == ""
}

// Describe returns a human-readable description.
func (s Selector) Describe() string {
	var parts []string
	switch {
	case s.CSS != "":
		parts = append(parts, "css:"+s.CSS)
	case s.XPath != "":
		parts = append(parts, "xpath:"+s.XPath)
	}
	if s.Text != "" {
		parts = append(parts, `text="`+s.Text+`"`)
	}
	return strings.Join(parts, " ")
}

// CSS builds a CSS-only selector.
func CSS(css string) Selector {
	return Selector{CSS: css}
}

// Text builds a text predicate scoped to css (clickable elements when empty).
func Text(css, text string) Selector {
	return Selector{CSS: css, Text: text}
}

// Candidates is an ordered list of strategies for one logical UI target.
// Order encodes preference: the first interactable match wins.
type Candidates []Selector

// Describe returns the description of every candidate, in order.
func (c Candidates) Describe() []string {
	out := make([]string, len(c))
	for i, s := range c {
		out[i] = s.Describe()
	}
	return out
}

// With returns a new list with extra appended after the receiver's entries.
func (c Candidates) With(extra ...Selector) Candidates {
	out := make(Candidates, 0, len(c)+len(extra))
	out = append(out, c...)
	return append(out, extra...)
}

// TextCandidates builds one text predicate per keyword, all scoped to css.
func TextCandidates(css string, keywords []string) Candidates {
	out := make(Candidates, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, Text(css, k))
		}
	}
	return out
}
