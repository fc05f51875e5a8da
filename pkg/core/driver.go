package core

import (
	"context"

	"github.com/devicelab-dev/shopcheck/pkg/flow"
)

// WaitPolicy controls how long Navigate waits after the navigation starts.
type WaitPolicy int

const (
	WaitNone WaitPolicy = iota // Return once the navigation is committed
	WaitLoad                   // Wait for the load event
)

// String returns the string representation of WaitPolicy
func (w WaitPolicy) String() string {
	switch w {
	case WaitNone:
		return "none"
	case WaitLoad:
		return "load"
	default:
		return "unknown"
	}
}

// Driver is the browser automation capability the harness drives.
// One Driver is one isolated browser context (own cookies and storage) with
// a single page. Implementations: chrome (go-rod), mock.
type Driver interface {
	// Navigate loads url and waits according to the policy.
	Navigate(ctx context.Context, url string, wait WaitPolicy) error

	// CurrentURL returns the URL of the current document.
	CurrentURL(ctx context.Context) (string, error)

	// Query returns every element matching the selector's CSS or XPath, in
	// document order. Text predicates are applied by the caller.
	Query(ctx context.Context, sel flow.Selector) ([]Element, error)

	// Evaluate runs a JS function expression in the page and decodes its
	// JSON-serializable return value into out (which may be nil).
	Evaluate(ctx context.Context, script string, out interface{}, args ...interface{}) error

	// Screenshot captures the viewport as PNG
	Screenshot(ctx context.Context) ([]byte, error)

	// Close releases the browser context.
	Close() error
}

// Element is a handle to one DOM node.
type Element interface {
	// Describe returns a short human-readable identity for logs.
	Describe() string

	// Box returns the element's bounding box in CSS pixels.
	Box(ctx context.Context) (Bounds, error)

	// Style returns the computed visibility-related style.
	Style(ctx context.Context) (ComputedStyle, error)

	// Text returns the visible label: innerText, else value, else aria-label.
	Text(ctx context.Context) (string, error)

	// Attribute returns the attribute value, or "" when absent.
	Attribute(ctx context.Context, name string) (string, error)

	ScrollIntoView(ctx context.Context) error
	Click(ctx context.Context) error

	// Clear selects all existing content and deletes it.
	Clear(ctx context.Context) error

	// Input inserts text at the caret.
	Input(ctx context.Context, text string) error

	// Select chooses the option whose value or text matches.
	Select(ctx context.Context, value string) error

	// Options returns the option labels of a select element, in order.
	Options(ctx context.Context) ([]string, error)

	// Dispatch fires bubbling DOM events with the given names.
	Dispatch(ctx context.Context, events ...string) error

	// PressEnter sends an Enter key press to the element.
	PressEnter(ctx context.Context) error
}

// Browser opens isolated sessions. Sessions never share cookies or storage.
type Browser interface {
	NewSession(ctx context.Context) (Driver, error)
	Close() error
}

// Bounds represents element position and size
type Bounds struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Empty reports whether the box has no area.
func (b Bounds) Empty() bool {
	return b.Width <= 0 || b.Height <= 0
}

// ComputedStyle holds the computed properties that decide visibility.
type ComputedStyle struct {
	Visibility string  `json:"visibility"`
	Display    string  `json:"display"`
	Opacity    float64 `json:"opacity"`
}

// Hidden reports whether the style makes the element non-interactable.
func (s ComputedStyle) Hidden() bool {
	return s.Visibility == "hidden" || s.Display == "none" || s.Opacity == 0
}

// VisibleStyle is the computed style of an ordinary rendered element.
func VisibleStyle() ComputedStyle {
	return ComputedStyle{Visibility: "visible", Display: "block", Opacity: 1}
}
