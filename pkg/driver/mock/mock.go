// Package mock provides an in-memory storefront implementing the browser
// capability, for testing without a real browser.
package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/devicelab-dev/shopcheck/pkg/core"
	"github.com/devicelab-dev/shopcheck/pkg/flow"
)

// Site is an in-memory storefront. Pages are keyed by absolute URL.
// Routes take precedence over Pages and are rebuilt on every load, so they
// can reflect cart state.
type Site struct {
	Pages  map[string]*Page
	Routes map[string]func(s *Site) *Page

	// Unreachable makes navigation to a URL fail with the given error.
	Unreachable map[string]error

	mu          sync.Mutex
	cart        int
	orders      int
	navigations []string
}

// Page is one document of the storefront.
type Page struct {
	Text     string     // document.body.innerText
	Elements []*Element // In document order

	// Eval answers scripts by exact source; EvalFunc is the fallback.
	Eval     map[string]interface{}
	EvalFunc func(script string, args []interface{}) (interface{}, error)

	// LoadDelay delays Navigate; it honors context cancellation.
	LoadDelay time.Duration

	// Broken pages have no head/body and fail script evaluation.
	Broken bool
}

// NewSite creates an empty site.
func NewSite() *Site {
	return &Site{
		Pages:       make(map[string]*Page),
		Routes:      make(map[string]func(s *Site) *Page),
		Unreachable: make(map[string]error),
	}
}

// AddToCart adds n units to the site's server-side cart.
func (s *Site) AddToCart(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart += n
}

// CartCount returns the units in the cart.
func (s *Site) CartCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart
}

// PlaceOrder records an order and empties the cart.
func (s *Site) PlaceOrder() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders++
	s.cart = 0
	return s.orders
}

// Orders returns the number of orders placed.
func (s *Site) Orders() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orders
}

// Navigations returns every URL loaded, in order.
func (s *Site) Navigations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.navigations...)
}

func (s *Site) load(url string) (*Page, error) {
	s.mu.Lock()
	err := s.Unreachable[url]
	route := s.Routes[url]
	page := s.Pages[url]
	if err == nil {
		s.navigations = append(s.navigations, url)
	}
	s.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if route != nil {
		return route(s), nil
	}
	if page == nil {
		// Unknown URLs render an empty document, like a 404 page.
		return &Page{}, nil
	}
	return page, nil
}

// Driver is a session on a Site and implements core.Driver.
type Driver struct {
	site *Site
	url  string
	page *Page

	closed bool
}

// New creates a session on site with a blank page loaded.
func New(site *Site) *Driver {
	return &Driver{site: site, url: "about:blank", page: &Page{}}
}

// Site returns the site the session is browsing.
func (d *Driver) Site() *Site {
	return d.site
}

// Navigate loads url.
func (d *Driver) Navigate(ctx context.Context, url string, _ core.WaitPolicy) error {
	if d.closed {
		return fmt.Errorf("mock: session closed")
	}
	page, err := d.site.load(url)
	if err != nil {
		return err
	}
	if page.LoadDelay > 0 {
		select {
		case <-time.After(page.LoadDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	d.url = url
	d.page = page
	return nil
}

// CurrentURL returns the URL of the loaded page.
func (d *Driver) CurrentURL(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return d.url, nil
}

// Query returns the page elements answering to the selector's CSS parts or XPath.
func (d *Driver) Query(ctx context.Context, sel flow.Selector) ([]core.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []core.Element
	if css := sel.CSSOrDefault(); css != "" {
		parts := strings.Split(css, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if !d.page.Broken && containsAny(parts, "html", "head", "body") {
			out = append(out, &handle{el: &Element{ID: "document", Matches: parts, Box: core.Bounds{Width: 1, Height: 1}}, d: d})
		}
		for _, el := range d.page.Elements {
			if containsAny(el.Matches, parts...) {
				out = append(out, &handle{el: el, d: d})
			}
		}
		return out, nil
	}

	for _, el := range d.page.Elements {
		if containsAny(el.XPaths, sel.XPath) {
			out = append(out, &handle{el: el, d: d})
		}
	}
	return out, nil
}

// Evaluate answers well-known scripts from the page model, then Page.Eval,
// then Page.EvalFunc. The result is decoded into out through JSON.
func (d *Driver) Evaluate(ctx context.Context, script string, out interface{}, args ...interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d.page.Broken {
		return fmt.Errorf("mock: evaluation failed: execution context was destroyed")
	}

	var value interface{}
	switch {
	case d.page.Eval != nil && d.page.Eval[script] != nil:
		value = d.page.Eval[script]
	case script == core.PageTextScript:
		value = d.page.Text
	case script == core.ReadyStateScript:
		value = "complete"
	case script == core.ProbeScript:
		value = true
	case d.page.EvalFunc != nil:
		v, err := d.page.EvalFunc(script, args)
		if err != nil {
			return err
		}
		value = v
	default:
		return fmt.Errorf("mock: no result for script %q", script)
	}

	if out == nil {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

// Screenshot returns a placeholder PNG header.
func (d *Driver) Screenshot(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return []byte("\x89PNG\r\n\x1a\n"), nil
}

// Close ends the session.
func (d *Driver) Close() error {
	d.closed = true
	return nil
}

// Browser opens sessions on sites built by a factory, one fresh site per
// session, so sessions share no cart state.
type Browser struct {
	NewSite func() *Site

	// SessionErr makes NewSession fail.
	SessionErr error

	mu       sync.Mutex
	sessions []*Driver
	closed   bool
}

// NewSession opens a session on a new site.
func (b *Browser) NewSession(ctx context.Context) (core.Driver, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if b.SessionErr != nil {
		return nil, b.SessionErr
	}
	d := New(b.NewSite())

	b.mu.Lock()
	b.sessions = append(b.sessions, d)
	b.mu.Unlock()
	return d, nil
}

// Sessions returns every session opened so far.
func (b *Browser) Sessions() []*Driver {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*Driver(nil), b.sessions...)
}

// Close closes the browser.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func containsAny(have []string, want ...string) bool {
	for _, h := range have {
		for _, w := range want {
			if h == w && w != "" {
				return true
			}
		}
	}
	return false
}
