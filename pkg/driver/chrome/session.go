package chrome

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/devicelab-dev/shopcheck/pkg/core"
	"github.com/devicelab-dev/shopcheck/pkg/flow"
)

// Session is one incognito context with a single page.
type Session struct {
	browser *rod.Browser
	page    *rod.Page
	router  *rod.HijackRouter
}

// Navigate loads url and waits according to the policy.
func (s *Session) Navigate(ctx context.Context, url string, wait core.WaitPolicy) error {
	p := s.page.Context(ctx)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}

	if wait == core.WaitLoad {
		if err := p.WaitLoad(); err != nil {
			return fmt.Errorf("wait load %s: %w", url, err)
		}
	}
	return nil
}

// CurrentURL returns the URL of the current document.
func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	info, err := s.page.Context(ctx).Info()
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

// Query returns every element matching the selector's CSS or XPath.
func (s *Session) Query(ctx context.Context, sel flow.Selector) ([]core.Element, error) {
	p := s.page.Context(ctx)

	var (
		els rod.Elements
		err error
	)
	if sel.XPath != "" && sel.CSS == "" {
		els, err = p.ElementsX(sel.XPath)
	} else {
		css := sel.CSSOrDefault()
		if css == "" {
			return nil, fmt.Errorf("empty selector")
		}
		els, err = p.Elements(css)
	}
	if err != nil {
		return nil, err
	}

	out := make([]core.Element, len(els))
	for i, el := range els {
		out[i] = &element{el: el, desc: describe(sel, i)}
	}
	return out, nil
}

// Evaluate runs a JS function expression and decodes its result into out.
func (s *Session) Evaluate(ctx context.Context, script string, out interface{}, args ...interface{}) error {
	res, err := s.page.Context(ctx).Eval(script, args...)
	if err != nil {
		return err
	}
	return decodeRemote(res, out)
}

// Screenshot captures the viewport as PNG.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	return s.page.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
}

// Close releases the page and its incognito context.
func (s *Session) Close() error {
	if s.router != nil {
		_ = s.router.Stop()
	}
	var firstErr error
	if s.page != nil {
		firstErr = s.page.Close()
	}
	if s.browser != nil {
		if err := s.browser.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// decodeRemote unmarshals a by-value remote object into out.
func decodeRemote(res *proto.RuntimeRemoteObject, out interface{}) error {
	if out == nil || res == nil {
		return nil
	}
	raw := res.Value.JSON("", "")
	if raw == "" {
		raw = "null"
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("decode script result: %w", err)
	}
	return nil
}

func describe(sel flow.Selector, i int) string {
	name := sel.Label
	if name == "" {
		name = sel.Describe()
	}
	return fmt.Sprintf("%s[%d]", name, i)
}

var _ core.Driver = (*Session)(nil)
