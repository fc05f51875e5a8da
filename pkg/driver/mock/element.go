package mock

import (
	"context"
	"fmt"

	"github.com/devicelab-dev/shopcheck/pkg/core"
)

// Element is one node of a mock page.
type Element struct {
	ID      string
	Matches []string // CSS selectors the element answers to
	XPaths  []string
	Label   string            // Visible text
	Attrs   map[string]string // href, name, ...
	Box     core.Bounds
	Style   *core.ComputedStyle // nil renders as visible

	// Moving is the number of Box reads that still return a shifted box;
	// negative never settles.
	Moving int

	OnClick  func(d *Driver) error
	OnEnter  func(d *Driver) error
	ClickErr error
	InputErr error
	Options  []string // Select options

	// Recorded interaction state
	Value    string
	Selected string
	Events   []string
	Clicks   int
}

// Visible returns a 100x30 visible element answering to the given selectors.
func Visible(id, label string, matches ...string) *Element {
	return &Element{
		ID:      id,
		Label:   label,
		Matches: matches,
		Box:     core.Bounds{X: 10, Y: 10, Width: 100, Height: 30},
	}
}

// Link returns a visible anchor with an href.
func Link(id, label, href string, matches ...string) *Element {
	el := Visible(id, label, append([]string{"a"}, matches...)...)
	el.Attrs = map[string]string{"href": href}
	return el
}

// Hidden returns an element with a zero box.
func Hidden(id, label string, matches ...string) *Element {
	return &Element{ID: id, Label: label, Matches: matches}
}

type handle struct {
	el *Element
	d  *Driver
}

func (h *handle) lock() func() {
	h.d.site.mu.Lock()
	return h.d.site.mu.Unlock
}

func (h *handle) Describe() string {
	return "mock#" + h.el.ID
}

func (h *handle) Box(ctx context.Context) (core.Bounds, error) {
	if err := ctx.Err(); err != nil {
		return core.Bounds{}, err
	}
	defer h.lock()()

	b := h.el.Box
	switch {
	case h.el.Moving < 0:
		h.el.Box.Y++
	case h.el.Moving > 0:
		h.el.Moving--
		h.el.Box.Y++
	}
	return b, nil
}

func (h *handle) Style(ctx context.Context) (core.ComputedStyle, error) {
	if err := ctx.Err(); err != nil {
		return core.ComputedStyle{}, err
	}
	if h.el.Style == nil {
		return core.VisibleStyle(), nil
	}
	return *h.el.Style, nil
}

func (h *handle) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return h.el.Label, nil
}

func (h *handle) Attribute(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return h.el.Attrs[name], nil
}

func (h *handle) ScrollIntoView(ctx context.Context) error {
	return ctx.Err()
}

func (h *handle) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	unlock := h.lock()
	h.el.Clicks++
	h.el.Events = append(h.el.Events, "click")
	clickErr, onClick := h.el.ClickErr, h.el.OnClick
	unlock()

	if clickErr != nil {
		return clickErr
	}
	if onClick != nil {
		return onClick(h.d)
	}
	return nil
}

func (h *handle) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer h.lock()()
	h.el.Value = ""
	return nil
}

func (h *handle) Input(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer h.lock()()
	if h.el.InputErr != nil {
		return h.el.InputErr
	}
	h.el.Value += text
	return nil
}

func (h *handle) Select(ctx context.Context, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer h.lock()()
	for _, opt := range h.el.Options {
		if opt == value {
			h.el.Selected = value
			h.el.Events = append(h.el.Events, "change")
			return nil
		}
	}
	return fmt.Errorf("mock: no option %q in %s", value, h.el.ID)
}

func (h *handle) Options(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]string(nil), h.el.Options...), nil
}

func (h *handle) Dispatch(ctx context.Context, events ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer h.lock()()
	h.el.Events = append(h.el.Events, events...)
	return nil
}

func (h *handle) PressEnter(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	unlock := h.lock()
	h.el.Events = append(h.el.Events, "enter")
	onEnter := h.el.OnEnter
	unlock()

	if onEnter != nil {
		return onEnter(h.d)
	}
	return nil
}
