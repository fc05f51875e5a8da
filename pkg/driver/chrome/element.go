package chrome

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"

	"github.com/devicelab-dev/shopcheck/pkg/core"
)

// Element scripts run with this bound to the node.
const (
	styleScript = `function() {
		const s = window.getComputedStyle(this);
		return {visibility: s.visibility, display: s.display, opacity: parseFloat(s.opacity)};
	}`

	labelScript = `function() {
		const t = (this.innerText || '').trim();
		if (t) return t;
		if (this.value) return String(this.value);
		return this.getAttribute('aria-label') || '';
	}`

	optionsScript = `function() {
		return Array.from(this.options || []).map(o => (o.label || o.text || '').trim());
	}`

	selectScript = `function(want) {
		const opts = Array.from(this.options || []);
		const o = opts.find(o => o.value === want) || opts.find(o => (o.label || o.text || '').trim() === want);
		if (!o) return false;
		this.value = o.value;
		this.dispatchEvent(new Event('input', {bubbles: true}));
		this.dispatchEvent(new Event('change', {bubbles: true}));
		return true;
	}`

	dispatchScript = `function(names) {
		for (const n of names) this.dispatchEvent(new Event(n, {bubbles: true}));
	}`
)

type element struct {
	el   *rod.Element
	desc string
}

func (e *element) Describe() string { return e.desc }

func (e *element) on(ctx context.Context) *rod.Element {
	return e.el.Context(ctx)
}

func (e *element) Box(ctx context.Context) (core.Bounds, error) {
	shape, err := e.on(ctx).Shape()
	if err != nil {
		return core.Bounds{}, err
	}
	box := shape.Box()
	if box == nil {
		return core.Bounds{}, nil
	}
	return core.Bounds{X: box.X, Y: box.Y, Width: box.Width, Height: box.Height}, nil
}

func (e *element) Style(ctx context.Context) (core.ComputedStyle, error) {
	var st core.ComputedStyle
	if err := e.eval(ctx, styleScript, &st); err != nil {
		return core.ComputedStyle{}, err
	}
	return st, nil
}

func (e *element) Text(ctx context.Context) (string, error) {
	var s string
	if err := e.eval(ctx, labelScript, &s); err != nil {
		return "", err
	}
	return s, nil
}

func (e *element) Attribute(ctx context.Context, name string) (string, error) {
	v, err := e.on(ctx).Attribute(name)
	if err != nil || v == nil {
		return "", err
	}
	return *v, nil
}

func (e *element) ScrollIntoView(ctx context.Context) error {
	return e.on(ctx).ScrollIntoView()
}

func (e *element) Click(ctx context.Context) error {
	return e.on(ctx).Click(proto.InputMouseButtonLeft, 1)
}

func (e *element) Clear(ctx context.Context) error {
	el := e.on(ctx)
	if err := el.SelectAllText(); err != nil {
		return err
	}
	return el.Type(input.Backspace)
}

func (e *element) Input(ctx context.Context, text string) error {
	return e.on(ctx).Input(text)
}

func (e *element) Select(ctx context.Context, value string) error {
	var ok bool
	if err := e.eval(ctx, selectScript, &ok, value); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no option %q in %s", value, e.desc)
	}
	return nil
}

func (e *element) Options(ctx context.Context) ([]string, error) {
	var opts []string
	if err := e.eval(ctx, optionsScript, &opts); err != nil {
		return nil, err
	}
	return opts, nil
}

func (e *element) Dispatch(ctx context.Context, events ...string) error {
	if len(events) == 0 {
		return nil
	}
	return e.eval(ctx, dispatchScript, nil, events)
}

func (e *element) PressEnter(ctx context.Context) error {
	return e.on(ctx).Type(input.Enter)
}

func (e *element) eval(ctx context.Context, script string, out interface{}, args ...interface{}) error {
	res, err := e.on(ctx).Eval(script, args...)
	if err != nil {
		return err
	}
	return decodeRemote(res, out)
}

var _ core.Element = (*element)(nil)
