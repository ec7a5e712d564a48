// Package element implements the Element Facade of spec.md §4.D: the single
// operation surface every consumer sees, dispatching to whichever platform
// primitive actually applies and failing with an actionable
// UnsupportedOperation when none does.
package element

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	coreerrors "github.com/mediar-ai/terminator/internal/errors"
	"github.com/mediar-ai/terminator/internal/platform"
	"github.com/mediar-ai/terminator/internal/selector"
)

var tracer = otel.Tracer("terminator/element")

// Point is an absolute logical-coordinate screen point.
type Point struct{ X, Y float64 }

// ClickResult reports how a click-family operation was carried out.
type ClickResult struct {
	Method      string
	Coordinates *Point
	Details     map[string]any
}

// Facade wraps a live platform.Element with the operation surface of
// spec.md §4.D.
type Facade struct {
	el *platform.Element
}

// New wraps el as a Facade.
func New(el *platform.Element) *Facade { return &Facade{el: el} }

// Underlying exposes the wrapped platform element, e.g. for the Locator.
func (f *Facade) Underlying() *platform.Element { return f.el }

func (f *Facade) span(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "element."+name)
}

func boolAttr(attrs selector.Attrs, key string) bool {
	return attrs.Extra != nil && attrs.Extra[key] == "true"
}

// IsEnabled, IsVisible, IsFocused, IsKeyboardFocusable, IsToggled, IsSelected
// read boolean state from the element's attributes (spec.md §4.D); the
// underlying Backend is expected to populate these in Attrs().Extra when
// the platform exposes them.
func (f *Facade) IsEnabled() bool             { return boolAttr(f.el.Attrs(), "enabled") }
func (f *Facade) IsVisible() bool             { return f.el.Attrs().Visible }
func (f *Facade) IsFocused() bool             { return boolAttr(f.el.Attrs(), "focused") }
func (f *Facade) IsKeyboardFocusable() bool   { return boolAttr(f.el.Attrs(), "keyboard_focusable") }
func (f *Facade) IsToggled() bool             { return boolAttr(f.el.Attrs(), "toggled") }
func (f *Facade) IsSelected() bool            { return boolAttr(f.el.Attrs(), "selected") }
func (f *Facade) Bounds() (selector.Rect, bool) {
	attrs := f.el.Attrs()
	return attrs.Bounds, attrs.HasBounds
}
func (f *Facade) ProcessID(ctx context.Context) (int, error) { return f.el.ProcessID(ctx) }

// Children returns the element's immediate children as Facades.
func (f *Facade) Children(ctx context.Context) ([]*Facade, error) {
	children, err := f.el.ElementChildren(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*Facade, len(children))
	for i, c := range children {
		out[i] = New(c)
	}
	return out, nil
}

// Parent returns the element's parent, if any.
func (f *Facade) Parent(ctx context.Context) (*Facade, bool, error) {
	p, ok, err := f.el.Parent(ctx)
	if err != nil || !ok {
		return nil, ok, err
	}
	return New(p), true, nil
}

// Window walks ancestors to the nearest element whose role is Window.
func (f *Facade) Window(ctx context.Context) (*Facade, error) {
	return f.ancestorWithRole(ctx, "Window")
}

// Application walks ancestors to the top-most ancestor (the application
// root), since the Platform Adapter models applications as top-level
// windows with no further parent.
func (f *Facade) Application(ctx context.Context) (*Facade, error) {
	cur := f.el
	for {
		parent, ok, err := cur.Parent(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return New(cur), nil
		}
		cur = parent
	}
}

func (f *Facade) ancestorWithRole(ctx context.Context, role string) (*Facade, error) {
	cur := f.el
	for {
		if cur.Attrs().Role == role {
			return New(cur), nil
		}
		parent, ok, err := cur.Parent(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, coreerrors.ElementNotFound(fmt.Sprintf("no ancestor with role %q", role), nil)
		}
		cur = parent
	}
}

// Click, DoubleClick, RightClick all follow the same strategy (spec.md
// §4.D): try the invoke pattern, else click the centre of the element's
// bounds. No separate clickable-point lookup is made. The element is focused
// first when focusing is possible.
func (f *Facade) Click(ctx context.Context) (ClickResult, error)       { return f.click(ctx, "left") }
func (f *Facade) DoubleClick(ctx context.Context) (ClickResult, error) { return f.click(ctx, "double") }
func (f *Facade) RightClick(ctx context.Context) (ClickResult, error)  { return f.click(ctx, "right") }

func (f *Facade) click(ctx context.Context, button string) (ClickResult, error) {
	ctx, span := f.span(ctx, "click")
	defer span.End()

	backend := f.el.Backend()
	_ = backend.Focus(ctx, f.el.Handle())

	patterns, err := f.el.Patterns(ctx)
	if err == nil && patterns.Invoke {
		if err := backend.Invoke(ctx, f.el.Handle()); err == nil {
			return ClickResult{Method: "invoke"}, nil
		}
	}

	attrs := f.el.Attrs()
	if attrs.HasBounds {
		cx, cy := attrs.Bounds.CenterX(), attrs.Bounds.CenterY()
		if err := backend.ClickPoint(ctx, cx, cy, button); err != nil {
			return ClickResult{}, err
		}
		return ClickResult{Method: "point-click", Coordinates: &Point{X: cx, Y: cy}}, nil
	}

	return ClickResult{}, coreerrors.Unsupported("click", "element exposes neither an invoke pattern nor bounds")
}

// Invoke fails with UnsupportedOperation if the element lacks the invoke
// pattern.
func (f *Facade) Invoke(ctx context.Context) error {
	ctx, span := f.span(ctx, "invoke")
	defer span.End()

	patterns, err := f.el.Patterns(ctx)
	if err != nil {
		return err
	}
	if !patterns.Invoke {
		return coreerrors.Unsupported("invoke", "use click instead")
	}
	return f.el.Backend().Invoke(ctx, f.el.Handle())
}

// Toggle fails if the element is not toggleable.
func (f *Facade) Toggle(ctx context.Context) error {
	ctx, span := f.span(ctx, "toggle")
	defer span.End()

	patterns, err := f.el.Patterns(ctx)
	if err != nil {
		return err
	}
	if !patterns.Toggle {
		return coreerrors.Unsupported("toggle", "element does not support the toggle pattern")
	}
	return f.el.Backend().Toggle(ctx, f.el.Handle())
}

// SetToggled queries current state and toggles only when it differs,
// falling back to the selection pattern when toggle is unavailable.
func (f *Facade) SetToggled(ctx context.Context, state bool) error {
	ctx, span := f.span(ctx, "set_toggled")
	defer span.End()

	patterns, err := f.el.Patterns(ctx)
	if err != nil {
		return err
	}
	if patterns.Toggle {
		if f.IsToggled() == state {
			return nil
		}
		return f.el.Backend().Toggle(ctx, f.el.Handle())
	}
	if patterns.SelectionItem {
		return f.el.Backend().SetSelectionItem(ctx, f.el.Handle(), state)
	}
	return coreerrors.Unsupported("set_toggled", "element supports neither toggle nor selection-item patterns")
}

// TypeText types text into the element, optionally via clipboard paste,
// falling back to key-by-key entry with a small inter-key delay.
func (f *Facade) TypeText(ctx context.Context, text string, useClipboard bool) error {
	ctx, span := f.span(ctx, "type_text")
	defer span.End()

	backend := f.el.Backend()
	if useClipboard {
		if err := backend.PasteText(ctx, f.el.Handle(), text); err == nil {
			return nil
		}
	}
	return backend.TypeTextKeyByKey(ctx, f.el.Handle(), text)
}

// PressKey accepts the `{mod}+key` grammar of spec.md §4.D and forwards it
// verbatim to the platform's key-press primitive, which owns translating
// modifiers and named keys.
func (f *Facade) PressKey(ctx context.Context, key string) error {
	ctx, span := f.span(ctx, "press_key")
	defer span.End()
	return f.el.Backend().PressKey(ctx, key)
}

// GetText walks descendants up to maxDepth, joining each node's value with
// spaces.
func (f *Facade) GetText(ctx context.Context, maxDepth int) (string, error) {
	ctx, span := f.span(ctx, "get_text")
	defer span.End()

	var parts []string
	var walk func(el *platform.Element, depth int) error
	walk = func(el *platform.Element, depth int) error {
		if depth > maxDepth {
			return nil
		}
		if v, err := el.Backend().GetValue(ctx, el.Handle()); err == nil && v != "" {
			parts = append(parts, v)
		}
		children, err := el.ElementChildren(ctx)
		if err != nil {
			return nil // partial result, not fatal
		}
		for _, c := range children {
			if err := walk(c, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(f.el, 0); err != nil {
		return "", err
	}
	return strings.Join(parts, " "), nil
}

// SetValue requires the value pattern.
func (f *Facade) SetValue(ctx context.Context, v string) error {
	ctx, span := f.span(ctx, "set_value")
	defer span.End()

	patterns, err := f.el.Patterns(ctx)
	if err != nil {
		return err
	}
	if !patterns.Value {
		return coreerrors.Unsupported("set_value", "element does not support the value pattern")
	}
	return f.el.Backend().SetValue(ctx, f.el.Handle(), v)
}

// Scroll walks ancestors up to 7 levels for a scrollable container,
// falling back to focus + repeated page-up/page-down.
func (f *Facade) Scroll(ctx context.Context, direction string, amount float64) error {
	ctx, span := f.span(ctx, "scroll")
	defer span.End()

	cur := f.el
	for i := 0; i < 7; i++ {
		patterns, err := cur.Patterns(ctx)
		if err == nil && patterns.Scroll {
			return f.el.Backend().Scroll(ctx, cur.Handle(), direction, amount)
		}
		parent, ok, perr := cur.Parent(ctx)
		if perr != nil || !ok {
			break
		}
		cur = parent
	}

	if err := f.el.Backend().Focus(ctx, f.el.Handle()); err != nil {
		return err
	}
	key := "{page_down}"
	if direction == "up" {
		key = "{page_up}"
	}
	steps := int(math.Ceil(amount))
	for i := 0; i < steps; i++ {
		if err := f.el.Backend().PressKey(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// SelectOption expands the dropdown if needed, finds a descendant by name,
// and prefers the selection-item pattern over a click.
func (f *Facade) SelectOption(ctx context.Context, name string) error {
	ctx, span := f.span(ctx, "select_option")
	defer span.End()

	patterns, err := f.el.Patterns(ctx)
	if err != nil {
		return err
	}
	if patterns.ExpandCollapse {
		_ = f.el.Backend().Expand(ctx, f.el.Handle())
		defer f.el.Backend().Collapse(ctx, f.el.Handle())
	}

	option, err := f.findDescendantByName(ctx, name)
	if err != nil {
		return err
	}

	optionPatterns, _ := option.Patterns(ctx)
	if optionPatterns.SelectionItem {
		return f.el.Backend().SetSelectionItem(ctx, option.Handle(), true)
	}
	_, err = New(option).Click(ctx)
	return err
}

// ListOptions expands if needed and returns the names of children whose
// role is ListItem, MenuItem, or Option.
func (f *Facade) ListOptions(ctx context.Context) ([]string, error) {
	ctx, span := f.span(ctx, "list_options")
	defer span.End()

	patterns, err := f.el.Patterns(ctx)
	if err != nil {
		return nil, err
	}
	if patterns.ExpandCollapse {
		_ = f.el.Backend().Expand(ctx, f.el.Handle())
		defer f.el.Backend().Collapse(ctx, f.el.Handle())
	}

	children, err := f.el.ElementChildren(ctx)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, c := range children {
		switch c.Attrs().Role {
		case "ListItem", "MenuItem", "Option":
			names = append(names, c.Attrs().Name)
		}
	}
	return names, nil
}

// SetRangeValue accepts the value pattern within tolerance 1.0, otherwise
// keyboard-walks from whichever bound is closer, stepping by small_change.
func (f *Facade) SetRangeValue(ctx context.Context, v float64) error {
	ctx, span := f.span(ctx, "set_range_value")
	defer span.End()

	patterns, err := f.el.Patterns(ctx)
	if err != nil {
		return err
	}
	if !patterns.RangeValue {
		return coreerrors.Unsupported("set_range_value", "element does not support the range-value pattern")
	}

	if err := f.el.Backend().SetRangeValue(ctx, f.el.Handle(), v); err == nil {
		info, infoErr := f.el.Backend().RangeInfo(ctx, f.el.Handle())
		if infoErr == nil && math.Abs(info.Value-v) <= 1.0 {
			return nil
		}
	}

	info, err := f.el.Backend().RangeInfo(ctx, f.el.Handle())
	if err != nil {
		return err
	}
	step := info.SmallChange
	if step <= 0 {
		step = math.Max((info.Max-info.Min)/100, 1.0)
	}

	distToMin := math.Abs(v - info.Min)
	distToMax := math.Abs(info.Max - v)
	current := info.Min
	key := "{page_up}"
	if distToMax < distToMin {
		current = info.Max
		key = "{page_down}"
	}
	steps := int(math.Round(math.Abs(v-current) / step))
	if err := f.el.Backend().Focus(ctx, f.el.Handle()); err != nil {
		return err
	}
	for i := 0; i < steps; i++ {
		if err := f.el.Backend().PressKey(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// Highlight draws an outline over the element's bounds for duration
// (default 500ms), returning a revoke function per spec.md §5's
// reference-counted highlight handles.
func (f *Facade) Highlight(ctx context.Context, color string, duration time.Duration) (func(), error) {
	ctx, span := f.span(ctx, "highlight")
	defer span.End()

	if duration <= 0 {
		duration = 500 * time.Millisecond
	}
	return f.el.Backend().Highlight(ctx, f.el.Handle(), color, duration)
}

// Capture crops to the element's bounds on the monitor containing it.
func (f *Facade) Capture(ctx context.Context) (platform.Screenshot, error) {
	ctx, span := f.span(ctx, "capture")
	defer span.End()
	return f.el.Backend().Capture(ctx, f.el.Handle())
}

// Close prefers the window pattern, else Alt+F4, else terminates the
// owning process.
func (f *Facade) Close(ctx context.Context) error {
	ctx, span := f.span(ctx, "close")
	defer span.End()

	patterns, err := f.el.Patterns(ctx)
	if err == nil && patterns.Window {
		if err := f.el.Backend().Close(ctx, f.el.Handle()); err == nil {
			return nil
		}
	}
	if err := f.el.Backend().PressKey(ctx, "Alt+F4"); err == nil {
		return nil
	}
	pid, err := f.el.ProcessID(ctx)
	if err != nil {
		return err
	}
	return f.el.Backend().TerminateProcess(ctx, pid)
}

func (f *Facade) ActivateWindow(ctx context.Context) error {
	ctx, span := f.span(ctx, "activate_window")
	defer span.End()
	return f.el.Backend().ActivateWindow(ctx, f.el.Handle())
}

func (f *Facade) MinimizeWindow(ctx context.Context) error {
	ctx, span := f.span(ctx, "minimize_window")
	defer span.End()
	return f.el.Backend().MinimizeWindow(ctx, f.el.Handle())
}

func (f *Facade) MaximizeWindow(ctx context.Context) error {
	ctx, span := f.span(ctx, "maximize_window")
	defer span.End()
	return f.el.Backend().MaximizeWindow(ctx, f.el.Handle())
}

// urlFieldNames is the closed set of names url() searches for, per spec.md
// §4.D.
var urlFieldNames = map[string]bool{
	"address": true, "location": true, "url": true,
	"website": true, "search": true, "go to": true,
}

// URL is only meaningful for browser windows: locates a descendant edit
// control whose name matches the known address-bar names, falling back to
// any descendant edit whose value starts with "http".
func (f *Facade) URL(ctx context.Context) (string, error) {
	ctx, span := f.span(ctx, "url")
	defer span.End()

	var fallback string
	var walk func(el *platform.Element) (string, error)
	walk = func(el *platform.Element) (string, error) {
		attrs := el.Attrs()
		if attrs.Role == "Edit" {
			if urlFieldNames[strings.ToLower(attrs.Name)] {
				if v, err := el.Backend().GetValue(ctx, el.Handle()); err == nil {
					return v, nil
				}
			}
			if fallback == "" {
				if v, err := el.Backend().GetValue(ctx, el.Handle()); err == nil && strings.HasPrefix(v, "http") {
					fallback = v
				}
			}
		}
		children, err := el.ElementChildren(ctx)
		if err != nil {
			return "", nil
		}
		for _, c := range children {
			if v, err := walk(c); err == nil && v != "" {
				return v, nil
			}
		}
		return "", nil
	}

	if v, _ := walk(f.el); v != "" {
		return v, nil
	}
	if fallback != "" {
		return fallback, nil
	}
	return "", coreerrors.ElementNotFound("no address-bar-like descendant found", nil)
}

func (f *Facade) findDescendantByName(ctx context.Context, name string) (*platform.Element, error) {
	children, err := f.el.ElementChildren(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range children {
		if c.Attrs().Name == name {
			return c, nil
		}
		if found, err := (&Facade{el: c}).findDescendantByName(ctx, name); err == nil {
			return found, nil
		}
	}
	return nil, coreerrors.ElementNotFound(fmt.Sprintf("no descendant named %q", name), map[string]any{"name": name})
}
