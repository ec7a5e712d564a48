package platform

import (
	"context"
	"time"

	coreerrors "github.com/mediar-ai/terminator/internal/errors"
	"github.com/mediar-ai/terminator/internal/selector"
)

// Element is the opaque handle to a live UI node described in spec.md §3.
// It implements selector.Node so the Selector Engine can traverse/match it
// without this package's internals leaking into the selector package.
type Element struct {
	handle  Handle
	backend Backend
	timeout time.Duration // per-operation child-enumeration budget
}

// NewElement wraps h for backend.
func NewElement(backend Backend, h Handle) *Element {
	return &Element{handle: h, backend: backend, timeout: 50 * time.Millisecond}
}

// Handle returns the underlying opaque handle.
func (e *Element) Handle() Handle { return e.handle }

// Attrs implements selector.Node.
func (e *Element) Attrs() selector.Attrs {
	a, err := e.backend.Attributes(context.Background(), e.handle)
	if err != nil {
		return selector.Attrs{}
	}
	return a
}

// Children implements selector.Node.
func (e *Element) Children(ctx context.Context) ([]selector.Node, error) {
	handles, err := e.backend.Children(ctx, e.handle, e.timeout)
	if err != nil {
		return nil, err
	}
	out := make([]selector.Node, len(handles))
	for i, h := range handles {
		out[i] = &Element{handle: h, backend: e.backend, timeout: e.timeout}
	}
	return out, nil
}

// ElementChildren returns typed *Element children (for callers that need
// more than the selector.Node view, e.g. the Element Facade).
func (e *Element) ElementChildren(ctx context.Context) ([]*Element, error) {
	handles, err := e.backend.Children(ctx, e.handle, e.timeout)
	if err != nil {
		return nil, err
	}
	out := make([]*Element, len(handles))
	for i, h := range handles {
		out[i] = &Element{handle: h, backend: e.backend, timeout: e.timeout}
	}
	return out, nil
}

// Parent returns the element's parent as a query, never an owning
// back-pointer (spec.md §9 "parent() is a query, not an owning
// back-pointer" — avoids a retain cycle between parent and child Elements).
func (e *Element) Parent(ctx context.Context) (*Element, bool, error) {
	h, ok, err := e.backend.Parent(ctx, e.handle)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &Element{handle: h, backend: e.backend, timeout: e.timeout}, true, nil
}

// ProcessID returns the owning process id.
func (e *Element) ProcessID(ctx context.Context) (int, error) {
	return e.backend.ProcessID(ctx, e.handle)
}

// Patterns exposes which interaction patterns this element supports.
func (e *Element) Patterns(ctx context.Context) (Patterns, error) {
	return e.backend.Patterns(ctx, e.handle)
}

// Backend exposes the owning backend for facade operations.
func (e *Element) Backend() Backend { return e.backend }

// EnsureLive re-reads attributes and fails with ElementNotFound if the
// underlying OS element has been destroyed (spec.md §3 Element lifecycle).
func (e *Element) EnsureLive(ctx context.Context) error {
	if _, err := e.backend.Attributes(ctx, e.handle); err != nil {
		return coreerrors.ElementNotFound("element reference is no longer valid", map[string]any{"object_id": e.Attrs().ObjectID})
	}
	return nil
}
