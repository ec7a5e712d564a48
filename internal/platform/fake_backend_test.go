package platform

import (
	"context"
	"sync/atomic"
	"time"

	coreerrors "github.com/mediar-ai/terminator/internal/errors"
	"github.com/mediar-ai/terminator/internal/selector"
)

// fakeNode is one node of a fakeBackend's in-memory tree, used to exercise
// the Adapter/tree builder/best-title-match without any real OS bindings.
type fakeNode struct {
	handle   Handle
	attrs    selector.Attrs
	children []Handle
	parent   Handle
	hasParent bool
	pid      int
	patterns Patterns
	attrErr  error
	childErr error
}

// fakeBackend is a minimal, fully in-memory Backend used by platform's own
// tests (spec.md §4.A describes Backend as OS-specific leaf calls; this is
// the portable fake referenced in types.go's package doc).
type fakeBackend struct {
	nodes     map[uint64]*fakeNode
	nextID    uint64
	rootID    uint64
	apps      []Handle
	windows   map[int][]WindowCandidate
	monitors  []Monitor
	active    Monitor
	processes map[int]string
	pressKeys []string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		nodes:     map[uint64]*fakeNode{},
		windows:   map[int][]WindowCandidate{},
		processes: map[int]string{},
	}
}

func (f *fakeBackend) add(attrs selector.Attrs, pid int, parent Handle, hasParent bool) Handle {
	id := atomic.AddUint64(&f.nextID, 1)
	h := Handle{id: id}
	attrs.ObjectID = id
	f.nodes[id] = &fakeNode{handle: h, attrs: attrs, pid: pid, parent: parent, hasParent: hasParent}
	if hasParent {
		pn := f.nodes[parent.id]
		pn.children = append(pn.children, h)
	}
	return h
}

func (f *fakeBackend) Root(ctx context.Context) (Handle, error) { return Handle{id: f.rootID}, nil }

func (f *fakeBackend) FocusedElement(ctx context.Context) (Handle, error) {
	for _, n := range f.nodes {
		return n.handle, nil
	}
	return Handle{}, coreerrors.ElementNotFound("no focused element", nil)
}

func (f *fakeBackend) Attributes(ctx context.Context, h Handle) (selector.Attrs, error) {
	n, ok := f.nodes[h.id]
	if !ok {
		return selector.Attrs{}, coreerrors.ElementNotFound("stale handle", nil)
	}
	if n.attrErr != nil {
		return selector.Attrs{}, n.attrErr
	}
	return n.attrs, nil
}

func (f *fakeBackend) Children(ctx context.Context, h Handle, timeout time.Duration) ([]Handle, error) {
	n, ok := f.nodes[h.id]
	if !ok {
		return nil, coreerrors.ElementNotFound("stale handle", nil)
	}
	if n.childErr != nil {
		return nil, n.childErr
	}
	return n.children, nil
}

func (f *fakeBackend) Parent(ctx context.Context, h Handle) (Handle, bool, error) {
	n, ok := f.nodes[h.id]
	if !ok {
		return Handle{}, false, coreerrors.ElementNotFound("stale handle", nil)
	}
	return n.parent, n.hasParent, nil
}

func (f *fakeBackend) Patterns(ctx context.Context, h Handle) (Patterns, error) {
	n, ok := f.nodes[h.id]
	if !ok {
		return Patterns{}, coreerrors.ElementNotFound("stale handle", nil)
	}
	return n.patterns, nil
}

func (f *fakeBackend) ProcessID(ctx context.Context, h Handle) (int, error) {
	n, ok := f.nodes[h.id]
	if !ok {
		return 0, coreerrors.ElementNotFound("stale handle", nil)
	}
	return n.pid, nil
}

func (f *fakeBackend) Applications(ctx context.Context) ([]Handle, error) { return f.apps, nil }

func (f *fakeBackend) WindowCandidates(ctx context.Context, pid int) ([]WindowCandidate, error) {
	return f.windows[pid], nil
}

func (f *fakeBackend) OpenApplication(ctx context.Context, name string) (Handle, error) {
	return Handle{}, coreerrors.Unsupported("open_application", "fake backend has no launch support")
}

func (f *fakeBackend) OpenURL(ctx context.Context, url, browser string) (Handle, error) {
	return Handle{}, coreerrors.Unsupported("open_url", "fake backend has no launch support")
}

func (f *fakeBackend) RunCommand(ctx context.Context, shellCmd, shell string) (CommandResult, error) {
	return CommandResult{}, coreerrors.Unsupported("run_command", "fake backend cannot spawn processes")
}

func (f *fakeBackend) ProcessName(ctx context.Context, pid int) (string, error) {
	if name, ok := f.processes[pid]; ok {
		return name, nil
	}
	return "", coreerrors.ElementNotFound("no such process", nil)
}

func (f *fakeBackend) Invoke(ctx context.Context, h Handle) error { return nil }
func (f *fakeBackend) ClickPoint(ctx context.Context, x, y float64, button string) error {
	return nil
}
func (f *fakeBackend) Focus(ctx context.Context, h Handle) error { return nil }
func (f *fakeBackend) Toggle(ctx context.Context, h Handle) error { return nil }
func (f *fakeBackend) SetSelectionItem(ctx context.Context, h Handle, selected bool) error {
	return nil
}
func (f *fakeBackend) TypeTextKeyByKey(ctx context.Context, h Handle, text string) error { return nil }
func (f *fakeBackend) PasteText(ctx context.Context, h Handle, text string) error        { return nil }
func (f *fakeBackend) PressKey(ctx context.Context, key string) error {
	f.pressKeys = append(f.pressKeys, key)
	return nil
}
func (f *fakeBackend) GetValue(ctx context.Context, h Handle) (string, error)            { return "", nil }
func (f *fakeBackend) SetValue(ctx context.Context, h Handle, value string) error        { return nil }
func (f *fakeBackend) RangeInfo(ctx context.Context, h Handle) (RangeInfo, error)        { return RangeInfo{}, nil }
func (f *fakeBackend) SetRangeValue(ctx context.Context, h Handle, v float64) error      { return nil }
func (f *fakeBackend) Expand(ctx context.Context, h Handle) error                        { return nil }
func (f *fakeBackend) Collapse(ctx context.Context, h Handle) error                       { return nil }
func (f *fakeBackend) Scroll(ctx context.Context, h Handle, direction string, amount float64) error {
	return nil
}
func (f *fakeBackend) Highlight(ctx context.Context, h Handle, color string, duration time.Duration) (func(), error) {
	return func() {}, nil
}
func (f *fakeBackend) Capture(ctx context.Context, h Handle) (Screenshot, error) { return Screenshot{}, nil }
func (f *fakeBackend) Close(ctx context.Context, h Handle) error                 { return nil }
func (f *fakeBackend) ActivateWindow(ctx context.Context, h Handle) error        { return nil }
func (f *fakeBackend) MinimizeWindow(ctx context.Context, h Handle) error        { return nil }
func (f *fakeBackend) MaximizeWindow(ctx context.Context, h Handle) error        { return nil }
func (f *fakeBackend) TerminateProcess(ctx context.Context, pid int) error       { return nil }

func (f *fakeBackend) ListMonitors(ctx context.Context) ([]Monitor, error) { return f.monitors, nil }
func (f *fakeBackend) ActiveMonitor(ctx context.Context) (Monitor, error)  { return f.active, nil }
func (f *fakeBackend) CaptureMonitor(ctx context.Context, monitorID string) (Screenshot, error) {
	return Screenshot{}, nil
}
func (f *fakeBackend) OCRScreenshot(ctx context.Context, img Screenshot) (*UINode, error) {
	return &UINode{}, nil
}
func (f *fakeBackend) OCRScreenshotWithBounds(ctx context.Context, img Screenshot, winX, winY, dpiX, dpiY float64) (*UINode, error) {
	return &UINode{}, nil
}
func (f *fakeBackend) SetZoom(ctx context.Context, h Handle, percent int) error {
	return coreerrors.Unsupported("set_zoom", "fake backend always falls back to keyboard shortcuts")
}
