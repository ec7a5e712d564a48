package element

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreerrors "github.com/mediar-ai/terminator/internal/errors"
	"github.com/mediar-ai/terminator/internal/platform"
	"github.com/mediar-ai/terminator/internal/selector"
)

// fakeBackend is a hand-written double over platform.Backend, keyed by
// Handle id, exercising the Element Facade's dispatch logic without a real
// OS binding.
type fakeBackend struct {
	attrs       map[uint64]selector.Attrs
	children    map[uint64][]platform.Handle
	parents     map[uint64]platform.Handle
	hasParent   map[uint64]bool
	patterns    map[uint64]platform.Patterns
	values      map[uint64]string
	rangeInfo   map[uint64]platform.RangeInfo
	pid         int

	invokeCalls      []uint64
	clickPointCalls  []struct{ x, y float64; button string }
	toggleCalls      []uint64
	pressKeyCalls    []string
	closeCalls       []uint64
	terminateCalls   []int
	setSelectionCalls []struct {
		id       uint64
		selected bool
	}
	setRangeCalls []struct {
		id uint64
		v  float64
	}
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		attrs:     map[uint64]selector.Attrs{},
		children:  map[uint64][]platform.Handle{},
		parents:   map[uint64]platform.Handle{},
		hasParent: map[uint64]bool{},
		patterns:  map[uint64]platform.Patterns{},
		values:    map[uint64]string{},
		rangeInfo: map[uint64]platform.RangeInfo{},
	}
}

func (f *fakeBackend) Root(ctx context.Context) (platform.Handle, error) { return platform.Handle{}, nil }
func (f *fakeBackend) FocusedElement(ctx context.Context) (platform.Handle, error) {
	return platform.Handle{}, nil
}
func (f *fakeBackend) Attributes(ctx context.Context, h platform.Handle) (selector.Attrs, error) {
	return f.attrs[idOf(h)], nil
}
func (f *fakeBackend) Children(ctx context.Context, h platform.Handle, timeout time.Duration) ([]platform.Handle, error) {
	return f.children[idOf(h)], nil
}
func (f *fakeBackend) Parent(ctx context.Context, h platform.Handle) (platform.Handle, bool, error) {
	return f.parents[idOf(h)], f.hasParent[idOf(h)], nil
}
func (f *fakeBackend) Patterns(ctx context.Context, h platform.Handle) (platform.Patterns, error) {
	return f.patterns[idOf(h)], nil
}
func (f *fakeBackend) ProcessID(ctx context.Context, h platform.Handle) (int, error) { return f.pid, nil }
func (f *fakeBackend) Applications(ctx context.Context) ([]platform.Handle, error)   { return nil, nil }
func (f *fakeBackend) WindowCandidates(ctx context.Context, pid int) ([]platform.WindowCandidate, error) {
	return nil, nil
}
func (f *fakeBackend) OpenApplication(ctx context.Context, name string) (platform.Handle, error) {
	return platform.Handle{}, coreerrors.Unsupported("open_application", "")
}
func (f *fakeBackend) OpenURL(ctx context.Context, url, browser string) (platform.Handle, error) {
	return platform.Handle{}, coreerrors.Unsupported("open_url", "")
}
func (f *fakeBackend) RunCommand(ctx context.Context, shellCmd, shell string) (platform.CommandResult, error) {
	return platform.CommandResult{}, nil
}
func (f *fakeBackend) ProcessName(ctx context.Context, pid int) (string, error) { return "", nil }

func (f *fakeBackend) Invoke(ctx context.Context, h platform.Handle) error {
	f.invokeCalls = append(f.invokeCalls, idOf(h))
	return nil
}
func (f *fakeBackend) ClickPoint(ctx context.Context, x, y float64, button string) error {
	f.clickPointCalls = append(f.clickPointCalls, struct {
		x, y   float64
		button string
	}{x, y, button})
	return nil
}
func (f *fakeBackend) Focus(ctx context.Context, h platform.Handle) error { return nil }
func (f *fakeBackend) Toggle(ctx context.Context, h platform.Handle) error {
	f.toggleCalls = append(f.toggleCalls, idOf(h))
	return nil
}
func (f *fakeBackend) SetSelectionItem(ctx context.Context, h platform.Handle, selected bool) error {
	f.setSelectionCalls = append(f.setSelectionCalls, struct {
		id       uint64
		selected bool
	}{idOf(h), selected})
	return nil
}
func (f *fakeBackend) TypeTextKeyByKey(ctx context.Context, h platform.Handle, text string) error {
	f.values[idOf(h)] = text
	return nil
}
func (f *fakeBackend) PasteText(ctx context.Context, h platform.Handle, text string) error {
	return coreerrors.Platform("clipboard unavailable", nil, nil)
}
func (f *fakeBackend) PressKey(ctx context.Context, key string) error {
	f.pressKeyCalls = append(f.pressKeyCalls, key)
	return nil
}
func (f *fakeBackend) GetValue(ctx context.Context, h platform.Handle) (string, error) {
	return f.values[idOf(h)], nil
}
func (f *fakeBackend) SetValue(ctx context.Context, h platform.Handle, value string) error {
	f.values[idOf(h)] = value
	return nil
}
func (f *fakeBackend) RangeInfo(ctx context.Context, h platform.Handle) (platform.RangeInfo, error) {
	return f.rangeInfo[idOf(h)], nil
}
func (f *fakeBackend) SetRangeValue(ctx context.Context, h platform.Handle, v float64) error {
	f.setRangeCalls = append(f.setRangeCalls, struct {
		id uint64
		v  float64
	}{idOf(h), v})
	return coreerrors.Platform("range-value pattern rejected the write", nil, nil)
}
func (f *fakeBackend) Expand(ctx context.Context, h platform.Handle) error   { return nil }
func (f *fakeBackend) Collapse(ctx context.Context, h platform.Handle) error { return nil }
func (f *fakeBackend) Scroll(ctx context.Context, h platform.Handle, direction string, amount float64) error {
	return nil
}
func (f *fakeBackend) Highlight(ctx context.Context, h platform.Handle, color string, duration time.Duration) (func(), error) {
	return func() {}, nil
}
func (f *fakeBackend) Capture(ctx context.Context, h platform.Handle) (platform.Screenshot, error) {
	return platform.Screenshot{}, nil
}
func (f *fakeBackend) Close(ctx context.Context, h platform.Handle) error {
	f.closeCalls = append(f.closeCalls, idOf(h))
	return coreerrors.Unsupported("close", "no window pattern")
}
func (f *fakeBackend) ActivateWindow(ctx context.Context, h platform.Handle) error { return nil }
func (f *fakeBackend) MinimizeWindow(ctx context.Context, h platform.Handle) error { return nil }
func (f *fakeBackend) MaximizeWindow(ctx context.Context, h platform.Handle) error { return nil }
func (f *fakeBackend) TerminateProcess(ctx context.Context, pid int) error {
	f.terminateCalls = append(f.terminateCalls, pid)
	return nil
}
func (f *fakeBackend) ListMonitors(ctx context.Context) ([]platform.Monitor, error) { return nil, nil }
func (f *fakeBackend) ActiveMonitor(ctx context.Context) (platform.Monitor, error)  { return platform.Monitor{}, nil }
func (f *fakeBackend) CaptureMonitor(ctx context.Context, monitorID string) (platform.Screenshot, error) {
	return platform.Screenshot{}, nil
}
func (f *fakeBackend) OCRScreenshot(ctx context.Context, img platform.Screenshot) (*platform.UINode, error) {
	return &platform.UINode{}, nil
}
func (f *fakeBackend) OCRScreenshotWithBounds(ctx context.Context, img platform.Screenshot, winX, winY, dpiX, dpiY float64) (*platform.UINode, error) {
	return &platform.UINode{}, nil
}
func (f *fakeBackend) SetZoom(ctx context.Context, h platform.Handle, percent int) error { return nil }

// idOf recovers the id a Handle was minted with via NewHandle, by looking
// it up in the handleIDs map that register fills in for every handle it
// constructs.
func idOf(h platform.Handle) uint64 {
	return handleID(h)
}

var handleIDs = map[platform.Handle]uint64{}

func handleID(h platform.Handle) uint64 { return handleIDs[h] }

func (f *fakeBackend) register(id uint64, attrs selector.Attrs, patterns platform.Patterns) platform.Handle {
	h := platform.NewHandle(id)
	handleIDs[h] = id
	attrs.ObjectID = id
	f.attrs[id] = attrs
	f.patterns[id] = patterns
	return h
}

func newTestElement(t *testing.T, backend *fakeBackend, id uint64, attrs selector.Attrs, patterns platform.Patterns) *platform.Element {
	t.Helper()
	h := backend.register(id, attrs, patterns)
	return platform.NewElement(backend, h)
}

func TestClickPrefersInvokePattern(t *testing.T) {
	backend := newFakeBackend()
	el := newTestElement(t, backend, 1, selector.Attrs{Role: "Button", Name: "OK"}, platform.Patterns{Invoke: true})

	result, err := New(el).Click(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "invoke", result.Method)
	assert.Len(t, backend.invokeCalls, 1)
}

func TestClickFallsBackToPointClick(t *testing.T) {
	backend := newFakeBackend()
	el := newTestElement(t, backend, 2, selector.Attrs{
		Role: "Pane", Name: "Card", HasBounds: true, Bounds: selector.Rect{X: 10, Y: 10, W: 20, H: 10},
	}, platform.Patterns{})

	result, err := New(el).Click(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "point-click", result.Method)
	require.Len(t, backend.clickPointCalls, 1)
	assert.Equal(t, 20.0, backend.clickPointCalls[0].x)
}

func TestClickUnsupportedWithoutInvokeOrBounds(t *testing.T) {
	backend := newFakeBackend()
	el := newTestElement(t, backend, 3, selector.Attrs{Role: "Pane"}, platform.Patterns{})

	_, err := New(el).Click(context.Background())
	require.Error(t, err)
	assert.Equal(t, coreerrors.KindUnsupportedOperation, coreerrors.KindOf(err))
}

func TestInvokeFailsWithGuidanceWhenUnsupported(t *testing.T) {
	backend := newFakeBackend()
	el := newTestElement(t, backend, 4, selector.Attrs{Role: "Label"}, platform.Patterns{})

	err := New(el).Invoke(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "click instead")
}

func TestSetToggledOnlyTogglesWhenStateDiffers(t *testing.T) {
	backend := newFakeBackend()
	el := newTestElement(t, backend, 5, selector.Attrs{Role: "CheckBox", Extra: map[string]string{"toggled": "true"}}, platform.Patterns{Toggle: true})

	require.NoError(t, New(el).SetToggled(context.Background(), true))
	assert.Empty(t, backend.toggleCalls)

	require.NoError(t, New(el).SetToggled(context.Background(), false))
	assert.Len(t, backend.toggleCalls, 1)
}

func TestTypeTextFallsBackToKeyByKeyOnClipboardFailure(t *testing.T) {
	backend := newFakeBackend()
	el := newTestElement(t, backend, 6, selector.Attrs{Role: "Edit"}, platform.Patterns{Value: true})

	err := New(el).TypeText(context.Background(), "hello", true)
	require.NoError(t, err)
	assert.Equal(t, "hello", backend.values[6])
}

func TestListOptionsFiltersByRole(t *testing.T) {
	backend := newFakeBackend()
	parent := newTestElement(t, backend, 7, selector.Attrs{Role: "ComboBox"}, platform.Patterns{ExpandCollapse: true})
	item1 := backend.register(8, selector.Attrs{Role: "ListItem", Name: "Red"}, platform.Patterns{})
	item2 := backend.register(9, selector.Attrs{Role: "ListItem", Name: "Blue"}, platform.Patterns{})
	label := backend.register(10, selector.Attrs{Role: "Label", Name: "Pick a color"}, platform.Patterns{})
	backend.children[7] = []platform.Handle{item1, item2, label}

	names, err := New(parent).ListOptions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Red", "Blue"}, names)
}

func TestSetRangeValueKeyboardWalksFromClosestBound(t *testing.T) {
	backend := newFakeBackend()
	el := newTestElement(t, backend, 11, selector.Attrs{Role: "Slider"}, platform.Patterns{RangeValue: true})
	backend.rangeInfo[11] = platform.RangeInfo{Min: 0, Max: 100, SmallChange: 10, Value: 0}

	err := New(el).SetRangeValue(context.Background(), 90)
	require.NoError(t, err)
	// distance to max(100) is 10, to min(0) is 90 -> walks down from max by 1 step of 10
	assert.Equal(t, 1, len(backend.pressKeyCalls))
	assert.Equal(t, "{page_down}", backend.pressKeyCalls[0])
}

func TestCloseFallsBackToAltF4ThenTerminate(t *testing.T) {
	backend := newFakeBackend()
	backend.pid = 4242
	el := newTestElement(t, backend, 12, selector.Attrs{Role: "Window"}, platform.Patterns{Window: true})

	err := New(el).Close(context.Background())
	require.NoError(t, err)
	assert.Len(t, backend.closeCalls, 1)
	assert.Contains(t, backend.pressKeyCalls, "Alt+F4")
	assert.Empty(t, backend.terminateCalls)
}

func TestURLFindsAddressBarByName(t *testing.T) {
	backend := newFakeBackend()
	window := newTestElement(t, backend, 13, selector.Attrs{Role: "Window", Name: "Browser"}, platform.Patterns{})
	addressBar := backend.register(14, selector.Attrs{Role: "Edit", Name: "Address"}, platform.Patterns{})
	backend.children[13] = []platform.Handle{addressBar}
	backend.values[14] = "https://example.com"

	url, err := New(window).URL(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", url)
}

func TestURLNoAddressBarIsElementNotFound(t *testing.T) {
	backend := newFakeBackend()
	window := newTestElement(t, backend, 15, selector.Attrs{Role: "Window"}, platform.Patterns{})

	_, err := New(window).URL(context.Background())
	require.Error(t, err)
	assert.Equal(t, coreerrors.KindElementNotFound, coreerrors.KindOf(err))
}
