package platform

import (
	"context"
	"fmt"
	"time"

	coreerrors "github.com/mediar-ai/terminator/internal/errors"
	"github.com/mediar-ai/terminator/internal/selector"
)

// UnsupportedBackend is a Backend whose every primitive returns a
// PlatformError naming the call. It exists so the rest of the core — tree
// budgets, best-title-match, the process cache, the CLI's wiring — has a
// concrete Backend to compile and run against on a host with no native
// accessibility bindings, per this package's own doc comment: real win32
// UIAutomation / macOS AX / AT-SPI bindings are leaf calls outside this
// repository's scope (spec.md §1 Non-goals, "OS-specific input simulation
// primitives … treated as leaf operations with defined effects").
type UnsupportedBackend struct{}

func (UnsupportedBackend) unsupported(op string) error {
	return coreerrors.New(coreerrors.KindPlatformError, fmt.Sprintf("%s: no native accessibility backend linked for this platform", op), nil)
}

func (b UnsupportedBackend) Root(context.Context) (Handle, error) { return Handle{}, b.unsupported("Root") }
func (b UnsupportedBackend) FocusedElement(context.Context) (Handle, error) {
	return Handle{}, b.unsupported("FocusedElement")
}
func (b UnsupportedBackend) Attributes(context.Context, Handle) (selector.Attrs, error) {
	return selector.Attrs{}, b.unsupported("Attributes")
}
func (b UnsupportedBackend) Children(context.Context, Handle, time.Duration) ([]Handle, error) {
	return nil, b.unsupported("Children")
}
func (b UnsupportedBackend) Parent(context.Context, Handle) (Handle, bool, error) {
	return Handle{}, false, b.unsupported("Parent")
}
func (b UnsupportedBackend) Patterns(context.Context, Handle) (Patterns, error) {
	return Patterns{}, b.unsupported("Patterns")
}
func (b UnsupportedBackend) ProcessID(context.Context, Handle) (int, error) {
	return 0, b.unsupported("ProcessID")
}

func (b UnsupportedBackend) Applications(context.Context) ([]Handle, error) {
	return nil, b.unsupported("Applications")
}
func (b UnsupportedBackend) WindowCandidates(context.Context, int) ([]WindowCandidate, error) {
	return nil, b.unsupported("WindowCandidates")
}
func (b UnsupportedBackend) OpenApplication(context.Context, string) (Handle, error) {
	return Handle{}, b.unsupported("OpenApplication")
}
func (b UnsupportedBackend) OpenURL(context.Context, string, string) (Handle, error) {
	return Handle{}, b.unsupported("OpenURL")
}
func (b UnsupportedBackend) RunCommand(context.Context, string, string) (CommandResult, error) {
	return CommandResult{}, b.unsupported("RunCommand")
}
func (b UnsupportedBackend) ProcessName(context.Context, int) (string, error) {
	return "", b.unsupported("ProcessName")
}

func (b UnsupportedBackend) Invoke(context.Context, Handle) error { return b.unsupported("Invoke") }
func (b UnsupportedBackend) ClickPoint(context.Context, float64, float64, string) error {
	return b.unsupported("ClickPoint")
}
func (b UnsupportedBackend) Focus(context.Context, Handle) error { return b.unsupported("Focus") }
func (b UnsupportedBackend) Toggle(context.Context, Handle) error { return b.unsupported("Toggle") }
func (b UnsupportedBackend) SetSelectionItem(context.Context, Handle, bool) error {
	return b.unsupported("SetSelectionItem")
}
func (b UnsupportedBackend) TypeTextKeyByKey(context.Context, Handle, string) error {
	return b.unsupported("TypeTextKeyByKey")
}
func (b UnsupportedBackend) PasteText(context.Context, Handle, string) error {
	return b.unsupported("PasteText")
}
func (b UnsupportedBackend) PressKey(context.Context, string) error {
	return b.unsupported("PressKey")
}
func (b UnsupportedBackend) GetValue(context.Context, Handle) (string, error) {
	return "", b.unsupported("GetValue")
}
func (b UnsupportedBackend) SetValue(context.Context, Handle, string) error {
	return b.unsupported("SetValue")
}
func (b UnsupportedBackend) RangeInfo(context.Context, Handle) (RangeInfo, error) {
	return RangeInfo{}, b.unsupported("RangeInfo")
}
func (b UnsupportedBackend) SetRangeValue(context.Context, Handle, float64) error {
	return b.unsupported("SetRangeValue")
}
func (b UnsupportedBackend) Expand(context.Context, Handle) error   { return b.unsupported("Expand") }
func (b UnsupportedBackend) Collapse(context.Context, Handle) error { return b.unsupported("Collapse") }
func (b UnsupportedBackend) Scroll(context.Context, Handle, string, float64) error {
	return b.unsupported("Scroll")
}
func (b UnsupportedBackend) Highlight(context.Context, Handle, string, time.Duration) (func(), error) {
	return nil, b.unsupported("Highlight")
}
func (b UnsupportedBackend) Capture(context.Context, Handle) (Screenshot, error) {
	return Screenshot{}, b.unsupported("Capture")
}
func (b UnsupportedBackend) Close(context.Context, Handle) error { return b.unsupported("Close") }
func (b UnsupportedBackend) ActivateWindow(context.Context, Handle) error {
	return b.unsupported("ActivateWindow")
}
func (b UnsupportedBackend) MinimizeWindow(context.Context, Handle) error {
	return b.unsupported("MinimizeWindow")
}
func (b UnsupportedBackend) MaximizeWindow(context.Context, Handle) error {
	return b.unsupported("MaximizeWindow")
}
func (b UnsupportedBackend) TerminateProcess(context.Context, int) error {
	return b.unsupported("TerminateProcess")
}

func (b UnsupportedBackend) ListMonitors(context.Context) ([]Monitor, error) {
	return nil, b.unsupported("ListMonitors")
}
func (b UnsupportedBackend) ActiveMonitor(context.Context) (Monitor, error) {
	return Monitor{}, b.unsupported("ActiveMonitor")
}
func (b UnsupportedBackend) CaptureMonitor(context.Context, string) (Screenshot, error) {
	return Screenshot{}, b.unsupported("CaptureMonitor")
}
func (b UnsupportedBackend) OCRScreenshot(context.Context, Screenshot) (*UINode, error) {
	return nil, b.unsupported("OCRScreenshot")
}
func (b UnsupportedBackend) OCRScreenshotWithBounds(context.Context, Screenshot, float64, float64, float64, float64) (*UINode, error) {
	return nil, b.unsupported("OCRScreenshotWithBounds")
}
func (b UnsupportedBackend) SetZoom(context.Context, Handle, int) error {
	return b.unsupported("SetZoom")
}

var _ Backend = UnsupportedBackend{}
