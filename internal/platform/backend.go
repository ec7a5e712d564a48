package platform

import (
	"context"
	"time"

	"github.com/mediar-ai/terminator/internal/selector"
)

// Patterns reports which UI-Automation-style interaction patterns an
// element supports, used by the Element Facade (spec.md §4.D) to choose a
// strategy or fail with UnsupportedOperation.
type Patterns struct {
	Invoke     bool
	Toggle     bool
	Value      bool
	RangeValue bool
	Selection  bool
	SelectionItem bool
	ExpandCollapse bool
	Scroll     bool
	Window     bool
	Text       bool
}

// RangeInfo describes a range-value control's bounds (spec.md §4.D
// set_range_value).
type RangeInfo struct {
	Min, Max, SmallChange, Value float64
}

// Backend is the single trait spec.md §4.A asks the Platform Adapter to
// expose: list apps, find elements, snapshot tree, synthesize input. Methods
// are grouped by concern; every method may return a *coreerrors.CoreError of
// kind PlatformError for a native failure, or ElementNotFound if handle is
// stale.
type Backend interface {
	// Tree / identity
	Root(ctx context.Context) (Handle, error)
	FocusedElement(ctx context.Context) (Handle, error)
	Attributes(ctx context.Context, h Handle) (selector.Attrs, error)
	Children(ctx context.Context, h Handle, timeout time.Duration) ([]Handle, error)
	Parent(ctx context.Context, h Handle) (Handle, bool, error)
	Patterns(ctx context.Context, h Handle) (Patterns, error)
	ProcessID(ctx context.Context, h Handle) (int, error)

	// Application / window discovery
	Applications(ctx context.Context) ([]Handle, error)
	WindowCandidates(ctx context.Context, pid int) ([]WindowCandidate, error)
	OpenApplication(ctx context.Context, name string) (Handle, error)
	OpenURL(ctx context.Context, url, browser string) (Handle, error)
	RunCommand(ctx context.Context, shellCmd, shell string) (CommandResult, error)
	ProcessName(ctx context.Context, pid int) (string, error)

	// Input synthesis / element actions
	Invoke(ctx context.Context, h Handle) error
	ClickPoint(ctx context.Context, x, y float64, button string) error
	Focus(ctx context.Context, h Handle) error
	Toggle(ctx context.Context, h Handle) error
	SetSelectionItem(ctx context.Context, h Handle, selected bool) error
	TypeTextKeyByKey(ctx context.Context, h Handle, text string) error
	PasteText(ctx context.Context, h Handle, text string) error
	PressKey(ctx context.Context, key string) error
	GetValue(ctx context.Context, h Handle) (string, error)
	SetValue(ctx context.Context, h Handle, value string) error
	RangeInfo(ctx context.Context, h Handle) (RangeInfo, error)
	SetRangeValue(ctx context.Context, h Handle, v float64) error
	Expand(ctx context.Context, h Handle) error
	Collapse(ctx context.Context, h Handle) error
	Scroll(ctx context.Context, h Handle, direction string, amount float64) error
	Highlight(ctx context.Context, h Handle, color string, duration time.Duration) (func(), error)
	Capture(ctx context.Context, h Handle) (Screenshot, error)
	Close(ctx context.Context, h Handle) error
	ActivateWindow(ctx context.Context, h Handle) error
	MinimizeWindow(ctx context.Context, h Handle) error
	MaximizeWindow(ctx context.Context, h Handle) error
	TerminateProcess(ctx context.Context, pid int) error

	// Monitors / vision
	ListMonitors(ctx context.Context) ([]Monitor, error)
	ActiveMonitor(ctx context.Context) (Monitor, error)
	CaptureMonitor(ctx context.Context, monitorID string) (Screenshot, error)
	OCRScreenshot(ctx context.Context, img Screenshot) (*UINode, error)
	OCRScreenshotWithBounds(ctx context.Context, img Screenshot, winX, winY, dpiX, dpiY float64) (*UINode, error)
	SetZoom(ctx context.Context, h Handle, percent int) error
}
