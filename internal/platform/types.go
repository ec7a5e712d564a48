// Package platform implements the Platform Adapter (spec.md §4.A): a single
// trait wrapping OS accessibility APIs, plus the generic engineering that
// sits above any one OS's raw bindings — the tree builder, best-title-match,
// and the 2s-TTL process cache of spec.md §5.
//
// The raw OS bindings (win32 UIAutomation, macOS AX API, AT-SPI) are leaf
// calls behind the Handle-based Backend interface; this package ships a
// Backend that returns a documented PlatformError for primitives with no
// portable Go equivalent, while everything generic above Backend (tree
// budgets, best-title-match, process cache, selector delegation) is fully
// implemented and unit-tested against a fake Backend (fakeBackend in
// fake_backend_test.go).
package platform

import (
	"time"

	"github.com/mediar-ai/terminator/internal/selector"
)

// Handle is an opaque, backend-owned reference to a live OS element. Callers
// never see a raw OS handle (spec.md §9); Element wraps a Handle plus the
// Backend that can resolve it.
type Handle struct {
	id uint64
}

// NewHandle mints a Handle from a backend-assigned id. Real backends wrap a
// native reference (an HWND, an AXUIElementRef, an AT-SPI path) behind their
// own id space and call this to hand the Platform Adapter an opaque value;
// core code never constructs a Handle from a raw id itself.
func NewHandle(id uint64) Handle { return Handle{id: id} }

// Monitor mirrors spec.md §3's Monitor value type.
type Monitor struct {
	ID      string
	Name    string
	Primary bool
	X, Y    int
	Width   int
	Height  int
	Scale   float64
	WorkX, WorkY, WorkWidth, WorkHeight int
	HasWorkArea                        bool
}

// Screenshot mirrors spec.md §3's Screenshot value type.
type Screenshot struct {
	Width, Height int
	Pixels        []byte // platform-native layout; consumers convert on demand
	Monitor       *Monitor
}

// CommandResult is the result of run_command (spec.md §4.A).
type CommandResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// PropertyMode controls how much of an element's attributes the tree builder
// loads per node (spec.md §4.A "Property-loading mode").
type PropertyMode string

const (
	PropertyFast     PropertyMode = "fast"
	PropertyComplete PropertyMode = "complete"
	PropertySmart    PropertyMode = "smart"
)

// TreeBuildConfig bounds a single get_window_tree call (spec.md §4.A).
type TreeBuildConfig struct {
	PropertyMode       PropertyMode
	PerElementTimeout  time.Duration // default 50ms
	YieldEvery         int           // default 50 elements
	MaxDepth           int
}

func (c TreeBuildConfig) withDefaults() TreeBuildConfig {
	if c.PropertyMode == "" {
		c.PropertyMode = PropertySmart
	}
	if c.PerElementTimeout <= 0 {
		c.PerElementTimeout = 50 * time.Millisecond
	}
	if c.YieldEvery <= 0 {
		c.YieldEvery = 50
	}
	if c.MaxDepth <= 0 {
		c.MaxDepth = 50
	}
	return c
}

// UINode is the value-type tree snapshot of spec.md §3.
type UINode struct {
	Attrs            selector.Attrs
	Children         []*UINode
	ChainedSelector  string
}

// ElementCount returns the number of nodes in the subtree rooted at n.
func (n *UINode) ElementCount() int {
	if n == nil {
		return 0
	}
	count := 1
	for _, c := range n.Children {
		count += c.ElementCount()
	}
	return count
}

// WindowCandidate is a (handle, window title) pair surfaced by Backend for
// best-title-match disambiguation (spec.md §4.A).
type WindowCandidate struct {
	Handle Handle
	Title  string
}
