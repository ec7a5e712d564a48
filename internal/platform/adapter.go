package platform

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	coreerrors "github.com/mediar-ai/terminator/internal/errors"
	"github.com/mediar-ai/terminator/internal/logging"
	"github.com/mediar-ai/terminator/internal/selector"
)

// browserAliases implements spec.md §4.A's browser-aware alias table for
// application_by_name ("edge"↔"msedge", "chrome"↔"google chrome", …).
var browserAliases = map[string][]string{
	"edge":    {"edge", "msedge", "microsoft edge"},
	"chrome":  {"chrome", "google chrome"},
	"brave":   {"brave", "brave browser"},
	"opera":   {"opera"},
	"firefox": {"firefox", "mozilla firefox"},
}

func aliasesFor(name string) []string {
	lower := strings.ToLower(name)
	if aliases, ok := browserAliases[lower]; ok {
		return aliases
	}
	for canonical, aliases := range browserAliases {
		for _, a := range aliases {
			if a == lower {
				return browserAliases[canonical]
			}
		}
	}
	return []string{lower}
}

func isBrowserName(name string) bool {
	lower := strings.ToLower(name)
	for canonical, aliases := range browserAliases {
		if lower == canonical {
			return true
		}
		for _, a := range aliases {
			if a == lower {
				return true
			}
		}
	}
	return false
}

// Adapter is the Platform Adapter of spec.md §4.A: the single trait exposed
// to the rest of the core, implemented on top of a Backend.
type Adapter struct {
	backend Backend
	log     logging.Logger
	procs   *processCache
}

// NewAdapter builds an Adapter over backend. listProcesses feeds the 2s-TTL
// process cache (spec.md §5 PROCESS_CACHE).
func NewAdapter(backend Backend, log logging.Logger, listProcesses func(ctx context.Context) ([]ProcessInfo, error)) *Adapter {
	if listProcesses == nil {
		listProcesses = func(context.Context) ([]ProcessInfo, error) { return nil, nil }
	}
	return &Adapter{backend: backend, log: logging.OrNop(log), procs: newProcessCache(listProcesses)}
}

func (a *Adapter) element(h Handle) *Element { return NewElement(a.backend, h) }

// Root returns the OS accessibility root element.
func (a *Adapter) Root(ctx context.Context) (*Element, error) {
	h, err := a.backend.Root(ctx)
	if err != nil {
		return nil, err
	}
	return a.element(h), nil
}

// FocusedElement returns the currently focused element.
func (a *Adapter) FocusedElement(ctx context.Context) (*Element, error) {
	h, err := a.backend.FocusedElement(ctx)
	if err != nil {
		return nil, err
	}
	return a.element(h), nil
}

type appProbe struct {
	handle Handle
	name   string
	pid    int
	ok     bool
}

// Applications lists running applications, deduplicated by PID, skipping
// unnamed processes (spec.md §4.A). Attribute/PID probes fan out across the
// handle set with errgroup since each is an independent Backend round trip;
// the dedup pass itself stays sequential to keep ordering deterministic.
func (a *Adapter) Applications(ctx context.Context) ([]*Element, error) {
	handles, err := a.backend.Applications(ctx)
	if err != nil {
		return nil, err
	}

	probes := make([]appProbe, len(handles))
	g, gctx := errgroup.WithContext(ctx)
	for i, h := range handles {
		i, h := i, h
		g.Go(func() error {
			attrs, err := a.backend.Attributes(gctx, h)
			if err != nil || attrs.Name == "" {
				return nil
			}
			pid, err := a.backend.ProcessID(gctx, h)
			if err != nil {
				return nil
			}
			probes[i] = appProbe{handle: h, name: attrs.Name, pid: pid, ok: true}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := map[int]bool{}
	var out []*Element
	for _, p := range probes {
		if !p.ok || seen[p.pid] {
			continue
		}
		seen[p.pid] = true
		out = append(out, a.element(p.handle))
	}
	return out, nil
}

// ApplicationByName resolves name to a running application's root element
// (spec.md §4.A application_by_name). ".exe" is stripped; browser names use
// window-title search with aliasing, everything else uses the cached
// process table.
func (a *Adapter) ApplicationByName(ctx context.Context, name string) (*Element, error) {
	trimmed := strings.TrimSuffix(strings.TrimSpace(name), ".exe")
	trimmed = strings.TrimSuffix(trimmed, ".EXE")

	if isBrowserName(trimmed) {
		apps, err := a.Applications(ctx)
		if err != nil {
			return nil, err
		}
		var candidates []WindowCandidate
		aliases := aliasesFor(trimmed)
		for i, app := range apps {
			appName := strings.ToLower(app.Attrs().Name)
			for _, alias := range aliases {
				if strings.Contains(appName, alias) {
					candidates = append(candidates, WindowCandidate{Handle: apps[i].handle, Title: app.Attrs().Name})
					break
				}
			}
		}
		if len(candidates) == 0 {
			return nil, coreerrors.ElementNotFound(fmt.Sprintf("no browser application named %q is running", name), map[string]any{"name": name})
		}
		idx, ok := BestTitleMatch(candidates, trimmed)
		if !ok {
			a.log.Warn("application_by_name: no title match passed threshold for %q, using first candidate", name)
		}
		return a.element(candidates[idx].Handle), nil
	}

	procs, err := a.procs.byName(ctx, func(p ProcessInfo) bool {
		return strings.EqualFold(strings.TrimSuffix(p.Name, ".exe"), trimmed)
	})
	if err != nil {
		return nil, err
	}
	if len(procs) == 0 {
		return nil, coreerrors.ElementNotFound(fmt.Sprintf("no application named %q is running", name), map[string]any{"name": name})
	}
	return a.ApplicationByPID(ctx, procs[0].PID, 0)
}

// ApplicationByPID resolves pid to its application element, polling up to
// timeout if the process has just launched.
func (a *Adapter) ApplicationByPID(ctx context.Context, pid int, timeout time.Duration) (*Element, error) {
	deadline := time.Now().Add(timeout)
	for {
		apps, err := a.Applications(ctx)
		if err != nil {
			return nil, err
		}
		for _, app := range apps {
			appPID, err := app.ProcessID(ctx)
			if err == nil && appPID == pid {
				return app, nil
			}
		}
		if timeout <= 0 || time.Now().After(deadline) {
			return nil, coreerrors.ElementNotFound(fmt.Sprintf("no application with pid %d found", pid), map[string]any{"pid": pid})
		}
		select {
		case <-ctx.Done():
			return nil, coreerrors.Cancelled("application_by_pid cancelled")
		case <-time.After(100 * time.Millisecond):
		}
	}
}

// FindElement resolves sel to exactly one element under root (default: OS
// root), within timeout (default 5s). Spec.md §4.B.
func (a *Adapter) FindElement(ctx context.Context, sel selector.Selector, root *Element, timeout time.Duration) (*Element, error) {
	matches, err := a.FindElements(ctx, sel, root, timeout, 0)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, coreerrors.ElementNotFound("no element matched the selector", map[string]any{"selector": selector.Serialize(sel)})
	}
	return matches[0], nil
}

// FindElements resolves sel to every matching element under root, within
// timeout and traversal depth (defaults 5s / 50). Spec.md §4.B.
func (a *Adapter) FindElements(ctx context.Context, sel selector.Selector, root *Element, timeout time.Duration, depth int) ([]*Element, error) {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if depth <= 0 {
		depth = 50
	}
	if root == nil {
		r, err := a.Root(ctx)
		if err != nil {
			return nil, err
		}
		root = r
	}

	searchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	nodes, err := selector.Evaluate(searchCtx, root, sel, selector.Options{MaxDepth: depth})
	if err != nil {
		return nil, err
	}
	out := make([]*Element, len(nodes))
	for i, n := range nodes {
		el, ok := n.(*Element)
		if !ok {
			return nil, coreerrors.Platform("selector engine returned a non-Element node", nil, nil)
		}
		out[i] = el
	}
	return out, nil
}

// OpenApplication implements spec.md §4.A's three-path launch strategy. The
// Backend owns each leaf launch mechanism; this method owns the fallback
// ordering and post-launch polling.
func (a *Adapter) OpenApplication(ctx context.Context, name string) (*Element, error) {
	h, err := a.backend.OpenApplication(ctx, name)
	if err != nil {
		return nil, err
	}
	pid, err := a.backend.ProcessID(ctx, h)
	if err == nil {
		if app, aerr := a.ApplicationByPID(ctx, pid, 3*time.Second); aerr == nil {
			return app, nil
		}
	}
	return a.ApplicationByName(ctx, name)
}

// OpenURL implements spec.md §4.A open_url, special-casing Edge to skip
// title-based window search (documented as slow).
func (a *Adapter) OpenURL(ctx context.Context, url, browser string) (*Element, error) {
	h, err := a.backend.OpenURL(ctx, url, browser)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(browser, "edge") || strings.EqualFold(browser, "msedge") {
		pid, err := a.backend.ProcessID(ctx, h)
		if err == nil {
			if app, aerr := a.ApplicationByPID(ctx, pid, 3*time.Second); aerr == nil {
				return app, nil
			}
		}
	}
	return a.element(h), nil
}

// RunCommand runs shellCmd asynchronously (caller-supplied ctx controls
// cancellation) via the platform's preferred shell.
func (a *Adapter) RunCommand(ctx context.Context, shellCmd, shell string) (CommandResult, error) {
	return a.backend.RunCommand(ctx, shellCmd, shell)
}

// ListMonitors, Primary, Active, CaptureMonitorByID implement spec.md §4.A's
// monitor operations.
func (a *Adapter) ListMonitors(ctx context.Context) ([]Monitor, error) { return a.backend.ListMonitors(ctx) }

func (a *Adapter) Primary(ctx context.Context) (Monitor, error) {
	monitors, err := a.backend.ListMonitors(ctx)
	if err != nil {
		return Monitor{}, err
	}
	for _, m := range monitors {
		if m.Primary {
			return m, nil
		}
	}
	if len(monitors) > 0 {
		return monitors[0], nil
	}
	return Monitor{}, coreerrors.Platform("no monitors available", nil, nil)
}

// Active returns the monitor containing the focused window, per spec.md
// §4.A ("active-monitor is defined by the monitor containing the focused
// window").
func (a *Adapter) Active(ctx context.Context) (Monitor, error) {
	return a.backend.ActiveMonitor(ctx)
}

func (a *Adapter) CaptureMonitorByID(ctx context.Context, id string) (Screenshot, error) {
	return a.backend.CaptureMonitor(ctx, id)
}

func (a *Adapter) OCRScreenshot(ctx context.Context, img Screenshot) (*UINode, error) {
	return a.backend.OCRScreenshot(ctx, img)
}

func (a *Adapter) OCRScreenshotWithBounds(ctx context.Context, img Screenshot, winX, winY, dpiX, dpiY float64) (*UINode, error) {
	return a.backend.OCRScreenshotWithBounds(ctx, img, winX, winY, dpiX, dpiY)
}

func (a *Adapter) PressKey(ctx context.Context, key string) error {
	return a.backend.PressKey(ctx, key)
}

// SetZoom implements spec.md §4.A's keyboard-shortcut zoom fallback: zoom
// out N times to reach a known minimum (default 5 steps of 10% down to
// 50%), then step up by (target-min)/step rounded.
func (a *Adapter) SetZoom(ctx context.Context, h Handle, percent int) error {
	const (
		minZoom  = 50
		step     = 10
		maxSteps = 5
	)
	if err := a.backend.SetZoom(ctx, h, percent); err == nil {
		return nil
	}
	for i := 0; i < maxSteps; i++ {
		if err := a.backend.PressKey(ctx, "Ctrl+-"); err != nil {
			return err
		}
	}
	stepsUp := int(roundFloat(float64(percent-minZoom) / float64(step)))
	for i := 0; i < stepsUp; i++ {
		if err := a.backend.PressKey(ctx, "Ctrl+="); err != nil {
			return err
		}
	}
	return nil
}

func roundFloat(f float64) float64 {
	if f < 0 {
		return -roundFloat(-f)
	}
	whole := float64(int(f))
	if f-whole >= 0.5 {
		return whole + 1
	}
	return whole
}
