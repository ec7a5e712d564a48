// Package locator implements the Locator of spec.md §4.C: a selector bound
// to an engine and an optional root, resolved with a caller-provided
// timeout via adaptive-interval polling.
package locator

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	coreerrors "github.com/mediar-ai/terminator/internal/errors"
	"github.com/mediar-ai/terminator/internal/platform"
	"github.com/mediar-ai/terminator/internal/selector"
)

// Engine is the minimal surface the Locator polls against — the Platform
// Adapter's selector resolution, kept as an interface so locator tests run
// against a fake rather than a live Adapter.
type Engine interface {
	FindElements(ctx context.Context, sel selector.Selector, root *platform.Element, timeout, depth int) ([]*platform.Element, error)
}

// adapterEngine adapts *platform.Adapter to the Engine interface (depth is
// an int count of levels, timeout in this package is always pre-resolved
// per attempt so the adapter receives the remaining budget directly).
type adapterEngine struct{ adapter *platform.Adapter }

// NewAdapterEngine wraps a live Platform Adapter as a locator Engine.
func NewAdapterEngine(adapter *platform.Adapter) Engine { return &adapterEngine{adapter: adapter} }

func (e *adapterEngine) FindElements(ctx context.Context, sel selector.Selector, root *platform.Element, timeout, depth int) ([]*platform.Element, error) {
	return e.adapter.FindElements(ctx, sel, root, time.Duration(timeout)*time.Millisecond, depth)
}

const (
	pollIntervalEarly = 200 * time.Millisecond
	pollIntervalLate  = 100 * time.Millisecond
	earlyPollCutoff   = 1 * time.Second // after this much elapsed time, switch to the tighter interval
	defaultDepth      = 50
)

var (
	retriesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "terminator_locator_retries_total",
		Help: "Number of retry attempts performed while resolving a selector.",
	})
	outcomesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "terminator_locator_outcomes_total",
		Help: "Locator resolution outcomes by result.",
	}, []string{"outcome"})
)

func init() {
	prometheus.MustRegister(retriesTotal, outcomesTotal)
}

// Locator is bound to (engine, selector, optional root) per spec.md §4.C.
type Locator struct {
	engine Engine
	sel    selector.Selector
	root   *platform.Element
	depth  int
}

// New binds sel and an optional root to engine.
func New(engine Engine, sel selector.Selector, root *platform.Element) *Locator {
	return &Locator{engine: engine, sel: sel, root: root, depth: defaultDepth}
}

// Within returns a copy of the Locator scoped to root.
func (l *Locator) Within(root *platform.Element) *Locator {
	return &Locator{engine: l.engine, sel: l.sel, root: root, depth: l.depth}
}

// First resolves the selector to its first match, retrying on transient
// ElementNotFound (or an empty result set) within timeout.
func (l *Locator) First(ctx context.Context, timeout time.Duration) (*platform.Element, error) {
	matches, err := l.poll(ctx, timeout, true)
	if err != nil {
		return nil, err
	}
	return matches[0], nil
}

// All resolves the selector to every match found within timeout. An empty
// result after the timeout is not an error — it is a valid "nothing matched"
// answer for All, unlike First which must produce an ElementNotFound.
func (l *Locator) All(ctx context.Context, timeout time.Duration) ([]*platform.Element, error) {
	return l.poll(ctx, timeout, false)
}

// poll implements the retry loop. requireNonEmpty governs whether an empty
// result set after the deadline is reported as ElementNotFound (First) or
// returned as-is (All).
func (l *Locator) poll(ctx context.Context, timeout time.Duration, requireNonEmpty bool) ([]*platform.Element, error) {
	deadline := time.Now().Add(timeout)
	start := time.Now()
	attempt := 0

	for {
		remaining := time.Until(deadline)
		if remaining < 0 {
			remaining = 0
		}
		matches, err := l.engine.FindElements(ctx, l.sel, l.root, int(remaining.Milliseconds()), l.depth)
		if err == nil && (len(matches) > 0 || !requireNonEmpty) {
			outcomesTotal.WithLabelValues("found").Inc()
			return matches, nil
		}
		if err != nil && !coreerrors.IsTransient(err) {
			outcomesTotal.WithLabelValues("error").Inc()
			return nil, err
		}

		if time.Now().After(deadline) {
			outcomesTotal.WithLabelValues("timeout").Inc()
			if requireNonEmpty {
				return nil, coreerrors.ElementNotFound("no element matched the selector within the timeout", map[string]any{
					"selector": selector.Serialize(l.sel),
					"timeout":  timeout.String(),
					"attempts": attempt,
				})
			}
			return matches, nil
		}

		interval := pollIntervalLate
		if time.Since(start) < earlyPollCutoff {
			interval = pollIntervalEarly
		}
		if wait := time.Until(deadline); wait < interval {
			interval = wait
		}

		attempt++
		retriesTotal.Inc()

		select {
		case <-ctx.Done():
			outcomesTotal.WithLabelValues("cancelled").Inc()
			return nil, coreerrors.Cancelled("locator resolution cancelled")
		case <-time.After(interval):
		}
	}
}
