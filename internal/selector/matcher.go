package selector

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	coreerrors "github.com/mediar-ai/terminator/internal/errors"
)

// NearRadius is the centre-to-centre distance (logical pixels) under which
// Near(anchor) matches, per spec.md §4.B.
const NearRadius = 50.0

// Rect is an absolute logical-coordinate rectangle.
type Rect struct {
	X, Y, W, H float64
}

func (r Rect) Left() float64   { return r.X }
func (r Rect) Right() float64  { return r.X + r.W }
func (r Rect) Top() float64    { return r.Y }
func (r Rect) Bottom() float64 { return r.Y + r.H }
func (r Rect) CenterX() float64 { return r.X + r.W/2 }
func (r Rect) CenterY() float64 { return r.Y + r.H/2 }

func rangesOverlap(aLo, aHi, bLo, bHi float64) bool {
	return aLo < bHi && bLo < aHi
}

// Attrs is the subset of Element attributes (spec.md §3) the selector
// engine needs to evaluate a match.
type Attrs struct {
	Role          string
	Name          string
	ClassName     string
	LocalizedRole string
	NativeID      string
	ObjectID      uint64
	Visible       bool
	HasBounds     bool
	Bounds        Rect
	Extra         map[string]string // arbitrary attributes for Attributes(map) matching
}

// Node is the minimal tree-node contract the matcher needs. platform.Element
// implements this so the Selector Engine never depends on the Platform
// Adapter package (avoiding an import cycle) — only on this interface.
type Node interface {
	Attrs() Attrs
	Children(ctx context.Context) ([]Node, error)
}

// Options bounds a single Evaluate call (spec.md §4.B/§4.C).
type Options struct {
	MaxDepth         int
	ChainStepTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxDepth <= 0 {
		o.MaxDepth = 50
	}
	if o.ChainStepTimeout <= 0 {
		o.ChainStepTimeout = time.Second
	}
	return o
}

// Evaluate evaluates sel against root and returns every match, in a
// deterministic order (spatial kinds are sorted nearest-to-anchor first so
// a caller that wants only the first result, e.g. Locator.First, naturally
// gets "the geometrically closest" per spec.md §4.B).
func Evaluate(ctx context.Context, root Node, sel Selector, opts Options) ([]Node, error) {
	if err := sel.Validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()
	return evaluate(ctx, root, sel, opts)
}

func evaluate(ctx context.Context, root Node, sel Selector, opts Options) ([]Node, error) {
	switch sel.Kind {
	case KindChain:
		return evaluateChain(ctx, root, sel.Chain, opts)
	case KindHas:
		return evaluateHas(ctx, root, *sel.Inner, opts)
	case KindRightOf, KindLeftOf, KindAbove, KindBelow, KindNear:
		return evaluateSpatial(ctx, root, sel, opts)
	default:
		all, err := collect(ctx, root, opts.MaxDepth)
		if err != nil {
			return nil, err
		}
		return filterLeaf(all, sel)
	}
}

func filterLeaf(candidates []Node, sel Selector) ([]Node, error) {
	var out []Node
	for _, n := range candidates {
		ok, err := matchesLeaf(n.Attrs(), sel)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, n)
		}
	}
	return out, nil
}

func matchesLeaf(a Attrs, sel Selector) (bool, error) {
	switch sel.Kind {
	case KindRole:
		if !strings.EqualFold(a.Role, sel.Role) {
			return false, nil
		}
		if sel.Name == "" {
			return true, nil
		}
		return containsFold(a.Name, sel.Name), nil
	case KindName:
		return containsFold(a.Name, sel.Value), nil
	case KindText:
		return containsFold(a.Name, sel.Value) || strings.EqualFold(a.Role, "Text"), nil
	case KindID:
		return idPrefix(a.ObjectID) == sel.Value, nil
	case KindNativeID:
		return a.NativeID == sel.Value, nil
	case KindClassName:
		return a.ClassName == sel.Value, nil
	case KindLocalizedRole:
		return a.LocalizedRole == sel.Value, nil
	case KindVisible:
		return a.Visible == sel.Bool, nil
	case KindAttributes:
		for k, v := range sel.Attributes {
			if a.Extra == nil || a.Extra[k] != v {
				return false, nil
			}
		}
		return true, nil
	case KindFilter:
		// Filter(predicate-ref) requires an external predicate registry that
		// the core does not own (spec.md marks it an error carrier absent a
		// registered predicate); treat an unregistered filter as never
		// matching rather than erroring the whole search.
		return false, nil
	default:
		return false, coreerrors.InvalidSelector("selector kind not evaluable as a leaf predicate", nil)
	}
}

func idPrefix(objectID uint64) string {
	s := strconv.FormatUint(objectID, 10)
	if len(s) > 6 {
		return s[:6]
	}
	return s
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// collect performs a bounded BFS under root, used both as the step-0 search
// space for chains/leaves and as the "broadly: visible elements under root"
// candidate pool for Has/spatial selectors.
func collect(ctx context.Context, root Node, maxDepth int) ([]Node, error) {
	type item struct {
		node  Node
		depth int
	}
	var out []Node
	queue := []item{{root, 0}}
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, coreerrors.Cancelled("selector evaluation cancelled")
		}
		cur := queue[0]
		queue = queue[1:]
		out = append(out, cur.node)
		if cur.depth >= maxDepth {
			continue
		}
		children, err := cur.node.Children(ctx)
		if err != nil {
			continue // per-element errors are skipped, partial subtrees emitted (spec.md §4.A)
		}
		for _, c := range children {
			queue = append(queue, item{c, cur.depth + 1})
		}
	}
	return out, nil
}

func evaluateChain(ctx context.Context, root Node, steps []Selector, opts Options) ([]Node, error) {
	running, err := evaluate(ctx, root, steps[0], opts)
	if err != nil {
		return nil, err
	}
	for _, step := range steps[1:] {
		if step.Kind == KindNth {
			running = applyNth(running, step.Index)
			continue
		}
		var next []Node
		for _, cand := range running {
			stepCtx, cancel := context.WithTimeout(ctx, opts.ChainStepTimeout)
			matches, err := evaluate(stepCtx, cand, step, opts)
			cancel()
			if err != nil {
				if coreerrors.IsCancelled(err) {
					continue // sub-timeout on one candidate does not fail the whole chain
				}
				return nil, err
			}
			next = append(next, matches...)
		}
		running = next
	}
	return running, nil
}

// applyNth filters positionally; negative indices count from the end. An
// out-of-range index yields the empty set, never an error (spec.md §8).
func applyNth(set []Node, i int) []Node {
	idx := i
	if idx < 0 {
		idx = len(set) + idx
	}
	if idx < 0 || idx >= len(set) {
		return nil
	}
	return []Node{set[idx]}
}

// evaluateHas keeps candidates (from the broad pool under root) that have at
// least one proper descendant matching inner. "Proper descendant" excludes
// the candidate itself: each immediate child's subtree is checked via
// evaluate, which covers arbitrarily deep descendants while never counting
// the candidate as its own descendant.
func evaluateHas(ctx context.Context, root Node, inner Selector, opts Options) ([]Node, error) {
	candidates, err := collect(ctx, root, opts.MaxDepth)
	if err != nil {
		return nil, err
	}
	var out []Node
	for _, cand := range candidates {
		children, err := cand.Children(ctx)
		if err != nil {
			continue
		}
		found := false
		for _, child := range children {
			matches, err := evaluate(ctx, child, inner, opts)
			if err != nil {
				return nil, err
			}
			if len(matches) > 0 {
				found = true
				break
			}
		}
		if found {
			out = append(out, cand)
		}
	}
	return out, nil
}

func evaluateSpatial(ctx context.Context, root Node, sel Selector, opts Options) ([]Node, error) {
	anchorMatches, err := evaluate(ctx, root, *sel.Anchor, opts)
	if err != nil {
		return nil, err
	}
	if len(anchorMatches) != 1 {
		return nil, coreerrors.InvalidArgument("spatial selector anchor must resolve to exactly one element", map[string]any{
			"anchor_matches": len(anchorMatches),
		})
	}
	anchor := anchorMatches[0].Attrs()
	if !anchor.HasBounds {
		return nil, coreerrors.New("InvalidArgument", "spatial selector anchor has no bounds", nil)
	}

	candidates, err := collect(ctx, root, opts.MaxDepth)
	if err != nil {
		return nil, err
	}

	type scored struct {
		node Node
		dist float64
	}
	var out []scored
	for _, cand := range candidates {
		a := cand.Attrs()
		if a.ObjectID == anchor.ObjectID || !a.Visible || !a.HasBounds {
			continue
		}
		if !spatialPredicate(sel.Kind, anchor.Bounds, a.Bounds) {
			continue
		}
		dx := a.Bounds.CenterX() - anchor.Bounds.CenterX()
		dy := a.Bounds.CenterY() - anchor.Bounds.CenterY()
		out = append(out, scored{cand, dx*dx + dy*dy})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].dist < out[j].dist })
	result := make([]Node, len(out))
	for i, s := range out {
		result[i] = s.node
	}
	return result, nil
}

func spatialPredicate(kind Kind, anchor, cand Rect) bool {
	switch kind {
	case KindRightOf:
		return cand.Left() >= anchor.Right() && rangesOverlap(cand.Top(), cand.Bottom(), anchor.Top(), anchor.Bottom())
	case KindLeftOf:
		return cand.Right() <= anchor.Left() && rangesOverlap(cand.Top(), cand.Bottom(), anchor.Top(), anchor.Bottom())
	case KindAbove:
		return cand.Bottom() <= anchor.Top() && rangesOverlap(cand.Left(), cand.Right(), anchor.Left(), anchor.Right())
	case KindBelow:
		return cand.Top() >= anchor.Bottom() && rangesOverlap(cand.Left(), cand.Right(), anchor.Left(), anchor.Right())
	case KindNear:
		dx := cand.CenterX() - anchor.CenterX()
		dy := cand.CenterY() - anchor.CenterY()
		return dx*dx+dy*dy < NearRadius*NearRadius
	default:
		return false
	}
}
