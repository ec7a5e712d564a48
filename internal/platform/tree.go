package platform

import (
	"context"
	"fmt"
	"runtime"

	coreerrors "github.com/mediar-ai/terminator/internal/errors"
	"github.com/mediar-ai/terminator/internal/selector"
)

// buildTree recursively enumerates root's subtree per spec.md §4.A's
// budgeted strategy: cached/bounded child enumeration with a per-operation
// timeout, a cooperative yield every N elements, and per-element error
// counting with partial-subtree emission (errors never abort the whole
// build).
func buildTree(ctx context.Context, backend Backend, root Handle, cfg TreeBuildConfig) (*UINode, int, error) {
	cfg = cfg.withDefaults()
	visited := 0
	errCount := 0
	node, err := buildNode(ctx, backend, root, cfg, 0, &visited, &errCount)
	if err != nil {
		return nil, visited, err
	}
	return node, visited, nil
}

func buildNode(ctx context.Context, backend Backend, h Handle, cfg TreeBuildConfig, depth int, visited, errCount *int) (*UINode, error) {
	if err := ctx.Err(); err != nil {
		return nil, coreerrors.Cancelled("tree build cancelled")
	}

	attrs, err := backend.Attributes(ctx, h)
	if err != nil {
		*errCount++
		return nil, nil // skip this element, caller drops it from the parent's children
	}
	attrs = applyPropertyMode(attrs, cfg.PropertyMode)

	node := &UINode{Attrs: attrs}
	*visited++
	if *visited%cfg.YieldEvery == 0 {
		runtime.Gosched()
	}

	if depth >= cfg.MaxDepth {
		return node, nil
	}

	children, err := backend.Children(ctx, h, cfg.PerElementTimeout)
	if err != nil {
		*errCount++
		return node, nil // partial subtree: this node stands, children are skipped
	}

	for _, childHandle := range children {
		childNode, err := buildNode(ctx, backend, childHandle, cfg, depth+1, visited, errCount)
		if err != nil {
			return node, err // propagate cancellation only
		}
		if childNode != nil {
			node.Children = append(node.Children, childNode)
		}
	}
	return node, nil
}

// applyPropertyMode trims the attributes loaded per element, per spec.md
// §4.A's Fast/Complete/Smart property-loading modes.
func applyPropertyMode(a selector.Attrs, mode PropertyMode) selector.Attrs {
	switch mode {
	case PropertyComplete:
		return a
	case PropertyFast:
		trimmed := selector.Attrs{Role: a.Role, Name: a.Name, Visible: a.Visible, ObjectID: a.ObjectID}
		if a.Name == "" {
			trimmed.NativeID = a.NativeID
		}
		return trimmed
	case PropertySmart:
		fallthrough
	default:
		trimmed := selector.Attrs{
			Role: a.Role, Name: a.Name, Visible: a.Visible, ObjectID: a.ObjectID,
			HasBounds: a.HasBounds, Bounds: a.Bounds,
		}
		switch a.Role {
		case "Button", "CheckBox", "RadioButton", "MenuItem", "ListItem", "Edit", "ComboBox", "Slider":
			trimmed.ClassName = a.ClassName
			trimmed.NativeID = a.NativeID
			trimmed.Extra = a.Extra
		}
		return trimmed
	}
}

// GetWindowTree implements spec.md §4.A get_window_tree: choose a window for
// pid (disambiguating by title with BestTitleMatch when >1 candidate), then
// build its subtree.
func (a *Adapter) GetWindowTree(ctx context.Context, pid int, title string, cfg TreeBuildConfig) (*UINode, error) {
	candidates, err := a.backend.WindowCandidates(ctx, pid)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, coreerrors.ElementNotFound(fmt.Sprintf("no window found for pid %d", pid), map[string]any{"pid": pid})
	}

	chosen := candidates[0]
	if title != "" && len(candidates) > 1 {
		idx, _ := BestTitleMatch(candidates, title)
		if idx >= 0 {
			chosen = candidates[idx]
		}
	}

	node, _, err := buildTree(ctx, a.backend, chosen.Handle, cfg)
	return node, err
}
