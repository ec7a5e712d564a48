package treeformat

import (
	"encoding/json"

	"github.com/mediar-ai/terminator/internal/platform"
)

// VerboseJson renders node as pretty-printed JSON (spec.md §4.H) and, like
// CompactYaml, returns a dense 1-based index_to_bounds map over the same
// pre-order traversal so a caller can switch projections without losing
// the ability to resolve an index to a bound.
func VerboseJson(node *platform.UINode) (Result, error) {
	w := &compactWriter{next: 1, indexToBounds: make(map[int]BoundsEntry)}
	if node != nil {
		w.index(node)
	}

	data, err := json.MarshalIndent(node, "", "  ")
	if err != nil {
		return Result{}, err
	}

	return Result{
		Formatted:     string(data),
		ElementCount:  w.next - 1,
		IndexToBounds: w.indexToBounds,
	}, nil
}

// index walks n in the same pre-order as compactWriter.visit but without
// emitting text, so VerboseJson's index_to_bounds matches CompactYaml's for
// the same snapshot.
func (w *compactWriter) index(n *platform.UINode) {
	idx := w.next
	w.next++

	attrs := n.Attrs
	entry := BoundsEntry{Role: attrs.Role, Name: attrs.Name, Selector: n.ChainedSelector}
	if attrs.HasBounds {
		entry.Bounds = attrs.Bounds
	}
	w.indexToBounds[idx] = entry

	for _, child := range n.Children {
		if child != nil {
			w.index(child)
		}
	}
}
