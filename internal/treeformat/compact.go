package treeformat

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mediar-ai/terminator/internal/platform"
	"github.com/mediar-ai/terminator/internal/selector"
)

// CompactYaml renders node as depth-prefixed, 1-based numbered lines
// (spec.md §4.H): role, name, key attributes, and bounds when present.
// Traversal order matches UINode.Children (the OS's own ordering), so the
// printed numbering is deterministic and stable across calls on the same
// snapshot.
func CompactYaml(node *platform.UINode) Result {
	w := &compactWriter{next: 1, indexToBounds: make(map[int]BoundsEntry)}
	if node != nil {
		w.visit(node, 0)
	}
	return Result{
		Formatted:     w.b.String(),
		ElementCount:  w.next - 1,
		IndexToBounds: w.indexToBounds,
	}
}

type compactWriter struct {
	b             strings.Builder
	next          int
	indexToBounds map[int]BoundsEntry
}

func (w *compactWriter) visit(n *platform.UINode, depth int) {
	idx := w.next
	w.next++

	attrs := n.Attrs
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(&w.b, "%s#%d %s", indent, idx, compactRole(attrs.Role))
	if attrs.Name != "" {
		fmt.Fprintf(&w.b, " %q", attrs.Name)
	}
	if kv := keyAttributes(attrs); kv != "" {
		fmt.Fprintf(&w.b, " {%s}", kv)
	}
	if attrs.HasBounds {
		fmt.Fprintf(&w.b, " bounds=(%s)", formatBounds(attrs.Bounds))
	}
	w.b.WriteByte('\n')

	entry := BoundsEntry{Role: attrs.Role, Name: attrs.Name, Selector: n.ChainedSelector}
	if attrs.HasBounds {
		entry.Bounds = attrs.Bounds
	}
	w.indexToBounds[idx] = entry

	for _, child := range n.Children {
		if child != nil {
			w.visit(child, depth+1)
		}
	}
}

func compactRole(role string) string {
	if role == "" {
		return "custom"
	}
	return role
}

// keyAttributes renders Extra deterministically (sorted by key) plus the
// boolean flags worth surfacing compactly.
func keyAttributes(attrs selector.Attrs) string {
	var parts []string
	if attrs.ClassName != "" {
		parts = append(parts, "class="+attrs.ClassName)
	}
	if attrs.NativeID != "" {
		parts = append(parts, "id="+attrs.NativeID)
	}
	if !attrs.Visible {
		parts = append(parts, "visible=false")
	}

	keys := make([]string, 0, len(attrs.Extra))
	for k := range attrs.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, k+"="+attrs.Extra[k])
	}
	return strings.Join(parts, ", ")
}

func formatBounds(r selector.Rect) string {
	return fmt.Sprintf("%g,%g,%g,%g", r.X, r.Y, r.W, r.H)
}
