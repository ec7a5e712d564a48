package treeformat

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/mediar-ai/terminator/internal/selector"
)

// clusterRadius is the centre-to-centre distance under which two elements
// from different acquisition paths are treated as "the same thing seen
// twice". It reuses the Selector Engine's own Near(anchor) radius
// (spec.md §4.B) rather than inventing a second spatial constant.
const clusterRadius = selector.NearRadius

// ClusteredYaml merges elements from up to five acquisition paths
// (accessibility, browser DOM, OCR, omniparser, vision — spec.md §4.H) by
// spatial proximity: elements whose centres fall within clusterRadius of
// each other render as one cluster, each member keeping its own
// source-prefixed index (e.g. "u3", "d1").
func ClusteredYaml(elements []ClusteredElement) ClusteredResult {
	clusters := clusterByProximity(elements)

	var b strings.Builder
	indexToSourceAndBounds := make(map[string]SourceBoundsEntry, len(elements))

	for i, cluster := range clusters {
		sortCluster(cluster)
		anchor := cluster[0]
		fmt.Fprintf(&b, "#%d cluster @ (%s)\n", i+1, formatBounds(anchor.Bounds))
		for _, el := range cluster {
			key := fmt.Sprintf("%s%d", el.Source, el.OriginalIndex)
			name := el.Name
			if name == "" {
				name = "\"\""
			} else {
				name = fmt.Sprintf("%q", name)
			}
			fmt.Fprintf(&b, "  #%s %s %s bounds=(%s)\n", key, compactRole(el.Role), name, formatBounds(el.Bounds))
			indexToSourceAndBounds[key] = SourceBoundsEntry{
				Source:        el.Source,
				OriginalIndex: el.OriginalIndex,
				Bounds:        el.Bounds,
			}
		}
	}

	return ClusteredResult{
		Formatted:              b.String(),
		IndexToSourceAndBounds: indexToSourceAndBounds,
	}
}

// clusterByProximity groups elements with a union-find keyed on
// centre-to-centre distance, so a chain of near neighbours across sources
// merges into one cluster even when no two individual elements share the
// same source.
func clusterByProximity(elements []ClusteredElement) [][]ClusteredElement {
	n := len(elements)
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[ra] = rb
		}
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if centerDistance(elements[i].Bounds, elements[j].Bounds) <= clusterRadius {
				union(i, j)
			}
		}
	}

	groups := make(map[int][]ClusteredElement)
	var order []int
	for i, el := range elements {
		root := find(i)
		if _, ok := groups[root]; !ok {
			order = append(order, root)
		}
		groups[root] = append(groups[root], el)
	}

	sort.Slice(order, func(a, b int) bool {
		ra, rb := groups[order[a]][0], groups[order[b]][0]
		return clusterSortKey(ra) < clusterSortKey(rb)
	})

	out := make([][]ClusteredElement, 0, len(order))
	for _, root := range order {
		out = append(out, groups[root])
	}
	return out
}

func centerDistance(a, b selector.Rect) float64 {
	dx := a.CenterX() - b.CenterX()
	dy := a.CenterY() - b.CenterY()
	return math.Hypot(dx, dy)
}

// clusterSortKey orders clusters top-to-bottom, left-to-right by their
// first member's bounds, so rendering is deterministic across calls.
func clusterSortKey(el ClusteredElement) float64 {
	return el.Bounds.Y*100000 + el.Bounds.X
}

// sortCluster orders a cluster's members by source (accessibility first,
// vision last — see sourceOrder) then by original index, so the
// source-prefixed lines within one cluster render deterministically.
func sortCluster(cluster []ClusteredElement) {
	sort.Slice(cluster, func(i, j int) bool {
		a, b := cluster[i], cluster[j]
		if sourceOrder[a.Source] != sourceOrder[b.Source] {
			return sourceOrder[a.Source] < sourceOrder[b.Source]
		}
		return a.OriginalIndex < b.OriginalIndex
	})
}
