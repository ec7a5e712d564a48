// Package treeformat implements the Tree Formatter (spec.md §4.H): three
// projections of a UINode — CompactYaml, VerboseJson, ClusteredYaml — each
// producing a human/LLM-readable `formatted` string plus an index map a
// caller can use to target an element by its printed number.
package treeformat

import "github.com/mediar-ai/terminator/internal/selector"

// BoundsEntry is one value of a CompactYaml/VerboseJson index_to_bounds map
// (spec.md §4.H, invariant E3: 1-based, dense 1..=element_count).
type BoundsEntry struct {
	Role     string        `json:"role"`
	Name     string        `json:"name"`
	Bounds   selector.Rect `json:"bounds"`
	Selector string        `json:"selector,omitempty"`
}

// Source is one of the five acquisition paths ClusteredYaml merges
// (spec.md §4.H).
type Source string

const (
	SourceAccessibility Source = "u"
	SourceBrowserDOM    Source = "d"
	SourceOCR           Source = "o"
	SourceOmniparser    Source = "p"
	SourceVision        Source = "g"
)

// sourceOrder fixes the rendering order of sources within a cluster: the
// accessibility tree is the most authoritative signal so it sorts first.
var sourceOrder = map[Source]int{
	SourceAccessibility: 0,
	SourceBrowserDOM:    1,
	SourceOCR:           2,
	SourceOmniparser:    3,
	SourceVision:        4,
}

// ClusteredElement is one element surfaced by a single acquisition path,
// the input unit ClusteredYaml clusters by spatial proximity.
type ClusteredElement struct {
	Source        Source
	OriginalIndex int // 1-based index within this source's own list
	Role          string
	Name          string
	Bounds        selector.Rect
}

// SourceBoundsEntry is one value of ClusteredYaml's index_to_source_and_bounds
// map (spec.md §4.H).
type SourceBoundsEntry struct {
	Source        Source        `json:"source"`
	OriginalIndex int           `json:"original_index"`
	Bounds        selector.Rect `json:"bounds"`
}

// Result is the output of a single-source projection (CompactYaml or
// VerboseJson): a rendered string plus the index map needed to resolve a
// printed number back to a bound (and, for CompactYaml, a selector).
type Result struct {
	Formatted     string
	ElementCount  int
	IndexToBounds map[int]BoundsEntry
}

// ClusteredResult is the output of ClusteredYaml: a rendered string plus a
// source-prefixed index map (spec.md §4.H).
type ClusteredResult struct {
	Formatted              string
	IndexToSourceAndBounds map[string]SourceBoundsEntry
}
