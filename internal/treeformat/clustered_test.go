package treeformat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediar-ai/terminator/internal/selector"
)

func rect(x, y, w, h float64) selector.Rect { return selector.Rect{X: x, Y: y, W: w, H: h} }

func TestClusteredYamlMergesCloseElementsAcrossSources(t *testing.T) {
	elements := []ClusteredElement{
		{Source: SourceAccessibility, OriginalIndex: 1, Role: "Button", Name: "OK", Bounds: rect(10, 10, 20, 20)},
		{Source: SourceOCR, OriginalIndex: 1, Role: "Text", Name: "OK", Bounds: rect(12, 12, 18, 18)},
	}

	res := ClusteredYaml(elements)
	require.Len(t, res.IndexToSourceAndBounds, 2)
	assert.Contains(t, res.Formatted, "#1 cluster")
	assert.Contains(t, res.IndexToSourceAndBounds, "u1")
	assert.Contains(t, res.IndexToSourceAndBounds, "o1")
	assert.Equal(t, SourceAccessibility, res.IndexToSourceAndBounds["u1"].Source)
	assert.Equal(t, 1, res.IndexToSourceAndBounds["u1"].OriginalIndex)
}

func TestClusteredYamlKeepsFarElementsSeparate(t *testing.T) {
	elements := []ClusteredElement{
		{Source: SourceAccessibility, OriginalIndex: 1, Role: "Button", Bounds: rect(0, 0, 10, 10)},
		{Source: SourceVision, OriginalIndex: 1, Role: "Button", Bounds: rect(1000, 1000, 10, 10)},
	}

	res := ClusteredYaml(elements)
	assert.Contains(t, res.Formatted, "#1 cluster")
	assert.Contains(t, res.Formatted, "#2 cluster")
	assert.Len(t, res.IndexToSourceAndBounds, 2)
}

func TestClusteredYamlOrdersWithinClusterBySourcePriority(t *testing.T) {
	elements := []ClusteredElement{
		{Source: SourceVision, OriginalIndex: 5, Role: "Icon", Bounds: rect(0, 0, 10, 10)},
		{Source: SourceAccessibility, OriginalIndex: 2, Role: "Button", Bounds: rect(1, 1, 10, 10)},
		{Source: SourceBrowserDOM, OriginalIndex: 3, Role: "Div", Bounds: rect(2, 2, 10, 10)},
	}

	res := ClusteredYaml(elements)
	uIdx := indexOf(res.Formatted, "#u2")
	dIdx := indexOf(res.Formatted, "#d3")
	gIdx := indexOf(res.Formatted, "#g5")
	require.True(t, uIdx >= 0 && dIdx >= 0 && gIdx >= 0)
	assert.True(t, uIdx < dIdx)
	assert.True(t, dIdx < gIdx)
}

func TestClusteredYamlEmptyInput(t *testing.T) {
	res := ClusteredYaml(nil)
	assert.Empty(t, res.Formatted)
	assert.Empty(t, res.IndexToSourceAndBounds)
}

func TestCenterDistanceChainingMergesTransitively(t *testing.T) {
	// a-b close, b-c close, a-c far: union-find must still merge all three
	// into one cluster via the b bridge.
	elements := []ClusteredElement{
		{Source: SourceAccessibility, OriginalIndex: 1, Bounds: rect(0, 0, 10, 10)},
		{Source: SourceOCR, OriginalIndex: 1, Bounds: rect(40, 0, 10, 10)},
		{Source: SourceVision, OriginalIndex: 1, Bounds: rect(80, 0, 10, 10)},
	}

	res := ClusteredYaml(elements)
	assert.Len(t, res.IndexToSourceAndBounds, 3)
	assert.Contains(t, res.Formatted, "#1 cluster")
	assert.NotContains(t, res.Formatted, "#2 cluster")
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}
