package treeformat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediar-ai/terminator/internal/platform"
	"github.com/mediar-ai/terminator/internal/selector"
)

func TestVerboseJsonEmptyTree(t *testing.T) {
	res, err := VerboseJson(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.ElementCount)
	assert.Empty(t, res.IndexToBounds)
}

func TestVerboseJsonPrettyPrintedAndIndexed(t *testing.T) {
	root := &platform.UINode{
		Attrs: selector.Attrs{Role: "Window", Name: "Main"},
		Children: []*platform.UINode{
			{Attrs: selector.Attrs{Role: "Button", Name: "OK", HasBounds: true, Bounds: selector.Rect{X: 1, Y: 2, W: 3, H: 4}}},
		},
	}

	res, err := VerboseJson(root)
	require.NoError(t, err)
	assert.Contains(t, res.Formatted, "\n  ")
	assert.Contains(t, res.Formatted, "\"Name\": \"Main\"")

	require.Equal(t, 2, res.ElementCount)
	assert.Equal(t, "Window", res.IndexToBounds[1].Role)
	assert.Equal(t, "OK", res.IndexToBounds[2].Name)
	assert.Equal(t, selector.Rect{X: 1, Y: 2, W: 3, H: 4}, res.IndexToBounds[2].Bounds)
}

func TestVerboseJsonIndexMatchesCompactYamlOrdering(t *testing.T) {
	root := &platform.UINode{
		Attrs: selector.Attrs{Role: "Window"},
		Children: []*platform.UINode{
			{Attrs: selector.Attrs{Role: "A"}},
			{Attrs: selector.Attrs{Role: "B"}},
		},
	}

	compact := CompactYaml(root)
	verbose, err := VerboseJson(root)
	require.NoError(t, err)

	assert.Equal(t, compact.IndexToBounds, verbose.IndexToBounds)
}
