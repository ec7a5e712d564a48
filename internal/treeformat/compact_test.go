package treeformat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediar-ai/terminator/internal/platform"
	"github.com/mediar-ai/terminator/internal/selector"
)

func TestCompactYamlEmptyTree(t *testing.T) {
	res := CompactYaml(nil)
	assert.Equal(t, 0, res.ElementCount)
	assert.Empty(t, res.IndexToBounds)
	assert.Empty(t, res.Formatted)
}

func TestCompactYamlNumbersDenseFrom1(t *testing.T) {
	root := &platform.UINode{
		Attrs: selector.Attrs{Role: "Window", Name: "Main"},
		Children: []*platform.UINode{
			{Attrs: selector.Attrs{Role: "Button", Name: "OK", HasBounds: true, Bounds: selector.Rect{X: 10, Y: 20, W: 30, H: 15}}},
			{Attrs: selector.Attrs{Role: "Button", Name: "Cancel"}},
		},
	}

	res := CompactYaml(root)
	require.Equal(t, 3, res.ElementCount)
	require.Len(t, res.IndexToBounds, 3)

	assert.Equal(t, "Window", res.IndexToBounds[1].Role)
	assert.Equal(t, "Button", res.IndexToBounds[2].Role)
	assert.Equal(t, "OK", res.IndexToBounds[2].Name)
	assert.Equal(t, selector.Rect{X: 10, Y: 20, W: 30, H: 15}, res.IndexToBounds[2].Bounds)
	assert.Equal(t, "Cancel", res.IndexToBounds[3].Name)

	assert.Contains(t, res.Formatted, "#1 Window \"Main\"")
	assert.Contains(t, res.Formatted, "#2 Button \"OK\"")
	assert.Contains(t, res.Formatted, "bounds=(10,20,30,15)")
	assert.Contains(t, res.Formatted, "#3 Button \"Cancel\"")
}

func TestCompactYamlIndentsByDepth(t *testing.T) {
	root := &platform.UINode{
		Attrs: selector.Attrs{Role: "Window"},
		Children: []*platform.UINode{
			{
				Attrs: selector.Attrs{Role: "Pane"},
				Children: []*platform.UINode{
					{Attrs: selector.Attrs{Role: "Button", Name: "Deep"}},
				},
			},
		},
	}

	res := CompactYaml(root)
	lines := splitLines(res.Formatted)
	require.Len(t, lines, 3)
	assert.Equal(t, "", leadingSpaces(lines[0]))
	assert.Equal(t, "  ", leadingSpaces(lines[1]))
	assert.Equal(t, "    ", leadingSpaces(lines[2]))
}

func TestCompactYamlKeyAttributesAndSelector(t *testing.T) {
	root := &platform.UINode{
		Attrs: selector.Attrs{
			Role:      "Button",
			Name:      "OK",
			ClassName: "Win32Button",
			NativeID:  "42",
			Visible:   false,
			Extra:     map[string]string{"enabled": "true"},
		},
		ChainedSelector: "role:Button|name:OK",
	}

	res := CompactYaml(root)
	assert.Contains(t, res.Formatted, "class=Win32Button")
	assert.Contains(t, res.Formatted, "id=42")
	assert.Contains(t, res.Formatted, "visible=false")
	assert.Contains(t, res.Formatted, "enabled=true")
	assert.Equal(t, "role:Button|name:OK", res.IndexToBounds[1].Selector)
}

func TestCompactYamlCustomRoleFallback(t *testing.T) {
	root := &platform.UINode{Attrs: selector.Attrs{Name: "mystery"}}
	res := CompactYaml(root)
	assert.Contains(t, res.Formatted, "#1 custom")
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i, r := range s {
		if r == '\n' {
			if i > start {
				lines = append(lines, s[start:i])
			}
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}

func leadingSpaces(s string) string {
	i := 0
	for i < len(s) && s[i] == ' ' {
		i++
	}
	return s[:i]
}
