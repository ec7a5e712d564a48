package workflow

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaterializeLocalCopyCopiesTreeAndCleansUp(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, entryFileName), "export function run(){}")
	writeFile(t, filepath.Join(src, "src", "helper.ts"), "export const x = 1;")

	copyRoot, cleanup, err := materializeLocalCopy(context.Background(), src)
	require.NoError(t, err)
	require.NotEqual(t, src, copyRoot)

	data, err := os.ReadFile(filepath.Join(copyRoot, entryFileName))
	require.NoError(t, err)
	assert.Equal(t, "export function run(){}", string(data))

	nested, err := os.ReadFile(filepath.Join(copyRoot, "src", "helper.ts"))
	require.NoError(t, err)
	assert.Equal(t, "export const x = 1;", string(nested))

	cleanup()
	_, statErr := os.Stat(copyRoot)
	assert.True(t, os.IsNotExist(statErr))
}

func TestGoCopyTreePreservesDirectoryStructure(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeFile(t, filepath.Join(src, "a", "b.txt"), "hello")

	require.NoError(t, goCopyTree(src, dst))

	data, err := os.ReadFile(filepath.Join(dst, "a", "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}
