package workflow

import (
	"os"
	"path/filepath"
	"strings"

	coreerrors "github.com/mediar-ai/terminator/internal/errors"
)

const entryFileName = "terminator.ts"

// ResolveEntry implements spec.md §4.F's entry-resolution rules: a directory
// must contain terminator.ts in its root or under src/, and must not contain
// any other file matching *workflow*.ts (a folder holds exactly one
// workflow). A path to a loose file inside a src/ directory resolves its
// root to the parent of src/.
func ResolveEntry(path string) (*Entry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, coreerrors.InvalidArgument("workflow path does not exist", map[string]any{"path": path})
	}

	if !info.IsDir() {
		return resolveFileEntry(path)
	}
	return resolveDirEntry(path)
}

func resolveFileEntry(path string) (*Entry, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, coreerrors.InvalidArgument("cannot resolve workflow path", map[string]any{"path": path})
	}
	dir := filepath.Dir(abs)
	if filepath.Base(dir) == "src" {
		root := filepath.Dir(dir)
		return &Entry{Root: root, File: abs}, nil
	}
	return &Entry{Root: dir, File: abs}, nil
}

func resolveDirEntry(dir string) (*Entry, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, coreerrors.InvalidArgument("cannot resolve workflow path", map[string]any{"path": dir})
	}

	var candidates []string
	var strays []string
	walkErr := filepath.WalkDir(abs, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "node_modules" || strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		name := d.Name()
		if name == entryFileName {
			candidates = append(candidates, p)
			return nil
		}
		if isWorkflowLikeName(name) {
			strays = append(strays, p)
		}
		return nil
	})
	if walkErr != nil {
		return nil, coreerrors.Platform("failed to walk workflow directory", walkErr, map[string]any{"path": abs})
	}

	entry := pickRootOrSrcEntry(abs, candidates)
	if entry == "" {
		return nil, coreerrors.InvalidArgument(
			"workflow directory has no terminator.ts in its root or src/",
			map[string]any{"path": abs})
	}

	var rejects []string
	for _, s := range strays {
		if s != entry {
			rejects = append(rejects, s)
		}
	}
	if len(rejects) > 0 {
		return nil, coreerrors.InvalidArgument(
			"workflow directory must contain a single workflow file; found extra *workflow*.ts files",
			map[string]any{"path": abs, "extra": rejects})
	}

	return &Entry{Root: abs, File: entry}, nil
}

// isWorkflowLikeName matches *.workflow.ts and *workflow*.ts, excluding the
// canonical terminator.ts itself.
func isWorkflowLikeName(name string) bool {
	if name == entryFileName {
		return false
	}
	if !strings.HasSuffix(name, ".ts") {
		return false
	}
	lower := strings.ToLower(name)
	return strings.Contains(lower, "workflow")
}

// pickRootOrSrcEntry prefers a root-level terminator.ts over one nested
// under src/, matching spec.md §4.F's "root or under src/" in that order.
func pickRootOrSrcEntry(root string, candidates []string) string {
	rootEntry := filepath.Join(root, entryFileName)
	srcEntry := filepath.Join(root, "src", entryFileName)
	for _, c := range candidates {
		if c == rootEntry {
			return c
		}
	}
	for _, c := range candidates {
		if c == srcEntry {
			return c
		}
	}
	return ""
}
