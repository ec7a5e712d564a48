package workflow

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/google/uuid"

	coreerrors "github.com/mediar-ai/terminator/internal/errors"
)

// materializeLocalCopy implements spec.md §4.F's local-copy execution mode:
// a unique temp directory is created, the workflow folder recursively
// copied into it with the OS's fastest recursive-copy utility, and the
// caller is handed the new root plus a cleanup function it must call when
// execution completes (success or failure).
func materializeLocalCopy(ctx context.Context, root string) (newRoot string, cleanup func(), err error) {
	tmp := filepath.Join(os.TempDir(), "mcp-exec-"+uuid.NewString())
	if mkErr := os.MkdirAll(tmp, 0o755); mkErr != nil {
		return "", nil, coreerrors.Platform("failed to create local-copy temp dir", mkErr, map[string]any{"dir": tmp})
	}
	cleanup = func() { _ = os.RemoveAll(tmp) }

	if cpErr := recursiveCopy(ctx, root, tmp); cpErr != nil {
		cleanup()
		return "", nil, cpErr
	}
	return tmp, cleanup, nil
}

// recursiveCopy shells out to the platform's fastest recursive-copy
// utility, falling back to a pure-Go walk-and-copy if that utility isn't
// on PATH.
func recursiveCopy(ctx context.Context, src, dst string) error {
	if runtime.GOOS == "windows" {
		if _, err := exec.LookPath("robocopy"); err == nil {
			return robocopy(ctx, src, dst)
		}
		return goCopyTree(src, dst)
	}
	if _, err := exec.LookPath("cp"); err == nil {
		cmd := exec.CommandContext(ctx, "cp", "-a", src+"/.", dst)
		if out, err := cmd.CombinedOutput(); err != nil {
			return coreerrors.Platform("recursive copy failed", err, map[string]any{"output": string(out)})
		}
		return nil
	}
	return goCopyTree(src, dst)
}

// robocopy treats exit codes 0..7 as success, per spec.md §4.F's explicit
// Windows carve-out (robocopy's exit codes are a bitmask of "files
// copied/skipped/mismatched", not the usual 0-is-success convention).
func robocopy(ctx context.Context, src, dst string) error {
	cmd := exec.CommandContext(ctx, "robocopy", src, dst, "/E")
	out, err := cmd.CombinedOutput()
	if exitErr, ok := err.(*exec.ExitError); ok {
		code := exitErr.ExitCode()
		if code >= 0 && code <= 7 {
			return nil
		}
		return coreerrors.Platform("robocopy failed", err, map[string]any{"exit_code": code, "output": string(out)})
	}
	return err
}

func goCopyTree(src, dst string) error {
	return filepath.WalkDir(src, func(p string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, 0o644)
	})
}
