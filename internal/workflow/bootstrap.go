package workflow

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"

	coreerrors "github.com/mediar-ai/terminator/internal/errors"
	"github.com/mediar-ai/terminator/internal/logging"
)

// lockfileFor maps a package manager to the lockfile it owns.
var lockfileFor = map[string]string{
	"bun": "bun.lockb",
	"npm": "package-lock.json",
}

// bootstrapDeps implements spec.md §4.F's dependency bootstrap: when
// package.json exists, run the package manager (bun if available, else
// npm) install iff the lockfile is missing or package.json is newer than it
// by mtime.
func bootstrapDeps(ctx context.Context, root string, log logging.Logger) error {
	manager, needsInstall, err := planBootstrap(root, hasBun())
	if err != nil || !needsInstall {
		return err
	}

	log.Info("workflow: running %s install in %s", manager, root)
	cmd := exec.CommandContext(ctx, manager, "install")
	cmd.Dir = root
	out, runErr := cmd.CombinedOutput()
	if runErr != nil {
		return coreerrors.Platform("dependency bootstrap failed", runErr, map[string]any{
			"manager": manager,
			"output":  string(out),
		})
	}
	return nil
}

// planBootstrap decides which package manager to use and whether install
// is needed, without touching exec.Command, so the decision is unit
// testable against a plain temp directory.
func planBootstrap(root string, bunAvailable bool) (manager string, needsInstall bool, err error) {
	pkgJSON := filepath.Join(root, "package.json")
	pkgInfo, statErr := os.Stat(pkgJSON)
	if statErr != nil {
		return "", false, nil // no package.json: nothing to bootstrap
	}

	manager = "npm"
	if bunAvailable {
		manager = "bun"
	}
	lockfile := filepath.Join(root, lockfileFor[manager])

	needsInstall = true
	if lockInfo, lerr := os.Stat(lockfile); lerr == nil {
		needsInstall = pkgInfo.ModTime().After(lockInfo.ModTime())
	}
	return manager, needsInstall, nil
}

func hasBun() bool {
	_, err := exec.LookPath("bun")
	return err == nil
}
