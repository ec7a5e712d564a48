package logexec

import (
	"os"
	"path/filepath"
	"time"
)

// Sweep deletes every artifact whose 8-character date prefix is older than
// RetentionDays, across the standalone executions directory and every
// workflow's executions directory (spec.md §4.G item 4, property P7: a
// file is deleted iff its prefix is lexicographically < the cutoff).
func (l *Logger) Sweep(now time.Time) error {
	cutoff := now.UTC().AddDate(0, 0, -l.cfg.RetentionDays).Format("20060102")

	standalone, err := standaloneDir(l.cfg.RootDir)
	if err != nil {
		return err
	}
	if err := sweepDir(standalone, cutoff, l.log); err != nil {
		return err
	}

	workflowsRoot := filepath.Dir(standalone) // .../mediar
	workflowsRoot = filepath.Join(workflowsRoot, "workflows")
	entries, err := os.ReadDir(workflowsRoot)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(workflowsRoot, e.Name(), "executions")
		if serr := sweepDir(dir, cutoff, l.log); serr != nil {
			l.log.Warn("logexec: retention sweep failed for %s: %v", dir, serr)
		}
	}
	return nil
}

// sweepDir deletes files in dir whose leading 8-char date prefix sorts
// lexicographically before cutoff. dir may not exist, which is not an error
// (nothing to sweep yet).
func sweepDir(dir, cutoff string, log interface {
	Warn(format string, args ...any)
}) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if len(name) < 8 {
			continue
		}
		prefix := name[:8]
		if !isDatePrefix(prefix) {
			continue
		}
		if prefix < cutoff {
			path := filepath.Join(dir, name)
			if rerr := os.Remove(path); rerr != nil && log != nil {
				log.Warn("logexec: failed to remove expired artifact %s: %v", path, rerr)
			}
		}
	}
	return nil
}

func isDatePrefix(s string) bool {
	if len(s) != 8 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
