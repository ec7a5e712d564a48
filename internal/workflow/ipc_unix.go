//go:build unix

package workflow

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
)

// newPipePair creates two FIFOs (named pipes) for one execution's event/log
// IPC, per spec.md §4.F. Unix has a native named-pipe abstraction via
// mkfifo(2); the driver opens them for writing, the host for reading.
func newPipePair(dir string) (*pipePair, error) {
	id := uuid.NewString()
	eventPath := filepath.Join(dir, fmt.Sprintf("mcp-events-%s.pipe", id))
	logPath := filepath.Join(dir, fmt.Sprintf("mcp-logs-%s.pipe", id))

	if err := syscall.Mkfifo(eventPath, 0o600); err != nil {
		return nil, fmt.Errorf("mkfifo event pipe: %w", err)
	}
	if err := syscall.Mkfifo(logPath, 0o600); err != nil {
		_ = os.Remove(eventPath)
		return nil, fmt.Errorf("mkfifo log pipe: %w", err)
	}

	return &pipePair{
		EventPath: eventPath,
		LogPath:   logPath,
		cleanup: func() {
			_ = os.Remove(eventPath)
			_ = os.Remove(logPath)
		},
	}, nil
}

const pipesSupported = true
