package workflow

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/google/uuid"

	coreerrors "github.com/mediar-ai/terminator/internal/errors"
	"github.com/mediar-ai/terminator/internal/logging"
)

// Config configures a Host.
type Config struct {
	RuntimeBinary  string // "bun" or "node"
	Mode           Mode   // direct|local-copy
	ParentPollSecs int
	Logger         logging.Logger
}

func (c Config) withDefaults() Config {
	if c.RuntimeBinary == "" {
		c.RuntimeBinary = "bun"
	}
	if c.Mode == "" {
		c.Mode = ModeDirect
	}
	if c.ParentPollSecs <= 0 {
		c.ParentPollSecs = 1
	}
	return c
}

// Host is the Workflow Host of spec.md §4.F: it resolves a workflow entry,
// bootstraps dependencies, launches the runtime subprocess with a
// synthesized driver, and collects a parsed result.
type Host struct {
	cfg Config
	log logging.Logger
	reg *registry
}

// New constructs a Host.
func New(cfg Config) *Host {
	cfg = cfg.withDefaults()
	log := logging.OrNop(cfg.Logger).With(map[string]any{"component": "workflow"})
	return &Host{cfg: cfg, log: log, reg: newRegistry(log)}
}

// Shutdown kills every still-running subprocess this host has spawned.
// Callers must invoke this on process exit so cancellation never leaks an
// OS process (spec.md §5).
func (h *Host) Shutdown() {
	h.reg.KillAll()
}

// Execute runs one workflow invocation end to end and returns its parsed
// result plus the captured log buffer. ctx governs cancellation: every
// suspension inside selects on ctx.Done(), and on cancellation the host
// still runs its full teardown path (pipe shutdown, log drain, registry
// unregister) before returning.
func (h *Host) Execute(ctx context.Context, path string, opts RunOptions) (*Outcome, error) {
	entry, err := ResolveEntry(path)
	if err != nil {
		return nil, err
	}

	if err := bootstrapDeps(ctx, entry.Root, h.log); err != nil {
		return nil, err
	}

	execRoot := entry.Root
	entryFile := entry.File
	if h.cfg.Mode == ModeLocalCopy {
		rel, relErr := filepath.Rel(entry.Root, entry.File)
		if relErr != nil {
			return nil, coreerrors.Platform("failed to compute entry path for local copy", relErr, nil)
		}
		copyRoot, cleanup, cpErr := materializeLocalCopy(ctx, entry.Root)
		if cpErr != nil {
			return nil, cpErr
		}
		defer cleanup()
		execRoot = copyRoot
		entryFile = filepath.Join(copyRoot, rel)
	}

	return h.run(ctx, execRoot, entryFile, opts)
}

func (h *Host) run(ctx context.Context, execRoot, entryFile string, opts RunOptions) (*Outcome, error) {
	recv := newIPCReceiver(h.log)

	var pipes *pipePair
	if pipesSupported {
		p, err := newPipePair(execRoot)
		if err != nil {
			h.log.Warn("workflow: named pipes unavailable, falling back to stderr: %v", err)
		} else {
			pipes = p
			defer pipes.cleanup()
		}
	}

	driverPath, driverCleanup, err := writeDriverFile(execRoot, entryFile, pipes, h.cfg.ParentPollSecs, opts)
	if err != nil {
		return nil, err
	}
	defer driverCleanup()

	// A plain exec.Command, not CommandContext: waitForExit owns
	// cancellation (graceful-then-kill via killGracefully), so a second,
	// conflicting hard-kill-on-cancel from CommandContext would race it.
	cmd := exec.Command(h.cfg.RuntimeBinary, driverPath)
	cmd.Dir = execRoot
	cmd.Env = os.Environ()

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf

	stderrPipeRead, stderrPipeWrite, perr := os.Pipe()
	if perr != nil {
		return nil, coreerrors.Platform("failed to create stderr capture pipe", perr, nil)
	}
	cmd.Stderr = stderrPipeWrite

	var eventDrained, logDrained <-chan struct{}
	if pipes != nil {
		eventDrained = startPipeReader(pipes.EventPath, recv.parseEventLine, h.log)
		logDrained = startPipeReader(pipes.LogPath, recv.parseLogLine, h.log)
	}
	stderrDrained := drainPipe(stderrPipeRead, func(line string) {
		stderrBuf.WriteString(line + "\n")
		if pipes == nil {
			if bytes.Contains([]byte(line), []byte(`"__mcp_event__":true`)) {
				recv.parseEventLine(line)
			} else {
				recv.parseLogLine(line)
			}
		}
	})

	if err := cmd.Start(); err != nil {
		_ = stderrPipeWrite.Close()
		_ = stderrPipeRead.Close()
		return nil, coreerrors.Platform("failed to start workflow runtime", err, map[string]any{"runtime": h.cfg.RuntimeBinary})
	}
	h.reg.register(cmd)

	waitErr := h.waitForExit(ctx, cmd)
	_ = stderrPipeWrite.Close()
	<-stderrDrained
	if eventDrained != nil {
		<-eventDrained
	}
	if logDrained != nil {
		<-logDrained
	}
	h.reg.unregister(cmd)

	if coreerrors.IsKind(waitErr, coreerrors.KindOperationCancelled) {
		return &Outcome{Logs: recv.Logs()}, waitErr
	}

	exitCode := 0
	if waitErr != nil {
		if exitErr, ok := waitErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return nil, coreerrors.Platform("workflow runtime failed to run", waitErr, nil)
		}
	}

	result, parsed := extractTrailingJSON(stdoutBuf.String())
	logs := recv.Logs()

	if exitCode != 0 {
		var resultPtr *RunResult
		if parsed {
			resultPtr = &result
		}
		return nil, buildSubprocessError(exitCode, stdoutBuf.String(), stderrBuf.String(), resultPtr, logs)
	}
	if !parsed {
		return nil, buildSubprocessError(0, stdoutBuf.String(), stderrBuf.String(), nil, logs)
	}

	return &Outcome{Result: result, Logs: logs}, nil
}

// waitForExit waits on the subprocess, select-racing ctx cancellation per
// spec.md §5's "every suspension selects on the cancellation token". On
// cancellation it kills the process and still waits for it to actually
// exit so no OS resource is leaked.
func (h *Host) waitForExit(ctx context.Context, cmd *exec.Cmd) error {
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		killGracefully(cmd.Process, h.log)
		<-done
		return coreerrors.Cancelled("workflow execution cancelled")
	}
}

func startPipeReader(path string, parse func(string), log logging.Logger) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		f, err := os.OpenFile(path, os.O_RDONLY, 0)
		if err != nil {
			log.Warn("workflow: failed to open pipe %s: %v", path, err)
			return
		}
		defer f.Close()
		<-drainPipe(f, parse)
	}()
	return done
}

func writeDriverFile(execRoot, entryFile string, pipes *pipePair, parentPollSecs int, opts RunOptions) (path string, cleanup func(), err error) {
	params := driverParams{
		EntryFile:      entryFile,
		ParentPID:      os.Getpid(),
		ParentPollSecs: parentPollSecs,
		Run:            opts,
	}
	if pipes != nil {
		params.EventPipe = pipes.EventPath
		params.LogPipe = pipes.LogPath
	}

	script, err := buildDriverScript(params)
	if err != nil {
		return "", nil, fmt.Errorf("build driver script: %w", err)
	}

	name := filepath.Join(execRoot, ".terminator-driver-"+uuid.NewString()+".mjs")
	if werr := os.WriteFile(name, []byte(script), 0o600); werr != nil {
		return "", nil, coreerrors.Platform("failed to write driver script", werr, map[string]any{"path": name})
	}
	return name, func() { _ = os.Remove(name) }, nil
}
