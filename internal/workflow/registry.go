package workflow

import (
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/mediar-ai/terminator/internal/logging"
)

// registry tracks every subprocess this host has spawned, by PID, so
// Shutdown can kill stragglers even when a caller never waited on them
// (spec.md §4.F "child-process registry"). Grounded on the teacher's
// devops/process.Manager map+mutex shape, simplified: this host only needs
// the lifetime of its own process, not PID-file recovery across restarts.
type registry struct {
	mu        sync.Mutex
	processes map[int]*exec.Cmd
	log       logging.Logger
}

func newRegistry(log logging.Logger) *registry {
	return &registry{processes: map[int]*exec.Cmd{}, log: logging.OrNop(log)}
}

func (r *registry) register(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	r.mu.Lock()
	r.processes[cmd.Process.Pid] = cmd
	r.mu.Unlock()
}

func (r *registry) unregister(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	r.mu.Lock()
	delete(r.processes, cmd.Process.Pid)
	r.mu.Unlock()
}

// KillAll terminates every still-registered subprocess. Called on host
// shutdown so cancellation never leaks a running workflow runtime
// (spec.md §5 "never leaks OS resources").
func (r *registry) KillAll() {
	r.mu.Lock()
	cmds := make([]*exec.Cmd, 0, len(r.processes))
	for _, c := range r.processes {
		cmds = append(cmds, c)
	}
	r.processes = map[int]*exec.Cmd{}
	r.mu.Unlock()

	for _, cmd := range cmds {
		killGracefully(cmd.Process, r.log)
	}
}

// killGracefully asks the process to terminate and escalates to Kill if it
// hasn't exited shortly after. os.Interrupt is unimplemented on Windows and
// errors immediately there, which falls straight through to Kill — the
// graceful path is strictly best-effort.
func killGracefully(p *os.Process, log logging.Logger) {
	if p == nil {
		return
	}
	if err := p.Signal(os.Interrupt); err != nil {
		_ = p.Kill()
		return
	}

	done := make(chan struct{})
	go func() {
		_, _ = p.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		log.Warn("workflow: pid %d did not exit after interrupt, killing", p.Pid)
		_ = p.Kill()
	}
}
