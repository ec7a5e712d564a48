package workflow

import (
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryKillAllTerminatesTrackedProcesses(t *testing.T) {
	reg := newRegistry(nil)

	cmd := exec.Command("sleep", "30")
	require.NoError(t, cmd.Start())
	reg.register(cmd)

	reg.KillAll()

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("process was not terminated by KillAll")
	}
}

func TestRegistryUnregisterRemovesProcess(t *testing.T) {
	reg := newRegistry(nil)
	cmd := exec.Command("sleep", "1")
	require.NoError(t, cmd.Start())
	reg.register(cmd)
	reg.unregister(cmd)

	assert.Len(t, reg.processes, 0)
	_ = cmd.Process.Kill()
	_ = cmd.Wait()
}
