// SPDX-License-Identifier: MIT

package procgroup

import (
	"os/exec"
	"syscall"
	"time"

	"github.com/ManuGH/cc4sflow/internal/metrics"
)

// Terminate gracefully stops a process group. It sends SIGTERM to the
// group, waits until exited is closed (by whoever reaps the process) or
// grace passes, and then sends kill to the group id. The final signal
// targets pgid directly because the group leader may already be reaped
// while launcher-spawned members, e.g. MPI ranks, are still running.
// It is safe to call on nil or unstarted commands.
func Terminate(cmd *exec.Cmd, pgid int, exited <-chan struct{}, grace time.Duration, kill syscall.Signal) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}

	if err := Kill(cmd, syscall.SIGTERM); err != nil {
		metrics.IncProcTerminate("SIGTERM", "error")
	} else {
		metrics.IncProcTerminate("SIGTERM", "sent")
	}

	select {
	case <-exited:
	case <-time.After(grace):
	}

	if err := KillGroup(pgid, kill); err != nil {
		metrics.IncProcTerminate(signalName(kill), "error")
		return err
	}
	metrics.IncProcTerminate(signalName(kill), "sent")
	return nil
}

func signalName(sig syscall.Signal) string {
	switch sig {
	case syscall.SIGTERM:
		return "SIGTERM"
	case syscall.SIGKILL:
		return "SIGKILL"
	default:
		return sig.String()
	}
}
