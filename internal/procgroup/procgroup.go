// SPDX-License-Identifier: MIT

// Package procgroup manages process groups for external calculation binaries.
package procgroup

import (
	"errors"
	"os/exec"
)

var (
	ErrProcessNotFound = errors.New("process not found")
	ErrKillFailed      = errors.New("kill operation failed")
)

// Set configures the command to start in a new process group.
// Mandatory for Kill to reap the whole group, including MPI ranks
// spawned by a launcher.
func Set(cmd *exec.Cmd) {
	set(cmd)
}
