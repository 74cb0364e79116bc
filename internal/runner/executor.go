// SPDX-License-Identifier: MIT

// Package runner starts and supervises the Cc4s binary.
package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	xglog "github.com/ManuGH/cc4sflow/internal/log"
	"github.com/ManuGH/cc4sflow/internal/metrics"
	"github.com/ManuGH/cc4sflow/internal/procgroup"
)

// Canonical file names inside a calculation directory.
const (
	InputFile  = "cc4s.in"
	OutputFile = "cc4s.out.yaml"
	LogFile    = "cc4s.log"
	StdoutFile = "cc4s.stdout"
	StderrFile = "cc4s.stderr"
)

// diagnosticLines is how many stderr lines are retained for error reports.
const diagnosticLines = 100

// Executor starts Cc4s processes in calculation directories.
type Executor struct {
	Binary   string   // path to the Cc4s binary, defaults to "Cc4s"
	Launcher []string // optional launcher prefix, e.g. {"mpirun", "-np", "4"}

	// DryRunRanks, when > 0, adds the -d flag so Cc4s only plans the
	// calculation for that many ranks.
	DryRunRanks int

	// Grace is how long a cancelled process gets between SIGTERM and
	// SIGKILL.
	Grace time.Duration

	Logger zerolog.Logger
}

// NewExecutor builds an Executor with defaults filled in.
func NewExecutor(binary string, launcher []string, logger zerolog.Logger) *Executor {
	if binary == "" {
		binary = "Cc4s"
	}
	return &Executor{
		Binary:   binary,
		Launcher: launcher,
		Grace:    10 * time.Second,
		Logger:   logger,
	}
}

// args builds the full argv for one run.
func (e *Executor) args() []string {
	argv := append([]string{}, e.Launcher...)
	argv = append(argv, e.Binary,
		"-i", InputFile,
		"-o", OutputFile,
		"-l", LogFile,
	)
	if e.DryRunRanks > 0 {
		argv = append(argv, "-d", strconv.Itoa(e.DryRunRanks))
	}
	return argv
}

// Start launches Cc4s in dir. The returned handle observes the process;
// cancelling ctx terminates the whole process group, SIGTERM first.
func (e *Executor) Start(ctx context.Context, dir string) (*Handle, error) {
	argv := e.args()

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	procgroup.Set(cmd)

	stdout, err := os.Create(filepath.Join(dir, StdoutFile))
	if err != nil {
		return nil, fmt.Errorf("create stdout file: %w", err)
	}
	cmd.Stdout = stdout

	stderrFile, err := os.Create(filepath.Join(dir, StderrFile))
	if err != nil {
		_ = stdout.Close()
		return nil, fmt.Errorf("create stderr file: %w", err)
	}

	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		_ = stdout.Close()
		_ = stderrFile.Close()
		return nil, fmt.Errorf("pipe stderr: %w", err)
	}

	h := &Handle{
		cmd:    cmd,
		done:   make(chan struct{}),
		ring:   newRingBuffer(diagnosticLines),
		stdout: stdout,
		stderr: stderrFile,
	}

	// WaitDelay only reaps the direct child and unblocks the pipes.
	// Launcher-spawned group members, e.g. MPI ranks that ignore
	// SIGTERM, need the group-wide escalation in Stop.
	cmd.Cancel = func() error {
		go func() { _ = h.Stop(e.Grace, syscall.SIGKILL) }()
		return nil
	}
	cmd.WaitDelay = e.Grace

	if err := cmd.Start(); err != nil {
		_ = stdout.Close()
		_ = stderrFile.Close()
		return nil, fmt.Errorf("start %s: %w", argv[0], err)
	}

	e.Logger.Info().
		Strs("argv", argv).
		Str(xglog.FieldDir, dir).
		Int("pid", cmd.Process.Pid).
		Msg("cc4s started")

	go h.monitor(stderrPipe)
	return h, nil
}

// Handle observes a running Cc4s process.
type Handle struct {
	cmd    *exec.Cmd
	done   chan struct{}
	err    error
	ring   *ringBuffer
	stdout *os.File
	stderr *os.File
}

// Wait blocks until the process exits and returns its exit error.
func (h *Handle) Wait() error {
	<-h.done
	return h.err
}

// Stop terminates the run. The process group gets SIGTERM, grace to
// exit, and then kill for any member still alive. Stop returns once
// the escalation is done; use Wait for the exit status.
func (h *Handle) Stop(grace time.Duration, kill syscall.Signal) error {
	var pgid int
	if h.cmd.Process != nil {
		// Setpgid makes the child its own group leader, so its PID is
		// the group id even after the leader itself has been reaped.
		pgid = h.cmd.Process.Pid
	}
	return procgroup.Terminate(h.cmd, pgid, h.done, grace, kill)
}

// Diagnostics returns the last captured stderr lines.
func (h *Handle) Diagnostics() []string {
	return h.ring.GetAll()
}

// monitor mirrors stderr into the file and the diagnostic ring, then
// reaps the process.
func (h *Handle) monitor(stderr io.Reader) {
	defer close(h.done)

	w := bufio.NewWriter(h.stderr)
	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		h.ring.Add(line)
		_, _ = w.WriteString(line)
		_ = w.WriteByte('\n')
		_ = w.Flush() // line buffering, the file is a live diagnostic
	}
	if err := scanner.Err(); err != nil {
		// A token over the scanner limit stops the loop. Keep draining
		// into the file so the child never blocks on a full pipe.
		h.ring.Add(fmt.Sprintf("stderr capture stopped: %v", err))
		_, _ = io.Copy(w, stderr)
		_ = w.Flush()
	}

	h.err = h.cmd.Wait()
	_ = h.stdout.Close()
	_ = h.stderr.Close()

	if h.err == nil {
		metrics.IncProcWait("exit0")
	} else {
		metrics.IncProcWait("exit_nonzero")
	}
}
