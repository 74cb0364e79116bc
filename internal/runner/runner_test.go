// SPDX-License-Identifier: MIT

//go:build unix

package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// writeScript installs an executable shell script standing in for Cc4s.
// The script runs with the calculation directory as its working directory.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-cc4s")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func testExecutor(t *testing.T, script string) *Executor {
	t.Helper()
	ex := NewExecutor(script, nil, zerolog.Nop())
	ex.Grace = 2 * time.Second
	return ex
}

func TestExecutorArgs(t *testing.T) {
	ex := NewExecutor("", nil, zerolog.Nop())
	assert.Equal(t, []string{"Cc4s", "-i", "cc4s.in", "-o", "cc4s.out.yaml", "-l", "cc4s.log"}, ex.args())

	ex = NewExecutor("/opt/cc4s/Cc4s", []string{"mpirun", "-np", "4"}, zerolog.Nop())
	ex.DryRunRanks = 16
	assert.Equal(t, []string{
		"mpirun", "-np", "4",
		"/opt/cc4s/Cc4s",
		"-i", "cc4s.in",
		"-o", "cc4s.out.yaml",
		"-l", "cc4s.log",
		"-d", "16",
	}, ex.args())
}

func TestExecutorRunSuccess(t *testing.T) {
	defer goleak.VerifyNone(t)

	script := writeScript(t, `echo captured-out
echo captured-err >&2
printf 'status: ok\n' > cc4s.out.yaml`)
	dir := t.TempDir()

	h, err := testExecutor(t, script).Start(context.Background(), dir)
	require.NoError(t, err)
	require.NoError(t, h.Wait())

	out, err := os.ReadFile(filepath.Join(dir, StdoutFile))
	require.NoError(t, err)
	assert.Equal(t, "captured-out\n", string(out))

	errOut, err := os.ReadFile(filepath.Join(dir, StderrFile))
	require.NoError(t, err)
	assert.Equal(t, "captured-err\n", string(errOut))

	assert.Equal(t, []string{"captured-err"}, h.Diagnostics())
}

func TestExecutorCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	script := writeScript(t, `sleep 60`)
	dir := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	ex := testExecutor(t, script)
	ex.Grace = 500 * time.Millisecond

	h, err := ex.Start(ctx, dir)
	require.NoError(t, err)

	cancel()

	done := make(chan error, 1)
	go func() { done <- h.Wait() }()
	select {
	case werr := <-done:
		require.Error(t, werr)
	case <-time.After(10 * time.Second):
		t.Fatal("process did not terminate after cancel")
	}
}

func TestExecutorCancelKillsProcessGroup(t *testing.T) {
	defer goleak.VerifyNone(t)

	// The background child ignores SIGTERM, the way a stuck MPI rank
	// would. Only a group-wide SIGKILL stops it before the marker file
	// appears.
	script := writeScript(t, `(trap '' TERM; sleep 2; echo leaked > leaked.txt) &
sleep 60`)
	dir := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	ex := testExecutor(t, script)
	ex.Grace = 500 * time.Millisecond

	h, err := ex.Start(ctx, dir)
	require.NoError(t, err)

	cancel()
	require.Error(t, h.Wait())

	marker := filepath.Join(dir, "leaked.txt")
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(marker); err == nil {
			t.Fatal("background process survived cancellation")
		}
		time.Sleep(100 * time.Millisecond)
	}
}

func TestExecutorStopEscalates(t *testing.T) {
	defer goleak.VerifyNone(t)

	script := writeScript(t, `trap '' TERM
while :; do sleep 1; done`)
	dir := t.TempDir()

	h, err := testExecutor(t, script).Start(context.Background(), dir)
	require.NoError(t, err)

	require.NoError(t, h.Stop(300*time.Millisecond, syscall.SIGKILL))

	done := make(chan error, 1)
	go func() { done <- h.Wait() }()
	select {
	case werr := <-done:
		require.Error(t, werr)
	case <-time.After(5 * time.Second):
		t.Fatal("process ignored SIGTERM and was not killed")
	}
}

func TestExecutorWaitSurvivesLongStderrLine(t *testing.T) {
	defer goleak.VerifyNone(t)

	// A single 128 KiB stderr line exceeds bufio.Scanner's default
	// token size; capture must keep going.
	script := writeScript(t, `head -c 131072 /dev/zero | tr '\0' x >&2
echo after-long-line >&2`)
	dir := t.TempDir()

	h, err := testExecutor(t, script).Start(context.Background(), dir)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- h.Wait() }()
	select {
	case werr := <-done:
		require.NoError(t, werr)
	case <-time.After(8 * time.Second):
		t.Fatal("wait hung on oversized stderr line")
	}

	assert.Contains(t, h.Diagnostics(), "after-long-line")
}

func TestExecutorWaitDrainsOversizedStderr(t *testing.T) {
	defer goleak.VerifyNone(t)

	// Past the raised 1 MiB scanner limit the pipe is drained straight
	// into the stderr file instead of stalling the child.
	script := writeScript(t, `head -c 2097152 /dev/zero | tr '\0' x >&2
echo tail >&2`)
	dir := t.TempDir()

	h, err := testExecutor(t, script).Start(context.Background(), dir)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- h.Wait() }()
	select {
	case werr := <-done:
		require.NoError(t, werr)
	case <-time.After(8 * time.Second):
		t.Fatal("wait hung on oversized stderr line")
	}

	info, err := os.Stat(filepath.Join(dir, StderrFile))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, info.Size(), int64(2097152))
}

func TestExecutorStartMissingBinary(t *testing.T) {
	ex := NewExecutor(filepath.Join(t.TempDir(), "no-such-binary"), nil, zerolog.Nop())
	_, err := ex.Start(context.Background(), t.TempDir())
	require.Error(t, err)
}

func TestSupervisorSuccess(t *testing.T) {
	defer goleak.VerifyNone(t)

	script := writeScript(t, `printf 'status: ok\n' > cc4s.out.yaml`)
	dir := t.TempDir()

	sup := NewSupervisor(testExecutor(t, script), 3)
	report, err := sup.Run(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, report.Attempts, 1)
	assert.Empty(t, report.Attempts[0].Err)
}

func TestSupervisorUnhandledFailure(t *testing.T) {
	script := writeScript(t, `echo boom >&2; exit 1`)
	dir := t.TempDir()

	sup := NewSupervisor(testExecutor(t, script), 3)
	report, err := sup.Run(context.Background(), dir)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMaxErrors)
	require.Len(t, report.Attempts, 1)
	assert.Contains(t, report.Diagnostics, "boom")
}

type stubHandler struct {
	name    string
	correct func(dir string) error
	applied int
}

func (h *stubHandler) Name() string          { return h.name }
func (h *stubHandler) Check(dir string) bool { return true }

func (h *stubHandler) Correct(dir string) error {
	h.applied++
	if h.correct != nil {
		return h.correct(dir)
	}
	return nil
}

func TestSupervisorMaxErrors(t *testing.T) {
	script := writeScript(t, `exit 1`)
	dir := t.TempDir()

	h := &stubHandler{name: "noop"}
	sup := NewSupervisor(testExecutor(t, script), 3)
	sup.Handlers = []Handler{h}

	report, err := sup.Run(context.Background(), dir)
	require.ErrorIs(t, err, ErrMaxErrors)
	assert.Len(t, report.Attempts, 3)
	assert.Equal(t, 2, h.applied)
}

func TestSupervisorHandlerCorrects(t *testing.T) {
	// The fake binary fails until the handler drops a marker file.
	script := writeScript(t, `if [ -f fixed ]; then printf 'status: ok\n' > cc4s.out.yaml; exit 0; fi
exit 1`)
	dir := t.TempDir()

	h := &stubHandler{
		name: "drop-marker",
		correct: func(dir string) error {
			return os.WriteFile(filepath.Join(dir, "fixed"), nil, 0o640)
		},
	}
	sup := NewSupervisor(testExecutor(t, script), 5)
	sup.Handlers = []Handler{h}

	report, err := sup.Run(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, report.Attempts, 2)
	assert.Equal(t, "drop-marker", report.Attempts[0].Handler)
	assert.Equal(t, 1, h.applied)
}

func TestSupervisorHandlerFailure(t *testing.T) {
	script := writeScript(t, `exit 1`)
	dir := t.TempDir()

	h := &stubHandler{
		name:    "broken",
		correct: func(string) error { return errors.New("cannot fix") },
	}
	sup := NewSupervisor(testExecutor(t, script), 5)
	sup.Handlers = []Handler{h}

	_, err := sup.Run(context.Background(), dir)
	require.Error(t, err)
	require.ErrorContains(t, err, "handler broken")
}

func TestSupervisorValidatorRejects(t *testing.T) {
	// Exits cleanly but never writes the output file.
	script := writeScript(t, `exit 0`)
	dir := t.TempDir()

	sup := NewSupervisor(testExecutor(t, script), 3)
	_, err := sup.Run(context.Background(), dir)
	require.ErrorIs(t, err, ErrValidation)
}

func TestSupervisorCanceledContext(t *testing.T) {
	script := writeScript(t, `sleep 60`)
	dir := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	ex := testExecutor(t, script)
	ex.Grace = 500 * time.Millisecond
	sup := NewSupervisor(ex, 3)

	go func() {
		time.Sleep(200 * time.Millisecond)
		cancel()
	}()

	_, err := sup.Run(ctx, dir)
	require.ErrorIs(t, err, context.Canceled)
}

func TestParseOutput(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, OutputFile),
		[]byte("steps:\n  - name: Read\n    realtime: \"0.12\"\n"), 0o640))

	out, err := ParseOutput(dir)
	require.NoError(t, err)
	assert.Contains(t, out, "steps")
}

func TestOutputValidator(t *testing.T) {
	v := OutputValidator{}
	assert.Equal(t, "output", v.Name())

	dir := t.TempDir()
	require.Error(t, v.Validate(dir), "missing output file must fail")

	require.NoError(t, os.WriteFile(filepath.Join(dir, OutputFile),
		[]byte("key: [broken\n"), 0o640))
	require.Error(t, v.Validate(dir), "unparseable output must fail")

	require.NoError(t, os.WriteFile(filepath.Join(dir, OutputFile),
		[]byte("totalEnergy: -1.234\n"), 0o640))
	require.NoError(t, v.Validate(dir))
}

func TestRingBuffer(t *testing.T) {
	rb := newRingBuffer(3)
	assert.Empty(t, rb.GetAll())

	rb.Add("a")
	rb.Add("b")
	assert.Equal(t, []string{"a", "b"}, rb.GetAll())

	rb.Add("c")
	rb.Add("d")
	assert.Equal(t, []string{"b", "c", "d"}, rb.GetAll())
}
