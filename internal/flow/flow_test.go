// SPDX-License-Identifier: MIT

//go:build unix

package flow

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"gopkg.in/yaml.v3"

	"github.com/ManuGH/cc4sflow/internal/inputset"
	"github.com/ManuGH/cc4sflow/internal/runner"
	"github.com/ManuGH/cc4sflow/internal/vasp"
)

type stubJob struct {
	name string
	run  func(ctx context.Context, rc RunContext) (*Result, error)

	gotPrev string
}

func (j *stubJob) Name() string { return j.name }

func (j *stubJob) Run(ctx context.Context, rc RunContext) (*Result, error) {
	j.gotPrev = rc.PrevDir
	if j.run != nil {
		return j.run(ctx, rc)
	}
	return &Result{}, nil
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Coupled Cluster (CC4S)", "coupled-cluster-cc4s"},
		{"static_hf", "static-hf"},
		{"nonscf_mp2_cbs", "nonscf-mp2-cbs"},
		{"---", "job"},
		{"", "job"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, slugify(tc.in), tc.in)
	}
}

func TestRunnerSequencesJobs(t *testing.T) {
	defer goleak.VerifyNone(t)

	root := filepath.Join(t.TempDir(), "flow")
	a := &stubJob{name: "static_hf"}
	b := &stubJob{name: "nonscf_hf"}

	report, err := NewRunner(root).Run(context.Background(), "test-flow", []Job{a, b})
	require.NoError(t, err)
	require.Len(t, report.Jobs, 2)

	assert.Equal(t, StatusCompleted, report.Status)
	assert.Equal(t, filepath.Join(root, "01-static-hf"), report.Jobs[0].Dir)
	assert.Equal(t, filepath.Join(root, "02-nonscf-hf"), report.Jobs[1].Dir)
	assert.DirExists(t, report.Jobs[0].Dir)
	assert.DirExists(t, report.Jobs[1].Dir)

	assert.Empty(t, a.gotPrev, "first job has no previous directory")
	assert.Equal(t, report.Jobs[0].Dir, b.gotPrev)

	assert.NotEmpty(t, report.FlowID)
	assert.NotEqual(t, report.Jobs[0].ID, report.Jobs[1].ID)
}

func TestRunnerStopsOnFailure(t *testing.T) {
	root := filepath.Join(t.TempDir(), "flow")
	boom := errors.New("diverged")
	jobs := []Job{
		&stubJob{name: "ok"},
		&stubJob{name: "bad", run: func(context.Context, RunContext) (*Result, error) {
			return nil, boom
		}},
		&stubJob{name: "never"},
	}

	report, err := NewRunner(root).Run(context.Background(), "test-flow", jobs)
	require.ErrorIs(t, err, boom)

	assert.Equal(t, StatusFailed, report.Status)
	require.Len(t, report.Jobs, 2, "third job never runs")
	assert.Equal(t, StatusCompleted, report.Jobs[0].Status)
	assert.Equal(t, StatusFailed, report.Jobs[1].Status)
	assert.Equal(t, "diverged", report.Jobs[1].Error)
}

func TestRunnerWritesReport(t *testing.T) {
	root := filepath.Join(t.TempDir(), "flow")
	jobs := []Job{&stubJob{name: "only", run: func(context.Context, RunContext) (*Result, error) {
		return &Result{Output: map[string]interface{}{"energy": -1.5}}, nil
	}}}

	_, err := NewRunner(root).Run(context.Background(), "test-flow", jobs)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(root, ReportFile))
	require.NoError(t, err)

	var back Report
	require.NoError(t, yaml.Unmarshal(data, &back))
	assert.Equal(t, "test-flow", back.Name)
	assert.Equal(t, StatusCompleted, back.Status)
	assert.Equal(t, -1.5, back.Output["energy"])
}

func TestRunnerCanceledContext(t *testing.T) {
	root := filepath.Join(t.TempDir(), "flow")
	ctx, cancel := context.WithCancel(context.Background())
	jobs := []Job{
		&stubJob{name: "canceler", run: func(ctx context.Context, _ RunContext) (*Result, error) {
			cancel()
			return nil, ctx.Err()
		}},
		&stubJob{name: "never"},
	}

	report, err := NewRunner(root).Run(ctx, "test-flow", jobs)
	require.Error(t, err)
	assert.Equal(t, StatusCanceled, report.Status)
	assert.Len(t, report.Jobs, 1)
}

func writeOutcar(t *testing.T, dir string) {
	t.Helper()
	outcar := `   NELECT =      12.0000    total number of electrons
 k-point     1 :       0.0000    0.0000    0.0000  plane waves:    5000
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, vasp.OutcarFile), []byte(outcar), 0o640))
}

func TestVASPJobPrepareOnly(t *testing.T) {
	prevDir := t.TempDir()
	writeOutcar(t, prevDir)
	prev := vasp.NewIncar()
	prev.Set("ENCUT", 500)
	require.NoError(t, prev.WriteFile(filepath.Join(prevDir, vasp.IncarFile)))

	dir := t.TempDir()
	job := &VASPJob{Generator: vasp.NonSCFHFGenerator{}}
	result, err := job.Run(context.Background(), RunContext{Dir: dir, PrevDir: prevDir})
	require.NoError(t, err)
	assert.Equal(t, "nonscf_hf", result.Output["calc_type"])

	incar, err := vasp.ReadIncarFile(filepath.Join(dir, vasp.IncarFile))
	require.NoError(t, err)
	v, _ := incar.Get("ENCUT")
	assert.Equal(t, 500, v, "previous tags carry over")
	v, _ = incar.Get("NBANDS")
	assert.Equal(t, 5000*2-1, v)
	v, _ = incar.Get("ALGO")
	assert.Equal(t, "sub", v)
}

func TestVASPJobMissingOutcar(t *testing.T) {
	job := &VASPJob{Generator: vasp.NonSCFHFGenerator{}}
	_, err := job.Run(context.Background(), RunContext{Dir: t.TempDir(), PrevDir: t.TempDir()})
	require.ErrorIs(t, err, vasp.ErrOutcarIncomplete)
}

func TestVASPJobRunsCommand(t *testing.T) {
	dir := t.TempDir()
	job := &VASPJob{
		Generator: vasp.StaticGenerator{},
		Command:   []string{"/bin/sh", "-c", "echo converged"},
	}
	_, err := job.Run(context.Background(), RunContext{Dir: dir})
	require.NoError(t, err)

	out, err := os.ReadFile(filepath.Join(dir, "vasp.stdout"))
	require.NoError(t, err)
	assert.Equal(t, "converged\n", string(out))
}

func TestCC4SJobRequiresPrevDir(t *testing.T) {
	job := &CC4SJob{}
	_, err := job.Run(context.Background(), RunContext{Dir: t.TempDir()})
	require.ErrorIs(t, err, ErrNoPreviousDir)
}

// writeDump fabricates the files an ALGO=CC4S run leaves behind.
func writeDump(t *testing.T, dir string) {
	t.Helper()
	for _, name := range []string{
		"EigenEnergies.yaml", "EigenEnergies.elements",
		"CoulombVertex.yaml", "CoulombVertex.elements",
		"State.yaml",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x: 1\n"), 0o640))
	}
}

func TestCC4SJobEndToEnd(t *testing.T) {
	defer goleak.VerifyNone(t)

	prevDir := t.TempDir()
	writeDump(t, prevDir)

	fake := filepath.Join(t.TempDir(), "fake-cc4s")
	require.NoError(t, os.WriteFile(fake,
		[]byte("#!/bin/sh\nprintf 'totalEnergy: -7.5\\n' > cc4s.out.yaml\n"), 0o755))

	ex := runner.NewExecutor(fake, nil, zerolog.Nop())
	ex.Grace = 2 * time.Second
	job := &CC4SJob{
		Generator:  inputset.CoupledClusterGenerator{LinkFiles: true},
		Supervisor: runner.NewSupervisor(ex, 3),
	}

	dir := t.TempDir()
	result, err := job.Run(context.Background(), RunContext{Dir: dir, PrevDir: prevDir})
	require.NoError(t, err)
	assert.Equal(t, -7.5, result.Output["totalEnergy"])

	assert.FileExists(t, filepath.Join(dir, "cc4s.in"))
	assert.FileExists(t, filepath.Join(dir, "in", "EigenEnergies.yaml"))
	assert.FileExists(t, filepath.Join(dir, "in", "CoulombVertex.yaml"))
}

func TestCoupledClusterFlowJobs(t *testing.T) {
	jobs := CoupledClusterFlow{}.Jobs()
	require.Len(t, jobs, 8)

	want := []string{
		"static",
		"static_hf",
		"nonscf_hf",
		"nonscf_mp2_cbs",
		"nonscf_mp2_nos",
		"nonscf_hf_nos",
		"vasp_cc4s_dump",
		"coupled_cluster",
	}
	for i, name := range want {
		assert.Equal(t, name, jobs[i].Name())
	}
}

func TestCoupledClusterFlowDumpBands(t *testing.T) {
	jobs := CoupledClusterFlow{DumpBands: 33}.Jobs()
	dump, ok := jobs[6].(*VASPJob)
	require.True(t, ok)
	gen, ok := dump.Generator.(vasp.DumpCC4SFilesGenerator)
	require.True(t, ok)
	assert.Equal(t, 33, gen.Bands)
}
