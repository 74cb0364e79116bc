// SPDX-License-Identifier: MIT

package flow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/ManuGH/cc4sflow/internal/algo"
	"github.com/ManuGH/cc4sflow/internal/inputset"
	xglog "github.com/ManuGH/cc4sflow/internal/log"
	"github.com/ManuGH/cc4sflow/internal/object"
	"github.com/ManuGH/cc4sflow/internal/procgroup"
	"github.com/ManuGH/cc4sflow/internal/runner"
	"github.com/ManuGH/cc4sflow/internal/vasp"
)

// ErrNoPreviousDir is returned when a job needs the directory of a
// preceding job but runs first in the flow.
var ErrNoPreviousDir = errors.New("no previous job directory")

// VASPJob prepares one VASP step: it merges the previous step's INCAR
// with the generator's updates and writes the result into its directory.
// When Command is set, VASP itself is run there too.
type VASPJob struct {
	Generator vasp.SetGenerator

	// Command is the full VASP argv, e.g. {"mpirun", "-np", "4",
	// "vasp_std"}. Empty means prepare-only.
	Command []string
}

// Name implements Job.
func (j *VASPJob) Name() string { return j.Generator.CalcType() }

// Run implements Job.
func (j *VASPJob) Run(ctx context.Context, rc RunContext) (*Result, error) {
	var prev *vasp.Incar
	var scan *vasp.OutcarScan
	if rc.PrevDir != "" {
		if inc, err := vasp.ReadIncarFile(filepath.Join(rc.PrevDir, vasp.IncarFile)); err == nil {
			prev = inc
		}
		if s, err := vasp.ScanOutcarFile(filepath.Join(rc.PrevDir, vasp.OutcarFile)); err == nil {
			scan = s
		}
	}

	updates, err := j.Generator.IncarUpdates(prev, scan)
	if err != nil {
		return nil, err
	}
	incar := vasp.NewIncar()
	incar.Merge(prev)
	incar.Merge(updates)

	incarPath := filepath.Join(rc.Dir, vasp.IncarFile)
	if err := incar.WriteFile(incarPath); err != nil {
		return nil, err
	}

	if len(j.Command) > 0 {
		if err := j.runVASP(ctx, rc.Dir); err != nil {
			return nil, err
		}
	}

	return &Result{Output: map[string]interface{}{
		"calc_type": j.Generator.CalcType(),
		"incar":     incarPath,
	}}, nil
}

func (j *VASPJob) runVASP(ctx context.Context, dir string) error {
	logger := xglog.WithComponentFromContext(ctx, "flow")

	stdout, err := os.Create(filepath.Join(dir, "vasp.stdout"))
	if err != nil {
		return fmt.Errorf("create vasp stdout: %w", err)
	}
	defer stdout.Close() //nolint:errcheck
	stderr, err := os.Create(filepath.Join(dir, "vasp.stderr"))
	if err != nil {
		return fmt.Errorf("create vasp stderr: %w", err)
	}
	defer stderr.Close() //nolint:errcheck

	cmd := exec.CommandContext(ctx, j.Command[0], j.Command[1:]...)
	cmd.Dir = dir
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	procgroup.Set(cmd)

	logger.Info().Strs("argv", j.Command).Str(xglog.FieldDir, dir).Msg("vasp started")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("run vasp: %w", err)
	}
	return nil
}

// CC4SJob builds the coupled-cluster input set from the preceding dump
// directory and runs Cc4s under the supervisor.
type CC4SJob struct {
	Generator  inputset.CoupledClusterGenerator
	Supervisor *runner.Supervisor
}

// Name implements Job.
func (j *CC4SJob) Name() string { return j.Generator.CalcType() }

// Run implements Job.
func (j *CC4SJob) Run(ctx context.Context, rc RunContext) (*Result, error) {
	if rc.PrevDir == "" {
		return nil, fmt.Errorf("%s: %w", j.Name(), ErrNoPreviousDir)
	}

	set, err := j.Generator.InputSet(
		filepath.Join(rc.PrevDir, object.EigenEnergies.Name+object.DescriptorExt),
		filepath.Join(rc.PrevDir, object.CoulombVertex.Name+object.DescriptorExt),
	)
	if err != nil {
		return nil, err
	}
	if err := set.Write(ctx, rc.Dir); err != nil {
		return nil, err
	}

	if _, err := j.Supervisor.Run(ctx, rc.Dir); err != nil {
		return nil, err
	}

	out, err := runner.ParseOutput(rc.Dir)
	if err != nil {
		return nil, err
	}
	return &Result{Output: out}, nil
}

// CoupledClusterFlow assembles the canonical eight-job chain: DFT static,
// HF static, HF diagonalization, MP2 CBS, MP2 natural orbitals, HF in the
// NO basis, the CC4S file dump, and the coupled-cluster run itself.
type CoupledClusterFlow struct {
	// VASPCommand runs each VASP step when set; empty prepares inputs
	// only.
	VASPCommand []string

	// DumpBands overrides the natural-orbital band count of the dump
	// step.
	DumpBands int

	// CoupledCluster tunes the final CC4S calculation.
	CoupledCluster algo.CoupledClusterOptions

	// LinkFiles stages dumped objects as symlinks instead of copies.
	LinkFiles bool

	// Supervisor runs the Cc4s binary.
	Supervisor *runner.Supervisor
}

// Name is the flow name used for the report.
func (CoupledClusterFlow) Name() string { return "coupled-cluster" }

// Jobs returns the chain in execution order.
func (f CoupledClusterFlow) Jobs() []Job {
	vaspJob := func(g vasp.SetGenerator) Job {
		return &VASPJob{Generator: g, Command: f.VASPCommand}
	}
	return []Job{
		vaspJob(vasp.StaticGenerator{}),
		vaspJob(vasp.StaticHFGenerator{}),
		vaspJob(vasp.NonSCFHFGenerator{}),
		vaspJob(vasp.NonSCFMP2CBSGenerator{}),
		vaspJob(vasp.NonSCFMP2NOsGenerator{}),
		vaspJob(vasp.NonSCFHFNOsGenerator{}),
		vaspJob(vasp.DumpCC4SFilesGenerator{Bands: f.DumpBands}),
		&CC4SJob{
			Generator: inputset.CoupledClusterGenerator{
				Options:   f.CoupledCluster,
				LinkFiles: f.LinkFiles,
			},
			Supervisor: f.Supervisor,
		},
	}
}
