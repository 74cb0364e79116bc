// SPDX-License-Identifier: MIT

// Package flow sequences calculation jobs, each in its own directory
// under a flow root, threading the previous job's directory to the next.
package flow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/ManuGH/cc4sflow/internal/fsutil"
	xglog "github.com/ManuGH/cc4sflow/internal/log"
	"github.com/ManuGH/cc4sflow/internal/metrics"
)

// ReportFile is where the flow report lands under the flow root.
const ReportFile = "flow.yaml"

// Status of a job or a whole flow.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCanceled  Status = "canceled"
)

// RunContext hands a job its working directory and the directory of the
// job before it.
type RunContext struct {
	// Dir is the job's own directory, already created.
	Dir string

	// PrevDir is the previous job's directory, empty for the first job.
	PrevDir string
}

// Result is what a job leaves behind for the flow report.
type Result struct {
	Output map[string]interface{}
}

// Job is one step of a flow.
type Job interface {
	Name() string
	Run(ctx context.Context, rc RunContext) (*Result, error)
}

// JobRecord summarises one executed job.
type JobRecord struct {
	ID       string        `yaml:"id"`
	Name     string        `yaml:"name"`
	Dir      string        `yaml:"dir"`
	Status   Status        `yaml:"status"`
	Duration time.Duration `yaml:"duration"`
	Error    string        `yaml:"error,omitempty"`
}

// Report summarises a whole flow run.
type Report struct {
	FlowID   string                 `yaml:"flow_id"`
	Name     string                 `yaml:"name"`
	Status   Status                 `yaml:"status"`
	Jobs     []JobRecord            `yaml:"jobs"`
	Duration time.Duration          `yaml:"duration"`
	Output   map[string]interface{} `yaml:"output,omitempty"`
}

// Runner executes jobs sequentially under Root.
type Runner struct {
	// Root is the flow directory. It is created if missing.
	Root string
}

// NewRunner returns a Runner rooted at root.
func NewRunner(root string) *Runner {
	return &Runner{Root: root}
}

// Run executes the jobs in order. Each job gets an index-prefixed,
// slugged directory under Root; the first failure stops the flow. The
// report is written to Root/flow.yaml and returned alongside the error.
func (r *Runner) Run(ctx context.Context, name string, jobs []Job) (*Report, error) {
	flowID := uuid.NewString()
	ctx = xglog.ContextWithFlowID(ctx, flowID)
	logger := xglog.WithComponentFromContext(ctx, "flow")

	if err := os.MkdirAll(r.Root, 0o750); err != nil {
		return nil, fmt.Errorf("create flow root: %w", err)
	}

	report := &Report{FlowID: flowID, Name: name, Status: StatusCompleted}
	start := time.Now()
	logger.Info().Str("flow", name).Int("jobs", len(jobs)).Msg("flow started")

	prevDir := ""
	var runErr error
	for i, job := range jobs {
		rec, result, err := r.runJob(ctx, i, job, prevDir)
		report.Jobs = append(report.Jobs, rec)
		if err != nil {
			report.Status = StatusFailed
			if ctx.Err() != nil {
				report.Status = StatusCanceled
			}
			runErr = fmt.Errorf("job %s: %w", job.Name(), err)
			break
		}
		if result != nil {
			report.Output = result.Output
		}
		prevDir = rec.Dir
	}
	report.Duration = time.Since(start)

	if err := r.writeReport(report); err != nil {
		if runErr == nil {
			runErr = err
		} else {
			logger.Error().Err(err).Msg("flow report not written")
		}
	}

	if runErr != nil {
		logger.Error().Err(runErr).Str("flow", name).Msg("flow failed")
		return report, runErr
	}
	logger.Info().
		Str("flow", name).
		Dur("duration", report.Duration).
		Msg("flow completed")
	return report, nil
}

func (r *Runner) runJob(ctx context.Context, index int, job Job, prevDir string) (JobRecord, *Result, error) {
	jobID := uuid.NewString()
	ctx = xglog.ContextWithJobID(ctx, jobID)
	logger := xglog.WithComponentFromContext(ctx, "flow")

	rec := JobRecord{ID: jobID, Name: job.Name()}

	dirName := fmt.Sprintf("%02d-%s", index+1, slugify(job.Name()))
	dir, err := fsutil.ConfineRelPath(r.Root, dirName)
	if err != nil {
		rec.Status = StatusFailed
		rec.Error = err.Error()
		return rec, nil, err
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		rec.Status = StatusFailed
		rec.Error = err.Error()
		return rec, nil, fmt.Errorf("create job dir: %w", err)
	}
	rec.Dir = dir

	logger.Info().
		Str("job", job.Name()).
		Str(xglog.FieldDir, dir).
		Msg("job started")

	start := time.Now()
	result, err := job.Run(ctx, RunContext{Dir: dir, PrevDir: prevDir})
	rec.Duration = time.Since(start)
	metrics.FlowJobDuration.WithLabelValues(job.Name()).Observe(rec.Duration.Seconds())

	if err != nil {
		rec.Status = StatusFailed
		rec.Error = err.Error()
		metrics.FlowJobs.WithLabelValues(string(StatusFailed)).Inc()
		logger.Error().Err(err).Str("job", job.Name()).Msg("job failed")
		return rec, nil, err
	}

	rec.Status = StatusCompleted
	metrics.FlowJobs.WithLabelValues(string(StatusCompleted)).Inc()
	logger.Info().
		Str("job", job.Name()).
		Dur("duration", rec.Duration).
		Msg("job completed")
	return rec, result, nil
}

func (r *Runner) writeReport(report *Report) error {
	data, err := yaml.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal flow report: %w", err)
	}
	path := filepath.Join(r.Root, ReportFile)
	if err := renameio.WriteFile(path, data, 0o640); err != nil {
		return fmt.Errorf("write flow report: %w", err)
	}
	return nil
}
