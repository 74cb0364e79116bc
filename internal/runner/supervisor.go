// SPDX-License-Identifier: MIT

package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	xglog "github.com/ManuGH/cc4sflow/internal/log"
	"github.com/ManuGH/cc4sflow/internal/metrics"
)

var (
	// ErrMaxErrors is returned when the run keeps failing and no more
	// restarts are allowed.
	ErrMaxErrors = errors.New("maximum number of errors reached")

	// ErrValidation is returned when a post-run validator rejects the
	// calculation output.
	ErrValidation = errors.New("output validation failed")
)

// Handler inspects a failed calculation directory and, when it recognises
// the failure, corrects it so that a restart can succeed.
type Handler interface {
	Name() string
	// Check reports whether this handler recognises the failure.
	Check(dir string) bool
	// Correct mutates the calculation directory ahead of the restart.
	Correct(dir string) error
}

// Validator checks a finished calculation directory.
type Validator interface {
	Name() string
	Validate(dir string) error
}

// Supervisor runs Cc4s with restart-on-error semantics.
type Supervisor struct {
	Executor   *Executor
	Handlers   []Handler
	Validators []Validator

	// MaxErrors is the number of failures tolerated before giving up.
	MaxErrors int
}

// NewSupervisor wires a supervisor with the default output validator.
func NewSupervisor(ex *Executor, maxErrors int) *Supervisor {
	if maxErrors <= 0 {
		maxErrors = 5
	}
	return &Supervisor{
		Executor:   ex,
		Validators: []Validator{OutputValidator{}},
		MaxErrors:  maxErrors,
	}
}

// Attempt records one execution of the binary.
type Attempt struct {
	Number   int           `yaml:"number"`
	Err      string        `yaml:"error,omitempty"`
	Handler  string        `yaml:"handler,omitempty"`
	Duration time.Duration `yaml:"duration"`
}

// Report summarises a supervised run.
type Report struct {
	Attempts    []Attempt     `yaml:"attempts"`
	Duration    time.Duration `yaml:"duration"`
	Diagnostics []string      `yaml:"diagnostics,omitempty"`
}

// Run executes Cc4s in dir until it succeeds, a failure is unrecoverable,
// or MaxErrors is exhausted. The report is returned alongside the error.
func (s *Supervisor) Run(ctx context.Context, dir string) (*Report, error) {
	logger := xglog.WithComponentFromContext(ctx, "runner")
	report := &Report{}
	start := time.Now()
	defer func() {
		report.Duration = time.Since(start)
		metrics.CC4SRunDuration.Observe(report.Duration.Seconds())
	}()

	errorsSeen := 0
	for attempt := 1; ; attempt++ {
		attemptStart := time.Now()
		runErr := s.runOnce(ctx, dir, report)
		rec := Attempt{Number: attempt, Duration: time.Since(attemptStart)}

		if runErr == nil {
			report.Attempts = append(report.Attempts, rec)
			if err := s.validate(dir); err != nil {
				metrics.CC4SRuns.WithLabelValues("invalid").Inc()
				return report, err
			}
			logger.Info().Int(xglog.FieldAttempt, attempt).Msg("cc4s run succeeded")
			metrics.CC4SRuns.WithLabelValues("success").Inc()
			return report, nil
		}

		rec.Err = runErr.Error()
		if ctx.Err() != nil {
			report.Attempts = append(report.Attempts, rec)
			metrics.CC4SRuns.WithLabelValues("canceled").Inc()
			return report, ctx.Err()
		}

		errorsSeen++
		logger.Warn().
			Err(runErr).
			Int(xglog.FieldAttempt, attempt).
			Int("errors_seen", errorsSeen).
			Msg("cc4s run failed")

		if errorsSeen >= s.MaxErrors {
			report.Attempts = append(report.Attempts, rec)
			metrics.CC4SRuns.WithLabelValues("exhausted").Inc()
			return report, fmt.Errorf("%w after %d attempt(s): %v", ErrMaxErrors, attempt, runErr)
		}

		handler := s.findHandler(dir)
		if handler == nil {
			report.Attempts = append(report.Attempts, rec)
			metrics.CC4SRuns.WithLabelValues("unhandled").Inc()
			return report, fmt.Errorf("unrecoverable cc4s failure: %w", runErr)
		}
		rec.Handler = handler.Name()
		report.Attempts = append(report.Attempts, rec)

		if err := handler.Correct(dir); err != nil {
			metrics.CC4SRuns.WithLabelValues("handler_failed").Inc()
			return report, fmt.Errorf("handler %s: %w", handler.Name(), err)
		}
		logger.Info().
			Str("handler", handler.Name()).
			Int(xglog.FieldAttempt, attempt).
			Msg("failure corrected, restarting cc4s")
		metrics.CC4SRetries.Inc()
	}
}

// runOnce starts the binary and waits for it, collecting diagnostics on
// failure.
func (s *Supervisor) runOnce(ctx context.Context, dir string, report *Report) error {
	h, err := s.Executor.Start(ctx, dir)
	if err != nil {
		return err
	}
	if err := h.Wait(); err != nil {
		report.Diagnostics = h.Diagnostics()
		return err
	}
	return nil
}

func (s *Supervisor) findHandler(dir string) Handler {
	for _, h := range s.Handlers {
		if h.Check(dir) {
			return h
		}
	}
	return nil
}

func (s *Supervisor) validate(dir string) error {
	for _, v := range s.Validators {
		if err := v.Validate(dir); err != nil {
			metrics.ValidatorFailures.WithLabelValues(v.Name()).Inc()
			return fmt.Errorf("%w: %s: %v", ErrValidation, v.Name(), err)
		}
	}
	return nil
}
