// SPDX-License-Identifier: MIT

// Package health exposes liveness and readiness probes while a flow or
// run is active.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/exec"
	"time"

	xglog "github.com/ManuGH/cc4sflow/internal/log"
)

// Status of a component or the whole process.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// CheckResult is the outcome of one component check.
type CheckResult struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// HealthResponse is the liveness probe payload.
type HealthResponse struct {
	Status    Status                 `json:"status"`
	Version   string                 `json:"version,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// ReadinessResponse is the readiness probe payload.
type ReadinessResponse struct {
	Ready     bool                   `json:"ready"`
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// Checker is one component health check.
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

// Manager aggregates component checks into probe responses.
type Manager struct {
	version  string
	checkers []Checker
}

// NewManager returns an empty manager.
func NewManager(version string) *Manager {
	return &Manager{version: version}
}

// RegisterChecker adds a component check.
func (m *Manager) RegisterChecker(checker Checker) {
	m.checkers = append(m.checkers, checker)
}

// Health is the liveness probe: the process is alive, component status
// is informational.
func (m *Manager) Health(ctx context.Context) HealthResponse {
	resp := HealthResponse{
		Status:    StatusHealthy,
		Version:   m.version,
		Timestamp: time.Now(),
	}
	resp.Checks, resp.Status = m.runChecks(ctx)
	return resp
}

// Ready is the readiness probe: unhealthy components make it fail.
func (m *Manager) Ready(ctx context.Context) ReadinessResponse {
	resp := ReadinessResponse{Ready: true, Timestamp: time.Now()}
	resp.Checks, resp.Status = m.runChecks(ctx)
	if resp.Status == StatusUnhealthy {
		resp.Ready = false
	}
	return resp
}

func (m *Manager) runChecks(ctx context.Context) (map[string]CheckResult, Status) {
	status := StatusHealthy
	if len(m.checkers) == 0 {
		return nil, status
	}
	checks := make(map[string]CheckResult, len(m.checkers))
	for _, checker := range m.checkers {
		result := checker.Check(ctx)
		checks[checker.Name()] = result
		switch result.Status {
		case StatusUnhealthy:
			status = StatusUnhealthy
		case StatusDegraded:
			if status == StatusHealthy {
				status = StatusDegraded
			}
		}
	}
	return checks, status
}

// ServeHealth handles GET /healthz. Always 200 for liveness.
func (m *Manager) ServeHealth(w http.ResponseWriter, r *http.Request) {
	logger := xglog.WithComponentFromContext(r.Context(), "health")
	resp := m.Health(r.Context())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error().Err(err).Msg("failed to encode health response")
	}
}

// ServeReady handles GET /readyz.
func (m *Manager) ServeReady(w http.ResponseWriter, r *http.Request) {
	logger := xglog.WithComponentFromContext(r.Context(), "readiness")
	resp := m.Ready(r.Context())

	w.Header().Set("Content-Type", "application/json")
	if resp.Ready {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error().Err(err).Msg("failed to encode readiness response")
	}
}

// DirChecker verifies that a directory exists.
type DirChecker struct {
	name string
	path string
}

// NewDirChecker returns a checker for the given directory.
func NewDirChecker(name, path string) *DirChecker {
	return &DirChecker{name: name, path: path}
}

func (c *DirChecker) Name() string { return c.name }

func (c *DirChecker) Check(ctx context.Context) CheckResult {
	info, err := os.Stat(c.path)
	if err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error(), Message: c.path}
	}
	if !info.IsDir() {
		return CheckResult{Status: StatusUnhealthy, Error: "not a directory", Message: c.path}
	}
	return CheckResult{Status: StatusHealthy, Message: "directory exists"}
}

// BinaryChecker verifies that the Cc4s binary is resolvable.
type BinaryChecker struct {
	binary string
}

// NewBinaryChecker returns a checker for the configured binary.
func NewBinaryChecker(binary string) *BinaryChecker {
	return &BinaryChecker{binary: binary}
}

func (c *BinaryChecker) Name() string { return "cc4s_binary" }

func (c *BinaryChecker) Check(ctx context.Context) CheckResult {
	if c.binary == "" {
		return CheckResult{Status: StatusUnhealthy, Error: "binary not configured"}
	}
	if _, err := exec.LookPath(c.binary); err != nil {
		// A missing binary degrades but does not kill a running flow;
		// VASP steps may still be useful on their own.
		return CheckResult{Status: StatusDegraded, Error: err.Error(), Message: c.binary}
	}
	return CheckResult{Status: StatusHealthy, Message: "binary resolvable"}
}
