// SPDX-License-Identifier: MIT

// Package metrics exposes prometheus instrumentation for cc4sflow.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CC4SRuns tracks supervised Cc4s executions by outcome
	CC4SRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cc4sflow_cc4s_runs_total",
		Help: "Total supervised Cc4s executions by outcome",
	}, []string{"outcome"})

	// CC4SRetries tracks restart attempts triggered by error handlers
	CC4SRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cc4sflow_cc4s_retries_total",
		Help: "Total Cc4s restarts triggered by error handlers",
	})

	// CC4SRunDuration tracks wall time of Cc4s executions
	CC4SRunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cc4sflow_cc4s_run_duration_seconds",
		Help:    "Wall time of Cc4s executions",
		Buckets: prometheus.ExponentialBuckets(0.1, 2.0, 16), // 100ms to ~1h
	})

	// ValidatorFailures tracks post-run validator rejections
	ValidatorFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cc4sflow_validator_failures_total",
		Help: "Total post-run validator rejections",
	}, []string{"validator"})

	// FlowJobs tracks flow jobs by terminal status
	FlowJobs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cc4sflow_flow_jobs_total",
		Help: "Total flow jobs by terminal status",
	}, []string{"status"})

	// FlowJobDuration tracks per-job wall time within a flow
	FlowJobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cc4sflow_flow_job_duration_seconds",
		Help:    "Wall time of individual flow jobs",
		Buckets: prometheus.ExponentialBuckets(0.01, 2.0, 18),
	}, []string{"calc_type"})

	// StagedObjectFiles tracks tensor object files staged into calculation dirs
	StagedObjectFiles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cc4sflow_staged_object_files_total",
		Help: "Total tensor object files staged into calculation directories",
	}, []string{"mode"})

	// ProcTerminate tracks termination signals sent to calculation processes
	ProcTerminate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cc4sflow_proc_terminate_total",
		Help: "Termination signals sent to calculation process groups",
	}, []string{"signal", "result"})

	// ProcWait tracks observed process exit classes
	ProcWait = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cc4sflow_proc_wait_total",
		Help: "Observed calculation process exit classes",
	}, []string{"class"})
)

// IncProcTerminate records a termination signal outcome.
func IncProcTerminate(signal, result string) {
	ProcTerminate.WithLabelValues(signal, result).Inc()
}

// IncProcWait records an observed process exit class.
func IncProcWait(class string) {
	ProcWait.WithLabelValues(class).Inc()
}
