// SPDX-License-Identifier: MIT

// Package config loads the cc4sflow configuration with the precedence
// ENV > file > defaults.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// AppConfig is the effective runtime configuration.
type AppConfig struct {
	// CC4SBinary is the path to the Cc4s executable.
	CC4SBinary string

	// Launcher is the argv prefix put before the binary, e.g.
	// {"mpirun", "-np", "4"}.
	Launcher []string

	// VASPCommand, when set, runs the VASP steps of a flow.
	VASPCommand []string

	// DataDir is where flows create their directories.
	DataDir string

	// MaxErrors bounds the supervisor's restarts.
	MaxErrors int

	// Grace is the SIGTERM-to-SIGKILL window for canceled runs.
	Grace time.Duration

	// DryRunRanks > 0 passes -d so Cc4s only plans the calculation.
	DryRunRanks int

	// DumpBands overrides the natural-orbital band count of the dump
	// step; 0 derives it from the OUTCAR.
	DumpBands int

	// LinkFiles stages dumped objects as symlinks instead of copies.
	LinkFiles bool

	// MetricsListen is the probe/metrics listen address; empty disables
	// the server.
	MetricsListen string

	// LogLevel is a zerolog level name.
	LogLevel string

	// Version of the binary, injected at load time.
	Version string
}

// FileConfig is the YAML file schema. Pointer fields distinguish
// "absent" from zero values.
type FileConfig struct {
	CC4SBinary    *string `yaml:"cc4s_binary,omitempty"`
	Launcher      *string `yaml:"launcher,omitempty"`
	VASPCommand   *string `yaml:"vasp_command,omitempty"`
	DataDir       *string `yaml:"data_dir,omitempty"`
	MaxErrors     *int    `yaml:"max_errors,omitempty"`
	Grace         *string `yaml:"grace,omitempty"`
	DryRunRanks   *int    `yaml:"dryrun_ranks,omitempty"`
	DumpBands     *int    `yaml:"dump_bands,omitempty"`
	LinkFiles     *bool   `yaml:"link_files,omitempty"`
	MetricsListen *string `yaml:"metrics_listen,omitempty"`
	LogLevel      *string `yaml:"log_level,omitempty"`
}

// Defaults returns the built-in configuration.
func Defaults() AppConfig {
	return AppConfig{
		CC4SBinary: "Cc4s",
		DataDir:    ".",
		MaxErrors:  5,
		Grace:      10 * time.Second,
		LinkFiles:  true,
		LogLevel:   "info",
	}
}

var validLogLevels = map[string]struct{}{
	"trace": {}, "debug": {}, "info": {}, "warn": {}, "error": {},
}

// Validate rejects configurations the rest of the program cannot work
// with.
func Validate(cfg AppConfig) error {
	if cfg.CC4SBinary == "" {
		return fmt.Errorf("cc4s binary must not be empty")
	}
	if cfg.DataDir == "" {
		return fmt.Errorf("data dir must not be empty")
	}
	if cfg.MaxErrors < 1 {
		return fmt.Errorf("max errors must be >= 1 (got %d)", cfg.MaxErrors)
	}
	if cfg.Grace <= 0 {
		return fmt.Errorf("grace must be positive (got %s)", cfg.Grace)
	}
	if cfg.DryRunRanks < 0 {
		return fmt.Errorf("dryrun ranks must be >= 0 (got %d)", cfg.DryRunRanks)
	}
	if cfg.DumpBands < 0 {
		return fmt.Errorf("dump bands must be >= 0 (got %d)", cfg.DumpBands)
	}
	if _, ok := validLogLevels[cfg.LogLevel]; !ok {
		return fmt.Errorf("unknown log level %q", cfg.LogLevel)
	}
	return nil
}

// SplitCommand expands environment variables in a command string and
// splits it on whitespace, the way "mpirun -np $NP Cc4s" is written in
// batch scripts.
func SplitCommand(raw string) []string {
	return strings.Fields(os.ExpandEnv(raw))
}
