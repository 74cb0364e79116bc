// SPDX-License-Identifier: MIT

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variable names.
const (
	EnvBinary        = "CC4S_BINARY"
	EnvLauncher      = "CC4S_LAUNCHER"
	EnvVASPCommand   = "CC4S_VASP_COMMAND"
	EnvDataDir       = "CC4S_DATA_DIR"
	EnvMaxErrors     = "CC4S_MAX_ERRORS"
	EnvGrace         = "CC4S_GRACE"
	EnvDryRunRanks   = "CC4S_DRYRUN_RANKS"
	EnvDumpBands     = "CC4S_DUMP_BANDS"
	EnvLinkFiles     = "CC4S_LINK_FILES"
	EnvMetricsListen = "CC4S_METRICS_LISTEN"
	EnvLogLevel      = "CC4S_LOG_LEVEL"
)

// Loader loads configuration with the precedence ENV > file > defaults.
type Loader struct {
	configPath string
	version    string
}

// NewLoader returns a Loader for an optional YAML config file.
func NewLoader(configPath, version string) *Loader {
	return &Loader{configPath: configPath, version: version}
}

// Load builds the effective configuration: parse the file strictly,
// apply environment overrides, then validate.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		mergeFileConfig(&cfg, fileCfg)
	}

	mergeEnvConfig(&cfg)

	if abs, err := filepath.Abs(cfg.DataDir); err == nil {
		cfg.DataDir = abs
	}
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile parses a YAML config file strictly; unknown fields are fatal
// to catch misconfiguration early.
func (l *Loader) loadFile(path string) (*FileConfig, error) {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- the config file path is provided by the operator
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var fileCfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fileCfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &FileConfig{}, nil
		}
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config file contains multiple documents or trailing content")
	}

	return &fileCfg, nil
}

func mergeFileConfig(cfg *AppConfig, file *FileConfig) {
	if file.CC4SBinary != nil {
		cfg.CC4SBinary = *file.CC4SBinary
	}
	if file.Launcher != nil {
		cfg.Launcher = SplitCommand(*file.Launcher)
	}
	if file.VASPCommand != nil {
		cfg.VASPCommand = SplitCommand(*file.VASPCommand)
	}
	if file.DataDir != nil {
		cfg.DataDir = *file.DataDir
	}
	if file.MaxErrors != nil {
		cfg.MaxErrors = *file.MaxErrors
	}
	if file.Grace != nil {
		if d, err := time.ParseDuration(*file.Grace); err == nil {
			cfg.Grace = d
		}
	}
	if file.DryRunRanks != nil {
		cfg.DryRunRanks = *file.DryRunRanks
	}
	if file.DumpBands != nil {
		cfg.DumpBands = *file.DumpBands
	}
	if file.LinkFiles != nil {
		cfg.LinkFiles = *file.LinkFiles
	}
	if file.MetricsListen != nil {
		cfg.MetricsListen = *file.MetricsListen
	}
	if file.LogLevel != nil {
		cfg.LogLevel = *file.LogLevel
	}
}

func mergeEnvConfig(cfg *AppConfig) {
	cfg.CC4SBinary = ParseString(EnvBinary, cfg.CC4SBinary)
	if raw, ok := os.LookupEnv(EnvLauncher); ok {
		cfg.Launcher = SplitCommand(raw)
	}
	if raw, ok := os.LookupEnv(EnvVASPCommand); ok {
		cfg.VASPCommand = SplitCommand(raw)
	}
	cfg.DataDir = ParseString(EnvDataDir, cfg.DataDir)
	cfg.MaxErrors = ParseInt(EnvMaxErrors, cfg.MaxErrors)
	cfg.Grace = ParseDuration(EnvGrace, cfg.Grace)
	cfg.DryRunRanks = ParseInt(EnvDryRunRanks, cfg.DryRunRanks)
	cfg.DumpBands = ParseInt(EnvDumpBands, cfg.DumpBands)
	cfg.LinkFiles = ParseBool(EnvLinkFiles, cfg.LinkFiles)
	cfg.MetricsListen = ParseString(EnvMetricsListen, cfg.MetricsListen)
	cfg.LogLevel = ParseString(EnvLogLevel, cfg.LogLevel)
}
