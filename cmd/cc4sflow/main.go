// SPDX-License-Identifier: MIT

// cc4sflow drives CC4S coupled-cluster calculations: it validates and
// renders cc4s.in input sets, runs the Cc4s binary under supervision and
// sequences the full VASP-to-CC4S flow.
//
// Usage:
//
//	cc4sflow validate -f cc4s.in
//	cc4sflow render -dir calc -eigen dump/EigenEnergies.yaml -vertex dump/CoulombVertex.yaml
//	cc4sflow run -dir calc
//	cc4sflow flow -root flows/si2
//	cc4sflow version
//
// Exit codes:
//   - 0: success
//   - 1: operation failed
//   - 2: usage error
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/ManuGH/cc4sflow/internal/config"
	"github.com/ManuGH/cc4sflow/internal/flow"
	"github.com/ManuGH/cc4sflow/internal/health"
	"github.com/ManuGH/cc4sflow/internal/input"
	"github.com/ManuGH/cc4sflow/internal/inputset"
	xglog "github.com/ManuGH/cc4sflow/internal/log"
	"github.com/ManuGH/cc4sflow/internal/runner"
	"github.com/ManuGH/cc4sflow/internal/version"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: cc4sflow <validate|render|run|flow|version> [flags]")
}

func run(args []string) int {
	if len(args) < 1 {
		usage()
		return 2
	}
	switch args[0] {
	case "version":
		fmt.Printf("%s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		return 0
	case "validate":
		return runValidate(args[1:])
	case "render":
		return runRender(args[1:])
	case "run":
		return runRun(args[1:])
	case "flow":
		return runFlow(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		usage()
		return 2
	}
}

// loadConfig loads the configuration and configures logging from it.
func loadConfig(configPath string) (config.AppConfig, error) {
	cfg, err := config.NewLoader(configPath, version.Version).Load()
	if err != nil {
		return cfg, err
	}
	xglog.Configure(xglog.Config{
		Level:   cfg.LogLevel,
		Service: "cc4sflow",
		Version: version.Version,
	})
	return cfg, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runValidate(args []string) int {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	file := fs.String("f", input.FileName, "path to a cc4s.in file")
	_ = fs.Parse(args)

	doc, err := input.Load(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", *file, err)
		return 1
	}
	fmt.Printf("✓ %s is valid (%d steps)\n", *file, len(doc.Algos))
	return 0
}

func runRender(args []string) int {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file (YAML)")
	dir := fs.String("dir", ".", "calculation directory to render into")
	eigen := fs.String("eigen", "", "path to the dumped EigenEnergies descriptor")
	vertex := fs.String("vertex", "", "path to the dumped CoulombVertex descriptor")
	_ = fs.Parse(args)

	if *eigen == "" || *vertex == "" {
		fmt.Fprintln(os.Stderr, "Error: -eigen and -vertex are required")
		return 2
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return 1
	}

	ctx, stop := signalContext()
	defer stop()

	gen := inputset.CoupledClusterGenerator{LinkFiles: cfg.LinkFiles}
	set, err := gen.InputSet(*eigen, *vertex)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if err := set.Write(ctx, *dir); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Printf("✓ input set written to %s\n", *dir)
	return 0
}

func newSupervisor(cfg config.AppConfig) *runner.Supervisor {
	ex := runner.NewExecutor(cfg.CC4SBinary, cfg.Launcher, xglog.WithComponent("runner"))
	ex.DryRunRanks = cfg.DryRunRanks
	ex.Grace = cfg.Grace
	return runner.NewSupervisor(ex, cfg.MaxErrors)
}

// withProbeServer runs work alongside the optional probe server.
func withProbeServer(ctx context.Context, cfg config.AppConfig, work func(ctx context.Context) error) error {
	if cfg.MetricsListen == "" {
		return work(ctx)
	}

	manager := health.NewManager(cfg.Version)
	manager.RegisterChecker(health.NewDirChecker("data_dir", cfg.DataDir))
	manager.RegisterChecker(health.NewBinaryChecker(cfg.CC4SBinary))
	srv := health.NewServer(cfg.MetricsListen, manager)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(ctx) })
	g.Go(func() error {
		defer cancel()
		return work(ctx)
	})
	return g.Wait()
}

func runRun(args []string) int {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file (YAML)")
	dir := fs.String("dir", ".", "calculation directory holding cc4s.in")
	_ = fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return 1
	}

	ctx, stop := signalContext()
	defer stop()

	var report *runner.Report
	err = withProbeServer(ctx, cfg, func(ctx context.Context) error {
		var runErr error
		report, runErr = newSupervisor(cfg).Run(ctx, *dir)
		return runErr
	})

	if report != nil {
		if data, merr := yaml.Marshal(report); merr == nil {
			fmt.Print(string(data))
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func runFlow(args []string) int {
	fs := flag.NewFlagSet("flow", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file (YAML)")
	root := fs.String("root", "", "flow root directory (default: <data_dir>/coupled-cluster)")
	_ = fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return 1
	}
	if *root == "" {
		*root = filepath.Join(cfg.DataDir, "coupled-cluster")
	}

	ctx, stop := signalContext()
	defer stop()

	cc := flow.CoupledClusterFlow{
		VASPCommand: cfg.VASPCommand,
		DumpBands:   cfg.DumpBands,
		LinkFiles:   cfg.LinkFiles,
		Supervisor:  newSupervisor(cfg),
	}

	var report *flow.Report
	err = withProbeServer(ctx, cfg, func(ctx context.Context) error {
		var runErr error
		report, runErr = flow.NewRunner(*root).Run(ctx, cc.Name(), cc.Jobs())
		return runErr
	})

	if report != nil {
		fmt.Printf("flow %s: %s (%d jobs, report in %s)\n",
			report.FlowID, report.Status, len(report.Jobs), *root)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
