// Package cli — launch.go implements the root command's launch pipeline.
//
// The pipeline is strictly linear and stops at the first failure:
//  1. resolve a Python interpreter (interpreter.Resolver)
//  2. provision the server's libraries (provision.Provisioner)
//  3. spawn and supervise the server (supervisor.Supervisor)
//
// The pipeline ends either with a *model.CLIError (nothing was spawned,
// or spawning failed) or with a *model.ChildExitError carrying the
// server's mapped exit code.
package cli

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/shinji-kodama/openspec-mcp-x/internal/console"
	"github.com/shinji-kodama/openspec-mcp-x/internal/interpreter"
	"github.com/shinji-kodama/openspec-mcp-x/internal/model"
	"github.com/shinji-kodama/openspec-mcp-x/internal/probe"
	"github.com/shinji-kodama/openspec-mcp-x/internal/provision"
	"github.com/shinji-kodama/openspec-mcp-x/internal/supervisor"
)

// runLaunch is the main logic function for the root command.
func runLaunch(ctx context.Context, serverArgs []string) error {
	out := console.New(os.Stderr)
	prober := probe.NewExecProber(cfg.ProbeTimeout, cfg.InstallTimeout)

	// Step 1: Find an interpreter. Nothing after this runs without one.
	resolution, err := interpreter.NewResolver(prober, out, cfg.Candidates).Resolve(ctx)
	if err != nil {
		return err
	}
	slog.Info("using interpreter", "interpreter", resolution.Interpreter, "version", resolution.Version.String())

	// Step 2: Make sure the server's libraries import. A failed install
	// aborts before any spawn.
	report, err := provision.New(prober, out, provision.Options{IndexURL: cfg.IndexURL}).
		Ensure(ctx, resolution.Interpreter)
	if err != nil {
		return err
	}
	if report.Installed > 0 {
		slog.Info("installed python packages", "count", report.Installed)
	}

	// Step 3: Hand over to the server.
	root, err := installRoot()
	if err != nil {
		return err
	}
	sup := supervisor.New(supervisor.Options{
		Interpreter: resolution.Interpreter,
		Layout:      supervisor.Layout{Root: root},
		ExtraArgs:   serverArgs,
	})

	outcome, err := sup.Run(ctx)
	if err != nil {
		return err
	}
	slog.Info("server finished", "state", outcome.State.String(), "exit_code", outcome.ExitCode())
	return &model.ChildExitError{Outcome: outcome}
}

// installRoot returns the installation root from --root, or derives it
// from the location of the running executable.
func installRoot() (string, error) {
	if rootOverride != "" {
		abs, err := filepath.Abs(rootOverride)
		if err != nil {
			return "", model.WrapCLIError(model.KindIntegrity, "invalid --root "+rootOverride, err)
		}
		return abs, nil
	}

	exe, err := os.Executable()
	if err != nil {
		return "", model.WrapCLIError(model.KindIntegrity, "cannot locate the launcher executable", err)
	}
	root, err := supervisor.ResolveInstallRoot(exe)
	if err != nil {
		return "", model.WrapCLIError(model.KindIntegrity, "cannot determine the installation root", err)
	}
	return root, nil
}
