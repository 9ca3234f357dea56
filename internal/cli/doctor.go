// Package cli — doctor.go implements the "openspec-mcp-x doctor" command.
//
// The doctor command runs the launch pipeline's checks without handing
// over to the server: interpreter resolution, library provisioning (or
// probe-only with --no-install), and the installation layout check. With
// --handshake it additionally starts the server behind an MCP client and
// lists its tools. Results are printed as text or JSON (--json).
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/openspec-mcp-x/internal/console"
	"github.com/shinji-kodama/openspec-mcp-x/internal/handshake"
	"github.com/shinji-kodama/openspec-mcp-x/internal/interpreter"
	"github.com/shinji-kodama/openspec-mcp-x/internal/model"
	"github.com/shinji-kodama/openspec-mcp-x/internal/probe"
	"github.com/shinji-kodama/openspec-mcp-x/internal/provision"
	"github.com/shinji-kodama/openspec-mcp-x/internal/supervisor"
)

// doctorFlags holds the flag values for the doctor command.
type doctorFlags struct {
	// noInstall limits provisioning to import probes.
	noInstall bool

	// handshake runs an MCP initialize + tools/list against the server.
	handshake bool

	// handshakeTimeout bounds the whole handshake.
	handshakeTimeout time.Duration
}

// NewDoctorCommand creates the "doctor" cobra command.
func NewDoctorCommand() *cobra.Command {
	flags := &doctorFlags{}

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that the server can be launched",
		Long: `Run the launcher's checks and report the results without starting
the server for real.

Examples:
  openspec-mcp-x doctor
  openspec-mcp-x doctor --no-install
  openspec-mcp-x doctor --handshake --json`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(cmd.Context(), cmd.OutOrStdout(), flags)
		},
	}

	cmd.Flags().BoolVar(&flags.noInstall, "no-install", false, "Only probe for missing libraries, never install them")
	cmd.Flags().BoolVar(&flags.handshake, "handshake", false, "Start the server and perform an MCP handshake")
	cmd.Flags().DurationVar(&flags.handshakeTimeout, "handshake-timeout", 30*time.Second, "Timeout for --handshake")

	return cmd
}

// doctorReport is the result of a doctor run. It doubles as the JSON
// output structure.
type doctorReport struct {
	Candidates   []model.Candidate       `json:"candidates"`
	Interpreter  *interpreter.Resolution `json:"interpreter,omitempty"`
	Requirements []provision.Result      `json:"requirements,omitempty"`
	InstallRoot  string                  `json:"installRoot,omitempty"`
	ServerPath   string                  `json:"serverPath,omitempty"`
	ServerFound  bool                    `json:"serverFound"`
	Handshake    *handshake.Report       `json:"handshake,omitempty"`
	Problems     []string                `json:"problems"`
}

// OK reports whether every check passed.
func (r *doctorReport) OK() bool {
	return len(r.Problems) == 0
}

// runDoctor is the main logic function for the doctor command. It keeps
// going after a failed check where later checks still make sense, so one
// run reports as much as possible.
func runDoctor(ctx context.Context, w io.Writer, flags *doctorFlags) error {
	// Console messages (warnings for outdated interpreters) go to stderr
	// so that --json output on stdout stays machine-readable.
	out := console.New(os.Stderr)
	prober := probe.NewExecProber(cfg.ProbeTimeout, cfg.InstallTimeout)
	report := &doctorReport{Problems: []string{}}
	firstKind := model.KindUnexpected

	fail := func(err error) {
		var cliErr *model.CLIError
		if errors.As(err, &cliErr) && len(report.Problems) == 0 {
			firstKind = cliErr.Kind
		}
		report.Problems = append(report.Problems, err.Error())
	}

	// Step 1: Resolve the interpreter.
	resolver := interpreter.NewResolver(prober, out, cfg.Candidates)
	resolution, err := resolver.Resolve(ctx)
	if err != nil {
		fail(err)
		for _, name := range resolver.Candidates() {
			report.Candidates = append(report.Candidates, model.Candidate{Name: name})
		}
	} else {
		report.Interpreter = resolution
		report.Candidates = resolution.Probed
	}

	// Step 2: Provision or probe the libraries.
	if resolution != nil {
		prov := provision.New(prober, out, provision.Options{IndexURL: cfg.IndexURL})
		if flags.noInstall {
			check := prov.Check(ctx, resolution.Interpreter)
			report.Requirements = check.Results
			for _, res := range check.Results {
				if res.Outcome == model.OutcomeMissing {
					fail(model.NewCLIError(model.KindProvisioning,
						fmt.Sprintf("Python package %q is not installed (%s)", res.Requirement.Name,
							provision.ManualInstallCommand(resolution.Interpreter, res.Requirement, cfg.IndexURL))))
				}
			}
		} else {
			ensured, err := prov.Ensure(ctx, resolution.Interpreter)
			if ensured != nil {
				report.Requirements = ensured.Results
			}
			if err != nil {
				fail(err)
			}
		}
	}

	// Step 3: Check the installation layout.
	var layout supervisor.Layout
	if root, err := installRoot(); err != nil {
		fail(err)
	} else {
		layout = supervisor.Layout{Root: root}
		report.InstallRoot = root
		report.ServerPath = layout.ServerPath()
		if err := layout.Verify(); err != nil {
			fail(err)
		} else {
			report.ServerFound = true
		}
	}

	// Step 4: Optionally talk MCP to the server. Only meaningful when
	// everything before it passed.
	if flags.handshake && report.OK() {
		sup := supervisor.New(supervisor.Options{Interpreter: resolution.Interpreter, Layout: layout})
		cmd := sup.ServerCommand()
		if verbose {
			cmd.Stderr = os.Stderr
		}

		hctx, cancel := context.WithTimeout(ctx, flags.handshakeTimeout)
		hs, err := handshake.Check(hctx, cmd, Version)
		cancel()
		if err != nil {
			fail(model.WrapCLIError(model.KindUnexpected, "MCP handshake failed", err))
		} else {
			report.Handshake = hs
		}
	}

	if IsJSONOutput() {
		data, _ := json.MarshalIndent(report, "", "  ")
		fmt.Fprintln(w, string(data))
	} else {
		fmt.Fprint(w, formatDoctorReport(report))
	}

	if !report.OK() {
		return model.NewCLIError(firstKind, fmt.Sprintf("%d check(s) failed", len(report.Problems)))
	}
	return nil
}

// formatDoctorReport renders the report as aligned "label: value" lines.
//
// Example:
//
//	Interpreter:  python3 (3.12)
//	Packages:     mcp>=0.9.0 satisfied, requests>=2.31.0 installed
//	Server:       /opt/openspec/src/openspec_mcp/server.py
//	Handshake:    2 tools (check_openspec_status, openspec_validate)
//	Status:       OK
func formatDoctorReport(r *doctorReport) string {
	var b strings.Builder

	if r.Interpreter != nil {
		fmt.Fprintf(&b, "%-14s%s (%s)\n", "Interpreter:", r.Interpreter.Interpreter, r.Interpreter.Version)
	} else {
		names := make([]string, 0, len(r.Candidates))
		for _, c := range r.Candidates {
			names = append(names, c.Name)
		}
		fmt.Fprintf(&b, "%-14snot found (tried %s)\n", "Interpreter:", strings.Join(names, ", "))
	}

	if len(r.Requirements) > 0 {
		parts := make([]string, 0, len(r.Requirements))
		for _, res := range r.Requirements {
			parts = append(parts, res.Requirement.Specifier()+" "+res.Outcome.String())
		}
		fmt.Fprintf(&b, "%-14s%s\n", "Packages:", strings.Join(parts, ", "))
	}

	switch {
	case r.ServerPath == "":
		fmt.Fprintf(&b, "%-14s%s\n", "Server:", "-")
	case r.ServerFound:
		fmt.Fprintf(&b, "%-14s%s\n", "Server:", r.ServerPath)
	default:
		fmt.Fprintf(&b, "%-14s%s (missing)\n", "Server:", r.ServerPath)
	}

	if r.Handshake != nil {
		fmt.Fprintf(&b, "%-14s%d tools (%s)\n", "Handshake:", len(r.Handshake.Tools), strings.Join(r.Handshake.Tools, ", "))
	}

	if r.OK() {
		fmt.Fprintf(&b, "%-14s%s\n", "Status:", "OK")
		return b.String()
	}
	fmt.Fprintf(&b, "%-14s%d problem(s)\n", "Status:", len(r.Problems))
	for _, p := range r.Problems {
		fmt.Fprintf(&b, "  - %s\n", p)
	}
	return b.String()
}
