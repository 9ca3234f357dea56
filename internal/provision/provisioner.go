// Package provision makes sure the libraries the bundled server imports
// are present in the resolved interpreter.
//
// Each requirement is checked with an import probe
// (`python -c "import <module>"`). Missing libraries are installed with
// `python -m pip install -q <name>>=<version>`. A failed install is fatal
// and reports the exact command the operator can run by hand; successful
// installs are never rolled back.
package provision

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/shinji-kodama/openspec-mcp-x/internal/console"
	"github.com/shinji-kodama/openspec-mcp-x/internal/model"
	"github.com/shinji-kodama/openspec-mcp-x/internal/probe"
)

// SettleDelay is the pause taken once after one or more installs, before
// the server is spawned.
//
// It is a best-effort mitigation, not a correctness guarantee: a freshly
// installed package can briefly fail to import in a new interpreter while
// filesystem metadata and import caches catch up.
const SettleDelay = 100 * time.Millisecond

// Result is the provisioning outcome for one requirement.
type Result struct {
	Requirement model.Requirement      `json:"requirement"`
	Outcome     model.ProvisionOutcome `json:"outcome"`
}

// Report summarizes one provisioning pass.
type Report struct {
	// Results holds one entry per requirement, in declaration order.
	Results []Result `json:"results"`

	// Installed counts the requirements installed during this pass.
	Installed int `json:"installed"`
}

// Satisfied reports whether every requirement is importable.
func (r *Report) Satisfied() bool {
	for _, res := range r.Results {
		if res.Outcome != model.OutcomeSatisfied && res.Outcome != model.OutcomeInstalled {
			return false
		}
	}
	return true
}

// Options configures a Provisioner.
type Options struct {
	// Requirements overrides model.ServerRequirements. Intended for tests.
	Requirements []model.Requirement

	// IndexURL, when set, is passed to pip as --index-url.
	IndexURL string

	// Sleep replaces time.Sleep for the settle delay. Intended for tests.
	Sleep func(time.Duration)
}

// Provisioner checks and installs requirements inside one interpreter.
type Provisioner struct {
	prober       probe.Prober
	out          *console.Printer
	requirements []model.Requirement
	indexURL     string
	sleep        func(time.Duration)
}

// New creates a Provisioner.
func New(prober probe.Prober, out *console.Printer, opts Options) *Provisioner {
	p := &Provisioner{
		prober:       prober,
		out:          out,
		requirements: opts.Requirements,
		indexURL:     opts.IndexURL,
		sleep:        opts.Sleep,
	}
	if p.requirements == nil {
		p.requirements = model.ServerRequirements
	}
	if p.sleep == nil {
		p.sleep = time.Sleep
	}
	return p
}

// Check probes every requirement without installing anything.
// Missing requirements are reported with model.OutcomeMissing.
func (p *Provisioner) Check(ctx context.Context, python string) *Report {
	report := &Report{}
	for _, req := range p.requirements {
		outcome := model.OutcomeSatisfied
		if !p.importable(ctx, python, req) {
			outcome = model.OutcomeMissing
		}
		report.Results = append(report.Results, Result{Requirement: req, Outcome: outcome})
	}
	return report
}

// Ensure probes each requirement in declaration order and installs the
// ones that are missing.
//
// The first failed install aborts the pass with a *model.CLIError of kind
// model.KindProvisioning; requirements after it are not examined. When at
// least one install succeeded, Ensure pauses for SettleDelay once before
// returning.
func (p *Provisioner) Ensure(ctx context.Context, python string) (*Report, error) {
	report := &Report{}

	for _, req := range p.requirements {
		if p.importable(ctx, python, req) {
			report.Results = append(report.Results, Result{Requirement: req, Outcome: model.OutcomeSatisfied})
			continue
		}

		slog.Info("installing python package", "package", req.Specifier(), "interpreter", python)
		if err := p.install(ctx, python, req); err != nil {
			report.Results = append(report.Results, Result{Requirement: req, Outcome: model.OutcomeFailed})
			return report, err
		}

		report.Results = append(report.Results, Result{Requirement: req, Outcome: model.OutcomeInstalled})
		report.Installed++
	}

	if report.Installed > 0 {
		p.sleep(SettleDelay)
	}
	return report, nil
}

// importable runs the silenced import probe. Any failure, including a
// start failure or timeout, counts as "not importable".
func (p *Provisioner) importable(ctx context.Context, python string, req model.Requirement) bool {
	res, err := p.prober.Probe(ctx, python, "-c", "import "+req.Module)
	if err != nil {
		slog.Debug("import probe failed", "module", req.Module, "err", err)
		return false
	}
	return res.Success()
}

// install runs pip quietly with all output discarded.
func (p *Provisioner) install(ctx context.Context, python string, req model.Requirement) error {
	res, err := p.prober.Run(ctx, python, InstallArgs(req, p.indexURL, true)...)
	if err == nil && res.Success() {
		return nil
	}

	if err == nil {
		slog.Debug("pip install exited non-zero", "package", req.Specifier(), "exit_code", res.ExitCode)
	}
	return model.WrapCLIError(model.KindProvisioning, `Failed to install Python package "`+req.Name+`"`, err).
		WithRemediation(
			"Please install manually:",
			"  "+ManualInstallCommand(python, req, p.indexURL),
		)
}

// InstallArgs builds the interpreter arguments for installing req.
// The quiet flag is what the launcher itself uses; the manual command
// shown to operators omits it so pip's diagnostics are visible.
func InstallArgs(req model.Requirement, indexURL string, quiet bool) []string {
	args := []string{"-m", "pip", "install"}
	if quiet {
		args = append(args, "-q")
	}
	if indexURL != "" {
		args = append(args, "--index-url", indexURL)
	}
	return append(args, req.Specifier())
}

// ManualInstallCommand returns the exact command line an operator can run
// to install req by hand. The specifier is double-quoted so that ">=" is
// not taken as a redirection by POSIX shells, cmd.exe, or PowerShell.
func ManualInstallCommand(python string, req model.Requirement, indexURL string) string {
	args := InstallArgs(req, indexURL, false)
	args[len(args)-1] = `"` + req.Specifier() + `"`
	return python + " " + strings.Join(args, " ")
}
