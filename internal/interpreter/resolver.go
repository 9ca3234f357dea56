// Package interpreter locates a Python interpreter that can run the
// bundled server.
//
// Resolution probes an ordered list of candidate command names with
// `<candidate> --version`, parses "<major>.<minor>" out of the reply, and
// accepts the first candidate that meets model.MinPython. Probe failures
// of any kind only disqualify the candidate; the run fails only when no
// candidate qualifies.
package interpreter

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/shinji-kodama/openspec-mcp-x/internal/console"
	"github.com/shinji-kodama/openspec-mcp-x/internal/model"
	"github.com/shinji-kodama/openspec-mcp-x/internal/probe"
)

// DefaultCandidates is the probe order used when no override is configured.
// "python3" comes first because on many Unix systems "python" is absent or
// still points at a 2.x interpreter.
var DefaultCandidates = []string{"python3", "python"}

// versionRegex matches the first "<major>.<minor>" in probe output,
// e.g. "3.12" in "Python 3.12.1".
var versionRegex = regexp.MustCompile(`(\d+)\.(\d+)`)

// ParseVersionOutput extracts the "<major>.<minor>" version from the
// output of a version probe. The boolean is false when no version is found.
func ParseVersionOutput(output string) (model.Version, bool) {
	m := versionRegex.FindStringSubmatch(output)
	if m == nil {
		return model.Version{}, false
	}

	major, err := strconv.Atoi(m[1])
	if err != nil {
		return model.Version{}, false
	}
	minor, err := strconv.Atoi(m[2])
	if err != nil {
		return model.Version{}, false
	}
	return model.Version{Major: major, Minor: minor}, true
}

// Resolution is the single accepted interpreter of a run.
type Resolution struct {
	// Interpreter is the accepted candidate name, used verbatim for every
	// later subprocess.
	Interpreter string `json:"interpreter"`

	// Version is the accepted candidate's parsed version.
	Version model.Version `json:"version"`

	// Probed lists every candidate probed, in order, up to and including
	// the accepted one.
	Probed []model.Candidate `json:"probed"`
}

// Resolver selects an interpreter from an ordered candidate list.
type Resolver struct {
	prober     probe.Prober
	out        *console.Printer
	candidates []string
	min        model.Version
}

// NewResolver creates a Resolver. A nil or empty candidates slice selects
// DefaultCandidates.
func NewResolver(prober probe.Prober, out *console.Printer, candidates []string) *Resolver {
	if len(candidates) == 0 {
		candidates = DefaultCandidates
	}
	return &Resolver{
		prober:     prober,
		out:        out,
		candidates: candidates,
		min:        model.MinPython,
	}
}

// Candidates returns the probe order.
func (r *Resolver) Candidates() []string {
	return append([]string(nil), r.candidates...)
}

// Resolve probes the candidates in order and returns the first that
// satisfies the minimum version. Each candidate is probed at most once.
//
// A candidate that reports a version below the minimum triggers a warning
// on the console and resolution moves on. When nothing qualifies, Resolve
// returns a *model.CLIError of kind model.KindEnvironment carrying
// per-platform install hints.
func (r *Resolver) Resolve(ctx context.Context) (*Resolution, error) {
	var probed []model.Candidate

	for _, name := range r.candidates {
		c := r.probeCandidate(ctx, name)
		probed = append(probed, c)

		if !c.Usable() {
			continue
		}
		if !c.Version.Satisfies(r.min) {
			slog.Warn("interpreter too old", "candidate", name, "version", c.Version.String())
			r.out.Warn("Found %s (%s), but Python %s+ is required", name, c.Reported, r.min)
			continue
		}

		slog.Debug("interpreter resolved", "candidate", name, "version", c.Version.String())
		return &Resolution{Interpreter: name, Version: *c.Version, Probed: probed}, nil
	}

	return nil, model.NewCLIError(model.KindEnvironment, "Python "+r.min.String()+"+ not found").
		WithRemediation(
			"openspec-mcp-x requires Python "+r.min.String()+" or higher.",
			"Tried: "+strings.Join(r.candidates, ", "),
			"Please install Python:",
			"  macOS: brew install python@3.11",
			"  Ubuntu/Debian: sudo apt install python3.11",
			"  Windows: https://www.python.org/downloads/",
		)
}

// probeCandidate runs the version probe for one candidate. Any failure
// yields a Candidate without a version.
func (r *Resolver) probeCandidate(ctx context.Context, name string) model.Candidate {
	c := model.Candidate{Name: name}

	res, err := r.prober.Probe(ctx, name, "--version")
	c.Reported = strings.TrimSpace(res.Output)
	if err != nil {
		slog.Debug("interpreter probe failed", "candidate", name, "err", err)
		return c
	}
	if !res.Success() {
		slog.Debug("interpreter probe exited non-zero", "candidate", name, "exit_code", res.ExitCode)
		return c
	}

	v, ok := ParseVersionOutput(res.Output)
	if !ok {
		slog.Debug("interpreter version unparseable", "candidate", name, "output", c.Reported)
		return c
	}
	c.Version = &v
	return c
}
