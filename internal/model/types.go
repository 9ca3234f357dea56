// Package model defines the domain types for the openspec-mcp-x launcher.
//
// The launcher runs in strictly sequential stages. The types in this file
// are the values handed from one stage to the next.
package model

import (
	"fmt"
	"strconv"
)

// Version is a "major.minor" interpreter version as reported by
// `python --version`. Patch levels are irrelevant to the compatibility
// check and are not tracked.
type Version struct {
	// Major is the major version number (e.g., 3 for "Python 3.12.1").
	Major int `json:"major"`

	// Minor is the minor version number (e.g., 12 for "Python 3.12.1").
	Minor int `json:"minor"`
}

// MinPython is the oldest interpreter the bundled server supports.
// Any later minor release of the same major line, and any later major
// line, is accepted.
var MinPython = Version{Major: 3, Minor: 10}

// Compare returns -1 if v < other, 0 if v == other, or 1 if v > other.
// Comparison is done component by component (major, then minor).
func (v Version) Compare(other Version) int {
	switch {
	case v.Major > other.Major:
		return 1
	case v.Major < other.Major:
		return -1
	case v.Minor > other.Minor:
		return 1
	case v.Minor < other.Minor:
		return -1
	default:
		return 0
	}
}

// Satisfies reports whether v meets the minimum version min.
//
// A higher major version is accepted unconditionally regardless of its
// minor number, so Version{4, 0} satisfies Version{3, 10}.
func (v Version) Satisfies(min Version) bool {
	return v.Compare(min) >= 0
}

// String returns the version as "major.minor" (e.g., "3.10").
func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Candidate is one interpreter command name tried during resolution.
//
// A Candidate is immutable once probed: Version is nil when the probe
// failed (missing executable, non-zero exit, unparseable output) and set
// to the parsed version otherwise.
type Candidate struct {
	// Name is the command name or path as given (e.g., "python3").
	Name string `json:"name"`

	// Version is the parsed version, or nil if the candidate is unusable.
	Version *Version `json:"version,omitempty"`

	// Reported is the raw, trimmed probe output. Kept for diagnostics only.
	Reported string `json:"reported,omitempty"`
}

// Usable reports whether the probe produced a parseable version.
func (c Candidate) Usable() bool {
	return c.Version != nil
}

// Requirement is a Python library the bundled server needs, together with
// the minimum version that must be installed.
type Requirement struct {
	// Name is the distribution name passed to pip (e.g., "mcp").
	Name string `json:"name"`

	// Module is the top-level import name used for the probe.
	// For most libraries this equals Name.
	Module string `json:"module"`

	// MinVersion is the lower bound used in the pip specifier.
	MinVersion string `json:"minVersion"`
}

// Specifier returns the pip requirement specifier "name>=version".
func (r Requirement) Specifier() string {
	return r.Name + ">=" + r.MinVersion
}

// ServerRequirements is the fixed, declaration-ordered list of libraries
// the bundled server imports. It is not configurable at run time.
var ServerRequirements = []Requirement{
	{Name: "mcp", Module: "mcp", MinVersion: "0.9.0"},
	{Name: "requests", Module: "requests", MinVersion: "2.31.0"},
}

// ProvisionOutcome is the per-requirement result of provisioning.
type ProvisionOutcome string

const (
	// OutcomeSatisfied means the import probe succeeded; nothing was installed.
	OutcomeSatisfied ProvisionOutcome = "satisfied"

	// OutcomeInstalled means the import probe failed and pip installed the library.
	OutcomeInstalled ProvisionOutcome = "installed"

	// OutcomeMissing means the import probe failed and installation was not
	// attempted (probe-only checks).
	OutcomeMissing ProvisionOutcome = "missing"

	// OutcomeFailed means the install subprocess exited non-zero.
	// Any failed outcome aborts the run before spawn.
	OutcomeFailed ProvisionOutcome = "failed"
)

// String returns the string representation of ProvisionOutcome.
func (o ProvisionOutcome) String() string {
	return string(o)
}

// ChildState is the lifecycle state of the supervised server process.
// The state transitions are:
//
//	NotStarted → Running → ExitedNormally
//	                     → ExitedBySignal
//
// Both exit states are terminal.
type ChildState string

const (
	// ChildNotStarted is the state before spawn.
	ChildNotStarted ChildState = "not-started"

	// ChildRunning is the state between a successful spawn and exit.
	ChildRunning ChildState = "running"

	// ChildExitedNormally means the child returned an exit code.
	ChildExitedNormally ChildState = "exited"

	// ChildExitedBySignal means the child was terminated by an uncaught signal.
	ChildExitedBySignal ChildState = "signaled"
)

// String returns the string representation of ChildState.
func (s ChildState) String() string {
	return string(s)
}

// IsTerminal reports whether s is one of the two exit states.
func (s ChildState) IsTerminal() bool {
	return s == ChildExitedNormally || s == ChildExitedBySignal
}

// ChildOutcome records how the supervised server process ended.
type ChildOutcome struct {
	// State is the terminal state of the child.
	State ChildState

	// Code is the child's exit code. It is nil when the code is
	// indeterminate (never set for ChildExitedBySignal).
	Code *int

	// Signal names the terminating signal for ChildExitedBySignal.
	Signal string
}

// ExitCode maps the child's terminal state to the launcher's own exit code.
//
// A signal-terminated child maps to ExitGeneralError rather than to a
// signal-derived value because the two runtimes need not share a signal
// numbering scheme. An indeterminate code maps to success.
func (o ChildOutcome) ExitCode() int {
	switch o.State {
	case ChildExitedBySignal:
		return int(ExitGeneralError)
	case ChildExitedNormally:
		if o.Code == nil {
			return int(ExitSuccess)
		}
		return *o.Code
	default:
		return int(ExitGeneralError)
	}
}

// String returns a human-readable description of the outcome.
func (o ChildOutcome) String() string {
	switch o.State {
	case ChildExitedBySignal:
		return "terminated by signal " + o.Signal
	case ChildExitedNormally:
		if o.Code == nil {
			return "exited"
		}
		return "exited with code " + strconv.Itoa(*o.Code)
	default:
		return o.State.String()
	}
}
