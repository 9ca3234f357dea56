package model

import (
	"fmt"
	"strconv"
)

// ExitCode defines the launcher's own exit codes.
//
// The launcher deliberately collapses every launcher-side failure into
// ExitGeneralError: callers (MCP clients) only distinguish "the server
// ran and exited with N" from "something went wrong".
type ExitCode int

const (
	// ExitSuccess indicates the child exited with 0 or an indeterminate code.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates a launcher failure or a signal-terminated child.
	ExitGeneralError ExitCode = 1
)

// ErrorKind classifies launcher failures. Every kind is terminal for the run.
type ErrorKind string

const (
	// KindEnvironment means no qualifying interpreter was found.
	KindEnvironment ErrorKind = "environment"

	// KindProvisioning means a required library failed to install.
	KindProvisioning ErrorKind = "provisioning"

	// KindIntegrity means the bundled server sources are missing,
	// which indicates a broken launcher installation.
	KindIntegrity ErrorKind = "integrity"

	// KindUnexpected covers everything else caught at the top level.
	KindUnexpected ErrorKind = "unexpected"
)

// String returns the string representation of ErrorKind.
func (k ErrorKind) String() string {
	return string(k)
}

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Kind classifies the failure for reporting.
	Kind ErrorKind

	// Message is the human-readable error description.
	Message string

	// Remediation holds operator-facing lines printed below the message,
	// such as install hints or the exact manual command to run.
	Remediation []string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// WithRemediation attaches remediation lines and returns e for chaining.
func (e *CLIError) WithRemediation(lines ...string) *CLIError {
	e.Remediation = append(e.Remediation, lines...)
	return e
}

// NewCLIError creates a new CLIError with the given kind and message.
// Every launcher failure exits with ExitGeneralError.
func NewCLIError(kind ErrorKind, message string) *CLIError {
	return &CLIError{Code: ExitGeneralError, Kind: kind, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(kind ErrorKind, message string, err error) *CLIError {
	return &CLIError{Code: ExitGeneralError, Kind: kind, Message: message, Err: err}
}

// ChildExitError reports that the supervised server has exited and the
// launcher must exit with the mapped code. It is not a failure of the
// launcher: the CLI layer exits with Code without printing anything, so
// the caller sees exactly what a directly-invoked server would produce.
type ChildExitError struct {
	Outcome ChildOutcome
}

// Error satisfies the error interface.
func (e *ChildExitError) Error() string {
	return "server " + e.Outcome.String() + " (launcher exit " + strconv.Itoa(e.Outcome.ExitCode()) + ")"
}

// Code returns the launcher exit code derived from the child outcome.
func (e *ChildExitError) Code() int {
	return e.Outcome.ExitCode()
}
