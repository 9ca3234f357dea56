// Package model defines the domain types and value objects for the
// openspec-mcp-x launcher.
//
// This package contains pure data structures with no external dependencies.
// Every entity (Candidate, Requirement, ChildOutcome, etc.) lives only for
// the duration of one launcher run. Nothing is persisted between
// invocations.
//
// The package also defines exit codes (ExitCode) and the error types
// (CLIError, ChildExitError) that the CLI layer translates into the
// launcher's own process exit status.
package model
