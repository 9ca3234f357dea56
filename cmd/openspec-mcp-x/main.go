// Package main is the entry point for the openspec-mcp-x launcher.
//
// MCP clients start this binary as a stdio server. It finds a suitable
// Python, installs the server's libraries when needed, and then runs the
// bundled OpenSpec MCP server with inherited standard streams. All
// functionality lives in internal/cli.
//
// Build-time variables (version, commit, date) are injected via ldflags.
// During development they default to "dev", "none", and "unknown".
package main

import (
	"github.com/shinji-kodama/openspec-mcp-x/internal/cli"
)

// version, commit, and date are set at build time via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.Version = version
	cli.Commit = commit
	cli.Date = date

	// Execute exits the process with the launcher's exit code, which for a
	// completed launch is the server's own.
	rootCmd := cli.NewRootCommand()
	cli.Execute(rootCmd)
}
