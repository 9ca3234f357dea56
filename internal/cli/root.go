// Package cli implements the cobra-based command line of openspec-mcp-x.
//
// The root command is the launcher itself: invoked with no subcommand it
// resolves a Python interpreter, provisions the server's libraries, and
// hands the process over to the bundled MCP server. The doctor subcommand
// runs the same checks without handing over and reports what it found.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/openspec-mcp-x/internal/config"
	"github.com/shinji-kodama/openspec-mcp-x/internal/console"
	"github.com/shinji-kodama/openspec-mcp-x/internal/model"
)

// Global flag variables shared across all subcommands.
// These are bound to cobra persistent flags on the root command,
// which makes them available to every subcommand automatically.
var (
	// configPath is the optional launcher configuration file.
	configPath string

	// logLevel overrides the log level from the config file.
	logLevel string

	// verbose is shorthand for --log-level debug.
	verbose bool

	// rootOverride replaces the installation root derived from the
	// executable path. Useful when running from a source checkout.
	rootOverride string

	// jsonOutput controls whether doctor reports and errors are JSON.
	jsonOutput bool

	// cfg is populated by the root command's PersistentPreRunE.
	cfg = config.Default()
)

// version, commit, and date are set at build time via ldflags.
// They are injected from the main package to display version information.
var (
	// Version is the semantic version of the binary (e.g., "1.0.0").
	Version = "dev"

	// Commit is the Git commit hash the binary was built from.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// NewRootCommand creates and configures the root cobra command.
//
// Unlike a typical CLI the root command does real work: running
// `openspec-mcp-x` is how MCP clients start the server. Arguments after
// `--` are passed through to the server.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "openspec-mcp-x [flags] [-- server-args...]",
		Short: "Launch the OpenSpec MCP server inside a compatible Python",
		Long: `openspec-mcp-x starts the OpenSpec MCP server over standard input/output.

It locates Python 3.10 or newer, installs the server's Python libraries
if they are missing, and then runs the bundled server with the caller's
stdin, stdout, and stderr. Termination signals are forwarded to the
server and its exit code becomes the launcher's exit code.`,

		// Extra positional arguments go to the server verbatim.
		Args: cobra.ArbitraryArgs,

		// MCP clients sometimes append flags of their own. Unknown flags
		// are dropped rather than failing the launch; anything meant for
		// the server belongs after `--`.
		FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},

		// SilenceUsage prevents cobra from printing usage on every error.
		// Usage text on stderr would confuse an MCP client reading logs.
		SilenceUsage: true,

		// SilenceErrors prevents cobra from printing errors automatically.
		// We format errors ourselves (text or JSON based on --json flag).
		SilenceErrors: true,

		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup(cmd)
		},

		RunE: func(cmd *cobra.Command, args []string) error {
			return runLaunch(cmd.Context(), args)
		},
	}

	// Completion scripts make no sense for a binary that is started by
	// MCP clients rather than typed by hand.
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a launcher config file (.yaml, .yml, .json, .jsonc)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (default from config, else warn)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&rootOverride, "root", "", "Installation root containing src/openspec_mcp (default: derived from the executable)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output reports and errors in JSON format")

	rootCmd.AddCommand(NewDoctorCommand())

	return rootCmd
}

// setup loads the configuration file and initializes logging. Flag values
// take precedence over the file.
func setup(cmd *cobra.Command) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return model.WrapCLIError(model.KindUnexpected, "loading config", err)
	}
	cfg = loaded

	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	if cmd.Flags().Changed("log-level") {
		if err := config.ValidateLogLevel(logLevel); err != nil {
			return model.WrapCLIError(model.KindUnexpected, "invalid --log-level", err)
		}
		level = logLevel
	}
	initLogger(os.Stderr, level)
	return nil
}

// Execute runs the root command and exits the process with the code
// derived from its result. This is the main entry point called from main.go.
//
// Any panic is caught here, reported, and turned into exit code 1 so
// that an unanticipated failure still produces a readable message.
func Execute(rootCmd *cobra.Command) {
	code := func() (code int) {
		defer func() {
			if r := recover(); r != nil {
				printError(os.Stderr, fmt.Errorf("%v", r))
				code = int(model.ExitGeneralError)
			}
		}()
		err := rootCmd.Execute()
		if err != nil && !isChildExit(err) {
			printError(os.Stderr, err)
		}
		return exitCodeFor(err)
	}()
	os.Exit(code)
}

// exitCodeFor translates the result of the root command into the
// launcher's exit code.
//
// A *model.ChildExitError carries the supervised server's mapped code.
// A *model.CLIError carries its own code; any other error means 1.
func exitCodeFor(err error) int {
	if err == nil {
		return int(model.ExitSuccess)
	}

	var childErr *model.ChildExitError
	if errors.As(err, &childErr) {
		return childErr.Code()
	}

	var cliErr *model.CLIError
	if errors.As(err, &cliErr) {
		return int(cliErr.Code)
	}
	return int(model.ExitGeneralError)
}

// isChildExit reports whether err is the normal end of a supervised run.
// Those are never printed: the server has already said whatever it had
// to say on the streams it owned.
func isChildExit(err error) bool {
	var childErr *model.ChildExitError
	return errors.As(err, &childErr)
}

// printError outputs an error message in the appropriate format
// (JSON or text) based on the --json global flag.
func printError(w io.Writer, err error) {
	message := err.Error()
	kind := model.KindUnexpected
	var detail string
	var remediation []string

	var cliErr *model.CLIError
	if errors.As(err, &cliErr) {
		message = cliErr.Message
		kind = cliErr.Kind
		remediation = cliErr.Remediation
		if cliErr.Err != nil {
			detail = cliErr.Err.Error()
		}
	}

	if jsonOutput {
		errObj := map[string]interface{}{
			"message": message,
			"kind":    kind.String(),
		}
		if detail != "" {
			errObj["detail"] = detail
		}
		if len(remediation) > 0 {
			errObj["remediation"] = remediation
		}
		data, _ := json.MarshalIndent(map[string]interface{}{"error": errObj}, "", "  ")
		fmt.Fprintln(w, string(data))
		return
	}

	out := console.New(w)
	if detail != "" {
		out.Error("%s: %s", message, detail)
	} else {
		out.Error("%s", message)
	}
	if len(remediation) > 0 {
		out.Blank()
		for _, line := range remediation {
			out.Detail("%s", line)
		}
		out.Blank()
	}
}

// IsJSONOutput returns whether the --json flag is set.
// Subcommands use this to decide their output format.
func IsJSONOutput() bool {
	return jsonOutput
}
