package probe

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Result is the observable outcome of a completed subprocess.
type Result struct {
	// ExitCode is the process exit code. It is -1 when the process was
	// terminated by a signal (including a timeout kill).
	ExitCode int

	// Output is the combined stdout and stderr text. Empty for Run.
	Output string
}

// Success reports whether the subprocess exited with code 0.
func (r Result) Success() bool {
	return r.ExitCode == 0
}

// Prober runs subprocesses to completion.
//
// A returned error means the subprocess could not be started at all
// (e.g., the executable does not exist) or was cut off by the timeout.
// A subprocess that ran and exited non-zero is NOT an error: callers read
// Result.ExitCode.
type Prober interface {
	// Probe runs name with args, captures combined stdout/stderr, and
	// returns the exit code and output. Standard input is empty.
	Probe(ctx context.Context, name string, args ...string) (Result, error)

	// Run runs name with args with all three standard streams discarded.
	Run(ctx context.Context, name string, args ...string) (Result, error)
}

// ErrTimeout is returned (wrapped) when a subprocess exceeds its deadline.
var ErrTimeout = errors.New("subprocess timed out")

// ExecProber is the os/exec-backed Prober.
//
// Probe and Run each bound their subprocess with their own timeout.
// A zero timeout means no limit beyond the caller's context.
type ExecProber struct {
	// ProbeTimeout bounds Probe calls (version queries, import checks).
	ProbeTimeout time.Duration

	// RunTimeout bounds Run calls (package installation).
	RunTimeout time.Duration
}

// NewExecProber creates an ExecProber with the given timeouts.
func NewExecProber(probeTimeout, runTimeout time.Duration) *ExecProber {
	return &ExecProber{ProbeTimeout: probeTimeout, RunTimeout: runTimeout}
}

// Probe implements Prober.
func (p *ExecProber) Probe(ctx context.Context, name string, args ...string) (Result, error) {
	ctx, cancel := withTimeout(ctx, p.ProbeTimeout)
	defer cancel()

	// #nosec G204 — name is an interpreter candidate and args are built internally
	cmd := exec.CommandContext(ctx, name, args...)

	// A single builder for both streams gives the interleaved text a
	// terminal would show; `python --version` prints to stderr on 2.x and
	// to stdout on 3.x.
	var output strings.Builder
	cmd.Stdout = &output
	cmd.Stderr = &output

	err := cmd.Run()
	return complete(ctx, name, args, output.String(), err)
}

// Run implements Prober.
func (p *ExecProber) Run(ctx context.Context, name string, args ...string) (Result, error) {
	ctx, cancel := withTimeout(ctx, p.RunTimeout)
	defer cancel()

	// #nosec G204 — name is the resolved interpreter and args are built internally
	cmd := exec.CommandContext(ctx, name, args...)

	// Leaving Stdin/Stdout/Stderr nil connects them to the null device.
	err := cmd.Run()
	return complete(ctx, name, args, "", err)
}

// complete translates the result of cmd.Run into a Result.
//
// *exec.ExitError means the process ran and exited non-zero, which is a
// normal Result. Anything else (not found, permission denied) is a start
// failure. A context deadline takes precedence so that a timeout kill is
// reported as ErrTimeout rather than as "signal: killed".
func complete(ctx context.Context, name string, args []string, output string, err error) (Result, error) {
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(ctxErr, context.DeadlineExceeded) {
		return Result{ExitCode: -1, Output: output}, fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), ErrTimeout)
	}
	if err == nil {
		return Result{ExitCode: 0, Output: output}, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return Result{ExitCode: exitErr.ExitCode(), Output: output}, nil
	}

	return Result{ExitCode: -1, Output: output}, fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
}

// withTimeout derives a context bounded by d, or returns ctx unchanged
// (with a no-op cancel) when d is zero.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}
