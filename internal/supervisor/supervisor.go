package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"

	"github.com/shinji-kodama/openspec-mcp-x/internal/model"
)

// Options configures a Supervisor.
type Options struct {
	// Interpreter is the resolved Python command.
	Interpreter string

	// Layout locates the bundled server sources.
	Layout Layout

	// ExtraArgs are appended after the module name.
	ExtraArgs []string

	// Environ is the base environment for the child. Nil means os.Environ().
	Environ []string
}

// Supervisor owns the server child process for the duration of a run.
type Supervisor struct {
	opts Options

	// notify and stop default to signal.Notify and signal.Stop.
	// Tests replace them to inject signals deterministically.
	notify func(c chan<- os.Signal, sig ...os.Signal)
	stop   func(c chan<- os.Signal)

	// reraise delivers a signal caught while no child exists with the
	// platform's default disposition. Defaults to reraiseSignal.
	reraise func(sig os.Signal)
}

// New creates a Supervisor.
func New(opts Options) *Supervisor {
	return &Supervisor{
		opts:   opts,
		notify:  signal.Notify,
		stop:    signal.Stop,
		reraise: reraiseSignal,
	}
}

// ServerCommand builds the child command without wiring its standard
// streams: `<python> -m openspec_mcp.server [extra args]` with the
// augmented environment.
func (s *Supervisor) ServerCommand() *exec.Cmd {
	args := append([]string{"-m", ServerModule}, s.opts.ExtraArgs...)

	// #nosec G204 — the interpreter comes from resolution and args are fixed
	cmd := exec.Command(s.opts.Interpreter, args...)

	base := s.opts.Environ
	if base == nil {
		base = os.Environ()
	}
	cmd.Env = ChildEnv(base, SearchPathVar, s.opts.Layout.SourceDir())
	return cmd
}

// Run verifies the installation layout, spawns the server with the
// launcher's own standard streams, and waits for it to exit.
//
// No process is started when the layout check fails.
func (s *Supervisor) Run(ctx context.Context) (model.ChildOutcome, error) {
	if err := s.opts.Layout.Verify(); err != nil {
		return model.ChildOutcome{State: model.ChildNotStarted}, err
	}

	cmd := s.ServerCommand()

	// Hand the launcher's own file descriptors to the child. With *os.File
	// values os/exec passes the descriptors through directly instead of
	// creating pipes and copying goroutines.
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	slog.DebugContext(ctx, "spawning server",
		"interpreter", s.opts.Interpreter,
		"module", ServerModule,
		SearchPathVar, s.opts.Layout.SourceDir())

	return s.Supervise(cmd)
}

// Supervise starts cmd, relays termination signals to it while it runs,
// and returns its terminal outcome.
//
// The relay handlers are installed just before the start so that no
// signal can slip in between the child appearing and the launcher
// catching it. While the child runs the launcher never exits on a signal
// by itself; its exit is driven by the child's. If the start fails, a
// signal caught in the meantime is raised again with its default
// disposition, as if no handler had been installed.
func (s *Supervisor) Supervise(cmd *exec.Cmd) (model.ChildOutcome, error) {
	sigCh := make(chan os.Signal, 4)
	s.notify(sigCh, relaySignals...)

	if err := cmd.Start(); err != nil {
		s.stop(sigCh)
		select {
		case sig := <-sigCh:
			slog.Debug("re-raising signal received before start failed", "signal", sig.String())
			s.reraise(sig)
		default:
		}
		return model.ChildOutcome{State: model.ChildNotStarted},
			model.WrapCLIError(model.KindUnexpected, "failed to start server", err)
	}
	defer s.stop(sigCh)
	slog.Debug("server running", "pid", cmd.Process.Pid)

	done := make(chan struct{})
	relayed := make(chan struct{})
	go func() {
		defer close(relayed)
		for {
			select {
			case sig := <-sigCh:
				slog.Debug("relaying signal to server", "signal", sig.String(), "pid", cmd.Process.Pid)
				if err := forwardSignal(cmd.Process, sig); err != nil && !errors.Is(err, os.ErrProcessDone) {
					slog.Warn("failed to relay signal", "signal", sig.String(), "err", err)
				}
			case <-done:
				return
			}
		}
	}()

	waitErr := cmd.Wait()
	close(done)
	<-relayed

	return outcomeOf(cmd.ProcessState, waitErr)
}

// outcomeOf maps a finished process to its terminal ChildOutcome.
func outcomeOf(ps *os.ProcessState, waitErr error) (model.ChildOutcome, error) {
	if ps == nil {
		return model.ChildOutcome{State: model.ChildRunning},
			model.WrapCLIError(model.KindUnexpected, "waiting for server", waitErr)
	}

	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		// The process finished but Wait still failed; the exit status is
		// still meaningful, so report it alongside the error in the log.
		slog.Warn("waiting for server", "err", waitErr)
	}

	if name, ok := terminatingSignal(ps); ok {
		return model.ChildOutcome{State: model.ChildExitedBySignal, Signal: name}, nil
	}

	outcome := model.ChildOutcome{State: model.ChildExitedNormally}
	if code := ps.ExitCode(); code >= 0 {
		outcome.Code = &code
	}
	return outcome, nil
}
