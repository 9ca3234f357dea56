//go:build !windows

package supervisor

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/openspec-mcp-x/internal/model"
)

// runPlatformHelper implements the Unix-only child behaviors.
func runPlatformHelper(mode string) int {
	switch mode {
	case "selfkill":
		_ = syscall.Kill(os.Getpid(), syscall.SIGKILL)
		time.Sleep(time.Minute)
		return 98
	case "trap-term":
		// Handle SIGTERM itself and exit with a distinctive code, like a
		// server that shuts down cleanly when asked to.
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGTERM)
		markReady()
		select {
		case <-ch:
			return 42
		case <-time.After(time.Minute):
			return 97
		}
	case "sleep":
		markReady()
		time.Sleep(time.Minute)
		return 96
	default:
		return 95
	}
}

// markReady creates the file named by helperOutEnv to tell the test that
// the child has finished setting up.
func markReady() {
	_ = os.WriteFile(os.Getenv(helperOutEnv), []byte("ready"), 0o644)
}

// relayOnReady returns a notify replacement that, once the child has
// signalled readiness through the ready file, pushes sig into the relay
// channel as if the launcher itself had received it.
func relayOnReady(t *testing.T, ready string, sig os.Signal) func(chan<- os.Signal, ...os.Signal) {
	t.Helper()
	return func(c chan<- os.Signal, _ ...os.Signal) {
		go func() {
			deadline := time.Now().Add(30 * time.Second)
			for time.Now().Before(deadline) {
				if _, err := os.Stat(ready); err == nil {
					c <- sig
					return
				}
				time.Sleep(10 * time.Millisecond)
			}
		}()
	}
}

// TestSupervise_ChildKilledBySignal verifies that a child terminated by an
// uncaught signal maps to exit code 1.
func TestSupervise_ChildKilledBySignal(t *testing.T) {
	s := New(Options{})

	outcome, err := s.Supervise(helperCommand(t, "selfkill"))
	require.NoError(t, err)

	assert.Equal(t, model.ChildExitedBySignal, outcome.State)
	assert.Equal(t, "SIGKILL", outcome.Signal)
	assert.Nil(t, outcome.Code)
	assert.Equal(t, 1, outcome.ExitCode())
}

// TestSupervise_RelaysTerminateToHandlingChild verifies that SIGTERM is
// forwarded verbatim and the child decides how to exit.
func TestSupervise_RelaysTerminateToHandlingChild(t *testing.T) {
	ready := filepath.Join(t.TempDir(), "ready")
	s := New(Options{})
	s.notify = relayOnReady(t, ready, syscall.SIGTERM)
	s.stop = func(chan<- os.Signal) {}

	outcome, err := s.Supervise(helperCommand(t, "trap-term", helperOutEnv+"="+ready))
	require.NoError(t, err)

	assert.Equal(t, model.ChildExitedNormally, outcome.State)
	assert.Equal(t, 42, outcome.ExitCode())
}

// TestSupervise_RelaysTerminateToDefaultChild verifies that a child with
// the default SIGTERM disposition dies from the relayed signal and the
// launcher reports exit code 1.
func TestSupervise_RelaysTerminateToDefaultChild(t *testing.T) {
	ready := filepath.Join(t.TempDir(), "ready")
	s := New(Options{})
	s.notify = relayOnReady(t, ready, syscall.SIGTERM)
	s.stop = func(chan<- os.Signal) {}

	outcome, err := s.Supervise(helperCommand(t, "sleep", helperOutEnv+"="+ready))
	require.NoError(t, err)

	assert.Equal(t, model.ChildExitedBySignal, outcome.State)
	assert.Equal(t, "SIGTERM", outcome.Signal)
	assert.Equal(t, 1, outcome.ExitCode())
}

// TestSupervise_RelaysInterrupt verifies that SIGINT takes the same path.
func TestSupervise_RelaysInterrupt(t *testing.T) {
	ready := filepath.Join(t.TempDir(), "ready")
	s := New(Options{})
	s.notify = relayOnReady(t, ready, syscall.SIGINT)
	s.stop = func(chan<- os.Signal) {}

	outcome, err := s.Supervise(helperCommand(t, "sleep", helperOutEnv+"="+ready))
	require.NoError(t, err)

	assert.Equal(t, model.ChildExitedBySignal, outcome.State)
	assert.Equal(t, "SIGINT", outcome.Signal)
}

// TestSupervise_RelaysSignalSentToLauncher sends a real SIGTERM to the
// test process while a child runs. The production handlers must catch it,
// keep the launcher alive, and forward it so the child exits on its own
// terms.
func TestSupervise_RelaysSignalSentToLauncher(t *testing.T) {
	ready := filepath.Join(t.TempDir(), "ready")
	s := New(Options{})

	sent := make(chan error, 1)
	go func() {
		deadline := time.Now().Add(30 * time.Second)
		for time.Now().Before(deadline) {
			if _, err := os.Stat(ready); err == nil {
				sent <- syscall.Kill(os.Getpid(), syscall.SIGTERM)
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
		sent <- os.ErrDeadlineExceeded
	}()

	outcome, err := s.Supervise(helperCommand(t, "trap-term", helperOutEnv+"="+ready))
	require.NoError(t, err)
	require.NoError(t, <-sent)

	// Reaching this point means the launcher survived its own SIGTERM.
	assert.Equal(t, model.ChildExitedNormally, outcome.State)
	assert.Equal(t, 42, outcome.ExitCode())
}

// TestRelaySignals pins the forwarded signal set.
func TestRelaySignals(t *testing.T) {
	assert.ElementsMatch(t, []os.Signal{syscall.SIGINT, syscall.SIGTERM}, relaySignals)
}
