package supervisor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/openspec-mcp-x/internal/model"
)

// helperEnv switches a re-executed test binary into a scripted child.
// helperOutEnv names a file the child may write its observations to.
const (
	helperEnv    = "SUPERVISOR_TEST_HELPER"
	helperOutEnv = "SUPERVISOR_TEST_OUT"
)

// TestMain lets the test binary stand in for the Python server. Each
// helper mode is a tiny scripted behavior selected by helperEnv.
func TestMain(m *testing.M) {
	mode := os.Getenv(helperEnv)
	if mode == "" {
		os.Exit(m.Run())
	}
	os.Exit(runHelper(mode))
}

// runHelper implements the scripted child behaviors shared by all
// platforms. Platform-specific modes live in runPlatformHelper.
func runHelper(mode string) int {
	switch {
	case strings.HasPrefix(mode, "exit:"):
		code, _ := strconv.Atoi(strings.TrimPrefix(mode, "exit:"))
		return code
	case mode == "dump":
		// Record argv (after the binary name) and the search path.
		out := fmt.Sprintf("args=%s\n%s=%s\n", strings.Join(os.Args[1:], " "), SearchPathVar, os.Getenv(SearchPathVar))
		if err := os.WriteFile(os.Getenv(helperOutEnv), []byte(out), 0o644); err != nil {
			return 99
		}
		return 0
	default:
		return runPlatformHelper(mode)
	}
}

// helperCommand builds a command that re-executes the test binary in the
// given helper mode.
func helperCommand(t *testing.T, mode string, extraEnv ...string) *exec.Cmd {
	t.Helper()
	exe, err := os.Executable()
	require.NoError(t, err)

	cmd := exec.Command(exe)
	cmd.Env = append(os.Environ(), append([]string{helperEnv + "=" + mode}, extraEnv...)...)
	return cmd
}

// TestSupervise_ExitCodePassthrough verifies that the child's normal exit
// code becomes the launcher's exit code.
func TestSupervise_ExitCodePassthrough(t *testing.T) {
	for _, code := range []int{0, 1, 7, 42} {
		t.Run(strconv.Itoa(code), func(t *testing.T) {
			s := New(Options{})

			outcome, err := s.Supervise(helperCommand(t, "exit:"+strconv.Itoa(code)))
			require.NoError(t, err)

			assert.Equal(t, model.ChildExitedNormally, outcome.State)
			require.NotNil(t, outcome.Code)
			assert.Equal(t, code, *outcome.Code)
			assert.Equal(t, code, outcome.ExitCode())
		})
	}
}

// TestSupervise_StartFailure verifies that a child that cannot start never
// reaches the running state and is reported as an unexpected error.
func TestSupervise_StartFailure(t *testing.T) {
	s := New(Options{})

	outcome, err := s.Supervise(exec.Command(filepath.Join(t.TempDir(), "no-such-python")))
	require.Error(t, err)
	assert.Equal(t, model.ChildNotStarted, outcome.State)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.KindUnexpected, cliErr.Kind)
}

// TestSupervise_HandlersInstalledBeforeStart verifies that the relay is
// listening before the child exists, so a signal arriving right after the
// start cannot terminate the launcher.
func TestSupervise_HandlersInstalledBeforeStart(t *testing.T) {
	cmd := helperCommand(t, "exit:0")
	s := New(Options{})

	var startedAtNotify bool
	s.notify = func(chan<- os.Signal, ...os.Signal) { startedAtNotify = cmd.Process != nil }
	s.stop = func(chan<- os.Signal) {}

	_, err := s.Supervise(cmd)
	require.NoError(t, err)
	assert.False(t, startedAtNotify)
}

// TestSupervise_StartFailureReraisesPendingSignal verifies that a signal
// caught while a start is failing is handed back to the default
// disposition instead of being swallowed.
func TestSupervise_StartFailureReraisesPendingSignal(t *testing.T) {
	tests := []struct {
		name    string
		pending []os.Signal
		want    []os.Signal
	}{
		{name: "no signal", pending: nil, want: nil},
		{name: "interrupt pending", pending: []os.Signal{os.Interrupt}, want: []os.Signal{os.Interrupt}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(Options{})

			var stopped int
			var reraised []os.Signal
			s.notify = func(c chan<- os.Signal, _ ...os.Signal) {
				for _, sig := range tt.pending {
					c <- sig
				}
			}
			s.stop = func(chan<- os.Signal) { stopped++ }
			s.reraise = func(sig os.Signal) { reraised = append(reraised, sig) }

			outcome, err := s.Supervise(exec.Command(filepath.Join(t.TempDir(), "no-such-python")))
			require.Error(t, err)
			assert.Equal(t, model.ChildNotStarted, outcome.State)
			assert.Equal(t, 1, stopped)
			assert.Equal(t, tt.want, reraised)
		})
	}
}

// TestSupervise_RestoresSignalHandling verifies that the relay handlers
// are installed for the child's lifetime and removed afterwards.
func TestSupervise_RestoresSignalHandling(t *testing.T) {
	s := New(Options{})

	var registered, stopped int
	s.notify = func(c chan<- os.Signal, sig ...os.Signal) {
		registered++
		assert.ElementsMatch(t, relaySignals, sig)
	}
	s.stop = func(c chan<- os.Signal) { stopped++ }

	_, err := s.Supervise(helperCommand(t, "exit:0"))
	require.NoError(t, err)
	assert.Equal(t, 1, registered)
	assert.Equal(t, 1, stopped)
}

// TestRun_MissingServerNeverSpawns verifies that a broken installation is
// detected before any process is started.
func TestRun_MissingServerNeverSpawns(t *testing.T) {
	exe, err := os.Executable()
	require.NoError(t, err)
	marker := filepath.Join(t.TempDir(), "spawned")
	t.Setenv(helperEnv, "dump")
	t.Setenv(helperOutEnv, marker)

	s := New(Options{Interpreter: exe, Layout: Layout{Root: setupInstall(t, false)}})
	s.notify = func(chan<- os.Signal, ...os.Signal) { t.Error("signal relay installed without a child") }

	outcome, err := s.Run(context.Background())
	require.Error(t, err)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.KindIntegrity, cliErr.Kind)
	assert.Equal(t, model.ChildNotStarted, outcome.State)
	assert.NoFileExists(t, marker)
}

// TestRun_InvocationAndEnvironment verifies the module invocation, extra
// argument passthrough, and the injected search path.
func TestRun_InvocationAndEnvironment(t *testing.T) {
	exe, err := os.Executable()
	require.NoError(t, err)
	out := filepath.Join(t.TempDir(), "dump.txt")
	root := setupInstall(t, true)

	t.Setenv(helperEnv, "dump")
	t.Setenv(helperOutEnv, out)
	t.Setenv(SearchPathVar, "/should/be/replaced")

	s := New(Options{
		Interpreter: exe,
		Layout:      Layout{Root: root},
		ExtraArgs:   []string{"--log", "debug"},
	})

	outcome, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, outcome.ExitCode())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "args=-m openspec_mcp.server --log debug\n")
	assert.Contains(t, string(data), SearchPathVar+"="+filepath.Join(root, "src")+"\n")
}

// TestServerCommand_Environment verifies that an explicit base environment
// is used verbatim apart from the search path.
func TestServerCommand_Environment(t *testing.T) {
	s := New(Options{
		Interpreter: "python3",
		Layout:      Layout{Root: "/opt/openspec"},
		Environ:     []string{"A=1", "PYTHONPATH=/x", "B=2"},
	})

	cmd := s.ServerCommand()
	assert.Equal(t, []string{"python3", "-m", "openspec_mcp.server"}, cmd.Args)
	assert.Equal(t, []string{"A=1", "B=2", "PYTHONPATH=" + filepath.Join("/opt/openspec", "src")}, cmd.Env)
	assert.Nil(t, cmd.Stdin)
	assert.Nil(t, cmd.Stdout)
}
