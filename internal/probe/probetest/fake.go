// Package probetest provides a scripted probe.Prober for tests.
package probetest

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/shinji-kodama/openspec-mcp-x/internal/probe"
)

// Response is the scripted reply to one command line.
type Response struct {
	Result probe.Result
	Err    error
}

// Call records one invocation seen by the Fake.
type Call struct {
	// Mode is "probe" or "run".
	Mode string
	Name string
	Args []string
}

// Line returns the call as a single space-joined command line.
func (c Call) Line() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Fake is a probe.Prober that answers from a table keyed by command line
// ("python3 --version"). Unscripted commands behave like a missing
// executable.
type Fake struct {
	mu        sync.Mutex
	responses map[string]Response
	calls     []Call
}

// NewFake creates an empty Fake.
func NewFake() *Fake {
	return &Fake{responses: make(map[string]Response)}
}

// On scripts the reply for the exact command line.
func (f *Fake) On(line string, result probe.Result) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[line] = Response{Result: result}
	return f
}

// OnError scripts a start failure for the exact command line.
func (f *Fake) OnError(line string, err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[line] = Response{Result: probe.Result{ExitCode: -1}, Err: err}
	return f
}

// Probe implements probe.Prober.
func (f *Fake) Probe(_ context.Context, name string, args ...string) (probe.Result, error) {
	return f.answer("probe", name, args)
}

// Run implements probe.Prober. Output is always dropped, as it would be
// by the real implementation.
func (f *Fake) Run(_ context.Context, name string, args ...string) (probe.Result, error) {
	res, err := f.answer("run", name, args)
	res.Output = ""
	return res, err
}

// Calls returns a copy of every recorded invocation, in order.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// Lines returns the recorded command lines for the given mode ("probe"
// or "run"), or for both when mode is empty.
func (f *Fake) Lines(mode string) []string {
	var lines []string
	for _, c := range f.Calls() {
		if mode == "" || c.Mode == mode {
			lines = append(lines, c.Line())
		}
	}
	return lines
}

func (f *Fake) answer(mode, name string, args []string) (probe.Result, error) {
	call := Call{Mode: mode, Name: name, Args: append([]string(nil), args...)}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)

	resp, ok := f.responses[call.Line()]
	if !ok {
		return probe.Result{ExitCode: -1}, fmt.Errorf("%s: %w", name, exec.ErrNotFound)
	}
	return resp.Result, resp.Err
}
