//go:build windows

package supervisor

import (
	"os"
	"os/signal"
	"syscall"
)

// relaySignals are the termination requests the launcher intercepts.
var relaySignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// forwardSignal delivers a termination request to the child.
//
// The console already delivers Ctrl+C to every process attached to it,
// the child included, so an interrupt needs no forwarding; the launcher
// only has to stay alive until the child decides to exit. Windows has no
// way to send SIGTERM to another process, so a terminate request ends the
// child outright.
func forwardSignal(p *os.Process, sig os.Signal) error {
	if sig == os.Interrupt {
		return nil
	}
	return p.Kill()
}

// reraiseSignal restores the default disposition of sig. A process cannot
// send itself a console event, so the request is not repeated; the failed
// start already ends the launch with exit code 1.
func reraiseSignal(sig os.Signal) {
	signal.Reset(sig)
}

// terminatingSignal always reports false: Windows processes end with an
// exit code only, including when killed.
func terminatingSignal(_ *os.ProcessState) (string, bool) {
	return "", false
}
