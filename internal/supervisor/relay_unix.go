//go:build !windows

package supervisor

import (
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sys/unix"
)

// relaySignals are the termination signals forwarded to the child.
var relaySignals = []os.Signal{unix.SIGINT, unix.SIGTERM}

// forwardSignal delivers sig to the child unchanged.
func forwardSignal(p *os.Process, sig os.Signal) error {
	return p.Signal(sig)
}

// reraiseSignal restores the default disposition of sig and sends it to
// the launcher itself.
func reraiseSignal(sig os.Signal) {
	signal.Reset(sig)
	if s, ok := sig.(syscall.Signal); ok {
		_ = unix.Kill(os.Getpid(), s)
	}
}

// terminatingSignal reports the name of the signal that killed the
// process, if it was killed by one.
func terminatingSignal(ps *os.ProcessState) (string, bool) {
	ws, ok := ps.Sys().(syscall.WaitStatus)
	if !ok || !ws.Signaled() {
		return "", false
	}
	if name := unix.SignalName(ws.Signal()); name != "" {
		return name, true
	}
	return ws.Signal().String(), true
}
