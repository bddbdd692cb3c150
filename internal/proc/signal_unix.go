//go:build !windows

package proc

import (
	"fmt"
	"os/signal"

	"golang.org/x/sys/unix"
)

// validSignal reports whether sig may be dispatched. Zero is the existence
// probe; everything else must be a named standard signal. Realtime signal
// numbers are rejected.
func validSignal(sig int) bool {
	if sig == 0 {
		return true
	}
	return sig > 0 && unix.SignalName(unix.Signal(sig)) != ""
}

// Signal sends sig to the process identified by pid. Signal 0 probes for
// existence without delivering anything. Invalid signal numbers and pids
// below 1 (which would address groups, not a process) fail with EINVAL
// before any call reaches the kernel; delivery failures keep the kernel's
// errno inspectable through errors.Is.
func Signal(pid, sig int) error {
	if pid < 1 {
		return fmt.Errorf("signal pid %d: %w", pid, unix.EINVAL)
	}
	if !validSignal(sig) {
		return fmt.Errorf("signal %d: %w", sig, unix.EINVAL)
	}
	if err := unix.Kill(pid, unix.Signal(sig)); err != nil {
		return fmt.Errorf("signal pid %d: %w", pid, err)
	}
	return nil
}

// SignalGroup broadcasts sig to the caller's own process group. The caller's
// disposition for sig is swapped to ignore around the send, so every other
// member of the group receives the signal and the caller survives its own
// broadcast. Signal 0 probes the group without delivering.
//
// SIGKILL and SIGSTOP cannot be ignored; broadcasting either would take the
// caller down with the group, so they fail with EINVAL before the send.
func SignalGroup(sig int) error {
	if !validSignal(sig) {
		return fmt.Errorf("signal %d: %w", sig, unix.EINVAL)
	}
	if sig == 0 {
		if err := unix.Kill(0, 0); err != nil {
			return fmt.Errorf("signal group: %w", err)
		}
		return nil
	}
	if sig == int(unix.SIGKILL) || sig == int(unix.SIGSTOP) {
		return fmt.Errorf("signal %d: disposition cannot be ignored: %w", sig, unix.EINVAL)
	}

	// Reset restores the default disposition, not the previous handler.
	// Callers holding a signal.Notify registration for sig re-arm it after
	// this returns.
	signal.Ignore(unix.Signal(sig))
	defer signal.Reset(unix.Signal(sig))

	if err := unix.Kill(0, unix.Signal(sig)); err != nil {
		return fmt.Errorf("signal group: %w", err)
	}
	return nil
}
