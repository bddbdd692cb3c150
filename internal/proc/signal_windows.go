//go:build windows

package proc

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"golang.org/x/sys/windows"
)

// Signal delivers sig to pid as far as Windows allows: signal 0 probes for
// existence, SIGKILL and SIGTERM terminate the process, anything else fails
// with EINVAL. See the package documentation for the caveats.
func Signal(pid, sig int) error {
	if pid < 1 {
		return fmt.Errorf("signal pid %d: %w", pid, syscall.EINVAL)
	}
	switch sig {
	case 0:
		h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid))
		if err != nil {
			// Access denied still proves the process exists.
			if errors.Is(err, windows.ERROR_ACCESS_DENIED) {
				return nil
			}
			return fmt.Errorf("signal pid %d: %w", pid, err)
		}
		_ = windows.CloseHandle(h)
		return nil
	case int(windows.SIGKILL), int(windows.SIGTERM):
		p, err := os.FindProcess(pid)
		if err != nil {
			return fmt.Errorf("signal pid %d: %w", pid, err)
		}
		defer func() { _ = p.Release() }()
		if err := p.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			return fmt.Errorf("signal pid %d: %w", pid, err)
		}
		return nil
	default:
		return fmt.Errorf("signal %d: %w", sig, syscall.EINVAL)
	}
}

// SignalGroup is unavailable on Windows, which has no process groups in the
// POSIX sense.
func SignalGroup(sig int) error {
	return fmt.Errorf("signal group: %w", ErrUnsupported)
}
