//go:build !windows

package proc

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Getpgrp returns the caller's process group id.
func Getpgrp() int { return unix.Getpgrp() }

// Getsid returns the session id of pid. Pid 0 means the caller. The
// kernel's errno (ESRCH, EPERM) stays inspectable through errors.Is.
func Getsid(pid int) (int, error) {
	sid, err := unix.Getsid(pid)
	if err != nil {
		return 0, fmt.Errorf("getsid %d: %w", pid, err)
	}
	return sid, nil
}
