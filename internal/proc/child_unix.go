//go:build !windows

package proc

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// ExitStatus describes how a child exited.
type ExitStatus struct {
	ws unix.WaitStatus
}

// ExitCode returns the exit code for a normal exit and -1 otherwise.
func (s *ExitStatus) ExitCode() int {
	if s.ws.Exited() {
		return s.ws.ExitStatus()
	}
	return -1
}

// Signaled reports whether a signal terminated the child.
func (s *ExitStatus) Signaled() bool { return s.ws.Signaled() }

// Signal returns the terminating signal number, or 0 for a normal exit.
func (s *ExitStatus) Signal() int {
	if s.ws.Signaled() {
		return int(s.ws.Signal())
	}
	return 0
}

// Success reports a normal exit with code zero.
func (s *ExitStatus) Success() bool {
	return s.ws.Exited() && s.ws.ExitStatus() == 0
}

func (s *ExitStatus) String() string {
	if s.ws.Signaled() {
		return "signal: " + unix.SignalName(s.ws.Signal())
	}
	return fmt.Sprintf("exit status %d", s.ExitCode())
}

// waitBlocking reaps the child, waiting as long as it takes.
func (c *Child) waitBlocking() (*ExitStatus, error) {
	var ws unix.WaitStatus
	for {
		_, err := unix.Wait4(c.Pid(), &ws, 0, nil)
		if err == nil {
			return &ExitStatus{ws: ws}, nil
		}
		if !errors.Is(err, unix.EINTR) {
			return nil, &WaitError{Pid: c.Pid(), Err: err}
		}
	}
}

// tryWait reaps the child if it has already exited, without blocking.
func (c *Child) tryWait() (*ExitStatus, error) {
	var ws unix.WaitStatus
	for {
		pid, err := unix.Wait4(c.Pid(), &ws, unix.WNOHANG, nil)
		if err == nil {
			if pid == 0 {
				return nil, nil
			}
			return &ExitStatus{ws: ws}, nil
		}
		if !errors.Is(err, unix.EINTR) {
			return nil, &WaitError{Pid: c.Pid(), Err: err}
		}
	}
}
