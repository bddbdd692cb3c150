//go:build windows

package proc

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// ExitStatus describes how a child exited. Windows has no signal
// terminations, so only the exit code is carried.
type ExitStatus struct {
	code uint32
}

// ExitCode returns the process exit code.
func (s *ExitStatus) ExitCode() int { return int(s.code) }

// Signaled always reports false on Windows.
func (s *ExitStatus) Signaled() bool { return false }

// Signal always returns 0 on Windows.
func (s *ExitStatus) Signal() int { return 0 }

// Success reports an exit code of zero.
func (s *ExitStatus) Success() bool { return s.code == 0 }

func (s *ExitStatus) String() string {
	return fmt.Sprintf("exit status %d", s.code)
}

// waitBlocking reaps the child, waiting as long as it takes.
func (c *Child) waitBlocking() (*ExitStatus, error) {
	st, err := c.cmd.Process.Wait()
	if err != nil {
		return nil, &WaitError{Pid: c.Pid(), Err: err}
	}
	return &ExitStatus{code: uint32(st.ExitCode())}, nil
}

// tryWait reaps the child if it has already exited, without blocking.
func (c *Child) tryWait() (*ExitStatus, error) {
	h, err := windows.OpenProcess(windows.SYNCHRONIZE|windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(c.Pid()))
	if err != nil {
		return nil, &WaitError{Pid: c.Pid(), Err: err}
	}
	defer func() { _ = windows.CloseHandle(h) }()

	event, err := windows.WaitForSingleObject(h, 0)
	if err != nil {
		return nil, &WaitError{Pid: c.Pid(), Err: err}
	}
	if event != windows.WAIT_OBJECT_0 {
		return nil, nil
	}
	var code uint32
	if err := windows.GetExitCodeProcess(h, &code); err != nil {
		return nil, &WaitError{Pid: c.Pid(), Err: err}
	}
	return &ExitStatus{code: code}, nil
}
