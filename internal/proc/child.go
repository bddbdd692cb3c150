package proc

import (
	"io"
	"os/exec"
	"sync/atomic"
	"time"
)

// pollInterval is the cadence of the non-blocking exit checks inside
// WaitOrTimeout.
const pollInterval = 100 * time.Millisecond

// Child wraps a started command with signal dispatch and bounded waits.
//
// Child owns status collection for the process: callers must not mix its
// waits with exec.Cmd.Wait, which would race for the same wait status.
type Child struct {
	cmd    *exec.Cmd
	stdin  io.Closer
	status *ExitStatus
}

// NewChild wraps cmd, which must already be started.
func NewChild(cmd *exec.Cmd) *Child {
	return &Child{cmd: cmd}
}

// Pid returns the child's pid.
func (c *Child) Pid() int { return c.cmd.Process.Pid }

// SetStdin registers the write end of the child's stdin pipe so bounded
// waits can release it before polling.
func (c *Child) SetStdin(w io.Closer) { c.stdin = w }

// Signal sends sig to the child. Signal 0 probes for existence.
func (c *Child) Signal(sig int) error { return Signal(c.Pid(), sig) }

// SignalGroup broadcasts sig to the process group the caller shares with
// the child.
func (c *Child) SignalGroup(sig int) error { return SignalGroup(sig) }

// WaitOrTimeout collects the child's exit status, giving up after timeout.
//
// A zero timeout waits indefinitely. Otherwise the registered stdin is
// closed first, so a child draining its input can reach EOF and exit, and
// the child is then polled every pollInterval until it exits, the timeout
// elapses, or canceled is set. Timeout and cancellation return (nil, nil);
// a non-nil error means the wait mechanism itself failed. The first status
// collected is cached and returned by every later wait.
func (c *Child) WaitOrTimeout(timeout time.Duration, canceled *atomic.Bool) (*ExitStatus, error) {
	if c.status != nil {
		return c.status, nil
	}
	if timeout == 0 {
		st, err := c.waitBlocking()
		if err != nil {
			return nil, err
		}
		c.status = st
		return st, nil
	}

	if c.stdin != nil {
		_ = c.stdin.Close()
		c.stdin = nil
	}

	deadline := time.Now().Add(timeout)
	for {
		st, err := c.tryWait()
		if err != nil {
			return nil, err
		}
		if st != nil {
			c.status = st
			return st, nil
		}
		if canceled != nil && canceled.Load() {
			return nil, nil
		}
		if !time.Now().Before(deadline) {
			return nil, nil
		}
		time.Sleep(pollInterval)
	}
}
