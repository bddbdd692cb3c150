package proc

import (
	"errors"
	"fmt"
)

// ErrUnsupported reports an operation the current platform cannot perform.
var ErrUnsupported = errors.New("not supported on this platform")

// WaitError reports a failure of the wait machinery itself. Timeouts and
// cancellations are ordinary outcomes and are never wrapped in one.
type WaitError struct {
	Pid int
	Err error
}

func (e *WaitError) Error() string {
	return fmt.Sprintf("wait on pid %d: %v", e.Pid, e.Err)
}

func (e *WaitError) Unwrap() error { return e.Err }
