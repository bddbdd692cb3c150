//go:build !windows

package proc

import (
	"errors"

	"golang.org/x/sys/unix"
)

// Watcher answers liveness queries for a single process.
//
// Each query probes the pid with signal 0, which delivers nothing. EPERM
// means the process exists but belongs to someone else, so it counts as
// alive; any other probe failure marks the watcher dead, and dead sticks.
// A Watcher is owned by a single goroutine.
type Watcher struct {
	pid  int
	dead bool
}

// NewWatcher returns a watcher for pid. Construction never fails: a pid that
// cannot be probed, including values below 1 (which would address process
// groups, not a process), reports dead from the first query.
func NewWatcher(pid int) *Watcher {
	return &Watcher{pid: pid, dead: pid < 1}
}

// IsDead reports whether the process has been observed dead.
func (w *Watcher) IsDead() bool {
	if w.dead {
		return true
	}
	if err := unix.Kill(w.pid, 0); err != nil && !errors.Is(err, unix.EPERM) {
		w.dead = true
	}
	return w.dead
}

// Pid returns the watched pid.
func (w *Watcher) Pid() int { return w.pid }

// Close releases watcher resources. There are none to release on POSIX
// platforms.
func (w *Watcher) Close() error { return nil }

// SupportsPidChecks reports whether the kernel answers existence probes for
// pid. Some emulation layers lack the probe entirely and answer ENOSYS.
func SupportsPidChecks(pid int) bool {
	return !errors.Is(unix.Kill(pid, 0), unix.ENOSYS)
}
