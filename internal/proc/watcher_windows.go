//go:build windows

package proc

import (
	"golang.org/x/sys/windows"
)

// Watcher answers liveness queries for a single process.
//
// A handle opened with SYNCHRONIZE access stays valid after the process
// exits, so polling it never races pid reuse. Once the handle reports
// signaled, or cannot be opened or waited on at all, the watcher is dead
// and stays dead. A Watcher is owned by a single goroutine.
type Watcher struct {
	pid    int
	handle windows.Handle
	dead   bool
}

// NewWatcher returns a watcher for pid. Construction never fails: when the
// process cannot be opened the watcher reports dead from the first query.
func NewWatcher(pid int) *Watcher {
	if pid < 1 {
		return &Watcher{pid: pid, dead: true}
	}
	h, err := windows.OpenProcess(windows.SYNCHRONIZE, false, uint32(pid))
	if err != nil || h == 0 {
		return &Watcher{pid: pid, dead: true}
	}
	return &Watcher{pid: pid, handle: h}
}

// IsDead reports whether the process has been observed dead.
func (w *Watcher) IsDead() bool {
	if w.dead {
		return true
	}
	event, err := windows.WaitForSingleObject(w.handle, 0)
	if err != nil || event == windows.WAIT_OBJECT_0 {
		w.dead = true
		w.closeHandle()
	}
	return w.dead
}

// Pid returns the watched pid.
func (w *Watcher) Pid() int { return w.pid }

// Close releases the process handle. Safe to call more than once.
func (w *Watcher) Close() error {
	w.closeHandle()
	return nil
}

func (w *Watcher) closeHandle() {
	if w.handle != 0 {
		_ = windows.CloseHandle(w.handle)
		w.handle = 0
	}
}

// SupportsPidChecks reports whether existence probes work on this platform.
// Handle-based checks are always available on Windows.
func SupportsPidChecks(pid int) bool { return true }
