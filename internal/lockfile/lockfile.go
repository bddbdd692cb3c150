// Package lockfile guards single-instance commands with an advisory file
// lock. The kernel drops the lock when the holder dies, so a crashed
// holder never wedges the next start; the pid metadata written into the
// file names the holder in error messages and lets stale leftovers be
// identified explicitly.
package lockfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/wrenware/vigil/internal/proc"
)

// ErrLocked reports that another live process holds the lock.
var ErrLocked = errors.New("lock held by another process")

// Info is the metadata the holder writes into the lock file.
type Info struct {
	Pid        int       `json:"pid"`
	AcquiredAt time.Time `json:"acquired_at"`
	Hostname   string    `json:"hostname,omitempty"`
}

// Stale reports whether the recorded holder is dead. Metadata from a
// holder that crashed stays behind even though the kernel released its
// lock; the liveness oracle tells the two apart.
func (i *Info) Stale() bool {
	w := proc.NewWatcher(i.Pid)
	defer w.Close()
	return w.IsDead()
}

// Lock is a held lock. Release it exactly once.
type Lock struct {
	path string
	fl   *flock.Flock

	// Previous holds metadata left behind by an earlier holder that no
	// longer owns the lock, when any was found. Callers typically log it.
	Previous *Info
}

// Acquire takes the exclusive lock at path without blocking. When another
// live process holds it, the returned error wraps ErrLocked and names the
// holder if its metadata is readable.
func Acquire(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	fl := flock.New(path)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	if !locked {
		if info, err := readInfo(path); err == nil {
			return nil, fmt.Errorf("%w: pid %d since %s", ErrLocked, info.Pid, info.AcquiredAt.Format(time.RFC3339))
		}
		return nil, fmt.Errorf("%w: %s", ErrLocked, path)
	}

	lock := &Lock{path: path, fl: fl}
	if info, err := readInfo(path); err == nil && info.Pid != os.Getpid() {
		lock.Previous = info
	}

	if err := writeInfo(path); err != nil {
		_ = fl.Unlock()
		return nil, err
	}
	return lock, nil
}

// Path returns the lock file location.
func (l *Lock) Path() string { return l.path }

// Release drops the lock and removes the file.
func (l *Lock) Release() error {
	if err := l.fl.Unlock(); err != nil {
		return fmt.Errorf("unlock %s: %w", l.path, err)
	}
	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", l.path, err)
	}
	return nil
}

// Read returns the metadata currently recorded at path, without touching
// the lock itself.
func Read(path string) (*Info, error) {
	return readInfo(path)
}

func readInfo(path string) (*Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("parse lock metadata: %w", err)
	}
	if info.Pid == 0 {
		return nil, errors.New("lock metadata has no pid")
	}
	return &info, nil
}

func writeInfo(path string) error {
	hostname, _ := os.Hostname()
	info := Info{
		Pid:        os.Getpid(),
		AcquiredAt: time.Now(),
		Hostname:   hostname,
	}
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("encode lock metadata: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write lock metadata: %w", err)
	}
	return nil
}
