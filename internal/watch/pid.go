package watch

import (
	"context"
	"errors"
	"fmt"

	"github.com/wrenware/vigil/internal/proc"
)

// ErrUnsupported reports that the platform cannot answer pid liveness
// probes. Callers surface it loudly instead of polling an oracle that can
// never say dead.
var ErrUnsupported = errors.New("pid liveness checks not supported on this platform")

type pidSource struct {
	watcher *proc.Watcher
}

// Pid returns a source backed by the process liveness oracle. It fails
// with ErrUnsupported when the kernel cannot answer existence probes.
func Pid(pid int) (Source, error) {
	if !proc.SupportsPidChecks(pid) {
		return nil, fmt.Errorf("watch pid %d: %w", pid, ErrUnsupported)
	}
	return &pidSource{watcher: proc.NewWatcher(pid)}, nil
}

func (s *pidSource) Describe() string {
	return fmt.Sprintf("pid:%d", s.watcher.Pid())
}

func (s *pidSource) Dead(ctx context.Context) bool {
	return s.watcher.IsDead()
}

func (s *pidSource) Close() error {
	return s.watcher.Close()
}
