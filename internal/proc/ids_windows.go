//go:build windows

package proc

import "fmt"

// Getpgrp has no Windows equivalent; it reports -1 the way os.Getuid does
// there.
func Getpgrp() int { return -1 }

// Getsid has no Windows equivalent.
func Getsid(pid int) (int, error) {
	return 0, fmt.Errorf("getsid %d: %w", pid, ErrUnsupported)
}
