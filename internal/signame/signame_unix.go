//go:build !windows

package signame

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// Parse resolves a signal given by number ("15"), name ("TERM") or
// prefixed name ("SIGTERM"), case-insensitively. Zero is accepted and
// names the existence probe. Realtime signal numbers are not named
// signals and are rejected.
func Parse(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("empty signal name")
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n == 0 || Valid(n) {
			return n, nil
		}
		return 0, fmt.Errorf("unknown signal number %d", n)
	}
	name := strings.ToUpper(s)
	if !strings.HasPrefix(name, "SIG") {
		name = "SIG" + name
	}
	if n := unix.SignalNum(name); n != 0 {
		return int(n), nil
	}
	return 0, fmt.Errorf("unknown signal name %q", s)
}

// Name returns the canonical name for signal n ("TERM") and whether n is
// a named signal on this platform.
func Name(n int) (string, bool) {
	if n <= 0 {
		return "", false
	}
	full := unix.SignalName(unix.Signal(n))
	if full == "" {
		return "", false
	}
	return strings.TrimPrefix(full, "SIG"), true
}

// Valid reports whether n is a named signal on this platform.
func Valid(n int) bool {
	_, ok := Name(n)
	return ok
}

// Table lists the named signals on this platform in numeric order.
func Table() []Entry {
	var out []Entry
	for n := 1; n < 65; n++ {
		if name, ok := Name(n); ok {
			out = append(out, Entry{Num: n, Name: name})
		}
	}
	return out
}
