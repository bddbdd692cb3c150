//go:build windows

package signame

import (
	"fmt"
	"strconv"
	"strings"
)

// Windows resolution covers only the signals the dispatcher can act on.
var table = []Entry{
	{Num: 2, Name: "INT"},
	{Num: 9, Name: "KILL"},
	{Num: 15, Name: "TERM"},
}

// Parse resolves a signal given by number ("15"), name ("TERM") or
// prefixed name ("SIGTERM"), case-insensitively. Zero is accepted and
// names the existence probe.
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
	name := strings.TrimPrefix(strings.ToUpper(s), "SIG")
	for _, e := range table {
		if e.Name == name {
			return e.Num, nil
		}
	}
	return 0, fmt.Errorf("unknown signal name %q", s)
}

// Name returns the canonical name for signal n and whether this platform
// knows it.
func Name(n int) (string, bool) {
	for _, e := range table {
		if e.Num == n {
			return e.Name, true
		}
	}
	return "", false
}

// Valid reports whether n is a signal this platform knows.
func Valid(n int) bool {
	_, ok := Name(n)
	return ok
}

// Table lists the supported signals in numeric order.
func Table() []Entry {
	out := make([]Entry, len(table))
	copy(out, table)
	return out
}
