//go:build !windows

package cli

import "github.com/wrenware/vigil/internal/proc"

func appendOSIDs(entries []idEntry) []idEntry {
	entries = append(entries, idEntry{Name: "pgrp", Value: proc.Getpgrp()})
	if sid, err := proc.Getsid(0); err == nil {
		entries = append(entries, idEntry{Name: "sid", Value: sid})
	}
	return entries
}
