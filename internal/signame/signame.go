// Package signame resolves signal names and numbers for the vigil
// commands. POSIX builds answer from the platform's named-signal table;
// Windows builds carry the short list the dispatcher can act on.
package signame

// Entry pairs a signal number with its canonical name, without the SIG
// prefix.
type Entry struct {
	Num  int
	Name string
}
