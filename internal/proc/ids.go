package proc

import "os"

// Identity passthroughs for the calling process. The group and session
// lookups live in the per-OS files; everything here is portable.

func Getpid() int  { return os.Getpid() }
func Getppid() int { return os.Getppid() }
func Getuid() int  { return os.Getuid() }
func Geteuid() int { return os.Geteuid() }
func Getgid() int  { return os.Getgid() }
func Getegid() int { return os.Getegid() }
