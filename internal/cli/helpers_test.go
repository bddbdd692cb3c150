package cli

import (
	"os/exec"
	"runtime"
	"testing"
)

// reapedPid returns the pid of a child that has already exited and been
// reaped, so only pid reuse could make it look alive again.
func reapedPid(t *testing.T) int {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("test relies on a POSIX shell")
	}
	cmd := exec.Command("/bin/sh", "-c", "exit 0")
	if err := cmd.Start(); err != nil {
		t.Fatalf("start child: %v", err)
	}
	pid := cmd.Process.Pid
	if err := cmd.Wait(); err != nil {
		t.Fatalf("wait child: %v", err)
	}
	return pid
}
