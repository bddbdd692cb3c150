package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"testing"
)

func runStatusCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newStatusCmd(&context{})
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stdout)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

func TestStatusDefaultsToSelf(t *testing.T) {
	t.Parallel()

	output, err := runStatusCommand(t)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(output, strconv.Itoa(os.Getpid())) {
		t.Fatalf("expected own pid in output, got: %s", output)
	}
	if !strings.Contains(output, "alive") {
		t.Fatalf("expected alive state, got: %s", output)
	}
	// Buffers are not terminals, so no header row.
	if strings.Contains(output, "STATE") {
		t.Fatalf("expected headerless output when piped, got: %s", output)
	}
}

func TestStatusReportsDeadPid(t *testing.T) {
	pid := reapedPid(t)

	output, err := runStatusCommand(t, strconv.Itoa(pid))
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(output, "dead") {
		t.Fatalf("expected dead state, got: %s", output)
	}
}

func TestStatusJSON(t *testing.T) {
	pid := reapedPid(t)

	output, err := runStatusCommand(t, "--json", strconv.Itoa(os.Getpid()), strconv.Itoa(pid))
	if err != nil {
		t.Fatalf("status: %v", err)
	}

	var rows []statusRow
	if err := json.Unmarshal([]byte(output), &rows); err != nil {
		t.Fatalf("decode output: %v\n%s", err, output)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Pid != os.Getpid() || rows[0].State != "alive" {
		t.Fatalf("unexpected self row: %+v", rows[0])
	}
	if rows[1].Pid != pid || rows[1].State != "dead" {
		t.Fatalf("unexpected dead row: %+v", rows[1])
	}
}

func TestStatusRejectsBadPid(t *testing.T) {
	t.Parallel()

	_, err := runStatusCommand(t, "zero")
	if err == nil || !strings.Contains(err.Error(), "invalid pid") {
		t.Fatalf("expected invalid pid error, got %v", err)
	}
}
