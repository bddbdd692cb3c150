package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigLintAcceptsValidFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "vigil.yaml")
	doc := "version: \"1\"\nwatch:\n  interval: 250ms\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	root, _ := newRootCommand()
	var stdout bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stdout)
	root.SetArgs([]string{"config", "lint", "--config", path})

	if err := root.Execute(); err != nil {
		t.Fatalf("lint: %v", err)
	}
	if !strings.Contains(stdout.String(), "is valid (version 1)") {
		t.Fatalf("expected validity message, got: %s", stdout.String())
	}
}

func TestConfigLintRejectsUnknownKeys(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "vigil.yaml")
	doc := "version: \"1\"\nwobble: true\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	root, _ := newRootCommand()
	var stdout bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stdout)
	root.SetArgs([]string{"config", "lint", "--config", path})

	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "schema validation failed") {
		t.Fatalf("expected schema validation error, got %v", err)
	}
}

func TestConfigLintRejectsMissingExplicitFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "absent.yaml")

	root, _ := newRootCommand()
	var stdout bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stdout)
	root.SetArgs([]string{"config", "lint", "--config", path})

	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "open config file") {
		t.Fatalf("expected open error, got %v", err)
	}
}
