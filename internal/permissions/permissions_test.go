package permissions

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTestDoc(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadJSONAppliesDefaults(t *testing.T) {
	path := writeTestDoc(t, "permissions.json", `{
		"version": 1,
		"allow_paths": ["."],
		"allow_commands": ["ls", "cat"],
		"require_confirmation_for": ["write_file"],
		"deny_tools": ["shell_exec"]
	}`)

	doc, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !doc.IsAllowedCommand("ls") {
		t.Fatal("expected ls to be allowed")
	}
	if doc.IsAllowedCommand("curl") {
		t.Fatal("expected curl to not be allowed")
	}
	if !doc.RequiresConfirmation("write_file") {
		t.Fatal("expected write_file to require confirmation")
	}
	if !doc.IsDeniedTool("shell_exec") {
		t.Fatal("expected shell_exec to be denied")
	}
	if doc.Limits().CommandTimeoutMs != DefaultCommandTimeoutMs {
		t.Fatalf("CommandTimeoutMs = %d, want default %d", doc.Limits().CommandTimeoutMs, DefaultCommandTimeoutMs)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeTestDoc(t, "permissions.yaml", "version: 1\nallow_paths:\n  - .\nallow_commands:\n  - ls\nlimits:\n  maxMemoryEntries: 10\n")

	doc, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if doc.Limits().MaxMemoryEntries != 10 {
		t.Fatalf("MaxMemoryEntries = %d, want 10", doc.Limits().MaxMemoryEntries)
	}
}

func TestLoadRejectsEmptyAllowPaths(t *testing.T) {
	path := writeTestDoc(t, "permissions.json", `{"version": 1, "allow_paths": []}`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected empty allow_paths to be rejected")
	}
}

func TestDenyToolsPrecedence(t *testing.T) {
	path := writeTestDoc(t, "permissions.json", `{
		"version": 1,
		"allow_paths": ["."],
		"deny_tools": ["shell_exec"]
	}`)
	doc, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !doc.IsDeniedTool("shell_exec") {
		t.Fatal("deny_tools must take effect regardless of any other field")
	}
}
