package pathcap

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveAllowlistAndTraversal(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}

	cap, err := New([]string{dir}, true)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	tests := []struct {
		name    string
		input   string
		mode    Mode
		wantErr string
	}{
		{"plain file read", "notes.txt", Read, ""},
		{"absolute path rejected", "/etc/passwd", Read, CodeDeniedAllowlist},
		{"traversal rejected", "../outside.txt", Read, CodeDeniedTraversal},
		{"dotfile write rejected", ".secret", Write, CodeDeniedAllowlist},
		{"env read blocked by default", ".env", Read, CodeDeniedAllowlist},
		{"git write blocked", filepath.Join(".git", "config"), Write, CodeDeniedAllowlist},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := cap.Resolve(tt.input, tt.mode)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Resolve(%q) unexpected error: %v", tt.input, err)
				}
				return
			}
			perr, ok := err.(*Error)
			if !ok {
				t.Fatalf("Resolve(%q) error = %v, want *Error", tt.input, err)
			}
			if perr.Code != tt.wantErr {
				t.Fatalf("Resolve(%q) code = %s, want %s", tt.input, perr.Code, tt.wantErr)
			}
		})
	}
}

func TestResolvePrefixCollisionRejected(t *testing.T) {
	dir := t.TempDir()
	cap, err := New([]string{filepath.Join(dir, "workspace")}, true)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "workspace"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "workspace-evil"), 0o755); err != nil {
		t.Fatal(err)
	}

	// A sibling directory sharing a string prefix with the root must not
	// be treated as contained within it.
	if _, err := cap.Resolve("../workspace-evil/x", Read); err == nil {
		t.Fatal("expected prefix-collision path to be rejected")
	}

	// Reached through a symlink inside the root, the sibling passes the
	// ".." check, so only the containment check can reject it.
	if err := os.Symlink(filepath.Join(dir, "workspace-evil"), filepath.Join(dir, "workspace", "link")); err != nil {
		t.Fatal(err)
	}
	_, err = cap.Resolve(filepath.Join("link", "x"), Read)
	perr, ok := err.(*Error)
	if !ok {
		t.Fatalf("Resolve through symlink error = %v, want *Error", err)
	}
	if perr.Code != CodeDeniedAllowlist {
		t.Fatalf("Resolve through symlink code = %s, want %s", perr.Code, CodeDeniedAllowlist)
	}
}

func TestRootUnderDotDirectoryStillWritable(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, ".config", "workspace")
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatal(err)
	}

	cap, err := New([]string{root}, true)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// Dot-directories above the root must not poison paths beneath it.
	if _, err := cap.Resolve("notes.txt", Write); err != nil {
		t.Fatalf("Resolve under dot-parented root: %v", err)
	}
	// Sensitive names below the root are still blocked.
	if _, err := cap.Resolve(".env", Read); err == nil {
		t.Fatal("expected .env under the root to stay blocked")
	}
}

func TestEmptyAllowPathsRejected(t *testing.T) {
	if _, err := New(nil, true); err == nil {
		t.Fatal("expected New to reject empty allow_paths")
	}
}
