package builtin

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/localcmd/assistant/internal/tool"
)

func TestReadFileTool_Success(t *testing.T) {
	ectx, dir := newTestExecutorContext(t)
	os.WriteFile(filepath.Join(dir, "f.txt"), []byte("hello world"), 0o644)

	rt := NewReadFileTool()
	args, _ := json.Marshal(filePathArgs{Path: "f.txt"})
	result, err := rt.Execute(context.Background(), args, ectx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.OK {
		t.Fatalf("unexpected error: %+v", result.Error)
	}
	m := result.Result.(map[string]any)
	if m["content"] != "hello world" {
		t.Errorf("content = %v, want %q", m["content"], "hello world")
	}
	if m["truncated"] != false {
		t.Errorf("truncated = %v, want false", m["truncated"])
	}
}

func TestReadFileTool_TruncatesAtConfiguredLimit(t *testing.T) {
	ectx, dir := newTestExecutorContext(t)
	ectx.Limits.MaxReadSize = 8
	content := strings.Repeat("x", 100)
	os.WriteFile(filepath.Join(dir, "big.txt"), []byte(content), 0o644)

	rt := NewReadFileTool()
	args, _ := json.Marshal(filePathArgs{Path: "big.txt"})
	result, err := rt.Execute(context.Background(), args, ectx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.OK {
		t.Fatalf("expected success with truncation, got error: %+v", result.Error)
	}
	m := result.Result.(map[string]any)
	if m["content"] != strings.Repeat("x", 8) {
		t.Errorf("content = %q, want first 8 bytes", m["content"])
	}
	if m["truncated"] != true {
		t.Errorf("truncated = %v, want true", m["truncated"])
	}
}

func TestReadFileTool_DirectoryRejected(t *testing.T) {
	ectx, dir := newTestExecutorContext(t)
	os.Mkdir(filepath.Join(dir, "subdir"), 0o755)

	rt := NewReadFileTool()
	args, _ := json.Marshal(filePathArgs{Path: "subdir"})
	result, err := rt.Execute(context.Background(), args, ectx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.OK {
		t.Error("expected directory read to be rejected")
	}
	if result.Error.Code != tool.CodeValidationError {
		t.Errorf("code = %q, want %q", result.Error.Code, tool.CodeValidationError)
	}
}
