package builtin

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/localcmd/assistant/internal/tool"
)

func TestRunCommandTool_Interface(t *testing.T) {
	rc := NewRunCommandTool()
	if rc.Name() != "run_command" {
		t.Errorf("Name() = %q, want run_command", rc.Name())
	}
	if rc.Description() == "" {
		t.Error("Description() should not be empty")
	}
}

func TestRunCommandTool_Pwd(t *testing.T) {
	ectx, _ := newTestExecutorContext(t)
	rc := NewRunCommandTool()
	args, _ := json.Marshal(runCommandArgs{Command: "pwd"})
	result, err := rc.Execute(context.Background(), args, ectx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.OK {
		t.Fatalf("unexpected error: %+v", result.Error)
	}
}

func TestRunCommandTool_CatFile(t *testing.T) {
	ectx, dir := newTestExecutorContext(t)
	os.WriteFile(filepath.Join(dir, "f.txt"), []byte("hello world"), 0o644)

	rc := NewRunCommandTool()
	args, _ := json.Marshal(runCommandArgs{Command: "cat", Args: "f.txt"})
	result, err := rc.Execute(context.Background(), args, ectx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.OK {
		t.Fatalf("unexpected error: %+v", result.Error)
	}
	m := result.Result.(map[string]any)
	if m["output"].(string) != "hello world" {
		t.Errorf("output = %q", m["output"])
	}
}

func TestRunCommandTool_DeniedCommand(t *testing.T) {
	ectx, _ := newTestExecutorContext(t)
	rc := NewRunCommandTool()
	args, _ := json.Marshal(runCommandArgs{Command: "rm", Args: "-rf ."})
	result, err := rc.Execute(context.Background(), args, ectx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.OK {
		t.Error("expected rm to be denied")
	}
	if result.Error.Code != tool.CodeDeniedCommandAllow {
		t.Errorf("code = %q, want %q", result.Error.Code, tool.CodeDeniedCommandAllow)
	}
}

func TestRunCommandTool_DeniedFlag(t *testing.T) {
	ectx, _ := newTestExecutorContext(t)
	rc := NewRunCommandTool()
	args, _ := json.Marshal(runCommandArgs{Command: "ls", Args: "--rf"})
	result, err := rc.Execute(context.Background(), args, ectx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.OK {
		t.Error("expected unrecognized flag to be denied")
	}
	if result.Error.Code != tool.CodeDeniedCommandFlag {
		t.Errorf("code = %q, want %q", result.Error.Code, tool.CodeDeniedCommandFlag)
	}
}

func TestRunCommandTool_PathOutsideAllowed(t *testing.T) {
	ectx, _ := newTestExecutorContext(t)
	rc := NewRunCommandTool()
	args, _ := json.Marshal(runCommandArgs{Command: "cat", Args: "../../etc/passwd"})
	result, err := rc.Execute(context.Background(), args, ectx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.OK {
		t.Error("expected path traversal to be denied")
	}
}
