package executor

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/localcmd/assistant/internal/audit"
	"github.com/localcmd/assistant/internal/cmdcap"
	"github.com/localcmd/assistant/internal/memory"
	"github.com/localcmd/assistant/internal/pathcap"
	"github.com/localcmd/assistant/internal/permissions"
	"github.com/localcmd/assistant/internal/reminders"
	"github.com/localcmd/assistant/internal/tasks"
	"github.com/localcmd/assistant/internal/tool"
	"github.com/localcmd/assistant/internal/tool/builtin"
	"github.com/localcmd/assistant/internal/trust"
)

func mustDoc(t *testing.T, dir string, extra map[string]any) *permissions.Document {
	t.Helper()
	base := map[string]any{
		"version":        1,
		"allow_paths":    []string{dir},
		"allow_commands": []string{"ls", "cat", "pwd", "du"},
	}
	for k, v := range extra {
		base[k] = v
	}
	data, err := json.Marshal(base)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "permissions.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	doc, err := permissions.Load(path)
	if err != nil {
		t.Fatalf("permissions.Load: %v", err)
	}
	return doc
}

func newTestExecutor(t *testing.T, perms *permissions.Document, dir string) *Executor {
	t.Helper()
	paths, err := pathcap.New([]string{dir}, false)
	if err != nil {
		t.Fatal(err)
	}
	commands := cmdcap.New(cmdcap.DefaultSpecs(), paths, dir, 5*time.Second, 1<<20)
	memStore, err := memory.Open(filepath.Join(dir, "memory.jsonl"), 1000)
	if err != nil {
		t.Fatal(err)
	}
	taskStore, err := tasks.Open(filepath.Join(dir, "tasks.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	remStore, err := reminders.Open(filepath.Join(dir, "reminders.jsonl"))
	if err != nil {
		t.Fatal(err)
	}

	registry := tool.NewRegistry()
	registry.Register(builtin.NewCalculateTool())
	registry.Register(builtin.NewWeatherTool())
	registry.Register(builtin.NewRememberTool())
	registry.Register(builtin.NewTaskAddTool())

	return New(Deps{
		Registry:    registry,
		Permissions: perms,
		Paths:       paths,
		Commands:    commands,
		Memory:      memStore,
		Tasks:       taskStore,
		Reminders:   remStore,
		Audit:       audit.Open(filepath.Join(dir, "audit.jsonl")),
	})
}

func TestExecute_SafeToolWithNilAgent(t *testing.T) {
	dir := t.TempDir()
	perms := mustDoc(t, dir, nil)
	ex := newTestExecutor(t, perms, dir)

	args, _ := json.Marshal(map[string]string{"expression": "2 + 2"})
	result := ex.Execute(context.Background(), "calculate", args, nil)
	if !result.OK {
		t.Fatalf("unexpected error: %+v", result.Error)
	}
}

func TestExecute_DeniedAgentToolsetWithNilAgent(t *testing.T) {
	dir := t.TempDir()
	perms := mustDoc(t, dir, nil)
	ex := newTestExecutor(t, perms, dir)

	args, _ := json.Marshal(map[string]string{"text": "buy milk"})
	result := ex.Execute(context.Background(), "task_add", args, nil)
	if result.OK {
		t.Fatal("expected nil agent to be denied task_add")
	}
	if result.Error.Code != tool.CodeDeniedAgentToolset {
		t.Errorf("code = %q, want %q", result.Error.Code, tool.CodeDeniedAgentToolset)
	}
}

func TestExecute_UserAgentRestrictedToOwnToolset(t *testing.T) {
	dir := t.TempDir()
	perms := mustDoc(t, dir, nil)
	ex := newTestExecutor(t, perms, dir)

	agent, err := trust.New("Organizer", trust.KindUser, map[string]bool{"task_add": true}, "")
	if err != nil {
		t.Fatal(err)
	}

	args, _ := json.Marshal(map[string]string{"text": "buy milk"})
	result := ex.Execute(context.Background(), "task_add", args, agent)
	if !result.OK {
		t.Fatalf("unexpected error: %+v", result.Error)
	}

	result = ex.Execute(context.Background(), "remember", args, agent)
	if result.OK {
		t.Fatal("expected Organizer to be denied remember")
	}
	if result.Error.Code != tool.CodeDeniedAgentToolset {
		t.Errorf("code = %q, want %q", result.Error.Code, tool.CodeDeniedAgentToolset)
	}
}

func TestExecute_SystemAgentBypassesToolsetButNotDenylist(t *testing.T) {
	dir := t.TempDir()
	perms := mustDoc(t, dir, map[string]any{"deny_tools": []string{"remember"}})
	ex := newTestExecutor(t, perms, dir)

	system, err := trust.New("SYSTEM", trust.KindSystem, nil, "")
	if err != nil {
		t.Fatal(err)
	}

	args, _ := json.Marshal(map[string]string{"text": "buy milk"})
	result := ex.Execute(context.Background(), "task_add", args, system)
	if !result.OK {
		t.Fatalf("unexpected error: %+v", result.Error)
	}

	result = ex.Execute(context.Background(), "remember", args, system)
	if result.OK {
		t.Fatal("expected denylist to override system agent")
	}
	if result.Error.Code != tool.CodeDeniedToolBlocklist {
		t.Errorf("code = %q, want %q", result.Error.Code, tool.CodeDeniedToolBlocklist)
	}
}

func TestExecute_UnknownTool(t *testing.T) {
	dir := t.TempDir()
	perms := mustDoc(t, dir, nil)
	ex := newTestExecutor(t, perms, dir)

	system, _ := trust.New("SYSTEM", trust.KindSystem, nil, "")
	result := ex.Execute(context.Background(), "does_not_exist", nil, system)
	if result.OK {
		t.Fatal("expected unknown tool to fail")
	}
	if result.Error.Code != tool.CodeUnknownTool {
		t.Errorf("code = %q, want %q", result.Error.Code, tool.CodeUnknownTool)
	}
}

func TestExecute_ConfirmationRequired(t *testing.T) {
	dir := t.TempDir()
	perms := mustDoc(t, dir, map[string]any{"require_confirmation_for": []string{"task_add"}})
	ex := newTestExecutor(t, perms, dir)

	system, _ := trust.New("SYSTEM", trust.KindSystem, nil, "")
	args, _ := json.Marshal(map[string]string{"text": "buy milk"})
	result := ex.Execute(context.Background(), "task_add", args, system)
	if result.OK {
		t.Fatal("expected confirmation to be required")
	}
	if result.Error.Code != tool.CodeConfirmationRequired {
		t.Errorf("code = %q, want %q", result.Error.Code, tool.CodeConfirmationRequired)
	}

	args, _ = json.Marshal(map[string]any{"text": "buy milk", "confirm": true})
	result = ex.Execute(context.Background(), "task_add", args, system)
	if !result.OK {
		t.Fatalf("unexpected error after confirm=true: %+v", result.Error)
	}
}

func TestExecute_ValidationErrorMissingRequiredField(t *testing.T) {
	dir := t.TempDir()
	perms := mustDoc(t, dir, nil)
	ex := newTestExecutor(t, perms, dir)

	system, _ := trust.New("SYSTEM", trust.KindSystem, nil, "")
	result := ex.Execute(context.Background(), "task_add", []byte(`{}`), system)
	if result.OK {
		t.Fatal("expected missing required field to fail validation")
	}
	if result.Error.Code != tool.CodeValidationError {
		t.Errorf("code = %q, want %q", result.Error.Code, tool.CodeValidationError)
	}
}

func TestExecute_AuditRecordWrittenOnSuccess(t *testing.T) {
	dir := t.TempDir()
	perms := mustDoc(t, dir, nil)
	ex := newTestExecutor(t, perms, dir)

	system, _ := trust.New("SYSTEM", trust.KindSystem, nil, "")
	args, _ := json.Marshal(map[string]string{"text": "buy milk"})
	if result := ex.Execute(context.Background(), "task_add", args, system); !result.OK {
		t.Fatalf("unexpected error: %+v", result.Error)
	}

	log := audit.Open(filepath.Join(dir, "audit.jsonl"))
	records, err := log.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d audit records, want 1", len(records))
	}
	if records[0].Tool != "task_add" || !records[0].OK {
		t.Errorf("unexpected record: %+v", records[0])
	}
}

func TestExecute_NoAuditRecordOnDenylistShortCircuit(t *testing.T) {
	dir := t.TempDir()
	perms := mustDoc(t, dir, map[string]any{"deny_tools": []string{"remember"}})
	ex := newTestExecutor(t, perms, dir)

	system, _ := trust.New("SYSTEM", trust.KindSystem, nil, "")
	args, _ := json.Marshal(map[string]string{"text": "x"})
	if result := ex.Execute(context.Background(), "remember", args, system); result.OK {
		t.Fatal("expected denylist to block remember")
	}

	log := audit.Open(filepath.Join(dir, "audit.jsonl"))
	records, err := log.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("got %d audit records, want 0", len(records))
	}
}
