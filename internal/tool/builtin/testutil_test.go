package builtin

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/localcmd/assistant/internal/cmdcap"
	"github.com/localcmd/assistant/internal/memory"
	"github.com/localcmd/assistant/internal/pathcap"
	"github.com/localcmd/assistant/internal/permissions"
	"github.com/localcmd/assistant/internal/reminders"
	"github.com/localcmd/assistant/internal/tasks"
	"github.com/localcmd/assistant/internal/tool"
)

// testExecutorContext is a capability-free ExecutorContext safe to hand to
// tools that never touch paths/commands/storage (get_time, calculate,
// get_weather). Tools that do touch a capability must build their own
// context with newTestExecutorContext.
var testExecutorContext = tool.ExecutorContext{
	Limits: permissions.Limits{MaxReadSize: 1 << 20, MaxInputLength: 8000, CommandTimeoutMs: 5000, FetchTimeoutMs: 5000, MaxMemoryEntries: 1000},
}

// newTestExecutorContext builds a real ExecutorContext rooted at a fresh
// t.TempDir(), with every capability and storage primitive wired to real
// implementations — mirroring how the executor constructs one per request.
func newTestExecutorContext(t *testing.T) (*tool.ExecutorContext, string) {
	t.Helper()
	dir := t.TempDir()

	paths, err := pathcap.New([]string{dir}, false)
	if err != nil {
		t.Fatalf("pathcap.New: %v", err)
	}
	commands := cmdcap.New(cmdcap.DefaultSpecs(), paths, dir, 5*time.Second, 1<<20)

	memStore, err := memory.Open(dir+"/memory.jsonl", 1000)
	if err != nil {
		t.Fatalf("memory.Open: %v", err)
	}
	taskStore, err := tasks.Open(dir + "/tasks.jsonl")
	if err != nil {
		t.Fatalf("tasks.Open: %v", err)
	}
	remStore, err := reminders.Open(dir + "/reminders.jsonl")
	if err != nil {
		t.Fatalf("reminders.Open: %v", err)
	}

	ectx := &tool.ExecutorContext{
		Paths:                paths,
		Commands:             commands,
		Memory:               memStore,
		Tasks:                taskStore,
		Reminders:            remStore,
		Limits:               testExecutorContext.Limits,
		Clock:                time.Now,
		RequiresConfirmation: func(string) bool { return false },
	}
	return ectx, dir
}

// mustPermissions writes a minimal permissions document rooted at allowPath
// with the given allowCommands and loads it back, for tests exercising
// allow_commands membership checks.
func mustPermissions(t *testing.T, allowPath string, allowCommands []string) *permissions.Document {
	t.Helper()
	path := filepath.Join(t.TempDir(), "permissions.json")
	data, err := json.Marshal(map[string]any{
		"version":        1,
		"allow_paths":    []string{allowPath},
		"allow_commands": allowCommands,
	})
	if err != nil {
		t.Fatalf("marshal permissions doc: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write permissions doc: %v", err)
	}
	doc, err := permissions.Load(path)
	if err != nil {
		t.Fatalf("permissions.Load: %v", err)
	}
	return doc
}
