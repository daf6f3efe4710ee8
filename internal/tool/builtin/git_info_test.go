package builtin

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/localcmd/assistant/internal/cmdcap"
	"github.com/localcmd/assistant/internal/pathcap"
	"github.com/localcmd/assistant/internal/tool"
)

// setupTempRepo creates a temporary Git repo with user config for CI safety.
func setupTempRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
		cmd.Env = os.Environ()
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v failed: %v\n%s", args, err, out)
		}
	}
	run("init")
	run("config", "user.email", "test@test.com")
	run("config", "user.name", "Test")
	run("commit", "--allow-empty", "-m", "initial commit")
	return dir
}

// gitExecutorContext builds an ExecutorContext whose path and command
// capabilities are rooted at dir, so git_info's ectx.Commands.Run (cwd =
// the baseDir passed to cmdcap.New) lands on the repo under test.
func gitExecutorContext(t *testing.T, dir string) *tool.ExecutorContext {
	t.Helper()
	paths, err := pathcap.New([]string{dir}, false)
	if err != nil {
		t.Fatalf("pathcap.New: %v", err)
	}
	commands := cmdcap.New(cmdcap.DefaultSpecs(), paths, dir, 5*time.Second, 1<<20)
	return &tool.ExecutorContext{Paths: paths, Commands: commands}
}

func execGitInfo(t *testing.T, gt *GitInfoTool, ectx *tool.ExecutorContext, argsJSON string) tool.ToolResult {
	t.Helper()
	result, err := gt.Execute(context.Background(), json.RawMessage(argsJSON), ectx)
	if err != nil {
		t.Fatalf("Execute returned Go error: %v", err)
	}
	return result
}

func outputField(t *testing.T, result tool.ToolResult) string {
	t.Helper()
	if !result.OK {
		t.Fatalf("unexpected error: %+v", result.Error)
	}
	m, ok := result.Result.(map[string]any)
	if !ok {
		t.Fatalf("result.Result is not a map: %#v", result.Result)
	}
	out, _ := m["output"].(string)
	return out
}

func TestGitInfo_Status(t *testing.T) {
	dir := setupTempRepo(t)
	gt := NewGitInfoTool()
	result := execGitInfo(t, gt, gitExecutorContext(t, dir), `{"command":"status"}`)
	if !result.OK {
		t.Errorf("status should succeed, got error: %+v", result.Error)
	}
}

func TestGitInfo_Log(t *testing.T) {
	dir := setupTempRepo(t)
	gt := NewGitInfoTool()
	result := execGitInfo(t, gt, gitExecutorContext(t, dir), `{"command":"log"}`)
	out := outputField(t, result)
	if !strings.Contains(out, "initial commit") {
		t.Errorf("log should contain 'initial commit', got: %s", out)
	}
}

func TestGitInfo_Branch(t *testing.T) {
	dir := setupTempRepo(t)
	gt := NewGitInfoTool()
	result := execGitInfo(t, gt, gitExecutorContext(t, dir), `{"command":"branch"}`)
	out := outputField(t, result)
	if !strings.Contains(out, "main") && !strings.Contains(out, "master") {
		t.Errorf("branch should contain 'main' or 'master', got: %s", out)
	}
}

func TestGitInfo_Show(t *testing.T) {
	dir := setupTempRepo(t)
	gt := NewGitInfoTool()
	result := execGitInfo(t, gt, gitExecutorContext(t, dir), `{"command":"show"}`)
	out := outputField(t, result)
	if !strings.Contains(out, "initial commit") {
		t.Errorf("show should contain commit info, got: %s", out)
	}
}

func TestGitInfo_Stash(t *testing.T) {
	dir := setupTempRepo(t)
	gt := NewGitInfoTool()
	result := execGitInfo(t, gt, gitExecutorContext(t, dir), `{"command":"stash"}`)
	if !result.OK {
		t.Errorf("stash list should succeed on clean repo, got error: %+v", result.Error)
	}
}

func TestGitInfo_DiffWithPath(t *testing.T) {
	dir := setupTempRepo(t)
	if err := os.WriteFile(dir+"/test.txt", []byte("hello\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if out, err := exec.Command("git", "-C", dir, "add", "test.txt").CombinedOutput(); err != nil {
		t.Fatalf("git add failed: %v\n%s", err, out)
	}
	if out, err := exec.Command("git", "-C", dir, "commit", "-m", "add test.txt").CombinedOutput(); err != nil {
		t.Fatalf("git commit failed: %v\n%s", err, out)
	}
	if err := os.WriteFile(dir+"/test.txt", []byte("hello\nworld\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	gt := NewGitInfoTool()
	result := execGitInfo(t, gt, gitExecutorContext(t, dir), `{"command":"diff","path":"test.txt"}`)
	out := outputField(t, result)
	if out == "" {
		t.Error("diff with path should produce output for modified file")
	}
}

func TestGitInfo_InvalidCommand(t *testing.T) {
	dir := setupTempRepo(t)
	gt := NewGitInfoTool()
	result := execGitInfo(t, gt, gitExecutorContext(t, dir), `{"command":"push"}`)
	if result.OK {
		t.Error("push should be rejected")
	}
}

func TestGitInfo_DeniedByAllowCommands(t *testing.T) {
	dir := setupTempRepo(t)
	ectx := gitExecutorContext(t, dir)
	ectx.Permissions = mustPermissions(t, dir, nil)
	gt := NewGitInfoTool()
	result := execGitInfo(t, gt, ectx, `{"command":"status"}`)
	if result.OK {
		t.Error("git should be denied when not in allow_commands")
	}
	if result.Error.Code != tool.CodeDeniedCommandAllow {
		t.Errorf("code = %q, want %q", result.Error.Code, tool.CodeDeniedCommandAllow)
	}
}

func TestGitInfo_AllowedByAllowCommands(t *testing.T) {
	dir := setupTempRepo(t)
	ectx := gitExecutorContext(t, dir)
	ectx.Permissions = mustPermissions(t, dir, []string{"git"})
	gt := NewGitInfoTool()
	result := execGitInfo(t, gt, ectx, `{"command":"status"}`)
	if !result.OK {
		t.Errorf("git should be allowed when listed in allow_commands, got error: %+v", result.Error)
	}
}

func TestGitInfo_DangerousArgs(t *testing.T) {
	dir := setupTempRepo(t)
	gt := NewGitInfoTool()
	result := execGitInfo(t, gt, gitExecutorContext(t, dir), `{"command":"log","args":"--exec foo"}`)
	if result.OK {
		t.Error("--exec should be rejected")
	}
}

func TestGitInfo_DangerousArgsPrefix(t *testing.T) {
	dir := setupTempRepo(t)
	gt := NewGitInfoTool()
	ectx := gitExecutorContext(t, dir)

	tests := []struct {
		args string
		desc string
	}{
		{`{"command":"diff","args":"--output=file.txt"}`, "--output=value"},
		{`{"command":"diff","args":"--no-index"}`, "--no-index"},
		{`{"command":"log","args":"--work-tree=/tmp"}`, "--work-tree=value"},
		{`{"command":"log","args":"-ckey=val"}`, "-c prefix"},
	}
	for _, tc := range tests {
		result := execGitInfo(t, gt, ectx, tc.args)
		if result.OK {
			t.Errorf("%s should be rejected", tc.desc)
		}
	}
}

func TestGitInfo_OutputTruncation(t *testing.T) {
	dir := setupTempRepo(t)
	run := func(args ...string) {
		cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
		cmd.Env = os.Environ()
		cmd.Run()
	}
	longMsg := strings.Repeat("x", 300)
	for i := 0; i < 27; i++ {
		run("commit", "--allow-empty", "-m", longMsg)
	}

	gt := NewGitInfoTool()
	result := execGitInfo(t, gt, gitExecutorContext(t, dir), `{"command":"log","args":"--oneline"}`)
	out := outputField(t, result)
	if !strings.Contains(out, "truncated") {
		t.Errorf("output should be truncated, got %d chars", len(out))
	}
}
