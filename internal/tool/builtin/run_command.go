package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/localcmd/assistant/internal/cmdcap"
	"github.com/localcmd/assistant/internal/tool"
)

// RunCommandTool replaces a shell_exec style tool: instead of spawning
// "sh -c <string>" against a best-effort dangerous-pattern blocklist, it
// spawns an argv array through cmdcap.Capability, which enforces an
// allow-listed command name, a per-command allow-listed flag set, and
// path-argument resolution through the path capability.
type RunCommandTool struct{}

func NewRunCommandTool() *RunCommandTool { return &RunCommandTool{} }

func (t *RunCommandTool) Name() string { return "run_command" }
func (t *RunCommandTool) Description() string {
	return "Run an allow-listed read-only inspection command (ls, pwd, cat, du) with allow-listed flags and path arguments."
}

func (t *RunCommandTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "command", Type: "string", Description: "command name, e.g. ls", Required: true},
		tool.SchemaParam{Name: "args", Type: "string", Description: "space-separated flags and path arguments", Required: false},
	)
}

func (t *RunCommandTool) Init(_ context.Context) error { return nil }
func (t *RunCommandTool) Close() error                 { return nil }

type runCommandArgs struct {
	Command string `json:"command"`
	Args    string `json:"args"`
}

func (t *RunCommandTool) Execute(ctx context.Context, args json.RawMessage, ectx *tool.ExecutorContext) (tool.ToolResult, error) {
	var a runCommandArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return tool.Err(tool.CodeValidationError, fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	if strings.TrimSpace(a.Command) == "" {
		return tool.Err(tool.CodeValidationError, "command must not be empty"), nil
	}
	if ectx.Permissions != nil && !ectx.Permissions.IsAllowedCommand(a.Command) {
		return tool.Err(tool.CodeDeniedCommandAllow, fmt.Sprintf("command %q is not allowed", a.Command)), nil
	}

	argv := strings.Fields(a.Args)

	result, err := ectx.Commands.Run(ctx, a.Command, argv, nil)
	if err != nil {
		if cerr, ok := err.(*cmdcap.Error); ok {
			return tool.Err(cerr.Code, cerr.Message), nil
		}
		return resultFromPathError(err), nil
	}

	out := result.Stdout
	if result.Stderr != "" {
		out = strings.TrimRight(out, "\n") + "\n" + result.Stderr
	}
	return tool.Ok(map[string]any{"output": safeRuneTruncate(strings.TrimSpace(out), maxOutputChars), "exit_code": result.ExitCode}), nil
}
