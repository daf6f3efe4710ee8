package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/localcmd/assistant/internal/cmdcap"
	"github.com/localcmd/assistant/internal/pathcap"
	"github.com/localcmd/assistant/internal/tool"
)

// allowedGitCommands is the whitelist of read-only git subcommands,
// mirrored by cmdcap.DefaultSpecs()'s "git" entry.
var allowedGitCommands = map[string]bool{
	"status": true, "diff": true, "log": true,
	"branch": true, "stash": true, "show": true,
}

// GitInfoTool provides safe, read-only Git queries. It routes every
// invocation through ectx.Commands.Run, the same command capability
// run_command.go uses, rather than shelling out directly: git's allow-listed
// subcommand and per-command flag schema lives in cmdcap.DefaultSpecs()'s
// "git" entry, so this tool only builds the argv and leaves allow-listing,
// timeout enforcement, output-size bounding, and env filtering to cmdcap.
type GitInfoTool struct{}

// NewGitInfoTool creates a git_info tool.
func NewGitInfoTool() *GitInfoTool {
	return &GitInfoTool{}
}

func (t *GitInfoTool) Name() string { return "git_info" }
func (t *GitInfoTool) Description() string {
	return "Read-only git queries: status, diff, log, branch, stash, show."
}

func (t *GitInfoTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "command", Type: "string", Description: "git subcommand",
			Required: true, Enum: []string{"status", "diff", "log", "branch", "stash", "show"}},
		tool.SchemaParam{Name: "path", Type: "string", Description: "optional: restrict to a path, relative to an allowed directory", Required: false},
		tool.SchemaParam{Name: "args", Type: "string", Description: "optional: extra allow-listed flags (whitespace separated)", Required: false},
	)
}

func (t *GitInfoTool) Init(_ context.Context) error { return nil }
func (t *GitInfoTool) Close() error                 { return nil }

type gitInfoArgs struct {
	Command string `json:"command"`
	Path    string `json:"path"`
	Args    string `json:"args"`
}

func (t *GitInfoTool) Execute(ctx context.Context, args json.RawMessage, ectx *tool.ExecutorContext) (tool.ToolResult, error) {
	var a gitInfoArgs
	if len(args) > 0 {
		if err := json.Unmarshal(args, &a); err != nil {
			return tool.Err(tool.CodeValidationError, fmt.Sprintf("invalid arguments: %v", err)), nil
		}
	}

	// Whitelist check (schema enum enforces this too, but double-check at runtime).
	if !allowedGitCommands[a.Command] {
		return tool.Err(tool.CodeValidationError, fmt.Sprintf("unsupported command %q, allowed: status/diff/log/branch/stash/show", a.Command)), nil
	}
	if ectx.Permissions != nil && !ectx.Permissions.IsAllowedCommand("git") {
		return tool.Err(tool.CodeDeniedCommandAllow, "command \"git\" is not allowed"), nil
	}

	userArgs := strings.Fields(a.Args)

	var resolvedPath string
	if p := strings.TrimSpace(a.Path); p != "" {
		resolved, err := ectx.Paths.Resolve(p, pathcap.Read)
		if err != nil {
			return resultFromPathError(err), nil
		}
		resolvedPath = resolved
	}

	var argv []string
	switch a.Command {
	case "status":
		if len(userArgs) > 0 {
			argv = append([]string{"status"}, userArgs...)
		} else {
			argv = []string{"status", "--short"}
		}
		if resolvedPath != "" {
			argv = append(argv, resolvedPath)
		}

	case "diff":
		if len(userArgs) > 0 {
			argv = append([]string{"diff"}, userArgs...)
		} else {
			argv = []string{"diff", "--stat"}
		}
		if resolvedPath != "" {
			argv = append(argv, resolvedPath)
		}

	case "log":
		if len(userArgs) > 0 {
			argv = append([]string{"log"}, userArgs...)
		} else {
			argv = []string{"log", "--oneline"}
		}
		if resolvedPath != "" {
			argv = append(argv, resolvedPath)
		}

	case "branch":
		if len(userArgs) > 0 {
			argv = append([]string{"branch"}, userArgs...)
		} else {
			argv = []string{"branch", "-a"}
		}
		if resolvedPath != "" {
			log.Printf("[GitInfo] branch does not support path (ignored); use args to filter")
		}

	case "stash":
		if len(userArgs) > 0 {
			log.Printf("[GitInfo] stash ignores args=%v, always runs 'stash list'", userArgs)
		}
		argv = []string{"stash", "list"}

	case "show":
		if resolvedPath != "" {
			log.Printf("[GitInfo] show does not support path (ignored); use args=\"<commit>:<path>\" instead")
		}
		argv = append([]string{"show"}, userArgs...)
	}

	result, err := ectx.Commands.Run(ctx, "git", argv, nil)
	if err != nil {
		if cerr, ok := err.(*cmdcap.Error); ok {
			return tool.Err(cerr.Code, cerr.Message), nil
		}
		return resultFromPathError(err), nil
	}

	out := strings.TrimSpace(result.Stdout)
	if result.Stderr != "" {
		out = strings.TrimRight(out, "\n") + "\n" + result.Stderr
	}
	return tool.Ok(map[string]any{"output": safeRuneTruncate(out, maxOutputChars)}), nil
}
