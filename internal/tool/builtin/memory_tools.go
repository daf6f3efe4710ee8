package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/localcmd/assistant/internal/tool"
)

// ── remember ──

type RememberTool struct{}

func NewRememberTool() *RememberTool { return &RememberTool{} }

func (t *RememberTool) Name() string { return "remember" }
func (t *RememberTool) Description() string {
	return "Store a short note for later recall. Remembering identical text twice is a no-op."
}

func (t *RememberTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "text", Type: "string", Description: "the note to remember", Required: true},
		tool.SchemaParam{Name: "tags", Type: "string", Description: "optional comma-separated tags", Required: false},
	)
}

func (t *RememberTool) Init(_ context.Context) error { return nil }
func (t *RememberTool) Close() error                 { return nil }

type rememberArgs struct {
	Text string `json:"text"`
	Tags string `json:"tags"`
}

func (t *RememberTool) Execute(_ context.Context, args json.RawMessage, ectx *tool.ExecutorContext) (tool.ToolResult, error) {
	var a rememberArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return tool.Err(tool.CodeValidationError, fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	if strings.TrimSpace(a.Text) == "" {
		return tool.Err(tool.CodeValidationError, "text must not be empty"), nil
	}
	if len(a.Text) > ectx.Limits.MaxInputLength {
		return tool.Err(tool.CodeValidationError, fmt.Sprintf("text exceeds max length of %d", ectx.Limits.MaxInputLength)), nil
	}

	var tags []string
	for _, tag := range strings.Split(a.Tags, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}

	id, err := ectx.Memory.Remember(a.Text, tags)
	if err != nil {
		return tool.Err(tool.CodeExecError, fmt.Sprintf("could not store note: %v", err)), nil
	}
	return tool.Ok(map[string]any{"id": id}), nil
}

// ── recall ──

type RecallTool struct{}

func NewRecallTool() *RecallTool { return &RecallTool{} }

func (t *RecallTool) Name() string { return "recall" }
func (t *RecallTool) Description() string {
	return "Search remembered notes by token overlap with a query, most relevant and recent first."
}

func (t *RecallTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "query", Type: "string", Description: "search query", Required: true},
		tool.SchemaParam{Name: "limit", Type: "integer", Description: "maximum results (default 5)", Required: false},
	)
}

func (t *RecallTool) Init(_ context.Context) error { return nil }
func (t *RecallTool) Close() error                 { return nil }

type recallArgs struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

func (t *RecallTool) Execute(_ context.Context, args json.RawMessage, ectx *tool.ExecutorContext) (tool.ToolResult, error) {
	var a recallArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return tool.Err(tool.CodeValidationError, fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	if strings.TrimSpace(a.Query) == "" {
		return tool.Err(tool.CodeValidationError, "query must not be empty"), nil
	}
	limit := a.Limit
	if limit <= 0 {
		limit = 5
	}

	entries := ectx.Memory.Recall(a.Query, limit)
	results := make([]map[string]any, len(entries))
	for i, e := range entries {
		results[i] = map[string]any{"id": e.ID, "text": e.Text, "tags": e.Tags, "ts": e.Ts}
	}
	return tool.Ok(map[string]any{"matches": results}), nil
}
