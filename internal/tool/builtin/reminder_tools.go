package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/localcmd/assistant/internal/tool"
)

// ── reminder_add ──

type ReminderAddTool struct{}

func NewReminderAddTool() *ReminderAddTool { return &ReminderAddTool{} }

func (t *ReminderAddTool) Name() string        { return "reminder_add" }
func (t *ReminderAddTool) Description() string { return "Add a reminder due at a given RFC3339 timestamp." }

func (t *ReminderAddTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "text", Type: "string", Description: "reminder text", Required: true},
		tool.SchemaParam{Name: "due", Type: "string", Description: "due timestamp, RFC3339 (e.g. 2026-08-01T09:00:00Z)", Required: true},
	)
}

func (t *ReminderAddTool) Init(_ context.Context) error { return nil }
func (t *ReminderAddTool) Close() error                 { return nil }

type reminderAddArgs struct {
	Text string `json:"text"`
	Due  string `json:"due"`
}

func (t *ReminderAddTool) Execute(_ context.Context, args json.RawMessage, ectx *tool.ExecutorContext) (tool.ToolResult, error) {
	var a reminderAddArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return tool.Err(tool.CodeValidationError, fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	if strings.TrimSpace(a.Text) == "" {
		return tool.Err(tool.CodeValidationError, "text must not be empty"), nil
	}
	due, err := time.Parse(time.RFC3339, a.Due)
	if err != nil {
		return tool.Err(tool.CodeValidationError, fmt.Sprintf("invalid due timestamp %q, want RFC3339: %v", a.Due, err)), nil
	}

	rem, err := ectx.Reminders.Add(a.Text, due)
	if err != nil {
		return tool.Err(tool.CodeExecError, fmt.Sprintf("could not add reminder: %v", err)), nil
	}
	return tool.Ok(map[string]any{"id": rem.ID, "due": rem.DueTs.Format(time.RFC3339)}), nil
}

// ── reminder_list ──

type ReminderListTool struct{}

func NewReminderListTool() *ReminderListTool { return &ReminderListTool{} }

func (t *ReminderListTool) Name() string { return "reminder_list" }
func (t *ReminderListTool) Description() string {
	return "List reminders. due_before, if given (RFC3339), limits to reminders due at or before that time."
}

func (t *ReminderListTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "due_before", Type: "string", Description: "optional RFC3339 cutoff", Required: false},
	)
}

func (t *ReminderListTool) Init(_ context.Context) error { return nil }
func (t *ReminderListTool) Close() error                 { return nil }

type reminderListArgs struct {
	DueBefore string `json:"due_before"`
}

func (t *ReminderListTool) Execute(_ context.Context, args json.RawMessage, ectx *tool.ExecutorContext) (tool.ToolResult, error) {
	var a reminderListArgs
	if len(args) > 0 {
		if err := json.Unmarshal(args, &a); err != nil {
			return tool.Err(tool.CodeValidationError, fmt.Sprintf("invalid arguments: %v", err)), nil
		}
	}

	var items []map[string]any
	if strings.TrimSpace(a.DueBefore) != "" {
		cutoff, err := time.Parse(time.RFC3339, a.DueBefore)
		if err != nil {
			return tool.Err(tool.CodeValidationError, fmt.Sprintf("invalid due_before %q, want RFC3339: %v", a.DueBefore, err)), nil
		}
		for _, r := range ectx.Reminders.DueBefore(cutoff) {
			items = append(items, map[string]any{"id": r.ID, "text": r.Text, "due": r.DueTs.Format(time.RFC3339)})
		}
	} else {
		for _, r := range ectx.Reminders.List() {
			items = append(items, map[string]any{"id": r.ID, "text": r.Text, "due": r.DueTs.Format(time.RFC3339)})
		}
	}
	return tool.Ok(map[string]any{"reminders": items}), nil
}
