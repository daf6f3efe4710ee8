package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/localcmd/assistant/internal/tasks"
	"github.com/localcmd/assistant/internal/tool"
)

// ── task_add ──

type TaskAddTool struct{}

func NewTaskAddTool() *TaskAddTool { return &TaskAddTool{} }

func (t *TaskAddTool) Name() string        { return "task_add" }
func (t *TaskAddTool) Description() string { return "Add a new open task." }

func (t *TaskAddTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "text", Type: "string", Description: "task text", Required: true},
	)
}

func (t *TaskAddTool) Init(_ context.Context) error { return nil }
func (t *TaskAddTool) Close() error                 { return nil }

type taskAddArgs struct {
	Text string `json:"text"`
}

func (t *TaskAddTool) Execute(_ context.Context, args json.RawMessage, ectx *tool.ExecutorContext) (tool.ToolResult, error) {
	var a taskAddArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return tool.Err(tool.CodeValidationError, fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	if strings.TrimSpace(a.Text) == "" {
		return tool.Err(tool.CodeValidationError, "text must not be empty"), nil
	}

	task, err := ectx.Tasks.Add(a.Text)
	if err != nil {
		return tool.Err(tool.CodeExecError, fmt.Sprintf("could not add task: %v", err)), nil
	}
	return tool.Ok(map[string]any{"id": task.ID, "text": task.Text, "status": string(task.Status)}), nil
}

// ── task_list ──

type TaskListTool struct{}

func NewTaskListTool() *TaskListTool { return &TaskListTool{} }

func (t *TaskListTool) Name() string { return "task_list" }
func (t *TaskListTool) Description() string {
	return "List tasks, optionally filtered by status (open or done)."
}

func (t *TaskListTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "status", Type: "string", Description: "filter: open, done, or omit for all", Required: false, Enum: []string{"open", "done"}},
	)
}

func (t *TaskListTool) Init(_ context.Context) error { return nil }
func (t *TaskListTool) Close() error                 { return nil }

type taskListArgs struct {
	Status string `json:"status"`
}

func (t *TaskListTool) Execute(_ context.Context, args json.RawMessage, ectx *tool.ExecutorContext) (tool.ToolResult, error) {
	var a taskListArgs
	if len(args) > 0 {
		if err := json.Unmarshal(args, &a); err != nil {
			return tool.Err(tool.CodeValidationError, fmt.Sprintf("invalid arguments: %v", err)), nil
		}
	}
	if a.Status != "" && a.Status != string(tasks.StatusOpen) && a.Status != string(tasks.StatusDone) {
		return tool.Err(tool.CodeValidationError, fmt.Sprintf("invalid status %q, want open or done", a.Status)), nil
	}

	list := ectx.Tasks.List(tasks.Status(a.Status))
	out := make([]map[string]any, len(list))
	for i, task := range list {
		out[i] = map[string]any{"id": task.ID, "text": task.Text, "status": string(task.Status)}
	}
	return tool.Ok(map[string]any{"tasks": out}), nil
}

// ── task_done ──

type TaskDoneTool struct{}

func NewTaskDoneTool() *TaskDoneTool { return &TaskDoneTool{} }

func (t *TaskDoneTool) Name() string        { return "task_done" }
func (t *TaskDoneTool) Description() string { return "Mark a task as done by its id." }

func (t *TaskDoneTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "id", Type: "integer", Description: "task id", Required: true},
	)
}

func (t *TaskDoneTool) Init(_ context.Context) error { return nil }
func (t *TaskDoneTool) Close() error                 { return nil }

type taskDoneArgs struct {
	ID int `json:"id"`
}

func (t *TaskDoneTool) Execute(_ context.Context, args json.RawMessage, ectx *tool.ExecutorContext) (tool.ToolResult, error) {
	var a taskDoneArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return tool.Err(tool.CodeValidationError, fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	if err := ectx.Tasks.Complete(a.ID); err != nil {
		return tool.Err(tool.CodeExecError, err.Error()), nil
	}
	return tool.Ok(map[string]any{"id": a.ID, "status": "done"}), nil
}
