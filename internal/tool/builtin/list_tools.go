package builtin

import (
	"context"
	"encoding/json"

	"github.com/localcmd/assistant/internal/tool"
)

// ListToolsTool introspects the registry it's bound to and reports every
// tool's name and description. A SAFE_TOOL, so it must itself hold no
// reference back to a *tool.Registry until the composition root binds one
// with NewListToolsTool — cmd/assistant registers it the same way it
// registers every other built-in, just with the registry closed over.
type ListToolsTool struct {
	registry *tool.Registry
}

func NewListToolsTool(registry *tool.Registry) *ListToolsTool {
	return &ListToolsTool{registry: registry}
}

func (t *ListToolsTool) Name() string        { return "list_tools" }
func (t *ListToolsTool) Description() string { return "List every tool available, with its description." }

func (t *ListToolsTool) InputSchema() json.RawMessage {
	return tool.BuildSchema()
}

func (t *ListToolsTool) Init(_ context.Context) error { return nil }
func (t *ListToolsTool) Close() error                 { return nil }

func (t *ListToolsTool) Execute(_ context.Context, _ json.RawMessage, _ *tool.ExecutorContext) (tool.ToolResult, error) {
	tools := t.registry.List()
	out := make([]map[string]any, len(tools))
	for i, tl := range tools {
		out[i] = map[string]any{"name": tl.Name(), "description": tl.Description()}
	}
	return tool.Ok(map[string]any{"tools": out}), nil
}
