package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/localcmd/assistant/internal/tool"
)

// TimeTool returns the current time with optional timezone support. One
// of trust.SafeTools: no capability use at all, usable even with no agent
// bound.
type TimeTool struct{}

func NewTimeTool() *TimeTool { return &TimeTool{} }

func (t *TimeTool) Name() string        { return "get_time" }
func (t *TimeTool) Description() string { return "Return the current time, optionally in a given IANA timezone." }

func (t *TimeTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "timezone", Type: "string", Description: "IANA timezone name, e.g. Asia/Shanghai (optional)", Required: false},
	)
}

func (t *TimeTool) Init(_ context.Context) error { return nil }
func (t *TimeTool) Close() error                 { return nil }

type timeArgs struct {
	Timezone string `json:"timezone"`
}

func (t *TimeTool) Execute(_ context.Context, args json.RawMessage, ectx *tool.ExecutorContext) (tool.ToolResult, error) {
	var a timeArgs
	if len(args) > 0 {
		if err := json.Unmarshal(args, &a); err != nil {
			return tool.Err(tool.CodeValidationError, fmt.Sprintf("invalid arguments: %v", err)), nil
		}
	}

	now := ectx.Now()

	if a.Timezone != "" {
		loc, err := time.LoadLocation(a.Timezone)
		if err != nil {
			return tool.Err(tool.CodeValidationError, fmt.Sprintf("invalid timezone %q: %v", a.Timezone, err)), nil
		}
		now = now.In(loc)
	}

	return tool.Ok(map[string]any{
		"time":    now.Format(time.RFC3339),
		"display": fmt.Sprintf("%s (%s)", now.Format("2006-01-02 15:04:05 MST"), now.Weekday()),
	}), nil
}
