package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/localcmd/assistant/internal/tool"
)

// WeatherTool is a SAFE_TOOL stub: it returns a deterministic canned
// response keyed only on the location string, with no outbound network
// call. A real weather API integration is deliberately not wired — this
// binary makes no background network calls, and a SAFE_TOOL is reachable
// with agent=nil, so giving it live network access would be the one place
// that guarantee quietly broke.
type WeatherTool struct{}

func NewWeatherTool() *WeatherTool { return &WeatherTool{} }

func (t *WeatherTool) Name() string { return "get_weather" }
func (t *WeatherTool) Description() string {
	return "Return a canned weather summary for a location (demonstration stub, no live data)."
}

func (t *WeatherTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "location", Type: "string", Description: "city or place name", Required: true},
	)
}

func (t *WeatherTool) Init(_ context.Context) error { return nil }
func (t *WeatherTool) Close() error                 { return nil }

type weatherArgs struct {
	Location string `json:"location"`
}

func (t *WeatherTool) Execute(_ context.Context, args json.RawMessage, _ *tool.ExecutorContext) (tool.ToolResult, error) {
	var a weatherArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return tool.Err(tool.CodeValidationError, fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	location := strings.TrimSpace(a.Location)
	if location == "" {
		return tool.Err(tool.CodeValidationError, "location must not be empty"), nil
	}

	return tool.Ok(map[string]any{
		"location":    location,
		"summary":     fmt.Sprintf("Weather data for %s is not available in this build.", location),
		"temperature": nil,
		"stub":        true,
	}), nil
}
