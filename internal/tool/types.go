package tool

import (
	"context"
	"encoding/json"
	"time"

	"github.com/localcmd/assistant/internal/cmdcap"
	"github.com/localcmd/assistant/internal/memory"
	"github.com/localcmd/assistant/internal/pathcap"
	"github.com/localcmd/assistant/internal/permissions"
	"github.com/localcmd/assistant/internal/reminders"
	"github.com/localcmd/assistant/internal/tasks"
)

// Exhaustive error codes a ToolResult.Error.Code may carry. Centralized
// here because both tool handlers and the executor raise or match on
// them, and they must never drift out of sync with each other.
const (
	CodeDeniedAgentToolset   = "DENIED_AGENT_TOOLSET"
	CodeDeniedToolBlocklist  = "DENIED_TOOL_BLOCKLIST"
	CodeDeniedPathAllowlist  = "DENIED_PATH_ALLOWLIST"
	CodeDeniedPathTraversal  = "DENIED_PATH_TRAVERSAL"
	CodeDeniedCommandAllow   = "DENIED_COMMAND_ALLOWLIST"
	CodeDeniedCommandFlag    = "DENIED_COMMAND_FLAG"
	CodeConfirmationRequired = "CONFIRMATION_REQUIRED"
	CodeValidationError      = "VALIDATION_ERROR"
	CodeUnknownTool          = "UNKNOWN_TOOL"
	CodeUnrouted             = "UNROUTED"
	CodeTimeout              = "TIMEOUT"
	CodeSignal               = "SIGNAL"
	CodeExecError            = "EXEC_ERROR"
)

// ToolError is the structured failure half of the ToolResult tagged union.
type ToolError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// ToolResult is the tagged union every tool execution and every executor
// dispatch resolves to: exactly one of Result or Error is populated,
// matching on OK. Debug carries optional implementation-internal detail
// (e.g. raw subprocess output) that callers may surface in verbose modes.
type ToolResult struct {
	OK     bool        `json:"ok"`
	Result any         `json:"result,omitempty"`
	Error  *ToolError  `json:"error,omitempty"`
	Debug  any         `json:"debug,omitempty"`
}

// Ok builds a successful ToolResult.
func Ok(result any) ToolResult {
	return ToolResult{OK: true, Result: result}
}

// Err builds a failed ToolResult. details is optional; only its first
// element is used and any further elements are ignored, since callers
// almost always pass zero or one.
func Err(code, message string, details ...string) ToolResult {
	d := ""
	if len(details) > 0 {
		d = details[0]
	}
	return ToolResult{OK: false, Error: &ToolError{Code: code, Message: message, Details: d}}
}

// ExecutorContext is the capability bundle handed to every tool handler.
// Handlers must never reach outside it for filesystem, process, or
// storage access — that's the entire point of the capability model: a
// handler that only ever touches what's in its ExecutorContext cannot
// exceed the permissions the executor constructed that context with.
//
// Lives in this package, not internal/executor, specifically to avoid an
// import cycle: Tool.Execute takes an *ExecutorContext, and
// internal/executor needs to import internal/tool for the Tool interface
// itself.
type ExecutorContext struct {
	Paths       *pathcap.Capability
	Commands    *cmdcap.Capability
	Permissions *permissions.Document
	Memory      *memory.Store
	Tasks       *tasks.Store
	Reminders   *reminders.Store
	Limits      permissions.Limits

	// Clock is the time source handlers must use instead of time.Now,
	// so tests can supply a fixed clock.
	Clock func() time.Time

	// RequiresConfirmation reports whether toolName needs args.confirm =
	// true before dispatch. Exposed here too (not just checked by the
	// executor before Execute is called) so a handler that itself
	// dispatches a nested operation can re-check it.
	RequiresConfirmation func(toolName string) bool
}

// Now returns ectx.Clock() if set, else time.Now(). Handlers should call
// this instead of time.Now() directly.
func (e *ExecutorContext) Now() time.Time {
	if e == nil || e.Clock == nil {
		return time.Now()
	}
	return e.Clock()
}

// Tool is the unified interface every built-in tool implements.
type Tool interface {
	// Name returns the tool identifier (the router and LLM use this name
	// to invoke the tool).
	Name() string

	// Description returns a natural-language description for LLM prompt
	// injection.
	Description() string

	// InputSchema returns a standard JSON Schema defining the tool's
	// parameters, compatible with OpenAI function calling.
	InputSchema() json.RawMessage

	// Execute runs the tool with JSON-encoded arguments against the given
	// capability bundle. A non-nil error here means something went wrong
	// in a way the executor itself must treat as EXEC_ERROR (it should be
	// rare — most failures are reported as a failed ToolResult instead,
	// since that's the channel the caller actually reads).
	Execute(ctx context.Context, args json.RawMessage, ectx *ExecutorContext) (ToolResult, error)

	// Init initializes tool resources. Most built-ins return nil.
	Init(ctx context.Context) error

	// Close releases tool resources.
	Close() error
}

// SchemaParam describes a single parameter for the BuildSchema helper.
type SchemaParam struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"` // "string", "integer", "boolean", "number"
	Description string   `json:"description"`
	Required    bool     `json:"-"`
	Enum        []string `json:"enum,omitempty"`
}

// BuildSchema generates a standard JSON Schema object from a list of
// SchemaParams, so tool handlers don't hand-write JSON Schema strings.
func BuildSchema(params ...SchemaParam) json.RawMessage {
	properties := make(map[string]any)
	var required []string

	for _, p := range params {
		prop := map[string]any{
			"type":        p.Type,
			"description": p.Description,
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}

	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}

	data, _ := json.Marshal(schema)
	return data
}
