// Package router implements the multi-stage classifier: a regex fast
// path, a set of hand-written heuristic parsers, and an LLM fallback,
// wired into an internal/core Flow[RouteState] the same way
// internal/executor wires its seven-node pipeline. Each stage either
// resolves the utterance outright or declines, letting routing fall
// through to the next, increasingly expensive strategy.
package router

import (
	"encoding/json"

	"github.com/localcmd/assistant/internal/llm"
	"github.com/localcmd/assistant/internal/trust"
)

// Mode is the tag of the RouteResult union.
type Mode string

const (
	ModeToolCall Mode = "tool_call"
	ModeReply    Mode = "reply"
	ModeError    Mode = "error"
)

// Routing stage identifiers, stamped onto RouteResult.Path so callers
// (the command logger, primarily) can tell which stage decided.
const (
	PathRegexFastPath = "regex_fast_path"
	PathHeuristic     = "heuristic"
	PathLLMFallback   = "llm_fallback"
)

// ToolCall is the structured request a "tool_call" RouteResult carries.
type ToolCall struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args"`
}

// RouteResult is the tagged union router.Route resolves to: exactly one
// of Tool/Text is meaningful, selected by Mode. An error result carries
// Code/Message instead, following the same ok/error discipline as
// tool.ToolResult.
type RouteResult struct {
	Mode Mode `json:"mode"`

	Tool *ToolCall `json:"tool,omitempty"` // Mode == ModeToolCall
	Text string    `json:"text,omitempty"` // Mode == ModeReply

	Code    string `json:"code,omitempty"`    // Mode == ModeError
	Message string `json:"message,omitempty"` // Mode == ModeError

	Path  string `json:"path"`            // which stage decided
	Model string `json:"model,omitempty"` // set only by the LLM fallback
}

// RouteState is the shared state threaded through the router's Flow, one
// per call to Route. Each stage node reads Utterance/Agent/History and,
// on a match, writes Result and ends the flow.
type RouteState struct {
	Utterance string
	Agent     *trust.Agent
	History   []llm.Message

	Result RouteResult
}
