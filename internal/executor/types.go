// Package executor implements the capability-scoped dispatch pipeline: the
// single place a tool name and a blob of arguments turn into a ToolResult.
// The pipeline — denylist, agent gate, registry lookup, confirmation,
// argument validation, dispatch, audit — is expressed as an internal/core
// Flow so each check is one node and a denial is one early ActionEnd.
package executor

import (
	"encoding/json"
	"time"

	"github.com/localcmd/assistant/internal/tool"
	"github.com/localcmd/assistant/internal/trust"
)

// ExecState is the shared state threaded through the executor's Flow. Each
// node reads what earlier nodes populated and writes its own verdict;
// exactly one of the "deny early" paths or the dispatch path ends up
// setting Result.
type ExecState struct {
	ToolName string
	RawArgs  json.RawMessage
	Agent    *trust.Agent

	ResolvedTool  tool.Tool
	ValidatedArgs json.RawMessage

	Result    tool.ToolResult
	StartedAt time.Time
}

func agentName(a *trust.Agent) string {
	if a == nil {
		return ""
	}
	return a.Name
}
