package router

import (
	"context"
	"encoding/json"

	"github.com/localcmd/assistant/internal/core"
	"github.com/localcmd/assistant/internal/llm"
	"github.com/localcmd/assistant/internal/tool"
	"github.com/localcmd/assistant/internal/trust"
)

// systemPromptTemplate follows the established practice elsewhere in this
// codebase of a short, fixed system prompt rather than a dynamically
// assembled one; tool schemas are passed as a separate structured field,
// not interpolated into this text.
const systemPromptTemplate = "You are a local command assistant. Use a tool when the user's request maps to one; otherwise reply in plain text."

// maxHistoryTurns bounds how much prior conversation the LLM fallback
// includes: the last few turns, never the whole session.
const maxHistoryTurns = 6

// llmNode implements the LLM fallback. It is only reachable when provider is
// non-nil; with a nil provider (no LLM_API_KEY configured) New never wires
// this node, and Router.Route turns the flow's empty result into UNROUTED
// afterwards, since "LLM unavailable" and "LLM declined" both resolve to
// the same UNROUTED outcome but the former never needs to spend a node
// invocation to find that out.
type llmNode struct {
	provider llm.LLMProvider
	registry *tool.Registry
	cache    *toolFilterCache
}

type llmOutcome struct {
	result  RouteResult
	matched bool
}

func (n *llmNode) Prep(state *RouteState) []*RouteState { return []*RouteState{state} }

func (n *llmNode) Exec(ctx context.Context, state *RouteState) (llmOutcome, error) {
	agentName := "nil"
	if state.Agent != nil {
		agentName = state.Agent.Name
	}

	key := toolFilterCacheKey(agentName, n.registry.Revision())
	defs, ok := n.cache.get(key)
	if !ok {
		defs = tool.ToolDefinitionsFor(filterToolsForAgent(n.registry, state.Agent))
		n.cache.put(key, defs)
	}

	messages := buildLLMMessages(state)
	reply, err := n.provider.CallLLMWithTools(ctx, messages, defs)
	if err != nil {
		return llmOutcome{}, err
	}

	if len(reply.ToolCalls) == 0 {
		return llmOutcome{
			matched: true,
			result: RouteResult{
				Mode:  ModeReply,
				Text:  reply.Content,
				Path:  PathLLMFallback,
				Model: n.provider.GetName(),
			},
		}, nil
	}

	call := reply.ToolCalls[0]
	if _, ok := n.registry.Get(call.Name); !ok {
		return llmOutcome{
			matched: true,
			result: RouteResult{
				Mode:    ModeError,
				Code:    tool.CodeUnrouted,
				Message: "model proposed an unknown tool",
				Path:    PathLLMFallback,
				Model:   n.provider.GetName(),
			},
		}, nil
	}
	if !state.Agent.Allows(call.Name) {
		return llmOutcome{
			matched: true,
			result: RouteResult{
				Mode:    ModeError,
				Code:    tool.CodeUnrouted,
				Message: "model proposed a tool outside the agent's toolset",
				Path:    PathLLMFallback,
				Model:   n.provider.GetName(),
			},
		}, nil
	}

	args := call.Arguments
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	return llmOutcome{
		matched: true,
		result: RouteResult{
			Mode:  ModeToolCall,
			Tool:  &ToolCall{Name: call.Name, Args: args},
			Path:  PathLLMFallback,
			Model: n.provider.GetName(),
		},
	}, nil
}

func (n *llmNode) Post(state *RouteState, _ []*RouteState, results ...llmOutcome) core.Action {
	if len(results) == 0 || !results[0].matched {
		state.Result = RouteResult{
			Mode:    ModeError,
			Code:    tool.CodeUnrouted,
			Message: "LLM fallback unavailable",
			Path:    PathLLMFallback,
		}
		return core.ActionEnd
	}
	state.Result = results[0].result
	return core.ActionEnd
}

func (n *llmNode) ExecFallback(_ error) llmOutcome {
	return llmOutcome{matched: false}
}

func buildLLMMessages(state *RouteState) []llm.Message {
	messages := make([]llm.Message, 0, len(state.History)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: systemPromptTemplate})

	history := state.History
	if len(history) > maxHistoryTurns {
		history = history[len(history)-maxHistoryTurns:]
	}
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: state.Utterance})
	return messages
}

// filterToolsForAgent returns the subset of the registry's tools agent may
// invoke, following the same Allows() rule the executor's agent gate
// enforces — the LLM is never even offered a tool it couldn't use.
func filterToolsForAgent(registry *tool.Registry, agent *trust.Agent) []tool.Tool {
	all := registry.List()
	filtered := make([]tool.Tool, 0, len(all))
	for _, t := range all {
		if agent.Allows(t.Name()) {
			filtered = append(filtered, t)
		}
	}
	return filtered
}
