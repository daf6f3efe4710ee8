package router

import (
	"context"

	"github.com/localcmd/assistant/internal/core"
	"github.com/localcmd/assistant/internal/llm"
	"github.com/localcmd/assistant/internal/tool"
	"github.com/localcmd/assistant/internal/trust"
)

// maxUtteranceRunes bounds the input a Route call accepts, independent of
// whatever a permissions document configures for tool arguments — the
// router sees raw user text before any tool-specific limit applies.
const maxUtteranceRunes = 10000

// Router wires the regex fast path, the heuristic parsers, and the LLM
// fallback into a single
// internal/core Flow, built once at construction and reused for every
// Route call — the same one-flow-per-process-lifetime discipline
// internal/executor.Executor uses for its pipeline.
type Router struct {
	flow     *core.Flow[RouteState]
	provider llm.LLMProvider
}

// New builds a Router. provider may be nil (no LLM_API_KEY configured);
// the LLM fallback then never runs and any utterance the first two stages
// decline resolves straight to mode:error, code:UNROUTED.
func New(registry *tool.Registry, provider llm.LLMProvider) *Router {
	regexN := core.NewNode[RouteState, string, regexMatch](&regexNode{}, 0)
	heuristicN := core.NewNode[RouteState, string, heuristicMatch](&heuristicNode{}, 0)

	regexN.AddSuccessor(heuristicN, core.ActionContinue)

	if provider != nil {
		llmN := core.NewNode[RouteState, *RouteState, llmOutcome](&llmNode{
			provider: provider,
			registry: registry,
			cache:    newToolFilterCache(),
		}, 0)
		heuristicN.AddSuccessor(llmN, core.ActionContinue)
	}

	return &Router{flow: core.NewFlow[RouteState](regexN), provider: provider}
}

// Route classifies a single utterance for agent (nil restricts dispatch to
// trust.SafeTools, same convention internal/executor.Execute follows).
// History should already be trimmed to whatever a caller's session store
// considers "recent"; Route applies its own further truncation for the
// LLM-fallback stage only.
func (r *Router) Route(ctx context.Context, utterance string, agent *trust.Agent, history []llm.Message) RouteResult {
	if len([]rune(utterance)) > maxUtteranceRunes {
		return RouteResult{Mode: ModeError, Code: tool.CodeValidationError, Message: "utterance exceeds maximum length"}
	}

	state := &RouteState{
		Utterance: utterance,
		Agent:     agent,
		History:   history,
	}

	if state.Utterance == "" {
		return RouteResult{Mode: ModeError, Code: tool.CodeUnrouted, Message: "empty utterance"}
	}

	r.flow.Run(ctx, state)

	if state.Result.Mode == "" {
		// No stage produced a result, which only happens when the LLM
		// fallback was never wired (nil provider) and the earlier stages
		// both declined.
		return RouteResult{Mode: ModeError, Code: tool.CodeUnrouted, Message: "no route matched and no LLM fallback is configured", Path: PathLLMFallback}
	}
	return state.Result
}
