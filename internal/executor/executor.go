package executor

import (
	"context"
	"encoding/json"
	"time"

	"github.com/localcmd/assistant/internal/audit"
	"github.com/localcmd/assistant/internal/cmdcap"
	"github.com/localcmd/assistant/internal/core"
	"github.com/localcmd/assistant/internal/memory"
	"github.com/localcmd/assistant/internal/pathcap"
	"github.com/localcmd/assistant/internal/permissions"
	"github.com/localcmd/assistant/internal/reminders"
	"github.com/localcmd/assistant/internal/tasks"
	"github.com/localcmd/assistant/internal/tool"
	"github.com/localcmd/assistant/internal/trust"
)

// Executor wires the seven-node permission/validation/dispatch/audit
// pipeline into a single internal/core Flow, built once at construction
// and reused for every request.
type Executor struct {
	flow           *core.Flow[ExecState]
	handlerTimeout time.Duration
}

// Deps bundles every capability and store the executor hands tool
// handlers through an ExecutorContext, plus the registry and permissions
// document the pipeline itself consults.
type Deps struct {
	Registry    *tool.Registry
	Permissions *permissions.Document
	Paths       *pathcap.Capability
	Commands    *cmdcap.Capability
	Memory      *memory.Store
	Tasks       *tasks.Store
	Reminders   *reminders.Store
	Audit       *audit.Log
	Clock       func() time.Time

	// HandlerTimeout bounds a single handler invocation; zero uses a
	// 30-second default.
	HandlerTimeout time.Duration
}

// New builds an Executor from deps. The node chain is linear: a node that
// finds no violation always reports core.ActionContinue, and the flow's
// successor map only ever has one edge per action, so this is effectively
// a straight-line pipeline expressed with the same action-based routing
// a much more branchy tool-calling graph would use.
func New(deps Deps) *Executor {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	denylist := core.NewNode[ExecState, string, denylistVerdict](&denylistNode{perms: deps.Permissions}, 0)
	agentGate := core.NewNode[ExecState, *trust.Agent, agentGateVerdict](&agentGateNode{}, 0)
	registry := core.NewNode[ExecState, string, registryLookup](&registryNode{registry: deps.Registry}, 0)
	confirm := core.NewNode[ExecState, confirmPrep, confirmVerdict](&confirmNode{perms: deps.Permissions}, 0)
	validate := core.NewNode[ExecState, validatePrep, validateResult](&validateNode{}, 0)
	dispatch := core.NewNode[ExecState, dispatchPrep, tool.ToolResult](&dispatchNode{
		ectxTemplate: tool.ExecutorContext{
			Paths:       deps.Paths,
			Commands:    deps.Commands,
			Permissions: deps.Permissions,
			Memory:      deps.Memory,
			Tasks:       deps.Tasks,
			Reminders:   deps.Reminders,
			Limits:      deps.Permissions.Limits(),
			Clock:       clock,
		},
		handlerTimeout: deps.HandlerTimeout,
	}, 0)
	auditN := core.NewNode[ExecState, auditRecordInput, struct{}](&auditNode{log: deps.Audit}, 0)

	denylist.AddSuccessor(agentGate, core.ActionContinue)
	agentGate.AddSuccessor(registry, core.ActionContinue)
	registry.AddSuccessor(confirm, core.ActionContinue)
	confirm.AddSuccessor(validate, core.ActionContinue)
	validate.AddSuccessor(dispatch, core.ActionContinue)
	dispatch.AddSuccessor(auditN, core.ActionContinue)

	flow := core.NewFlow[ExecState](denylist)
	return &Executor{flow: flow, handlerTimeout: deps.HandlerTimeout}
}

// Execute runs toolName with rawArgs against agent (nil for no attached
// agent, restricting dispatch to trust.SafeTools) through the full
// pipeline and returns the resulting ToolResult. It never panics or
// returns a Go error to the caller — every failure mode, including a
// handler panic (recovered in the dispatch node and turned into
// EXEC_ERROR by its ExecFallback), resolves to a ToolResult with OK=false.
func (e *Executor) Execute(ctx context.Context, toolName string, rawArgs json.RawMessage, agent *trust.Agent) tool.ToolResult {
	state := &ExecState{
		ToolName:  toolName,
		RawArgs:   rawArgs,
		Agent:     agent,
		StartedAt: time.Now(),
	}
	e.flow.Run(ctx, state)
	return state.Result
}
