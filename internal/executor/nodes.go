package executor

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/localcmd/assistant/internal/core"
	"github.com/localcmd/assistant/internal/permissions"
	"github.com/localcmd/assistant/internal/tool"
	"github.com/localcmd/assistant/internal/trust"
)

// ── 1. denylist ──

type denylistNode struct {
	perms *permissions.Document
}

type denylistVerdict struct{ denied bool }

func (n *denylistNode) Prep(state *ExecState) []string { return []string{state.ToolName} }

func (n *denylistNode) Exec(_ context.Context, toolName string) (denylistVerdict, error) {
	return denylistVerdict{denied: n.perms.IsDeniedTool(toolName)}, nil
}

func (n *denylistNode) Post(state *ExecState, _ []string, results ...denylistVerdict) core.Action {
	if len(results) > 0 && results[0].denied {
		state.Result = tool.Err(tool.CodeDeniedToolBlocklist, fmt.Sprintf("tool %q is on the deny list", state.ToolName))
		return core.ActionEnd
	}
	return core.ActionContinue
}

func (n *denylistNode) ExecFallback(err error) denylistVerdict {
	log.Printf("[Executor] denylist check failed: %v", err)
	return denylistVerdict{denied: true}
}

// ── 2. agent gate ──

type agentGateNode struct{}

type agentGateVerdict struct{ allowed bool }

func (n *agentGateNode) Prep(state *ExecState) []*trust.Agent { return []*trust.Agent{state.Agent} }

func (n *agentGateNode) Exec(_ context.Context, agent *trust.Agent) (agentGateVerdict, error) {
	return agentGateVerdict{}, nil // computed in Post, which also needs state.ToolName
}

func (n *agentGateNode) Post(state *ExecState, prep []*trust.Agent, _ ...agentGateVerdict) core.Action {
	var agent *trust.Agent
	if len(prep) > 0 {
		agent = prep[0]
	}
	if !agent.Allows(state.ToolName) {
		state.Result = tool.Err(tool.CodeDeniedAgentToolset, fmt.Sprintf("agent may not call %q", state.ToolName))
		return core.ActionEnd
	}
	return core.ActionContinue
}

func (n *agentGateNode) ExecFallback(_ error) agentGateVerdict { return agentGateVerdict{} }

// ── 3. registry lookup ──

type registryNode struct {
	registry *tool.Registry
}

type registryLookup struct {
	t  tool.Tool
	ok bool
}

func (n *registryNode) Prep(state *ExecState) []string { return []string{state.ToolName} }

func (n *registryNode) Exec(_ context.Context, name string) (registryLookup, error) {
	t, ok := n.registry.Get(name)
	return registryLookup{t: t, ok: ok}, nil
}

func (n *registryNode) Post(state *ExecState, _ []string, results ...registryLookup) core.Action {
	if len(results) == 0 || !results[0].ok {
		state.Result = tool.Err(tool.CodeUnknownTool, fmt.Sprintf("unknown tool %q; known tools include: %v", state.ToolName, n.suggestions()))
		return core.ActionEnd
	}
	state.ResolvedTool = results[0].t
	return core.ActionContinue
}

func (n *registryNode) suggestions() []string {
	tools := n.registry.List()
	names := make([]string, 0, len(tools))
	for _, t := range tools {
		names = append(names, t.Name())
	}
	sort.Strings(names)
	if len(names) > 5 {
		names = names[:5]
	}
	return names
}

func (n *registryNode) ExecFallback(_ error) registryLookup { return registryLookup{} }

// ── 4. confirmation gate ──

type confirmNode struct {
	perms *permissions.Document
}

type confirmPrep struct {
	toolName string
	rawArgs  []byte
}

type confirmVerdict struct{ satisfied bool }

func (n *confirmNode) Prep(state *ExecState) []confirmPrep {
	return []confirmPrep{{toolName: state.ToolName, rawArgs: state.RawArgs}}
}

func (n *confirmNode) Exec(_ context.Context, p confirmPrep) (confirmVerdict, error) {
	if !n.perms.RequiresConfirmation(p.toolName) {
		return confirmVerdict{satisfied: true}, nil
	}
	return confirmVerdict{satisfied: argsConfirmed(p.rawArgs)}, nil
}

func (n *confirmNode) Post(state *ExecState, _ []confirmPrep, results ...confirmVerdict) core.Action {
	if len(results) > 0 && !results[0].satisfied {
		state.Result = tool.Err(tool.CodeConfirmationRequired, fmt.Sprintf("tool %q requires confirmation; retry with \"confirm\": true", state.ToolName))
		return core.ActionEnd
	}
	return core.ActionContinue
}

func (n *confirmNode) ExecFallback(_ error) confirmVerdict { return confirmVerdict{} }

// ── 5. argument validation ──

type validateNode struct{}

type validatePrep struct {
	schema  []byte
	rawArgs []byte
}

type validateResult struct {
	args []byte
	err  error
}

func (n *validateNode) Prep(state *ExecState) []validatePrep {
	return []validatePrep{{schema: state.ResolvedTool.InputSchema(), rawArgs: state.RawArgs}}
}

func (n *validateNode) Exec(_ context.Context, p validatePrep) (validateResult, error) {
	args, err := validateArgs(p.schema, p.rawArgs)
	return validateResult{args: args, err: err}, nil
}

func (n *validateNode) Post(state *ExecState, _ []validatePrep, results ...validateResult) core.Action {
	if len(results) > 0 && results[0].err != nil {
		state.Result = tool.Err(tool.CodeValidationError, results[0].err.Error())
		return core.ActionEnd
	}
	if len(results) > 0 {
		state.ValidatedArgs = results[0].args
	}
	return core.ActionContinue
}

func (n *validateNode) ExecFallback(err error) validateResult { return validateResult{err: err} }

// ── 6. dispatch ──

// dispatchNode builds the ExecutorContext and invokes the handler in the
// same breath, since both need the same resolved tool/args and there's
// nothing meaningful to do with a built context except hand it to Execute.
type dispatchNode struct {
	ectxTemplate   tool.ExecutorContext
	handlerTimeout time.Duration
}

type dispatchPrep struct {
	t    tool.Tool
	args []byte
	ectx *tool.ExecutorContext
}

func (n *dispatchNode) Prep(state *ExecState) []dispatchPrep {
	ectx := n.ectxTemplate // shallow copy: capability pointers are shared, safe for concurrent requests
	perms := ectx.Permissions
	ectx.RequiresConfirmation = func(toolName string) bool {
		if perms == nil {
			return false
		}
		return perms.RequiresConfirmation(toolName)
	}
	return []dispatchPrep{{t: state.ResolvedTool, args: state.ValidatedArgs, ectx: &ectx}}
}

func (n *dispatchNode) Exec(ctx context.Context, p dispatchPrep) (_ tool.ToolResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()

	timeout := n.handlerTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, herr := p.t.Execute(runCtx, p.args, p.ectx)
	if herr != nil {
		log.Printf("[Executor] handler %q returned an error, converting to EXEC_ERROR: %v", p.t.Name(), herr)
		return tool.Err(tool.CodeExecError, fmt.Sprintf("handler error: %v", herr)), nil
	}
	if !result.OK && result.Error == nil {
		return tool.Err(tool.CodeExecError, "handler returned a structurally invalid failure result"), nil
	}
	return result, nil
}

func (n *dispatchNode) Post(state *ExecState, _ []dispatchPrep, results ...tool.ToolResult) core.Action {
	if len(results) > 0 {
		state.Result = results[0]
	} else {
		state.Result = tool.Err(tool.CodeExecError, "handler did not run")
	}
	return core.ActionContinue
}

func (n *dispatchNode) ExecFallback(err error) tool.ToolResult {
	return tool.Err(tool.CodeExecError, fmt.Sprintf("handler panicked or timed out: %v", err))
}

func argsConfirmed(rawArgs []byte) bool {
	if len(rawArgs) == 0 {
		return false
	}
	var probe struct {
		Confirm bool `json:"confirm"`
	}
	if err := jsonUnmarshalLenient(rawArgs, &probe); err != nil {
		return false
	}
	return probe.Confirm
}
