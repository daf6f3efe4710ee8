package executor

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/localcmd/assistant/internal/audit"
	"github.com/localcmd/assistant/internal/core"
)

// maxAuditArgValueChars truncates a sanitized argument value before it's
// written to the audit log.
const maxAuditArgValueChars = 200

// auditSecretFields never get written to the audit log verbatim; their
// value is replaced with a fixed marker regardless of type.
var auditSecretFields = map[string]bool{
	"password": true, "secret": true, "token": true, "api_key": true, "apikey": true,
}

type auditNode struct {
	log *audit.Log
}

type auditRecordInput struct {
	toolName   string
	agentName  string
	args       []byte
	result     bool
	errorCode  string
	durationMs int64
}

func (n *auditNode) Prep(state *ExecState) []auditRecordInput {
	errCode := ""
	if !state.Result.OK && state.Result.Error != nil {
		errCode = state.Result.Error.Code
	}
	return []auditRecordInput{{
		toolName:   state.ToolName,
		agentName:  agentName(state.Agent),
		args:       state.ValidatedArgs,
		result:     state.Result.OK,
		errorCode:  errCode,
		durationMs: time.Since(state.StartedAt).Milliseconds(),
	}}
}

func (n *auditNode) Exec(_ context.Context, in auditRecordInput) (struct{}, error) {
	if n.log == nil {
		return struct{}{}, nil
	}
	rec := audit.Record{
		Ts:         time.Now(),
		Tool:       in.toolName,
		Args:       sanitizeArgs(in.args),
		OK:         in.result,
		ErrorCode:  in.errorCode,
		DurationMs: in.durationMs,
		AgentName:  in.agentName,
	}
	if err := n.log.Append(rec); err != nil {
		// Audit writes are best-effort: a logging failure never fails the
		// request that's already completed.
		log.Printf("[Audit] failed to append record for %q: %v", in.toolName, err)
	}
	return struct{}{}, nil
}

func (n *auditNode) Post(_ *ExecState, _ []auditRecordInput, _ ...struct{}) core.Action {
	return core.ActionEnd
}

func (n *auditNode) ExecFallback(err error) struct{} {
	log.Printf("[Audit] exec failed: %v", err)
	return struct{}{}
}

func sanitizeArgs(rawArgs []byte) map[string]any {
	var m map[string]any
	if len(rawArgs) == 0 {
		return nil
	}
	if err := json.Unmarshal(rawArgs, &m); err != nil {
		return nil
	}
	for k, v := range m {
		if auditSecretFields[lowerASCII(k)] {
			m[k] = "***redacted***"
			continue
		}
		if s, ok := v.(string); ok && len(s) > maxAuditArgValueChars {
			m[k] = s[:maxAuditArgValueChars] + "...(truncated)"
		}
	}
	return m
}

func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
