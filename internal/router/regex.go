package router

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/localcmd/assistant/internal/core"
)

// regexRule is one entry of the fast path's ordered table. Patterns are
// anchored and case-insensitive; the first rule whose pattern matches
// wins, so order encodes priority (e.g. the read-url pattern must precede
// the generic read-file pattern).
type regexRule struct {
	pattern *regexp.Regexp
	build   func(match []string) (toolName string, args map[string]any)
}

// regexTable is compiled once at package init; none of these are
// recompiled per request.
var regexTable = []regexRule{
	{
		regexp.MustCompile(`(?i)^\s*remember:\s+(.+)$`),
		func(m []string) (string, map[string]any) {
			return "remember", map[string]any{"text": strings.TrimSpace(m[1])}
		},
	},
	{
		regexp.MustCompile(`(?i)^\s*recall:\s+(.+)$`),
		func(m []string) (string, map[string]any) {
			return "recall", map[string]any{"query": strings.TrimSpace(m[1])}
		},
	},
	{
		regexp.MustCompile(`(?i)^\s*read\s+(?:url\s+)?(https?://\S+)\s*$`),
		func(m []string) (string, map[string]any) {
			return "read_url", map[string]any{"url": m[1]}
		},
	},
	{
		regexp.MustCompile(`(?i)^\s*read\s+(\S+)\s*$`),
		func(m []string) (string, map[string]any) {
			return "read_file", map[string]any{"path": m[1]}
		},
	},
	{
		regexp.MustCompile(`(?i)^\s*write\s+(\S+)\s+(.+)$`),
		func(m []string) (string, map[string]any) {
			return "write_file", map[string]any{"path": m[1], "content": m[2]}
		},
	},
	{
		regexp.MustCompile(`(?i)^\s*list(?:\s+files)?\s*$`),
		func(_ []string) (string, map[string]any) {
			return "list_files", map[string]any{}
		},
	},
	{
		regexp.MustCompile(`(?i)^\s*(?:what time is it|current time|time|date)\??\s*$`),
		func(_ []string) (string, map[string]any) {
			return "get_time", map[string]any{}
		},
	},
	{
		regexp.MustCompile(`(?i)^\s*(?:calculate|calc|compute|eval|math)[:\s]+(.+)$`),
		func(m []string) (string, map[string]any) {
			return "calculate", map[string]any{"expression": strings.TrimSpace(m[1])}
		},
	},
	{
		regexp.MustCompile(`(?i)^\s*git\s+(status|diff|log)(?:\s+(.*))?$`),
		func(m []string) (string, map[string]any) {
			args := map[string]any{"command": strings.ToLower(m[1])}
			if strings.TrimSpace(m[2]) != "" {
				args["args"] = strings.TrimSpace(m[2])
			}
			return "git_info", args
		},
	},
	{
		regexp.MustCompile(`(?i)^\s*(ls|pwd|cat|du)(?:\s+(.*))?$`),
		func(m []string) (string, map[string]any) {
			args := map[string]any{"command": strings.ToLower(m[1])}
			if strings.TrimSpace(m[2]) != "" {
				args["args"] = strings.TrimSpace(m[2])
			}
			return "run_command", args
		},
	},
}

// regexNode implements the regex fast path. A match against a tool the
// current agent may not call is NOT an error — the stage yields no match
// and routing proceeds to the next stage, same as no pattern matching at
// all.
type regexNode struct{}

type regexMatch struct {
	toolName string
	args     map[string]any
	matched  bool
}

func (n *regexNode) Prep(state *RouteState) []string { return []string{state.Utterance} }

func (n *regexNode) Exec(_ context.Context, utterance string) (regexMatch, error) {
	for _, rule := range regexTable {
		if m := rule.pattern.FindStringSubmatch(utterance); m != nil {
			name, args := rule.build(m)
			return regexMatch{toolName: name, args: args, matched: true}, nil
		}
	}
	return regexMatch{}, nil
}

func (n *regexNode) Post(state *RouteState, _ []string, results ...regexMatch) core.Action {
	if len(results) == 0 || !results[0].matched {
		return core.ActionContinue
	}
	match := results[0]
	if !state.Agent.Allows(match.toolName) {
		return core.ActionContinue
	}
	raw, err := json.Marshal(match.args)
	if err != nil {
		return core.ActionContinue
	}
	state.Result = RouteResult{
		Mode: ModeToolCall,
		Tool: &ToolCall{Name: match.toolName, Args: raw},
		Path: PathRegexFastPath,
	}
	return core.ActionEnd
}

func (n *regexNode) ExecFallback(_ error) regexMatch { return regexMatch{} }
