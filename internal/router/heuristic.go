package router

import (
	"context"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/localcmd/assistant/internal/core"
)

// heuristicParser is a hand-written parser for one structured phrasing.
// Unlike a regexRule it may reject a syntactically matching phrase (e.g.
// a reminder with a due clause it can't parse into a timestamp), in which
// case it returns ok == false and routing falls through — to the next
// heuristic parser, and eventually to the LLM fallback — rather than
// erroring out.
type heuristicParser func(utterance string) (toolName string, args map[string]any, ok bool)

var tagPattern = regexp.MustCompile(`#(\w+)`)

var heuristicParsers = []heuristicParser{
	parseTaskAdd,
	parseTaskDone,
	parseTaskList,
	parseReminderAdd,
	parseReminderList,
	parseMemoryWithTags,
}

// parseTaskAdd recognizes "add task: <text>" / "task: <text>" / "new task <text>".
func parseTaskAdd(u string) (string, map[string]any, bool) {
	lower := strings.ToLower(strings.TrimSpace(u))
	for _, prefix := range []string{"add task:", "add task", "new task:", "new task", "task:"} {
		if strings.HasPrefix(lower, prefix) {
			text := strings.TrimSpace(u[len(prefix):])
			if text == "" {
				return "", nil, false
			}
			return "task_add", map[string]any{"text": text}, true
		}
	}
	return "", nil, false
}

// parseTaskDone recognizes "mark task <id> done" / "complete task <id>" /
// "finish task <id>" / "task <id> done".
var taskDoneRe = regexp.MustCompile(`(?i)^\s*(?:mark\s+task\s+(\d+)\s+done|complete\s+task\s+(\d+)|finish\s+task\s+(\d+)|task\s+(\d+)\s+done)\s*$`)

func parseTaskDone(u string) (string, map[string]any, bool) {
	m := taskDoneRe.FindStringSubmatch(u)
	if m == nil {
		return "", nil, false
	}
	for _, g := range m[1:] {
		if g != "" {
			id, err := strconv.Atoi(g)
			if err != nil {
				return "", nil, false
			}
			return "task_done", map[string]any{"id": id}, true
		}
	}
	return "", nil, false
}

// parseTaskList recognizes "list tasks" / "show open tasks" / "show done tasks".
var taskListRe = regexp.MustCompile(`(?i)^\s*(?:list|show)\s+(open|done)?\s*tasks?\s*$`)

func parseTaskList(u string) (string, map[string]any, bool) {
	m := taskListRe.FindStringSubmatch(u)
	if m == nil {
		return "", nil, false
	}
	args := map[string]any{}
	if status := strings.TrimSpace(m[1]); status != "" {
		args["status"] = status
	}
	return "task_list", args, true
}

// parseReminderAdd recognizes "remind me to <text> at <RFC3339>". Anything
// without a parseable due timestamp declines rather than guessing, leaving
// natural-language due clauses ("tomorrow morning") to the LLM fallback.
var reminderAddRe = regexp.MustCompile(`(?i)^\s*remind\s+me\s+to\s+(.+?)\s+at\s+(\S+)\s*$`)

func parseReminderAdd(u string) (string, map[string]any, bool) {
	m := reminderAddRe.FindStringSubmatch(u)
	if m == nil {
		return "", nil, false
	}
	due, err := time.Parse(time.RFC3339, m[2])
	if err != nil {
		return "", nil, false
	}
	return "reminder_add", map[string]any{
		"text": strings.TrimSpace(m[1]),
		"due":  due.Format(time.RFC3339),
	}, true
}

// parseReminderList recognizes "list reminders" / "show reminders".
var reminderListRe = regexp.MustCompile(`(?i)^\s*(?:list|show)\s+reminders?\s*$`)

func parseReminderList(u string) (string, map[string]any, bool) {
	if !reminderListRe.MatchString(u) {
		return "", nil, false
	}
	return "reminder_list", map[string]any{}, true
}

// parseMemoryWithTags recognizes "remember <text> #tag1 #tag2", pulling the
// hashtags into the remember tool's comma-separated tags argument. The plain "remember:
// <text>" form with no tags is already handled by the regex fast path;
// this parser exists specifically for the tagged variant, which needs
// more than a single capture group.
func parseMemoryWithTags(u string) (string, map[string]any, bool) {
	lower := strings.ToLower(strings.TrimSpace(u))
	if !strings.HasPrefix(lower, "remember ") {
		return "", nil, false
	}
	tags := tagPattern.FindAllStringSubmatch(u, -1)
	if len(tags) == 0 {
		return "", nil, false
	}
	text := tagPattern.ReplaceAllString(u[len("remember "):], "")
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil, false
	}
	tagList := make([]string, 0, len(tags))
	for _, t := range tags {
		tagList = append(tagList, t[1])
	}
	return "remember", map[string]any{"text": text, "tags": strings.Join(tagList, ",")}, true
}

// heuristicNode implements the heuristic stage. Contact and calendar CRUD
// phrasings are deliberately absent: no such tools are registered, so a
// parser for them would have nothing to dispatch to.
type heuristicNode struct{}

type heuristicMatch struct {
	toolName string
	args     map[string]any
	matched  bool
}

func (n *heuristicNode) Prep(state *RouteState) []string { return []string{state.Utterance} }

func (n *heuristicNode) Exec(_ context.Context, utterance string) (heuristicMatch, error) {
	for _, parse := range heuristicParsers {
		if name, args, ok := parse(utterance); ok {
			return heuristicMatch{toolName: name, args: args, matched: true}, nil
		}
	}
	return heuristicMatch{}, nil
}

func (n *heuristicNode) Post(state *RouteState, _ []string, results ...heuristicMatch) core.Action {
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
		Path: PathHeuristic,
	}
	return core.ActionEnd
}

func (n *heuristicNode) ExecFallback(_ error) heuristicMatch { return heuristicMatch{} }
