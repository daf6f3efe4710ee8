// Command assistant is the composition root: it loads configuration, wires
// every capability, store, and tool into a Registry, builds the router and
// executor, and drives a line-oriented REPL against them. Dependencies are
// built in order and a bad one fails fast at startup, before any input is
// read.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/localcmd/assistant/internal/audit"
	"github.com/localcmd/assistant/internal/cmdcap"
	"github.com/localcmd/assistant/internal/commandlog"
	"github.com/localcmd/assistant/internal/config"
	"github.com/localcmd/assistant/internal/executor"
	"github.com/localcmd/assistant/internal/llm"
	"github.com/localcmd/assistant/internal/llm/openai"
	"github.com/localcmd/assistant/internal/memory"
	"github.com/localcmd/assistant/internal/pathcap"
	"github.com/localcmd/assistant/internal/permissions"
	"github.com/localcmd/assistant/internal/reminders"
	"github.com/localcmd/assistant/internal/router"
	"github.com/localcmd/assistant/internal/session"
	"github.com/localcmd/assistant/internal/tasks"
	"github.com/localcmd/assistant/internal/tool"
	"github.com/localcmd/assistant/internal/tool/builtin"
	"github.com/localcmd/assistant/internal/trust"
)

func main() {
	config.LoadEnv()

	fmt.Println("╔══════════════════════════════════════╗")
	fmt.Println("║     local-first command assistant     ║")
	fmt.Println("╚══════════════════════════════════════╝")

	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir, _ = os.Getwd()
	}
	if info, err := os.Stat(dataDir); err != nil || !info.IsDir() {
		log.Fatalf("DATA_DIR %q does not exist or is not a directory", dataDir)
	}
	fmt.Printf("Data directory: %s\n", dataDir)

	perms, err := loadPermissions(dataDir)
	if err != nil {
		log.Fatalf("failed to load permissions: %v", err)
	}

	paths, err := pathcap.New(perms.AllowPaths(), os.Getenv("BLOCK_ENV_READ") != "false")
	if err != nil {
		log.Fatalf("failed to build path capability: %v", err)
	}
	commandTimeout := time.Duration(perms.Limits().CommandTimeoutMs) * time.Millisecond
	specs := cmdcap.DefaultSpecs()
	for name := range specs {
		if !perms.IsAllowedCommand(name) {
			delete(specs, name)
		}
	}
	commands := cmdcap.New(specs, paths, dataDir, commandTimeout, 1<<20)

	memStore, err := memory.Open(filepath.Join(dataDir, "memory.jsonl"), perms.Limits().MaxMemoryEntries)
	if err != nil {
		log.Fatalf("failed to open memory store: %v", err)
	}
	taskStore, err := tasks.Open(filepath.Join(dataDir, "tasks.jsonl"))
	if err != nil {
		log.Fatalf("failed to open task store: %v", err)
	}
	remStore, err := reminders.Open(filepath.Join(dataDir, "reminders.jsonl"))
	if err != nil {
		log.Fatalf("failed to open reminder store: %v", err)
	}
	auditLog := audit.Open(filepath.Join(dataDir, "audit.jsonl"))
	cmdLog := commandlog.Open(filepath.Join(dataDir, "commands.jsonl"))

	registry := tool.NewRegistry()
	registry.Register(builtin.NewReadFileTool())
	registry.Register(builtin.NewWriteFileTool())
	registry.Register(builtin.NewListFilesTool())
	registry.Register(builtin.NewFileGrepTool())
	registry.Register(builtin.NewMoveFileTool())
	registry.Register(builtin.NewDeleteFileTool())
	registry.Register(builtin.NewPatchFileTool())
	registry.Register(builtin.NewGitInfoTool())
	registry.Register(builtin.NewRunCommandTool())
	registry.Register(builtin.NewRememberTool())
	registry.Register(builtin.NewRecallTool())
	registry.Register(builtin.NewTaskAddTool())
	registry.Register(builtin.NewTaskListTool())
	registry.Register(builtin.NewTaskDoneTool())
	registry.Register(builtin.NewReminderAddTool())
	registry.Register(builtin.NewReminderListTool())
	registry.Register(builtin.NewCalculateTool())
	registry.Register(builtin.NewTimeTool())
	registry.Register(builtin.NewWeatherTool())
	registry.Register(builtin.NewReadURLTool(os.Getenv("TOOL_READ_URL_ALLOW_INTERNAL") == "true"))
	registry.Register(builtin.NewListToolsTool(registry))

	if err := registry.InitAll(context.Background()); err != nil {
		log.Fatalf("failed to initialize tools: %v", err)
	}
	defer registry.CloseAll()
	fmt.Printf("Tools: %d registered\n", len(registry.List()))

	exec := executor.New(executor.Deps{
		Registry:    registry,
		Permissions: perms,
		Paths:       paths,
		Commands:    commands,
		Memory:      memStore,
		Tasks:       taskStore,
		Reminders:   remStore,
		Audit:       auditLog,
	})

	provider, err := buildLLMProvider()
	if err != nil {
		log.Printf("LLM fallback disabled: %v", err)
	} else {
		fmt.Printf("LLM: %s\n", provider.GetName())
	}
	rtr := router.New(registry, provider)

	sessionStore := session.NewStore(30*time.Minute, 10)
	defer sessionStore.Close()

	agent, err := trust.New("local-user", trust.KindUser, allAgentTools(registry), "interactive REPL session")
	if err != nil {
		log.Fatalf("failed to build agent: %v", err)
	}

	runREPL(rtr, exec, agent, sessionStore, cmdLog)
}

// loadPermissions reads permissions.json or permissions.yaml from dataDir,
// whichever exists; PERMISSIONS_FILE overrides both when set.
func loadPermissions(dataDir string) (*permissions.Document, error) {
	if explicit := os.Getenv("PERMISSIONS_FILE"); explicit != "" {
		return permissions.Load(explicit)
	}
	for _, name := range []string{"permissions.json", "permissions.yaml", "permissions.yml"} {
		path := filepath.Join(dataDir, name)
		if _, err := os.Stat(path); err == nil {
			return permissions.Load(path)
		}
	}
	return nil, fmt.Errorf("no permissions.json/yaml found under %s (set PERMISSIONS_FILE to override)", dataDir)
}

// buildLLMProvider constructs the OpenAI-compatible client from environment
// variables. A missing LLM_API_KEY is not fatal — it simply disables the
// router's LLM fallback; everything the deterministic stages can route
// still works.
func buildLLMProvider() (llm.LLMProvider, error) {
	client, err := openai.NewClientFromEnv()
	if err != nil {
		return nil, err
	}
	return client, nil
}

// allAgentTools grants the interactive agent every registered tool. This
// binary only ever drives one trust boundary (the person at the terminal),
// so there is nothing to restrict the REPL's own agent from.
func allAgentTools(registry *tool.Registry) map[string]bool {
	tools := map[string]bool{}
	for _, t := range registry.List() {
		tools[t.Name()] = true
	}
	return tools
}

func runREPL(rtr *router.Router, exec *executor.Executor, agent *trust.Agent, sessions *session.Store, cmdLog *commandlog.Log) {
	const sessionID = "repl"
	fmt.Println("Type a command, or 'exit' to quit.")

	scanner := bufio.NewScanner(os.Stdin)
	var correlationSeq int64
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			break
		}

		correlationSeq++
		correlationID := strconv.FormatInt(correlationSeq, 10)
		handleLine(context.Background(), rtr, exec, agent, sessions, cmdLog, sessionID, correlationID, input)
	}
	if err := scanner.Err(); err != nil {
		log.Printf("input error: %v", err)
	}
}

func handleLine(ctx context.Context, rtr *router.Router, exec *executor.Executor, agent *trust.Agent, sessions *session.Store, cmdLog *commandlog.Log, sessionID, correlationID, input string) {
	started := time.Now()
	turns, summary := sessions.GetSessionContext(sessionID)
	history := session.ToMessages(turns, 2000, summary)

	result := rtr.Route(ctx, input, agent, history)

	entry := commandlog.Entry{
		Ts:            time.Now(),
		CorrelationID: correlationID,
		Input:         input,
		RoutingPath:   result.Path,
	}

	var assistantReply string
	switch result.Mode {
	case router.ModeToolCall:
		entry.Category = "tool"
		toolResult := exec.Execute(ctx, result.Tool.Name, result.Tool.Args, agent)
		entry.Tool = result.Tool.Name
		if toolResult.OK {
			entry.Outcome = commandlog.OutcomeSuccess
			assistantReply = formatToolResult(toolResult)
		} else {
			entry.Outcome = commandlog.OutcomeError
			assistantReply = fmt.Sprintf("error: %s: %s", toolResult.Error.Code, toolResult.Error.Message)
		}
	case router.ModeReply:
		entry.Category = "reply"
		entry.Outcome = commandlog.OutcomeSuccess
		assistantReply = result.Text
	default:
		entry.Category = "error"
		entry.Outcome = commandlog.OutcomeError
		assistantReply = fmt.Sprintf("error: %s: %s", result.Code, result.Message)
	}

	fmt.Println(assistantReply)
	sessions.AppendTurn(sessionID, session.Turn{
		UserMsg:   input,
		Assistant: assistantReply,
		FromTool:  result.Mode == router.ModeToolCall,
	})

	entry.DurationMs = time.Since(started).Milliseconds()
	if err := cmdLog.Append(entry); err != nil {
		log.Printf("command log append failed: %v", err)
	}
}

func formatToolResult(result tool.ToolResult) string {
	if s, ok := result.Result.(string); ok {
		return s
	}
	data, err := json.MarshalIndent(result.Result, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", result.Result)
	}
	return string(data)
}
