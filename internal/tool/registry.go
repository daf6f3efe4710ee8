package tool

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/localcmd/assistant/internal/llm"
)

// Registry manages all registered tools with thread-safe access. It is the
// single source of truth the router's tool-filter cache and the executor's
// dispatch node both read from.
type Registry struct {
	mu       sync.RWMutex
	tools    map[string]Tool
	revision uint64 // bumped on every Register/RegisterPlugin/Unregister
}

// NewRegistry creates an empty root tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds a built-in tool to the registry. If a tool with the same
// name already exists, it is overwritten and a warning is logged — built-in
// registration order is controlled by the composition root, so a
// last-registration-wins overwrite here is a deliberate convenience, not a
// surprise.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name()]; exists {
		log.Printf("[Registry] WARNING: overwriting existing tool %q", t.Name())
	}
	r.tools[t.Name()] = t
	r.revision++
}

// RegisterPlugin adds an externally supplied tool. Unlike Register, a name
// collision is rejected outright: a plugin may only add new tools, never
// shadow or replace a built-in (or another plugin's) registration. This is
// the one place built-in and plugin registration semantics deliberately
// diverge.
func (r *Registry) RegisterPlugin(t Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name()]; exists {
		return fmt.Errorf("tool: plugin tool %q collides with an existing registration", t.Name())
	}
	r.tools[t.Name()] = t
	r.revision++
	return nil
}

// Unregister removes a tool from the registry (for hot-reload).
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
	r.revision++
	log.Printf("[Registry] Unregistered tool: %s", name)
}

// Revision returns a counter bumped on every registration change. The
// router's tool-filter cache keys on (agentName, registry.Revision()) so a
// cached filtered tool list is automatically invalidated the moment the
// registry's contents change, without needing an explicit invalidation
// call.
func (r *Registry) Revision() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.revision
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns all registered tools sorted by name.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name() < result[j].Name()
	})
	return result
}

// GenerateToolsPrompt creates a detailed description of all tools
// including their parameter schemas for injection into LLM prompts.
func (r *Registry) GenerateToolsPrompt() string {
	tools := r.List()
	if len(tools) == 0 {
		return "(no tools available)"
	}

	var sb strings.Builder
	sb.WriteString("Available tools:\n")
	for _, t := range tools {
		sb.WriteString(fmt.Sprintf("\n### %s\n%s\n", t.Name(), t.Description()))
		schema := t.InputSchema()
		if len(schema) > 0 {
			sb.WriteString(fmt.Sprintf("Parameter schema: %s\n", string(schema)))
		}
	}
	return sb.String()
}

// GenerateToolDefinitions creates function-calling-compatible tool
// definitions for the router's LLM fallback.
func (r *Registry) GenerateToolDefinitions() []llm.ToolDefinition {
	return ToolDefinitionsFor(r.List())
}

// ToolDefinitionsFor converts an arbitrary tool slice (typically a
// per-agent filtered view) into function-calling definitions. Split out
// from GenerateToolDefinitions so the router can build definitions from an
// agent-scoped subset instead of the full registry.
func ToolDefinitionsFor(tools []Tool) []llm.ToolDefinition {
	defs := make([]llm.ToolDefinition, len(tools))
	for i, t := range tools {
		defs[i] = llm.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.InputSchema(),
		}
	}
	return defs
}

// InitAll initializes all registered tools.
func (r *Registry) InitAll(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for name, t := range r.tools {
		if err := t.Init(ctx); err != nil {
			return fmt.Errorf("init tool %q: %w", name, err)
		}
	}
	log.Printf("[Registry] Initialized %d tools", len(r.tools))
	return nil
}

// CloseAll closes all registered tools, logging errors but not failing.
func (r *Registry) CloseAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for name, t := range r.tools {
		if err := t.Close(); err != nil {
			log.Printf("[Registry] Error closing tool %s: %v", name, err)
		}
	}
}
