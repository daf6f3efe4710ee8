// Package trust implements the agent trust model: every tool invocation is
// attributed to an Agent (or to none at all, for the narrowest possible
// access), and the executor's agent gate decides eligibility from that
// attribution alone.
package trust

import "fmt"

// Kind classifies how an Agent's tool access is computed.
type Kind string

const (
	// KindSystem agents may use every registered tool except those on the
	// tool denylist; their Tools set is ignored.
	KindSystem Kind = "system"
	// KindUser agents are restricted to their explicit Tools allow-list.
	KindUser Kind = "user"
	// KindWorker agents are restricted to their explicit Tools allow-list,
	// same as KindUser; kept distinct so audit records and logs can tell
	// a human-driven session from a spawned sub-agent.
	KindWorker Kind = "worker"
)

// SafeTools are the only tools usable when no agent is attached to a
// request at all. Deliberately tiny and side-effect-free: nothing here
// touches the filesystem, a process, or the network.
var SafeTools = map[string]bool{
	"calculate":   true,
	"get_time":    true,
	"get_weather": true,
	"list_tools":  true,
}

// Agent attributes a request to a trust boundary.
type Agent struct {
	Name        string
	Kind        Kind
	Tools       map[string]bool
	Description string
}

// New constructs an Agent, validating Kind and rejecting an empty Name.
// Tools may be nil for any kind: it is ignored for KindSystem, and a nil
// Tools is replaced by an empty map, so a KindUser/KindWorker agent built
// with nil allows no tool at all.
func New(name string, kind Kind, tools map[string]bool, description string) (*Agent, error) {
	if name == "" {
		return nil, fmt.Errorf("trust: agent name must not be empty")
	}
	switch kind {
	case KindSystem, KindUser, KindWorker:
	default:
		return nil, fmt.Errorf("trust: unknown agent kind %q", kind)
	}
	if tools == nil {
		tools = map[string]bool{}
	}
	return &Agent{Name: name, Kind: kind, Tools: tools, Description: description}, nil
}

// Allows reports whether the agent may use toolName, ignoring the
// denylist (the executor applies that separately and first, since it
// takes precedence over every agent's toolset including system agents).
func (a *Agent) Allows(toolName string) bool {
	if a == nil {
		return SafeTools[toolName]
	}
	if a.Kind == KindSystem {
		return true
	}
	return a.Tools[toolName]
}

// FromPlugin builds an Agent from externally supplied (e.g. plugin
// manifest) fields. It never trusts a "system" kind from that source —
// a plugin can only ever declare a KindUser agent, regardless of what
// kind string it supplies — so a malicious or buggy plugin manifest can
// never forge system-level trust.
func FromPlugin(name string, declaredKind string, tools map[string]bool, description string) (*Agent, error) {
	_ = declaredKind // intentionally ignored; see doc comment
	return New(name, KindUser, tools, description)
}
