// Package permissions parses and serves the permissions document
// (permissions.json / permissions.yaml) that governs every capability
// check the executor makes: allowed paths, allowed commands, which tools
// require confirmation, which tools are denied outright, and the
// process-wide limits. The document is loaded once at startup, validated,
// and handed out as an immutable snapshot.
package permissions

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Limits holds the process-wide numeric limits a permissions document may
// override; zero values fall back to the documented defaults below.
type Limits struct {
	MaxInputLength   int `json:"maxInputLength" yaml:"maxInputLength"`
	MaxReadSize      int `json:"maxReadSize" yaml:"maxReadSize"`
	CommandTimeoutMs int `json:"commandTimeoutMs" yaml:"commandTimeoutMs"`
	FetchTimeoutMs   int `json:"fetchTimeoutMs" yaml:"fetchTimeoutMs"`
	MaxMemoryEntries int `json:"maxMemoryEntries" yaml:"maxMemoryEntries"`
}

// Default limits, applied to any zero-valued field after loading.
const (
	DefaultMaxInputLength   = 8000
	DefaultMaxReadSize      = 1 << 20
	DefaultCommandTimeoutMs = 10_000
	DefaultFetchTimeoutMs   = 10_000
	DefaultMaxMemoryEntries = 5000
)

func (l *Limits) applyDefaults() {
	if l.MaxInputLength <= 0 {
		l.MaxInputLength = DefaultMaxInputLength
	}
	if l.MaxReadSize <= 0 {
		l.MaxReadSize = DefaultMaxReadSize
	}
	if l.CommandTimeoutMs <= 0 {
		l.CommandTimeoutMs = DefaultCommandTimeoutMs
	}
	if l.FetchTimeoutMs <= 0 {
		l.FetchTimeoutMs = DefaultFetchTimeoutMs
	}
	if l.MaxMemoryEntries <= 0 {
		l.MaxMemoryEntries = DefaultMaxMemoryEntries
	}
}

// doc is the on-disk shape of a permissions document. Unknown fields are
// ignored by both encoding/json and yaml.v3 by default, keeping this
// forward-compatible as the schema grows.
type doc struct {
	Version                int      `json:"version" yaml:"version"`
	AllowPaths             []string `json:"allow_paths" yaml:"allow_paths"`
	AllowCommands          []string `json:"allow_commands" yaml:"allow_commands"`
	RequireConfirmationFor []string `json:"require_confirmation_for" yaml:"require_confirmation_for"`
	DenyTools              []string `json:"deny_tools" yaml:"deny_tools"`
	Limits                 Limits   `json:"limits" yaml:"limits"`
}

// Document is the parsed, validated, immutable permissions snapshot the
// rest of the module queries through its predicate methods.
type Document struct {
	allowPaths             []string
	allowCommands          map[string]bool
	requireConfirmationFor map[string]bool
	denyTools              map[string]bool
	limits                 Limits
}

// Load reads a permissions document from path, dispatching on extension
// (".yaml"/".yml" → yaml.v3, anything else → encoding/json).
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("permissions: read %s: %w", path, err)
	}
	var d doc
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" {
		if err := yaml.Unmarshal(data, &d); err != nil {
			return nil, fmt.Errorf("permissions: parse yaml %s: %w", path, err)
		}
	} else {
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, fmt.Errorf("permissions: parse json %s: %w", path, err)
		}
	}
	return fromDoc(d)
}

func fromDoc(d doc) (*Document, error) {
	if len(d.AllowPaths) == 0 {
		return nil, fmt.Errorf("permissions: allow_paths must not be empty")
	}

	canonPaths := make([]string, 0, len(d.AllowPaths))
	for _, p := range d.AllowPaths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("permissions: resolve allow_paths entry %q: %w", p, err)
		}
		canonPaths = append(canonPaths, filepath.Clean(abs))
	}

	limits := d.Limits
	limits.applyDefaults()

	return &Document{
		allowPaths:             canonPaths,
		allowCommands:          toSet(d.AllowCommands),
		requireConfirmationFor: toSet(d.RequireConfirmationFor),
		denyTools:              toSet(d.DenyTools),
		limits:                 limits,
	}, nil
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}

// AllowPaths returns the canonicalized allow_paths roots.
func (d *Document) AllowPaths() []string {
	out := make([]string, len(d.allowPaths))
	copy(out, d.allowPaths)
	return out
}

// IsAllowedCommand reports whether name may be run at all (the command
// capability still applies its own per-flag schema on top of this).
func (d *Document) IsAllowedCommand(name string) bool {
	return d.allowCommands[name]
}

// IsDeniedTool reports whether toolName is on the blocklist. This check
// takes precedence over every other permission check in the executor,
// including a system agent's otherwise-universal access.
func (d *Document) IsDeniedTool(toolName string) bool {
	return d.denyTools[toolName]
}

// RequiresConfirmation reports whether toolName must carry args.confirm =
// true before the executor will dispatch it.
func (d *Document) RequiresConfirmation(toolName string) bool {
	return d.requireConfirmationFor[toolName]
}

// Limits returns the resolved (defaults-applied) limits.
func (d *Document) Limits() Limits {
	return d.limits
}
