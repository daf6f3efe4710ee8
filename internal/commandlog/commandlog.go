// Package commandlog implements the append-only per-invocation log: one
// record per top-level user utterance, capturing which router stage
// handled it and what the outcome was. Same shape as internal/audit but
// keyed on the routing decision rather than the tool dispatch.
package commandlog

import (
	"fmt"
	"sync"
	"time"

	"github.com/localcmd/assistant/internal/jsonl"
)

// Outcome classifies how a routed command ended up.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeError   Outcome = "error"
	OutcomePartial Outcome = "partial"
)

// Entry is one command-log line.
type Entry struct {
	Ts            time.Time `json:"ts"`
	CorrelationID string    `json:"correlationId"`
	Input         string    `json:"input"`
	RoutingPath   string    `json:"routingPath"` // router.Path* value of the deciding stage
	Tool          string    `json:"tool,omitempty"`
	Outcome       Outcome   `json:"outcome"`
	Category      string    `json:"category"`
	LLMTokens     int       `json:"llmTokens,omitempty"`
	DurationMs    int64     `json:"durationMs"`
}

// Log appends command-log entries to a single JSONL file.
type Log struct {
	mu   sync.Mutex
	path string
}

// Open returns a Log writing to path.
func Open(path string) *Log {
	return &Log{path: path}
}

// Append writes one command-log entry, truncating Input to 2000 runes so
// a pathological utterance can't bloat the log file.
func (l *Log) Append(e Entry) error {
	const maxInputRunes = 2000
	if r := []rune(e.Input); len(r) > maxInputRunes {
		e.Input = string(r[:maxInputRunes]) + "...(truncated)"
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := jsonl.Append(l.path, e); err != nil {
		return fmt.Errorf("commandlog: append: %w", err)
	}
	return nil
}

// ReadAll returns every command-log entry on disk, skipping malformed
// lines.
func (l *Log) ReadAll() ([]Entry, error) {
	raw, err := jsonl.ReadAll(l.path, jsonl.DecodeLine[Entry], nil)
	if err != nil {
		return nil, fmt.Errorf("commandlog: read: %w", err)
	}
	out := make([]Entry, 0, len(raw))
	for _, r := range raw {
		if e, ok := r.(*Entry); ok {
			out = append(out, *e)
		}
	}
	return out, nil
}
