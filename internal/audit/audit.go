// Package audit implements the append-only audit log the executor writes
// one record to for every tool dispatch, successful or not. Built on
// internal/jsonl's Append; the file is never rewritten, only ever
// appended to.
package audit

import (
	"fmt"
	"sync"
	"time"

	"github.com/localcmd/assistant/internal/jsonl"
)

// Record is one audit log line.
type Record struct {
	Ts         time.Time      `json:"ts"`
	Tool       string         `json:"tool"`
	Args       map[string]any `json:"args"`
	OK         bool           `json:"ok"`
	ErrorCode  string         `json:"errorCode,omitempty"`
	DurationMs int64          `json:"durationMs"`
	AgentName  string         `json:"agentName,omitempty"`
}

// Log appends audit records to a single JSONL file. Logs are
// write-mostly, so unlike memory/tasks/reminders there is no in-memory
// cache to keep consistent — callers that need history read the file
// directly via jsonl.ReadAll.
type Log struct {
	mu   sync.Mutex
	path string
}

// Open returns a Log writing to path. The file need not exist yet.
func Open(path string) *Log {
	return &Log{path: path}
}

// Append writes one audit record.
func (l *Log) Append(r Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := jsonl.Append(l.path, r); err != nil {
		return fmt.Errorf("audit: append: %w", err)
	}
	return nil
}

// ReadAll returns every audit record on disk, skipping malformed lines.
func (l *Log) ReadAll() ([]Record, error) {
	raw, err := jsonl.ReadAll(l.path, jsonl.DecodeLine[Record], nil)
	if err != nil {
		return nil, fmt.Errorf("audit: read: %w", err)
	}
	out := make([]Record, 0, len(raw))
	for _, r := range raw {
		if rec, ok := r.(*Record); ok {
			out = append(out, *rec)
		}
	}
	return out, nil
}
