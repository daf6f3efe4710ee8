// Package tasks implements the Task store: a JSONL-backed to-do list
// with monotonically increasing integer ids per file, built on
// internal/jsonl for storage mechanics.
package tasks

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/localcmd/assistant/internal/jsonl"
)

// Status is a Task's lifecycle state.
type Status string

const (
	StatusOpen Status = "open"
	StatusDone Status = "done"
)

// Task is one to-do item.
type Task struct {
	ID          int        `json:"id"`
	Ts          time.Time  `json:"ts"`
	Text        string     `json:"text"`
	Status      Status     `json:"status"`
	CompletedTs *time.Time `json:"completedTs,omitempty"`
}

// Store is a mutex-guarded, fully in-memory-cached JSONL-backed task list.
type Store struct {
	mu     sync.Mutex
	path   string
	tasks  []Task
	nextID int
}

// Open loads path (if it exists) and returns a ready Store, with nextID
// computed as max(existing ids) + 1 so ids are never reused after a
// restart.
func Open(path string) (*Store, error) {
	raw, err := jsonl.ReadAll(path, jsonl.DecodeLine[Task], nil)
	if err != nil {
		return nil, fmt.Errorf("tasks: load %s: %w", path, err)
	}
	list := make([]Task, 0, len(raw))
	maxID := 0
	for _, r := range raw {
		if t, ok := r.(*Task); ok {
			list = append(list, *t)
			if t.ID > maxID {
				maxID = t.ID
			}
		}
	}
	return &Store{path: path, tasks: list, nextID: maxID + 1}, nil
}

// Add appends a new open task and returns it.
func (s *Store) Add(text string) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := Task{ID: s.nextID, Ts: time.Now(), Text: text, Status: StatusOpen}
	if err := jsonl.Append(s.path, t); err != nil {
		return Task{}, fmt.Errorf("tasks: append: %w", err)
	}
	s.tasks = append(s.tasks, t)
	s.nextID++
	log.Printf("[Tasks] added #%d: %q", t.ID, t.Text)
	return t, nil
}

// Complete marks the task with the given id done, rewriting the file
// atomically since the record's position, not just the tail, changes.
func (s *Store) Complete(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, t := range s.tasks {
		if t.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("tasks: no task with id %d", id)
	}
	now := time.Now()
	s.tasks[idx].Status = StatusDone
	s.tasks[idx].CompletedTs = &now

	records := make([]any, len(s.tasks))
	for i, t := range s.tasks {
		records[i] = t
	}
	if err := jsonl.RewriteAtomic(s.path, records); err != nil {
		return fmt.Errorf("tasks: rewrite after complete: %w", err)
	}
	log.Printf("[Tasks] completed #%d", id)
	return nil
}

// List returns a snapshot of all tasks, optionally filtered to a status;
// pass "" to return every task regardless of status.
func (s *Store) List(status Status) []Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if status != "" && t.Status != status {
			continue
		}
		out = append(out, t)
	}
	return out
}
