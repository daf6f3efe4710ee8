// Package reminders implements the Reminder store: a JSONL-backed,
// append-mostly list of due-dated notes.
package reminders

import (
	"fmt"
	"log"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/localcmd/assistant/internal/jsonl"
)

// Reminder is one due-dated note.
type Reminder struct {
	ID    string    `json:"id"`
	Ts    time.Time `json:"ts"`
	Text  string    `json:"text"`
	DueTs time.Time `json:"dueTs"`
}

// Store is a mutex-guarded, fully in-memory-cached JSONL-backed reminder
// list.
type Store struct {
	mu        sync.Mutex
	path      string
	reminders []Reminder
	nextSeq   uint64
}

// Open loads path (if it exists) and returns a ready Store.
func Open(path string) (*Store, error) {
	raw, err := jsonl.ReadAll(path, jsonl.DecodeLine[Reminder], nil)
	if err != nil {
		return nil, fmt.Errorf("reminders: load %s: %w", path, err)
	}
	list := make([]Reminder, 0, len(raw))
	for _, r := range raw {
		if rem, ok := r.(*Reminder); ok {
			list = append(list, *rem)
		}
	}
	return &Store{path: path, reminders: list, nextSeq: uint64(len(list))}, nil
}

// Add appends a new reminder due at dueTs and returns it.
func (s *Store) Add(text string, dueTs time.Time) (Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSeq++
	rem := Reminder{ID: "rem-" + strconv.FormatUint(s.nextSeq, 10), Ts: time.Now(), Text: text, DueTs: dueTs}
	if err := jsonl.Append(s.path, rem); err != nil {
		return Reminder{}, fmt.Errorf("reminders: append: %w", err)
	}
	s.reminders = append(s.reminders, rem)
	log.Printf("[Reminders] added %s due %s", rem.ID, dueTs.Format(time.RFC3339))
	return rem, nil
}

// DueBefore returns reminders whose DueTs is at or before cutoff, ordered
// by DueTs ascending.
func (s *Store) DueBefore(cutoff time.Time) []Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Reminder
	for _, r := range s.reminders {
		if !r.DueTs.After(cutoff) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DueTs.Before(out[j].DueTs) })
	return out
}

// List returns a snapshot of every reminder.
func (s *Store) List() []Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Reminder, len(s.reminders))
	copy(out, s.reminders)
	return out
}
