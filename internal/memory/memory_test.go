package memory

import (
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T, maxCount int) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "memory.jsonl"), maxCount)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func TestRememberIsIdempotentOnIdenticalText(t *testing.T) {
	s := newTestStore(t, 0)
	id1, err := s.Remember("buy milk", nil)
	if err != nil {
		t.Fatalf("Remember: %v", err)
	}
	id2, err := s.Remember("buy milk", nil)
	if err != nil {
		t.Fatalf("Remember: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("ids differ: %s vs %s, want identical text to dedup", id1, id2)
	}
	if len(s.entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(s.entries))
	}
}

func TestRecallOrdersAllTokensMatchAboveNoMatch(t *testing.T) {
	s := newTestStore(t, 0)
	s.Remember("the quarterly report is due friday", nil)
	s.Remember("unrelated note about nothing relevant", nil)

	results := s.Recall("quarterly report friday", 5)
	if len(results) == 0 {
		t.Fatal("expected at least one match")
	}
	if results[0].Text != "the quarterly report is due friday" {
		t.Fatalf("top result = %q, want the all-tokens-match entry first", results[0].Text)
	}
}

func TestEvictDropsOldest(t *testing.T) {
	s := newTestStore(t, 2)
	s.Remember("one", nil)
	s.Remember("two", nil)
	s.Remember("three", nil)
	if len(s.entries) != 2 {
		t.Fatalf("entries = %d, want 2 after eviction", len(s.entries))
	}
	if s.entries[0].Text == "one" {
		t.Fatal("expected the oldest entry to have been evicted")
	}
}

func TestReopenAfterEvictionDoesNotReuseIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.jsonl")
	s, err := Open(path, 2)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := s.Remember("a", nil); err != nil {
		t.Fatalf("Remember: %v", err)
	}
	if _, err := s.Remember("b", nil); err != nil {
		t.Fatalf("Remember: %v", err)
	}
	idC, err := s.Remember("c", nil)
	if err != nil {
		t.Fatalf("Remember: %v", err)
	}
	// maxCount=2 evicts "a" (mem-1), leaving mem-2 ("b") and mem-3 ("c") on disk.

	reopened, err := Open(path, 2)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	idD, err := reopened.Remember("d", nil)
	if err != nil {
		t.Fatalf("Remember after reopen: %v", err)
	}

	if idD == idC {
		t.Fatalf("reopened store reissued %s, want a fresh id distinct from the still-live entry", idD)
	}
	for _, e := range reopened.entries {
		if e.ID == idD && e.Text != "d" {
			t.Fatalf("id %s collides between %q and %q", idD, e.Text, "d")
		}
	}
}
