// Package memory implements the remember/recall/evict memory store: a
// JSONL-backed, deduplicating, recency-weighted note store.
package memory

import (
	"fmt"
	"log"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/localcmd/assistant/internal/jsonl"
)

// Entry is one remembered note.
type Entry struct {
	ID   string    `json:"id"`
	Ts   time.Time `json:"ts"`
	Text string    `json:"text"`
	Tags []string  `json:"tags,omitempty"`
}

// recencyHalfLife controls how fast the recency term decays; roughly a
// day old note has already lost half its recency bonus. The recency term
// stays in (0, 0.5] so it can reorder equally-matching candidates but
// never lift a weaker token match above a stronger one.
const recencyHalfLife = 24 * time.Hour

// Store is a mutex-guarded, fully in-memory-cached JSONL store: every
// mutation rewrites/append to disk and updates the cache under the same
// lock, so reads never need to touch the filesystem.
type Store struct {
	mu       sync.Mutex
	path     string
	entries  []Entry
	maxCount int
	nextSeq  uint64
}

// Open loads path (if it exists) and returns a ready Store. maxCount is
// the maxMemoryEntries limit; evict is applied after every Remember.
// nextSeq is seeded from the highest sequence number ever issued, not the
// post-eviction entry count: eviction physically drops old entries, so
// deriving nextSeq from len(entries) would reissue an id already used by a
// still-live entry once a restart follows an eviction. Mirrors
// internal/tasks.Open's max(existing ids)+1 pattern.
func Open(path string, maxCount int) (*Store, error) {
	raw, err := jsonl.ReadAll(path, jsonl.DecodeLine[Entry], nil)
	if err != nil {
		return nil, fmt.Errorf("memory: load %s: %w", path, err)
	}
	entries := make([]Entry, 0, len(raw))
	var maxSeq uint64
	for _, r := range raw {
		if e, ok := r.(*Entry); ok {
			entries = append(entries, *e)
			if seq := parseSeq(e.ID); seq > maxSeq {
				maxSeq = seq
			}
		}
	}
	return &Store{path: path, entries: entries, maxCount: maxCount, nextSeq: maxSeq}, nil
}

// parseSeq extracts the numeric sequence from an id of the form "mem-N",
// returning 0 for anything that doesn't parse. Such an id simply does not
// contribute to the seed for nextSeq; nextID does not check the ids it
// generates against existing entries.
func parseSeq(id string) uint64 {
	n, err := strconv.ParseUint(strings.TrimPrefix(id, "mem-"), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// Remember stores text with optional tags and returns its id. If an
// existing entry has identical text, its id is returned unchanged and
// nothing is appended — remembering the same fact twice is a no-op, not
// a duplicate.
func (s *Store) Remember(text string, tags []string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		if e.Text == text {
			return e.ID, nil
		}
	}

	id := s.nextID()
	entry := Entry{ID: id, Ts: time.Now(), Text: text, Tags: tags}
	if err := jsonl.Append(s.path, entry); err != nil {
		return "", fmt.Errorf("memory: append: %w", err)
	}
	s.entries = append(s.entries, entry)
	log.Printf("[Memory] remembered %s: %q", id, truncate(text, 60))

	if s.maxCount > 0 && len(s.entries) > s.maxCount {
		if err := s.evictLocked(); err != nil {
			return id, fmt.Errorf("memory: evict after remember: %w", err)
		}
	}
	return id, nil
}

func (s *Store) nextID() string {
	s.nextSeq++
	return "mem-" + strconv.FormatUint(s.nextSeq, 10)
}

// Recall returns up to limit entries ranked by token overlap with query
// plus a recency bonus, ties broken by timestamp descending.
func (s *Store) Recall(query string, limit int) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	qTokens := tokenize(query)
	if len(qTokens) == 0 || len(s.entries) == 0 {
		return nil
	}
	now := time.Now()

	type scored struct {
		entry Entry
		score float64
	}
	scoredEntries := make([]scored, 0, len(s.entries))
	for _, e := range s.entries {
		tf := termFrequency(qTokens, tokenize(e.Text))
		if tf == 0 {
			continue
		}
		age := now.Sub(e.Ts)
		recency := math.Exp(-float64(age) / float64(recencyHalfLife) * math.Ln2)
		scoredEntries = append(scoredEntries, scored{entry: e, score: float64(tf) + 0.5*recency})
	}

	sort.SliceStable(scoredEntries, func(i, j int) bool {
		if scoredEntries[i].score != scoredEntries[j].score {
			return scoredEntries[i].score > scoredEntries[j].score
		}
		return scoredEntries[i].entry.Ts.After(scoredEntries[j].entry.Ts)
	})

	if limit <= 0 || limit > len(scoredEntries) {
		limit = len(scoredEntries)
	}
	out := make([]Entry, limit)
	for i := 0; i < limit; i++ {
		out[i] = scoredEntries[i].entry
	}
	return out
}

// evictLocked drops the oldest entries until len(entries) <= maxCount,
// rewriting the file atomically. Caller must hold s.mu.
func (s *Store) evictLocked() error {
	sort.SliceStable(s.entries, func(i, j int) bool { return s.entries[i].Ts.Before(s.entries[j].Ts) })
	drop := len(s.entries) - s.maxCount
	s.entries = s.entries[drop:]

	records := make([]any, len(s.entries))
	for i, e := range s.entries {
		records[i] = e
	}
	if err := jsonl.RewriteAtomic(s.path, records); err != nil {
		return err
	}
	log.Printf("[Memory] evicted %d oldest entries, %d remain", drop, len(s.entries))
	return nil
}

// termFrequency counts how many query tokens appear in candidate tokens,
// weighted by repetition in the candidate.
func termFrequency(query, candidate []string) int {
	counts := make(map[string]int, len(candidate))
	for _, t := range candidate {
		counts[t]++
	}
	total := 0
	seen := make(map[string]bool, len(query))
	for _, t := range query {
		if seen[t] {
			continue
		}
		seen[t] = true
		total += counts[t]
	}
	return total
}

// tokenize lowercases and strips ASCII punctuation, splitting on
// whitespace.
func tokenize(s string) []string {
	lower := strings.ToLower(s)
	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		if unicode.IsPunct(r) && r < unicode.MaxASCII {
			b.WriteRune(' ')
			continue
		}
		b.WriteRune(r)
	}
	return strings.Fields(b.String())
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
