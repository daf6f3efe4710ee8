package jsonl

import (
	"os"
	"path/filepath"
	"testing"
)

type rec struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

func TestAppendThenReadAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "records.jsonl")

	for i, text := range []string{"first", "second", "third"} {
		if err := Append(path, rec{ID: i + 1, Text: text}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, err := ReadAll(path, DecodeLine[rec], nil)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d records, want 3", len(got))
	}
	last := got[2].(*rec)
	if last.ID != 3 || last.Text != "third" {
		t.Errorf("unexpected last record: %+v", last)
	}
}

func TestReadAll_MissingFileIsEmpty(t *testing.T) {
	got, err := ReadAll(filepath.Join(t.TempDir(), "absent.jsonl"), DecodeLine[rec], nil)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d records from a missing file, want 0", len(got))
	}
}

func TestReadAll_SkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.jsonl")
	content := `{"id":1,"text":"ok"}
this is not json
{"id":2,"text":"also ok"}
{"id":3,"text":"truncat
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := ReadAll(path, DecodeLine[rec], nil)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2 (malformed lines skipped)", len(got))
	}
	if got[0].(*rec).ID != 1 || got[1].(*rec).ID != 2 {
		t.Errorf("unexpected records: %+v, %+v", got[0], got[1])
	}
}

func TestReadAll_PredicateFilters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.jsonl")
	for i := 1; i <= 4; i++ {
		if err := Append(path, rec{ID: i, Text: "x"}); err != nil {
			t.Fatal(err)
		}
	}

	got, err := ReadAll(path, DecodeLine[rec], func(line []byte) bool {
		return string(line) != `{"id":2,"text":"x"}`
	})
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d records, want 3", len(got))
	}
	for _, r := range got {
		if r.(*rec).ID == 2 {
			t.Error("predicate-excluded record was returned")
		}
	}
}

func TestRewriteAtomic_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.jsonl")
	for i := 1; i <= 5; i++ {
		if err := Append(path, rec{ID: i, Text: "old"}); err != nil {
			t.Fatal(err)
		}
	}

	want := []any{rec{ID: 10, Text: "new"}, rec{ID: 11, Text: "newer"}}
	if err := RewriteAtomic(path, want); err != nil {
		t.Fatalf("RewriteAtomic: %v", err)
	}

	got, err := ReadAll(path, DecodeLine[rec], nil)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d records after rewrite, want 2", len(got))
	}
	if got[0].(*rec).ID != 10 || got[1].(*rec).ID != 11 {
		t.Errorf("unexpected records after rewrite: %+v, %+v", got[0], got[1])
	}
}

func TestRewriteAtomic_EmptySetTruncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.jsonl")
	if err := Append(path, rec{ID: 1, Text: "x"}); err != nil {
		t.Fatal(err)
	}
	if err := RewriteAtomic(path, nil); err != nil {
		t.Fatalf("RewriteAtomic: %v", err)
	}
	got, err := ReadAll(path, DecodeLine[rec], nil)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d records after empty rewrite, want 0", len(got))
	}
}

func TestRewriteAtomic_LeavesNoTempFileBehind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "records.jsonl")
	if err := RewriteAtomic(path, []any{rec{ID: 1, Text: "x"}}); err != nil {
		t.Fatalf("RewriteAtomic: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if e.Name() != "records.jsonl" {
			t.Errorf("unexpected leftover file %q", e.Name())
		}
	}
}
