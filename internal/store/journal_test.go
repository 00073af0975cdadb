package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func TestJournalRecordAndRecent(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Minute)
	entries := []Entry{
		{SessionID: "s1", Task: "first", Output: "a", Success: true, DurationMs: 10, CreatedAt: base},
		{SessionID: "s1", Task: "second", Output: "b", Success: false, ErrorKind: "timeout", DurationMs: 20, CreatedAt: base.Add(time.Second)},
		{SessionID: "s2", Task: "third", Output: "c", Success: true, DurationMs: 30, CreatedAt: base.Add(2 * time.Second)},
	}
	for _, e := range entries {
		if err := j.Record(ctx, e); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	got, err := j.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d entries", len(got))
	}
	// newest first
	if got[0].Task != "third" || got[2].Task != "first" {
		t.Errorf("order = %q, %q, %q", got[0].Task, got[1].Task, got[2].Task)
	}
	if got[1].Success || got[1].ErrorKind != "timeout" {
		t.Errorf("failed entry = %+v", got[1])
	}
	if got[0].CreatedAt.UnixMilli() != base.Add(2*time.Second).UnixMilli() {
		t.Errorf("created_at roundtrip: %v", got[0].CreatedAt)
	}
}

func TestJournalRecentLimit(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := j.Record(ctx, Entry{SessionID: "s", Task: "t", Output: "o", Success: true}); err != nil {
			t.Fatal(err)
		}
	}

	got, err := j.Recent(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("got %d entries, want limit 2", len(got))
	}

	// non-positive limit falls back to a default
	all, err := j.Recent(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 5 {
		t.Errorf("got %d entries with default limit", len(all))
	}
}

func TestJournalEmptyTimestampFilled(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	if err := j.Record(ctx, Entry{SessionID: "s", Task: "t", Output: "o", Success: true}); err != nil {
		t.Fatal(err)
	}
	got, err := j.Recent(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got[0].CreatedAt.IsZero() {
		t.Error("zero CreatedAt should have been filled at record time")
	}
}
