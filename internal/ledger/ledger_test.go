package ledger

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func testLedger(t *testing.T) *Ledger {
	t.Helper()
	return Open(filepath.Join(t.TempDir(), "attendance.json"))
}

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse("2006-01-02 15:04:05", value)
	if err != nil {
		t.Fatalf("bad test time %q: %v", value, err)
	}
	return ts
}

func TestRecord_CreatesFile(t *testing.T) {
	l := testLedger(t)

	if err := l.Record("alice", mustTime(t, "2026-08-30 09:00:00")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	records, err := l.RecordsFor("2026-08-30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if records["alice"] != "09:00:00" {
		t.Errorf("expected alice at 09:00:00, got %q", records["alice"])
	}
}

func TestRecord_OverwritesSameDay(t *testing.T) {
	l := testLedger(t)

	if err := l.Record("alice", mustTime(t, "2026-08-30 09:00:00")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := l.Record("alice", mustTime(t, "2026-08-30 09:05:00")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	records, err := l.RecordsFor("2026-08-30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected exactly one record, got %d", len(records))
	}
	if records["alice"] != "09:05:00" {
		t.Errorf("last verification of the day must win, got %q", records["alice"])
	}
}

func TestRecord_DatePartitioning(t *testing.T) {
	l := testLedger(t)

	if err := l.Record("alice", mustTime(t, "2026-08-29 08:55:00")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := l.Record("alice", mustTime(t, "2026-08-30 09:10:00")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	first, err := l.RecordsFor("2026-08-29")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := l.RecordsFor("2026-08-30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first["alice"] != "08:55:00" {
		t.Errorf("first day record clobbered: %q", first["alice"])
	}
	if second["alice"] != "09:10:00" {
		t.Errorf("second day record wrong: %q", second["alice"])
	}
}

func TestRecord_EmptyIdentity(t *testing.T) {
	l := testLedger(t)
	if err := l.Record("", time.Now()); err == nil {
		t.Error("expected error for empty identity")
	}
}

func TestLoad_AbsentFileIsEmpty(t *testing.T) {
	l := testLedger(t)

	dates, err := l.AllDates()
	if err != nil {
		t.Fatalf("absent store must read as empty, got %v", err)
	}
	if len(dates) != 0 {
		t.Errorf("expected no dates, got %v", dates)
	}
}

func TestLoad_CorruptFile(t *testing.T) {
	l := testLedger(t)
	if err := os.WriteFile(l.Path(), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("failed to write corrupt store: %v", err)
	}

	_, err := l.AllDates()
	if !errors.Is(err, ErrCorrupt) {
		t.Errorf("expected ErrCorrupt, got %v", err)
	}
}

func TestLoad_InvalidDateKey(t *testing.T) {
	l := testLedger(t)
	if err := os.WriteFile(l.Path(), []byte(`{"not-a-date": {"alice": "09:00:00"}}`), 0o644); err != nil {
		t.Fatalf("failed to write store: %v", err)
	}

	_, err := l.AllDates()
	if !errors.Is(err, ErrCorrupt) {
		t.Errorf("expected ErrCorrupt for bad date key, got %v", err)
	}
}

func TestLoad_InvalidTimeValue(t *testing.T) {
	l := testLedger(t)
	if err := os.WriteFile(l.Path(), []byte(`{"2026-08-30": {"alice": "9am"}}`), 0o644); err != nil {
		t.Fatalf("failed to write store: %v", err)
	}

	_, err := l.RecordsFor("2026-08-30")
	if !errors.Is(err, ErrCorrupt) {
		t.Errorf("expected ErrCorrupt for bad time value, got %v", err)
	}
}

func TestRecord_CorruptStoreNotOverwritten(t *testing.T) {
	l := testLedger(t)
	corrupt := []byte("{definitely broken")
	if err := os.WriteFile(l.Path(), corrupt, 0o644); err != nil {
		t.Fatalf("failed to write corrupt store: %v", err)
	}

	err := l.Record("alice", mustTime(t, "2026-08-30 09:00:00"))
	if !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}

	// The broken file must be left in place for the operator, not replaced.
	data, err := os.ReadFile(l.Path())
	if err != nil {
		t.Fatalf("failed to re-read store: %v", err)
	}
	if string(data) != string(corrupt) {
		t.Error("corrupt store was overwritten")
	}
}

func TestRoundTrip(t *testing.T) {
	l := testLedger(t)
	if err := l.Record("alice", mustTime(t, "2026-08-30 09:00:00")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := l.Record("bob", mustTime(t, "2026-08-30 09:02:30")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := l.Record("alice", mustTime(t, "2026-08-31 08:58:00")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	before, err := l.Snapshot()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A no-op record pass (re-recording the same values) must leave the
	// semantic content identical.
	if err := l.Record("alice", mustTime(t, "2026-08-31 08:58:00")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	after, err := l.Snapshot()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	b1, _ := json.Marshal(before)
	b2, _ := json.Marshal(after)
	if string(b1) != string(b2) {
		t.Errorf("round trip changed content:\nbefore: %s\nafter:  %s", b1, b2)
	}
}

func TestAllDates_Sorted(t *testing.T) {
	l := testLedger(t)
	for _, day := range []string{"2026-08-31", "2026-08-29", "2026-08-30"} {
		if err := l.Record("alice", mustTime(t, day+" 09:00:00")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	dates, err := l.AllDates()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"2026-08-29", "2026-08-30", "2026-08-31"}
	if len(dates) != len(want) {
		t.Fatalf("expected %d dates, got %d", len(want), len(dates))
	}
	for i := range want {
		if dates[i] != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], dates[i])
		}
	}
}

func TestRecord_ConcurrentWriters(t *testing.T) {
	l := testLedger(t)
	ts := mustTime(t, "2026-08-30 09:00:00")

	var wg sync.WaitGroup
	identities := []string{"alice", "bob", "carol", "dan", "eve", "frank", "grace", "heidi"}
	for _, id := range identities {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if err := l.Record(id, ts); err != nil {
				t.Errorf("record %s: %v", id, err)
			}
		}(id)
	}
	wg.Wait()

	records, err := l.RecordsFor("2026-08-30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Serialized read-modify-write must not lose any identity.
	if len(records) != len(identities) {
		t.Errorf("expected %d records, got %d: %v", len(identities), len(records), records)
	}
}

func TestRecordsFor_ReturnsCopy(t *testing.T) {
	l := testLedger(t)
	if err := l.Record("alice", mustTime(t, "2026-08-30 09:00:00")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	records, err := l.RecordsFor("2026-08-30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	records["alice"] = "tampered"

	fresh, err := l.RecordsFor("2026-08-30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fresh["alice"] != "09:00:00" {
		t.Error("RecordsFor must return a copy of the stored records")
	}
}
