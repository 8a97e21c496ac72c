// Package ledger maintains the durable, date-partitioned attendance record.
// The persisted form is a single JSON snapshot keyed by ISO calendar date,
// each value a mapping from identity to a time-of-day string. At most one
// record exists per (date, identity); a later successful verification the same
// day overwrites the earlier time.
package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/renameio"
	"github.com/kozaktomas/face-attendance/internal/constants"
)

// ErrCorrupt is returned when the snapshot file exists but cannot be parsed.
// An unreadable store must never be silently reset to empty; that would
// destroy attendance history.
var ErrCorrupt = errors.New("attendance store is corrupt")

// ErrWrite is returned when persisting the snapshot fails.
var ErrWrite = errors.New("attendance store write failed")

// snapshot is the persisted document: date -> identity -> "HH:MM:SS".
type snapshot map[string]map[string]string

// Ledger owns all read-modify-write access to the snapshot file. Every
// operation is serialized by the internal mutex, so concurrent verification
// sessions cannot race on the store.
type Ledger struct {
	mu   sync.Mutex
	path string
}

// Open binds a ledger to a snapshot path. The file does not have to exist yet;
// the first Record creates it.
func Open(path string) *Ledger {
	return &Ledger{path: path}
}

// Path returns the snapshot file path.
func (l *Ledger) Path() string {
	return l.path
}

// load reads the snapshot from disk. An absent file yields an empty snapshot;
// an unparsable one yields ErrCorrupt. Callers must hold the mutex.
func (l *Ledger) load() (snapshot, error) {
	data, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		return snapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrCorrupt, l.path, err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrCorrupt, l.path, err)
	}

	for date, records := range snap {
		if _, err := time.Parse(constants.DateFormat, date); err != nil {
			return nil, fmt.Errorf("%w: invalid date key %q in %s", ErrCorrupt, date, l.path)
		}
		for identity, tod := range records {
			if _, err := time.Parse(constants.TimeFormat, tod); err != nil {
				return nil, fmt.Errorf("%w: invalid time %q for %s on %s", ErrCorrupt, tod, identity, date)
			}
		}
	}
	return snap, nil
}

// save atomically replaces the snapshot file. The write goes to a temporary
// file first and is swapped in with a rename, so a crash mid-write can never
// leave a half-written store behind. Callers must hold the mutex.
func (l *Ledger) save(snap snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encoding snapshot: %v", ErrWrite, err)
	}
	if err := renameio.WriteFile(l.path, data, 0o644); err != nil {
		return fmt.Errorf("%w: writing %s: %v", ErrWrite, l.path, err)
	}
	return nil
}

// Record inserts or overwrites the attendance record for (date of ts,
// identity) with the time component of ts. Last successful verification of
// the day wins.
func (l *Ledger) Record(identity string, ts time.Time) error {
	if identity == "" {
		return errors.New("identity is required")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	snap, err := l.load()
	if err != nil {
		return err
	}

	date := ts.Format(constants.DateFormat)
	if snap[date] == nil {
		snap[date] = make(map[string]string)
	}
	snap[date][identity] = ts.Format(constants.TimeFormat)

	return l.save(snap)
}

// RecordsFor returns the identity -> time mapping for one date. The returned
// map is a copy; mutating it does not touch the store.
func (l *Ledger) RecordsFor(date string) (map[string]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	snap, err := l.load()
	if err != nil {
		return nil, err
	}

	records := make(map[string]string, len(snap[date]))
	for identity, tod := range snap[date] {
		records[identity] = tod
	}
	return records, nil
}

// AllDates returns every date with at least one record, sorted ascending.
func (l *Ledger) AllDates() ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	snap, err := l.load()
	if err != nil {
		return nil, err
	}

	dates := make([]string, 0, len(snap))
	for date := range snap {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return dates, nil
}

// Snapshot returns a deep copy of the whole store for reporting.
func (l *Ledger) Snapshot() (map[string]map[string]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	snap, err := l.load()
	if err != nil {
		return nil, err
	}

	out := make(map[string]map[string]string, len(snap))
	for date, records := range snap {
		day := make(map[string]string, len(records))
		for identity, tod := range records {
			day[identity] = tod
		}
		out[date] = day
	}
	return out, nil
}
