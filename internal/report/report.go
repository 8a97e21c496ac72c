// Package report derives attendance views from the ledger: daily listings,
// monthly presence counts, late arrivals, and CSV export.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/ledger"
)

// Record is one attendance entry on one day.
type Record struct {
	Date     string `json:"date"`
	Identity string `json:"identity"`
	Time     string `json:"time"`
}

// DaySummary lists everybody recorded on a single day, sorted by arrival
// time, then identity for equal times.
type DaySummary struct {
	Date    string   `json:"date"`
	Records []Record `json:"records"`
}

// MonthEntry counts how many days an identity was present during a month.
type MonthEntry struct {
	Identity string `json:"identity"`
	Days     int    `json:"days"`
}

// MonthSummary aggregates presence over a calendar month.
type MonthSummary struct {
	Month   string       `json:"month"`
	Entries []MonthEntry `json:"entries"`
}

// LateSummary lists arrivals after the workday start plus the grace period.
// Arriving exactly at the cutoff still counts as on time.
type LateSummary struct {
	Date    string   `json:"date"`
	Cutoff  string   `json:"cutoff"`
	Records []Record `json:"records"`
}

// Day builds the attendance listing for a single date.
func Day(l *ledger.Ledger, date string) (DaySummary, error) {
	if _, err := time.Parse(constants.DateFormat, date); err != nil {
		return DaySummary{}, fmt.Errorf("invalid date %q: %w", date, err)
	}

	records, err := l.RecordsFor(date)
	if err != nil {
		return DaySummary{}, err
	}

	summary := DaySummary{Date: date, Records: make([]Record, 0, len(records))}
	for identity, ts := range records {
		summary.Records = append(summary.Records, Record{Date: date, Identity: identity, Time: ts})
	}
	sortRecords(summary.Records)
	return summary, nil
}

// Month counts present days per identity for a month in "2006-01" form.
func Month(l *ledger.Ledger, month string) (MonthSummary, error) {
	if _, err := time.Parse(constants.MonthFormat, month); err != nil {
		return MonthSummary{}, fmt.Errorf("invalid month %q: %w", month, err)
	}

	snap, err := l.Snapshot()
	if err != nil {
		return MonthSummary{}, err
	}

	counts := map[string]int{}
	for date, records := range snap {
		if !strings.HasPrefix(date, month+"-") {
			continue
		}
		for identity := range records {
			counts[identity]++
		}
	}

	summary := MonthSummary{Month: month, Entries: make([]MonthEntry, 0, len(counts))}
	for identity, days := range counts {
		summary.Entries = append(summary.Entries, MonthEntry{Identity: identity, Days: days})
	}
	sort.Slice(summary.Entries, func(i, j int) bool {
		if summary.Entries[i].Days != summary.Entries[j].Days {
			return summary.Entries[i].Days > summary.Entries[j].Days
		}
		return summary.Entries[i].Identity < summary.Entries[j].Identity
	})
	return summary, nil
}

// Late lists arrivals recorded after start plus grace on the given date.
// Start is "HH:MM"; grace is in minutes.
func Late(l *ledger.Ledger, date, start string, graceMinutes int) (LateSummary, error) {
	if _, err := time.Parse(constants.DateFormat, date); err != nil {
		return LateSummary{}, fmt.Errorf("invalid date %q: %w", date, err)
	}
	startTime, err := time.Parse("15:04", start)
	if err != nil {
		return LateSummary{}, fmt.Errorf("invalid workday start %q: %w", start, err)
	}
	if graceMinutes < 0 {
		return LateSummary{}, fmt.Errorf("grace minutes must not be negative, got %d", graceMinutes)
	}

	cutoff := startTime.Add(time.Duration(graceMinutes) * time.Minute)

	records, err := l.RecordsFor(date)
	if err != nil {
		return LateSummary{}, err
	}

	summary := LateSummary{Date: date, Cutoff: cutoff.Format(constants.TimeFormat)}
	for identity, ts := range records {
		arrival, err := time.Parse(constants.TimeFormat, ts)
		if err != nil {
			return LateSummary{}, fmt.Errorf("malformed time %q for %q: %w", ts, identity, err)
		}
		if arrival.After(cutoff) {
			summary.Records = append(summary.Records, Record{Date: date, Identity: identity, Time: ts})
		}
	}
	sortRecords(summary.Records)
	return summary, nil
}

// WriteCSV streams the whole ledger as CSV with a header row, ordered by
// date, then time, then identity.
func WriteCSV(w io.Writer, l *ledger.Ledger) error {
	snap, err := l.Snapshot()
	if err != nil {
		return err
	}

	var records []Record
	for date, names := range snap {
		for identity, ts := range names {
			records = append(records, Record{Date: date, Identity: identity, Time: ts})
		}
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].Date != records[j].Date {
			return records[i].Date < records[j].Date
		}
		if records[i].Time != records[j].Time {
			return records[i].Time < records[j].Time
		}
		return records[i].Identity < records[j].Identity
	})

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "identity", "time"}); err != nil {
		return fmt.Errorf("could not write csv header: %w", err)
	}
	for _, r := range records {
		if err := cw.Write([]string{r.Date, r.Identity, r.Time}); err != nil {
			return fmt.Errorf("could not write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func sortRecords(records []Record) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].Time != records[j].Time {
			return records[i].Time < records[j].Time
		}
		return records[i].Identity < records[j].Identity
	})
}
