package simulation

import (
	"fmt"
	"time"
)

// Record is a single historical observation: items completed on a date.
// Several records may share a date; they are summed.
type Record struct {
	Date  time.Time `json:"date"`
	Items int       `json:"items"`
}

// DailyCount is the number of items completed on one calendar day.
type DailyCount struct {
	Date  time.Time `json:"date"`
	Count int       `json:"count"`
}

// Window is a fixed-length daily throughput series ending at a reference date.
// Index 0 is the reference day, index i is i days earlier.
type Window struct {
	reference time.Time
	days      []DailyCount
	values    []int
}

// Day truncates t to its calendar day at UTC midnight.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole number of calendar days from start to end.
func DaysBetween(start, end time.Time) int {
	return int(Day(end).Sub(Day(start)).Hours() / 24)
}

// NewWindow buckets records into historyDays consecutive days ending at reference.
// Days without records are zero. Records outside the window are ignored.
func NewWindow(records []Record, historyDays int, reference time.Time) (*Window, error) {
	if historyDays <= 0 {
		return nil, fmt.Errorf("%w: history must be at least one day (got %d)", ErrInvalidConfig, historyDays)
	}

	ref := Day(reference)
	values := make([]int, historyDays)

	for _, r := range records {
		if r.Items < 0 {
			return nil, fmt.Errorf("%w: %d items on %s", ErrInvalidRecord, r.Items, r.Date.Format("2006-01-02"))
		}
		idx := DaysBetween(r.Date, ref)
		if idx >= 0 && idx < historyDays {
			values[idx] += r.Items
		}
	}

	days := make([]DailyCount, historyDays)
	for i, v := range values {
		days[i] = DailyCount{Date: ref.AddDate(0, 0, -i), Count: v}
	}

	return &Window{reference: ref, days: days, values: values}, nil
}

// Reference returns the newest day in the window.
func (w *Window) Reference() time.Time {
	return w.reference
}

// Days returns the window length.
func (w *Window) Days() int {
	return len(w.values)
}

// Values returns a copy of the daily counts, newest first.
func (w *Window) Values() []int {
	out := make([]int, len(w.values))
	copy(out, w.values)
	return out
}

// DailyCounts returns a copy of the dated series, newest first.
func (w *Window) DailyCounts() []DailyCount {
	out := make([]DailyCount, len(w.days))
	copy(out, w.days)
	return out
}

// Total returns the number of items completed across the window.
func (w *Window) Total() int {
	total := 0
	for _, v := range w.values {
		total += v
	}
	return total
}

// IsEmpty reports whether no day in the window has completed work.
func (w *Window) IsEmpty() bool {
	for _, v := range w.values {
		if v > 0 {
			return false
		}
	}
	return true
}
