package history

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"mcs-forecast/internal/simulation"
)

// Metric selects which throughput column feeds the simulation.
type Metric string

const (
	MetricPoints  Metric = "points"
	MetricTickets Metric = "tickets"
)

// ParseMetric accepts "points" or "tickets", case-insensitively.
func ParseMetric(s string) (Metric, error) {
	switch m := Metric(strings.ToLower(strings.TrimSpace(s))); m {
	case MetricPoints, MetricTickets:
		return m, nil
	default:
		return "", fmt.Errorf("unknown throughput metric %q (want points or tickets)", s)
	}
}

// ThroughputRow aggregates the items finished on one day (or bucket).
type ThroughputRow struct {
	Date    time.Time `json:"date"`
	Points  float64   `json:"points"`
	Tickets int       `json:"tickets"`
}

// DailyThroughput aggregates items by done day. Points sum the story points of
// Story and Task items; Tickets count Story, Task and Improvement items. Items whose
// type is in exclude are skipped. Only days with at least one item appear.
func DailyThroughput(items []CompletedItem, exclude ...string) []ThroughputRow {
	byDay := make(map[time.Time]*ThroughputRow)
	for _, item := range items {
		if slices.ContainsFunc(exclude, func(t string) bool { return strings.EqualFold(t, item.Type) }) {
			continue
		}
		day := simulation.Day(item.Done)
		row, ok := byDay[day]
		if !ok {
			row = &ThroughputRow{Date: day}
			byDay[day] = row
		}
		if item.CountsPoints() {
			row.Points += item.StoryPoints
		}
		if item.IsTicket() {
			row.Tickets++
		}
	}

	rows := make([]ThroughputRow, 0, len(byDay))
	for _, row := range byDay {
		rows = append(rows, *row)
	}
	slices.SortFunc(rows, func(a, b ThroughputRow) int { return a.Date.Compare(b.Date) })
	return rows
}

// Records converts throughput rows into simulation input. Points are rounded
// to whole items.
func Records(rows []ThroughputRow, metric Metric) []simulation.Record {
	records := make([]simulation.Record, 0, len(rows))
	for _, row := range rows {
		items := row.Tickets
		if metric == MetricPoints {
			items = int(math.Round(row.Points))
		}
		records = append(records, simulation.Record{Date: row.Date, Items: items})
	}
	return records
}

// Resample sums daily rows into "week", "2week" or "month" buckets, labelled
// by bucket start. Weeks start on Monday; fortnights are anchored at the week
// of the first row. Empty buckets between rows are kept as zero rows.
func Resample(rows []ThroughputRow, bucket string) ([]ThroughputRow, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	var step func(time.Time) time.Time
	switch bucket {
	case "week":
		step = func(t time.Time) time.Time { return t.AddDate(0, 0, 7) }
	case "2week":
		step = func(t time.Time) time.Time { return t.AddDate(0, 0, 14) }
	case "month":
		step = func(t time.Time) time.Time { return t.AddDate(0, 1, 0) }
	default:
		return nil, fmt.Errorf("unknown bucket %q (want week, 2week or month)", bucket)
	}

	sorted := slices.Clone(rows)
	slices.SortFunc(sorted, func(a, b ThroughputRow) int { return a.Date.Compare(b.Date) })

	start := snapToStart(sorted[0].Date, bucket)
	out := []ThroughputRow{{Date: start}}
	next := step(start)

	for _, row := range sorted {
		for !row.Date.Before(next) {
			out = append(out, ThroughputRow{Date: next})
			next = step(next)
		}
		cur := &out[len(out)-1]
		cur.Points += row.Points
		cur.Tickets += row.Tickets
	}
	return out, nil
}

// snapToStart normalizes a timestamp to the beginning of its bucket.
func snapToStart(t time.Time, bucket string) time.Time {
	switch bucket {
	case "month":
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	case "week", "2week":
		// Snap to Monday
		weekday := int(t.Weekday())
		if weekday == 0 {
			weekday = 7 // Sunday -> 7
		}
		return time.Date(t.Year(), t.Month(), t.Day()-(weekday-1), 0, 0, 0, 0, time.UTC)
	default:
		return simulation.Day(t)
	}
}

// MeanDurations returns the mean cycle time in days per issue type.
func MeanDurations(items []CompletedItem) map[string]float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, item := range items {
		sums[item.Type] += item.DurationDays
		counts[item.Type]++
	}

	means := make(map[string]float64, len(sums))
	for t, sum := range sums {
		means[t] = round3(sum / float64(counts[t]))
	}
	return means
}
