package history

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"mcs-forecast/internal/simulation"
)

const dateLayout = "2006-01-02"

// CSVOptions describes a throughput CSV file.
type CSVOptions struct {
	Delimiter   rune
	DateColumn  string
	DateFormat  string
	ItemsColumn string
}

// DefaultCSVOptions matches the files written by WriteThroughputCSV.
func DefaultCSVOptions() CSVOptions {
	return CSVOptions{
		Delimiter:   ';',
		DateColumn:  "Done Date",
		DateFormat:  dateLayout,
		ItemsColumn: "Points",
	}
}

func (o CSVOptions) withDefaults() CSVOptions {
	d := DefaultCSVOptions()
	if o.Delimiter == 0 {
		o.Delimiter = d.Delimiter
	}
	if o.DateColumn == "" {
		o.DateColumn = d.DateColumn
	}
	if o.DateFormat == "" {
		o.DateFormat = d.DateFormat
	}
	if o.ItemsColumn == "" {
		o.ItemsColumn = d.ItemsColumn
	}
	return o
}

// ReadThroughputCSV reads (date, items) records from a delimited file with a
// header row. Fractional item counts are rounded; empty cells count as zero.
func ReadThroughputCSV(r io.Reader, opts CSVOptions) ([]simulation.Record, error) {
	opts = opts.withDefaults()

	reader := csv.NewReader(r)
	reader.Comma = opts.Delimiter
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	dateIdx, itemsIdx := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")) {
		case opts.DateColumn:
			dateIdx = i
		case opts.ItemsColumn:
			itemsIdx = i
		}
	}
	if dateIdx < 0 {
		return nil, fmt.Errorf("date column %q not found in CSV header", opts.DateColumn)
	}
	if itemsIdx < 0 {
		return nil, fmt.Errorf("items column %q not found in CSV header", opts.ItemsColumn)
	}

	var records []simulation.Record
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV line %d: %w", line, err)
		}

		date, err := time.Parse(opts.DateFormat, strings.TrimSpace(row[dateIdx]))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: bad date %q", simulation.ErrInvalidRecord, line, row[dateIdx])
		}

		items := 0
		if cell := strings.TrimSpace(row[itemsIdx]); cell != "" {
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: bad item count %q", simulation.ErrInvalidRecord, line, cell)
			}
			items = int(math.Round(v))
		}

		records = append(records, simulation.Record{Date: date, Items: items})
	}
	return records, nil
}

// WriteItemsCSV writes completed items as a semicolon-separated table.
func WriteItemsCSV(w io.Writer, items []CompletedItem) error {
	writer := csv.NewWriter(w)
	writer.Comma = ';'

	if err := writer.Write([]string{"Issue Key", "Done Date", "Issue Type", "Story Points", "Duration", "Start", "Done", "Summary"}); err != nil {
		return err
	}
	for _, item := range items {
		if err := writer.Write([]string{
			item.Key,
			item.Done.Format(dateLayout),
			item.Type,
			strconv.FormatFloat(item.StoryPoints, 'f', -1, 64),
			strconv.FormatFloat(item.DurationDays, 'f', 3, 64),
			item.Start.Format("2006-01-02T15:04:05"),
			item.Done.Format("2006-01-02T15:04:05"),
			item.Summary,
		}); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteThroughputCSV writes throughput rows in the layout ReadThroughputCSV
// reads by default.
func WriteThroughputCSV(w io.Writer, rows []ThroughputRow) error {
	writer := csv.NewWriter(w)
	writer.Comma = ';'

	if err := writer.Write([]string{"Done Date", "Points", "Tickets"}); err != nil {
		return err
	}
	for _, row := range rows {
		if err := writer.Write([]string{
			row.Date.Format(dateLayout),
			strconv.FormatFloat(row.Points, 'f', -1, 64),
			strconv.Itoa(row.Tickets),
		}); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}
