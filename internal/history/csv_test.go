package history

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcs-forecast/internal/simulation"
)

func TestReadThroughputCSV_Defaults(t *testing.T) {
	in := "Done Date;Points;Tickets\n2024-05-01;3.0;2\n2024-05-02;;1\n2024-05-03;2.6;1\n"

	records, err := ReadThroughputCSV(strings.NewReader(in), CSVOptions{})
	require.NoError(t, err)
	assert.Equal(t, []simulation.Record{
		{Date: day("2024-05-01"), Items: 3},
		{Date: day("2024-05-02"), Items: 0},
		{Date: day("2024-05-03"), Items: 3},
	}, records)
}

func TestReadThroughputCSV_CustomColumns(t *testing.T) {
	in := "closed,count\n01.05.2024,4\n02.05.2024,1\n"

	records, err := ReadThroughputCSV(strings.NewReader(in), CSVOptions{
		Delimiter:   ',',
		DateColumn:  "closed",
		DateFormat:  "02.01.2006",
		ItemsColumn: "count",
	})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, day("2024-05-02"), records[1].Date)
	assert.Equal(t, 1, records[1].Items)
}

func TestReadThroughputCSV_Errors(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		isRecord  bool
		errSubstr string
	}{
		{"missing date column", "Day;Points\n", false, "date column"},
		{"missing items column", "Done Date;Tickets\n", false, "items column"},
		{"bad date", "Done Date;Points\n2024/05/01;1\n", true, "line 2"},
		{"bad count", "Done Date;Points\n2024-05-01;many\n", true, "bad item count"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadThroughputCSV(strings.NewReader(tt.in), CSVOptions{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
			assert.Equal(t, tt.isRecord, errors.Is(err, simulation.ErrInvalidRecord))
		})
	}

	records, err := ReadThroughputCSV(strings.NewReader(""), CSVOptions{})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestWriteThroughputCSV_ReadBack(t *testing.T) {
	rows := DailyThroughput(sampleItems())

	var buf bytes.Buffer
	require.NoError(t, WriteThroughputCSV(&buf, rows))
	assert.True(t, strings.HasPrefix(buf.String(), "Done Date;Points;Tickets\n2024-01-01;5;2\n"))

	records, err := ReadThroughputCSV(&buf, CSVOptions{ItemsColumn: "Tickets"})
	require.NoError(t, err)
	assert.Equal(t, Records(rows, MetricTickets), records)
}

func TestWriteItemsCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteItemsCSV(&buf, []CompletedItem{item("A-1", "Story", 3, "2024-01-02")}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Issue Key;Done Date;Issue Type;Story Points;Duration;Start;Done;Summary", lines[0])
	assert.Equal(t, "A-1;2024-01-02;Story;3;1.500;2024-01-01T03:00:00;2024-01-02T15:00:00;summary A-1", lines[1])
}
