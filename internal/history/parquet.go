package history

import (
	"fmt"
	"os"
	"time"

	"github.com/parquet-go/parquet-go"
)

// ItemRecord is the columnar form of a CompletedItem.
type ItemRecord struct {
	Key          string    `parquet:"key,snappy"`
	Type         string    `parquet:"type,snappy,dict"`
	Summary      string    `parquet:"summary,snappy"`
	StoryPoints  float64   `parquet:"story_points,snappy"`
	Start        time.Time `parquet:"start,snappy"`
	Done         time.Time `parquet:"done,snappy"`
	DurationDays float64   `parquet:"duration_days,snappy"`
}

// ConvertItems maps completed items to their columnar form.
func ConvertItems(items []CompletedItem) []ItemRecord {
	out := make([]ItemRecord, len(items))
	for i, item := range items {
		out[i] = ItemRecord(item)
	}
	return out
}

// WriteParquet writes completed items to a Parquet file.
func WriteParquet(outputPath string, items []CompletedItem) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := parquet.NewGenericWriter[ItemRecord](file)
	if _, err := writer.Write(ConvertItems(items)); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finish parquet file: %w", err)
	}
	return nil
}
