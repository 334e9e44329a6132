package commands

import (
	"fmt"
	"io"
	"os"

	"mcs-forecast/internal/history"
	"mcs-forecast/internal/output"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect and maintain the local history store",
}

var historySummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Summarize the completed items in the store",
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		format, err := output.ParseFormat(viper.GetString("output"))
		if err != nil {
			return err
		}
		return output.WriteSummary(cmd.OutOrStdout(), format, history.Summarize(store.Items()))
	},
}

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the store as item CSV, throughput CSV or Parquet",
	Example: `  mcs-forecast history export --format throughput-csv > issue_throughput_60d.csv
  mcs-forecast history export --format throughput-csv --bucket week
  mcs-forecast history export --format parquet --output-file items.parquet`,
	RunE: runHistoryExport,
}

var historyRemoveCmd = &cobra.Command{
	Use:   "remove KEY...",
	Short: "Remove items from the store",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		n := store.Remove(args...)
		if n == 0 {
			cmd.Println("No matching items.")
			return nil
		}
		if err := store.Save(cfg.StorePath()); err != nil {
			return err
		}
		cmd.Printf("Removed %d items, %d left.\n", n, store.Len())
		return nil
	},
}

func init() {
	historyExportCmd.Flags().String("format", "items-csv", "Export format: items-csv, throughput-csv or parquet")
	historyExportCmd.Flags().String("bucket", "day", "Throughput bucket for throughput-csv: day, week, 2week or month")
	historyExportCmd.Flags().String("output-file", "", "Write to this file instead of stdout (required for parquet)")
}

func openStore() (*history.Store, error) {
	store := history.NewStore()
	if err := store.Load(cfg.StorePath()); err != nil {
		return nil, err
	}
	return store, nil
}

func runHistoryExport(cmd *cobra.Command, _ []string) error {
	format, _ := cmd.Flags().GetString("format")
	bucket, _ := cmd.Flags().GetString("bucket")
	path, _ := cmd.Flags().GetString("output-file")

	store, err := openStore()
	if err != nil {
		return err
	}
	items := store.Items()

	if format == "parquet" {
		if path == "" {
			return fmt.Errorf("--output-file is required for parquet")
		}
		if err := history.WriteParquet(path, items); err != nil {
			return err
		}
		log.Info().Str("path", path).Int("items", len(items)).Msg("Parquet export written")
		return nil
	}

	var write func(io.Writer) error
	switch format {
	case "items-csv":
		write = func(w io.Writer) error { return history.WriteItemsCSV(w, items) }
	case "throughput-csv":
		rows := history.DailyThroughput(items)
		if bucket != "day" {
			if rows, err = history.Resample(rows, bucket); err != nil {
				return err
			}
		}
		write = func(w io.Writer) error { return history.WriteThroughputCSV(w, rows) }
	default:
		return fmt.Errorf("unknown export format %q", format)
	}

	if path == "" {
		return write(cmd.OutOrStdout())
	}
	if err := writeFile(path, write); err != nil {
		return err
	}
	log.Info().Str("path", path).Int("items", len(items)).Str("format", format).Msg("Export written")
	return nil
}

// writeFile creates path and runs write against it. Errors from closing the
// file are reported like write errors.
func writeFile(path string, write func(io.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := write(file); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}
