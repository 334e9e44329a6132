package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"mcs-forecast/internal/forecast"
	"mcs-forecast/internal/history"
	"mcs-forecast/internal/output"
	"mcs-forecast/internal/simulation"
	"mcs-forecast/internal/visuals"

	"github.com/pkg/browser"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var howManyCmd = &cobra.Command{
	Use:   "howmany",
	Short: "Forecast how many items will be done between two dates",
	Example: `  mcs-forecast howmany --file issue_throughput_60d.csv --start 2024-05-01 --target 2024-06-01
  mcs-forecast howmany --metric tickets --target 2024-06-30 --target-items 40 -o json`,
	RunE: runHowMany,
}

var whenCmd = &cobra.Command{
	Use:   "when",
	Short: "Forecast when a number of remaining items will be done",
	Example: `  mcs-forecast when --remaining 500 --file issue_throughput_60d.csv --start 2024-05-01
  mcs-forecast when --remaining 40 --metric tickets --target 2024-07-15 --chart --open`,
	RunE: runWhen,
}

func init() {
	for _, cmd := range []*cobra.Command{howManyCmd, whenCmd} {
		cmd.Flags().String("file", "", "Throughput CSV to read instead of the local history store")
		cmd.Flags().String("delimiter", ";", "CSV delimiter")
		cmd.Flags().String("date-column", "Done Date", "CSV column holding the completion date")
		cmd.Flags().String("date-format", "2006-01-02", "Go layout of the CSV date column")
		cmd.Flags().String("items-column", "Points", "CSV column holding the completed item count")
		cmd.Flags().String("metric", "points", "Store throughput to sample: points or tickets")
		cmd.Flags().String("start", "", "First forecast day (default today)")
		cmd.Flags().String("input-date-format", "2006-01-02", "Go layout of --start and --target")
		cmd.Flags().Bool("chart", false, "Write an HTML chart page to the charts directory")
		cmd.Flags().Bool("open", false, "Open the chart page in the browser (implies --chart)")
	}

	howManyCmd.Flags().String("target", "", "Last forecast day (required)")
	howManyCmd.Flags().Int("target-items", 0, "Report the likelihood of completing at least this many items")
	_ = howManyCmd.MarkFlagRequired("target")

	whenCmd.Flags().Int("remaining", 0, "Number of items still to be done (required)")
	whenCmd.Flags().String("target", "", "Report the likelihood of finishing by this day")
	_ = whenCmd.MarkFlagRequired("remaining")
}

func runHowMany(cmd *cobra.Command, _ []string) error {
	start, err := dateFlag(cmd, "start", time.Now())
	if err != nil {
		return err
	}
	target, err := dateFlag(cmd, "target", time.Time{})
	if err != nil {
		return err
	}
	targetItems, _ := cmd.Flags().GetInt("target-items")

	records, err := loadRecords(cmd)
	if err != nil {
		return err
	}
	svc, err := newService()
	if err != nil {
		return err
	}

	var opts []forecast.Option
	if targetItems > 0 {
		opts = append(opts, forecast.WithTargetItems(targetItems))
	}

	f, err := svc.HowMany(cmd.Context(), start, target, records, opts...)
	if err != nil {
		return err
	}
	return render(cmd, f)
}

func runWhen(cmd *cobra.Command, _ []string) error {
	remaining, _ := cmd.Flags().GetInt("remaining")
	start, err := dateFlag(cmd, "start", time.Now())
	if err != nil {
		return err
	}

	var target *time.Time
	if t, err := dateFlag(cmd, "target", time.Time{}); err != nil {
		return err
	} else if !t.IsZero() {
		target = &t
	}

	records, err := loadRecords(cmd)
	if err != nil {
		return err
	}
	svc, err := newService()
	if err != nil {
		return err
	}

	f, err := svc.When(cmd.Context(), remaining, records, start, target)
	if err != nil {
		return err
	}
	return render(cmd, f)
}

// dateFlag parses a date flag with --input-date-format; unset flags yield fallback.
func dateFlag(cmd *cobra.Command, name string, fallback time.Time) (time.Time, error) {
	raw, _ := cmd.Flags().GetString(name)
	if raw == "" {
		return fallback, nil
	}
	layout, _ := cmd.Flags().GetString("input-date-format")
	t, err := time.Parse(layout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s %q (layout %s): %w", name, raw, layout, err)
	}
	return t, nil
}

// loadRecords reads throughput from --file or from the local history store.
func loadRecords(cmd *cobra.Command) ([]simulation.Record, error) {
	if path, _ := cmd.Flags().GetString("file"); path != "" {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open throughput file: %w", err)
		}
		defer file.Close()

		delimiter, _ := cmd.Flags().GetString("delimiter")
		if len([]rune(delimiter)) != 1 {
			return nil, fmt.Errorf("--delimiter must be a single character")
		}
		opts := history.CSVOptions{Delimiter: []rune(delimiter)[0]}
		opts.DateColumn, _ = cmd.Flags().GetString("date-column")
		opts.DateFormat, _ = cmd.Flags().GetString("date-format")
		opts.ItemsColumn, _ = cmd.Flags().GetString("items-column")

		records, err := history.ReadThroughputCSV(file, opts)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		log.Info().Str("file", path).Int("records", len(records)).Msg("Loaded throughput file")
		return records, nil
	}

	raw, _ := cmd.Flags().GetString("metric")
	metric, err := history.ParseMetric(raw)
	if err != nil {
		return nil, err
	}

	store := history.NewStore()
	if err := store.Load(cfg.StorePath()); err != nil {
		return nil, err
	}
	items := store.Items()
	log.Info().Str("store", cfg.StorePath()).Int("items", len(items)).Str("metric", string(metric)).Msg("Using local history store")
	return history.Records(history.DailyThroughput(items), metric), nil
}

func newService() (*forecast.Service, error) {
	fc := cfg.Forecast
	sc := forecast.Config{
		HistoryDays: fc.HistoryDays,
		Trials:      fc.Trials,
		Workers:     fc.Workers,
		Percentiles: fc.Percentiles,
	}
	if seed := viper.GetUint64("seed"); seed != 0 {
		sc.Sources = simulation.SeededSources(seed)
	}
	return forecast.New(sc)
}

// render prints the forecast and writes the chart page when asked to.
func render(cmd *cobra.Command, f *forecast.Forecast) error {
	format, err := output.ParseFormat(viper.GetString("output"))
	if err != nil {
		return err
	}
	if err := output.Write(cmd.OutOrStdout(), format, f); err != nil {
		return err
	}

	chart, _ := cmd.Flags().GetBool("chart")
	open, _ := cmd.Flags().GetBool("open")
	if !chart && !open {
		return nil
	}

	path := filepath.Join(cfg.ChartsDir, fmt.Sprintf("%s-%s.html", f.Kind, f.ID[:8]))
	if err := visuals.WriteHTML(path, "Monte Carlo Forecast",
		visuals.ForecastChart(f, ""),
		visuals.ThroughputChart(f.Throughput),
	); err != nil {
		return err
	}
	log.Info().Str("path", path).Msg("Chart page written")

	if open {
		browser.Stdout = os.Stderr
		if err := browser.OpenFile(path); err != nil {
			log.Warn().Err(err).Msg("Failed to open browser")
		}
	}
	return nil
}
