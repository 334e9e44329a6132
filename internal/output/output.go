// Package output renders forecasts and history summaries for humans and tools.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"gopkg.in/yaml.v3"

	"mcs-forecast/internal/forecast"
	"mcs-forecast/internal/history"
)

// Format is an output encoding.
type Format string

const (
	TextOut Format = "text"
	JSONOut Format = "json"
	YAMLOut Format = "yaml"
	CSVOut  Format = "csv"
)

// ParseFormat validates a user-supplied output format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case TextOut, JSONOut, YAMLOut, CSVOut:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, json, yaml or csv)", s)
	}
}

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	safeColor   = color.New(color.FgGreen)
	riskyColor  = color.New(color.FgYellow)
	poorColor   = color.New(color.FgRed, color.Bold)
)

// Write renders forecasts in the given format.
func Write(w io.Writer, format Format, forecasts ...*forecast.Forecast) error {
	switch format {
	case JSONOut:
		return writeJSON(w, unwrap(forecasts))
	case YAMLOut:
		return writeYAML(w, unwrap(forecasts))
	case CSVOut:
		return writeForecastCSV(w, forecasts)
	default:
		for i, f := range forecasts {
			if i > 0 {
				fmt.Fprintln(w)
			}
			if err := writeForecastText(w, f); err != nil {
				return err
			}
		}
		return nil
	}
}

// WriteSummary renders a history summary in the given format.
func WriteSummary(w io.Writer, format Format, s history.Summary) error {
	switch format {
	case JSONOut:
		return writeJSON(w, s)
	case YAMLOut:
		return writeYAML(w, s)
	case CSVOut:
		return writeSummaryCSV(w, s)
	default:
		return writeSummaryText(w, s)
	}
}

// unwrap keeps single results as an object rather than a one-element list.
func unwrap(forecasts []*forecast.Forecast) any {
	if len(forecasts) == 1 {
		return forecasts[0]
	}
	return forecasts
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func writeYAML(w io.Writer, v any) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(v); err != nil {
		return err
	}
	return encoder.Close()
}

func writeForecastText(w io.Writer, f *forecast.Forecast) error {
	headerColor.Fprintln(w, title(f))
	fmt.Fprintf(w, "History: %d days up to %s, %d trials\n", f.HistoryDays, f.Reference.Format("2006-01-02"), f.Trials)

	table := tablewriter.NewWriter(w)
	if f.Kind == forecast.KindWhen {
		table.Header([]string{"Confidence", "Days", "Date"})
	} else {
		table.Header([]string{"Confidence", "Items"})
	}
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	for _, p := range f.Percentiles {
		row := []string{fmt.Sprintf("%.0f%%", p.Level*100), strconv.Itoa(p.Value)}
		if f.Kind == forecast.KindWhen {
			date := "-"
			if p.Date != nil {
				date = p.Date.Format("2006-01-02")
			}
			row = append(row, date)
		}
		data = append(data, row)
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	if f.Likelihood != nil {
		fmt.Fprintf(w, "Likelihood of meeting the target: %s\n", likelihoodColor(*f.Likelihood).Sprintf("%.1f%%", *f.Likelihood))
	}
	return nil
}

func title(f *forecast.Forecast) string {
	if f.Kind == forecast.KindWhen {
		return fmt.Sprintf("When will %d items be done? (starting %s)", f.RemainingItems, f.StartDate.Format("2006-01-02"))
	}
	target := ""
	if f.TargetDate != nil {
		target = " by " + f.TargetDate.Format("2006-01-02")
	}
	return fmt.Sprintf("How many items will be done%s? (starting %s, %d days)", target, f.StartDate.Format("2006-01-02"), f.HorizonDays)
}

func likelihoodColor(pct float64) *color.Color {
	switch {
	case pct >= 85:
		return safeColor
	case pct >= 50:
		return riskyColor
	default:
		return poorColor
	}
}

func writeForecastCSV(w io.Writer, forecasts []*forecast.Forecast) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"id", "kind", "level", "value", "date", "likelihood"}); err != nil {
		return err
	}

	for _, f := range forecasts {
		likelihood := ""
		if f.Likelihood != nil {
			likelihood = strconv.FormatFloat(*f.Likelihood, 'f', 2, 64)
		}
		for _, p := range f.Percentiles {
			date := ""
			if p.Date != nil {
				date = p.Date.Format("2006-01-02")
			}
			if err := writer.Write([]string{
				f.ID,
				string(f.Kind),
				strconv.FormatFloat(p.Level, 'f', -1, 64),
				strconv.Itoa(p.Value),
				date,
				likelihood,
			}); err != nil {
				return err
			}
		}
	}

	writer.Flush()
	return writer.Error()
}

func writeSummaryText(w io.Writer, s history.Summary) error {
	headerColor.Fprintln(w, "Completed item history")
	if s.Items == 0 {
		fmt.Fprintln(w, "No completed items stored.")
		return nil
	}
	fmt.Fprintf(w, "%d items done between %s and %s (%.1f points, %d tickets)\n",
		s.Items, s.From.Format("2006-01-02"), s.To.Format("2006-01-02"), s.Points, s.Tickets)

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Type", "Items", "Mean Days"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	for _, t := range sortedTypes(s) {
		data = append(data, []string{t, strconv.Itoa(s.ByType[t]), fmt.Sprintf("%.3f", s.MeanDurations[t])})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func writeSummaryCSV(w io.Writer, s history.Summary) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"type", "items", "mean_days"}); err != nil {
		return err
	}
	for _, t := range sortedTypes(s) {
		if err := writer.Write([]string{t, strconv.Itoa(s.ByType[t]), strconv.FormatFloat(s.MeanDurations[t], 'f', 3, 64)}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func sortedTypes(s history.Summary) []string {
	types := make([]string, 0, len(s.ByType))
	for t := range s.ByType {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}
