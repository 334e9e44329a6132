package visuals

import (
	"fmt"
	"math"
	"strings"

	"mcs-forecast/internal/forecast"
	"mcs-forecast/internal/simulation"
)

// maxBars is where Mermaid's xychart starts overlapping its axis labels.
const maxBars = 60

// Chart is a rendered Mermaid diagram plus the legend lines shown under it.
type Chart struct {
	Title   string
	Mermaid string
	Legend  []string
}

// Markdown renders the chart as a fenced mermaid block followed by its legend.
func (c Chart) Markdown() string {
	if c.Mermaid == "" {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString(c.Mermaid)
	sb.WriteString("```")
	for _, l := range c.Legend {
		sb.WriteString("\n- " + l)
	}
	return sb.String()
}

// ForecastChart creates a Mermaid bar chart of the trial outcome distribution
// with one legend line per percentile.
func ForecastChart(f *forecast.Forecast, title string) Chart {
	if f == nil || len(f.Histogram) == 0 {
		return Chart{}
	}

	xLabel := "Items Done"
	if f.Kind == forecast.KindWhen {
		xLabel = "Days"
	}
	if title == "" {
		title = defaultTitle(f)
	}

	bins := binBuckets(f.Histogram)

	var labels []string
	var values []string
	maxVal := 0
	for _, b := range bins {
		labels = append(labels, fmt.Sprintf("\"%s\"", b.label))
		values = append(values, fmt.Sprintf("%d", b.trials))
		if b.trials > maxVal {
			maxVal = b.trials
		}
	}

	var sb strings.Builder
	sb.WriteString("xychart-beta\n")
	sb.WriteString(fmt.Sprintf("    title \"%s\"\n", escape(title)))
	sb.WriteString(fmt.Sprintf("    x-axis \"%s\" [%s]\n", xLabel, strings.Join(labels, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis \"Trials\" 0 --> %d\n", maxVal+int(math.Max(1, float64(maxVal)*0.1))))
	sb.WriteString(fmt.Sprintf("    bar [%s]\n", strings.Join(values, ", ")))

	return Chart{Title: title, Mermaid: sb.String(), Legend: legend(f)}
}

// ThroughputChart creates a Mermaid bar chart of the history window, oldest day first.
func ThroughputChart(days []simulation.DailyCount) Chart {
	if len(days) == 0 {
		return Chart{}
	}

	var labels []string
	var values []string
	maxVal := 0
	for i := len(days) - 1; i >= 0; i-- {
		d := days[i]
		labels = append(labels, fmt.Sprintf("\"%s\"", d.Date.Format("Jan02")))
		values = append(values, fmt.Sprintf("%d", d.Count))
		if d.Count > maxVal {
			maxVal = d.Count
		}
	}

	title := "Throughput Run Chart"
	var sb strings.Builder
	sb.WriteString("xychart-beta\n")
	sb.WriteString(fmt.Sprintf("    title \"%s\"\n", title))
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis \"Items Delivered\" 0 --> %d\n", maxVal+int(math.Max(1, float64(maxVal)*0.2))))
	sb.WriteString(fmt.Sprintf("    bar [%s]\n", strings.Join(values, ", ")))

	return Chart{Title: title, Mermaid: sb.String()}
}

func defaultTitle(f *forecast.Forecast) string {
	switch f.Kind {
	case forecast.KindWhen:
		return fmt.Sprintf("When will %d items be done? (last %d days)", f.RemainingItems, f.HistoryDays)
	default:
		target := ""
		if f.TargetDate != nil {
			target = " until " + f.TargetDate.Format("2006-01-02")
		}
		return fmt.Sprintf("How many items will be done%s? (last %d days)", target, f.HistoryDays)
	}
}

func legend(f *forecast.Forecast) []string {
	var lines []string
	for _, p := range f.Percentiles {
		switch {
		case p.Date != nil:
			lines = append(lines, fmt.Sprintf("%.0f%%: %d days -> %s", p.Level*100, p.Value, p.Date.Format("2006-01-02")))
		default:
			lines = append(lines, fmt.Sprintf("%.0f%%: %d items", p.Level*100, p.Value))
		}
	}
	if f.Likelihood != nil {
		lines = append(lines, fmt.Sprintf("Target likelihood: %.1f%%", *f.Likelihood))
	}
	return lines
}

type bin struct {
	label  string
	trials int
}

// binBuckets groups a histogram into at most maxBars equal-width bins.
func binBuckets(buckets []simulation.Bucket) []bin {
	lo := buckets[0].Outcome
	hi := buckets[len(buckets)-1].Outcome
	width := int(math.Ceil(float64(hi-lo+1) / maxBars))
	if width < 1 {
		width = 1
	}

	n := (hi-lo)/width + 1
	bins := make([]bin, n)
	for i := range bins {
		from := lo + i*width
		if width == 1 {
			bins[i].label = fmt.Sprintf("%d", from)
		} else {
			bins[i].label = fmt.Sprintf("%d-%d", from, from+width-1)
		}
	}
	for _, b := range buckets {
		bins[(b.Outcome-lo)/width].trials += b.Trials
	}
	return bins
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}
