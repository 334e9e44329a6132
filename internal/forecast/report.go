package forecast

import (
	"time"

	"mcs-forecast/internal/simulation"
)

// Kind names the question a forecast answers.
type Kind string

const (
	// KindHowMany answers "how many items will be done by a date?".
	KindHowMany Kind = "how_many"
	// KindWhen answers "when will N items be done?".
	KindWhen Kind = "when"
)

// Percentile is one confidence level of a forecast.
// Value is an item count for how-many forecasts and a day count for when forecasts;
// Date is start + Value days and only set for when forecasts.
type Percentile struct {
	Level float64    `json:"level" yaml:"level"`
	Value int        `json:"value" yaml:"value"`
	Date  *time.Time `json:"date,omitempty" yaml:"date,omitempty"`
}

// Forecast is the immutable result of one simulation run.
type Forecast struct {
	ID             string       `json:"id" yaml:"id"`
	Kind           Kind         `json:"kind" yaml:"kind"`
	StartDate      time.Time    `json:"start_date" yaml:"start_date"`
	TargetDate     *time.Time   `json:"target_date,omitempty" yaml:"target_date,omitempty"`
	RemainingItems int          `json:"remaining_items,omitempty" yaml:"remaining_items,omitempty"`
	TargetItems    int          `json:"target_items,omitempty" yaml:"target_items,omitempty"`
	HorizonDays    int          `json:"horizon_days,omitempty" yaml:"horizon_days,omitempty"`
	Trials         int          `json:"trials" yaml:"trials"`
	HistoryDays    int          `json:"history_days" yaml:"history_days"`
	Reference      time.Time    `json:"reference" yaml:"reference"`
	Percentiles    []Percentile `json:"percentiles" yaml:"percentiles"`

	// Likelihood is the percentage (0-100) of trials meeting the target date
	// (when) or target item count (how many); nil when no target was given.
	Likelihood *float64 `json:"likelihood,omitempty" yaml:"likelihood,omitempty"`

	Histogram  []simulation.Bucket     `json:"histogram,omitempty" yaml:"histogram,omitempty"`
	Throughput []simulation.DailyCount `json:"throughput,omitempty" yaml:"throughput,omitempty"`
}

// At returns the percentile for level, if it was computed.
func (f *Forecast) At(level float64) (Percentile, bool) {
	for _, p := range f.Percentiles {
		if p.Level == level {
			return p, true
		}
	}
	return Percentile{}, false
}

// itemPercentiles reports how-many thresholds as item counts.
func itemPercentiles(th []simulation.Threshold) []Percentile {
	out := make([]Percentile, len(th))
	for i, t := range th {
		out[i] = Percentile{Level: t.Level, Value: t.Outcome}
	}
	return out
}

// datePercentiles maps when thresholds (day counts) onto calendar dates.
func datePercentiles(th []simulation.Threshold, start time.Time) []Percentile {
	out := make([]Percentile, len(th))
	for i, t := range th {
		d := start.AddDate(0, 0, t.Outcome)
		out[i] = Percentile{Level: t.Level, Value: t.Outcome, Date: &d}
	}
	return out
}
