package history

import "time"

// Summary describes the stored history at a glance.
type Summary struct {
	Items         int                `json:"items" yaml:"items"`
	From          time.Time          `json:"from" yaml:"from"`
	To            time.Time          `json:"to" yaml:"to"`
	Points        float64            `json:"points" yaml:"points"`
	Tickets       int                `json:"tickets" yaml:"tickets"`
	ByType        map[string]int     `json:"by_type" yaml:"by_type"`
	MeanDurations map[string]float64 `json:"mean_durations" yaml:"mean_durations"`
}

// Summarize counts items per type and totals the throughput they represent.
func Summarize(items []CompletedItem) Summary {
	s := Summary{
		Items:         len(items),
		ByType:        make(map[string]int),
		MeanDurations: MeanDurations(items),
	}
	for i, item := range items {
		s.ByType[item.Type]++
		if i == 0 || item.Done.Before(s.From) {
			s.From = item.Done
		}
		if item.Done.After(s.To) {
			s.To = item.Done
		}
	}
	for _, row := range DailyThroughput(items) {
		s.Points += row.Points
		s.Tickets += row.Tickets
	}
	return s
}
