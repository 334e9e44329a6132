package simulation

import (
	"maps"
	"slices"
)

// Bucket is one distinct trial outcome and how many trials landed on it.
type Bucket struct {
	Outcome int `json:"outcome"`
	Trials  int `json:"trials"`
}

// FrequencyTable counts how many trials produced each outcome.
// Outcomes are item totals for "how many" runs and day counts for "when" runs.
type FrequencyTable struct {
	counts map[int]int
	trials int
}

// NewFrequencyTable returns an empty table.
func NewFrequencyTable() *FrequencyTable {
	return &FrequencyTable{counts: make(map[int]int)}
}

// Add records one trial outcome.
func (t *FrequencyTable) Add(outcome int) {
	t.counts[outcome]++
	t.trials++
}

// Merge adds every count of other into t.
func (t *FrequencyTable) Merge(other *FrequencyTable) {
	for outcome, n := range other.counts {
		t.counts[outcome] += n
	}
	t.trials += other.trials
}

// Count returns the number of trials that produced outcome.
func (t *FrequencyTable) Count(outcome int) int {
	return t.counts[outcome]
}

// Trials returns the total number of recorded trials.
func (t *FrequencyTable) Trials() int {
	return t.trials
}

// Outcomes returns the distinct outcomes in ascending order.
func (t *FrequencyTable) Outcomes() []int {
	return slices.Sorted(maps.Keys(t.counts))
}

// Buckets returns the table sorted by outcome, descending when desc is set.
func (t *FrequencyTable) Buckets(desc bool) []Bucket {
	outcomes := t.Outcomes()
	if desc {
		slices.Reverse(outcomes)
	}
	buckets := make([]Bucket, len(outcomes))
	for i, o := range outcomes {
		buckets[i] = Bucket{Outcome: o, Trials: t.counts[o]}
	}
	return buckets
}
