package simulation

import "fmt"

// Direction tells the extractor which end of the distribution is the good one.
type Direction int

const (
	// HigherIsBetter reads outcomes from the largest down ("how many" items).
	HigherIsBetter Direction = iota
	// LowerIsBetter reads outcomes from the smallest up ("when", in days).
	LowerIsBetter
)

// DefaultPercentiles are the confidence levels reported when none are configured.
var DefaultPercentiles = []float64{0.50, 0.70, 0.85, 0.95}

// levelEpsilon absorbs float error in p × trials, e.g. 0.7 × 100.
const levelEpsilon = 1e-9

// Threshold is the outcome reached by at least Level of all trials.
type Threshold struct {
	Level   float64 `json:"level"`
	Outcome int     `json:"outcome"`
}

// ValidatePercentiles checks that every level lies in (0, 1].
func ValidatePercentiles(levels []float64) error {
	if len(levels) == 0 {
		return fmt.Errorf("%w: at least one percentile is required", ErrInvalidConfig)
	}
	for _, p := range levels {
		if p <= 0 || p > 1 {
			return fmt.Errorf("%w: percentile %.3f outside (0, 1]", ErrInvalidConfig, p)
		}
	}
	return nil
}

// Extract sweeps the table in the order given by dir, accumulating trial counts.
// The threshold for level p is the first outcome whose running count reaches
// p × trials. Every level is matched on its own, so the result does not depend
// on the order of levels; it is returned in the caller's order.
func Extract(t *FrequencyTable, levels []float64, dir Direction) ([]Threshold, error) {
	if err := ValidatePercentiles(levels); err != nil {
		return nil, err
	}
	if t == nil || t.Trials() == 0 {
		return nil, ErrEmptyHistory
	}

	thresholds := make([]Threshold, len(levels))
	found := make([]bool, len(levels))
	remaining := len(levels)
	total := float64(t.Trials())

	count := 0
	for _, b := range t.Buckets(dir == HigherIsBetter) {
		count += b.Trials
		for i, p := range levels {
			if found[i] || float64(count) < p*total-levelEpsilon {
				continue
			}
			thresholds[i] = Threshold{Level: p, Outcome: b.Outcome}
			found[i] = true
			remaining--
		}
		if remaining == 0 {
			break
		}
	}

	return thresholds, nil
}

// LikelihoodAtMost returns the percentage of trials whose outcome is at most limit.
// For "when" runs this is the chance of finishing within limit days.
func LikelihoodAtMost(t *FrequencyTable, limit int) float64 {
	if t == nil || t.Trials() == 0 {
		return 0
	}
	hits := 0
	for outcome, n := range t.counts {
		if outcome <= limit {
			hits += n
		}
	}
	return 100 * float64(hits) / float64(t.Trials())
}

// LikelihoodAtLeast returns the percentage of trials whose outcome is at least limit.
// For "how many" runs this is the chance of completing limit items or more.
func LikelihoodAtLeast(t *FrequencyTable, limit int) float64 {
	if t == nil || t.Trials() == 0 {
		return 0
	}
	hits := 0
	for outcome, n := range t.counts {
		if outcome >= limit {
			hits += n
		}
	}
	return 100 * float64(hits) / float64(t.Trials())
}
