package engine

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"mcs-forecast/internal/history"
)

type GeneratorConfig struct {
	Scenario     string // "mild", "chaos" or "drift"
	Distribution string // "uniform" or "weibull"
	Count        int
	Project      string
	Seed         uint64 // 0 = random
	Now          time.Time
}

var pointScale = []float64{1, 2, 3, 5, 8}

// Generate builds Count completed items, one started per day, all finished before Now.
// Items still in flight at Now are left out, as a sync would never see them.
func Generate(cfg GeneratorConfig) []history.CompletedItem {
	if cfg.Now.IsZero() {
		cfg.Now = time.Now()
	}
	if cfg.Project == "" {
		cfg.Project = "MCSTEST"
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	// The last start lands two weeks before Now so the tail still completes
	firstStart := cfg.Now.AddDate(0, 0, -cfg.Count-14)

	items := make([]history.CompletedItem, 0, cfg.Count)
	for i := 0; i < cfg.Count; i++ {
		start := firstStart.Add(time.Duration(i*24)*time.Hour + time.Duration(rng.IntN(8))*time.Hour)

		// Mild: ~5 days in progress
		k, lambda := 2.5, 5.5
		switch cfg.Scenario {
		case "chaos":
			k = 0.8
			if cfg.Distribution == "weibull" {
				lambda = 7.0
			}
		case "drift":
			ratio := float64(i) / float64(cfg.Count)
			k = 2.5 - (1.7 * ratio) // 2.5 -> 0.8
			lambda = 5.5 + (2.5 * ratio)
		}

		var durationDays float64
		if cfg.Distribution == "weibull" {
			durationDays = weibullSample(rng, k, lambda)
		} else {
			// Uniform baseline: 3-8 days
			durationDays = 3.0 + rng.Float64()*5.0
			if cfg.Scenario == "chaos" && rng.Float64() < 0.2 {
				durationDays += 10 + rng.Float64()*15
			}
			if cfg.Scenario == "drift" && i > cfg.Count/2 {
				durationDays *= 2.0
			}
		}

		done := start.Add(time.Duration(durationDays * 24 * float64(time.Hour)))
		if !done.Before(cfg.Now) {
			continue
		}

		itemType := "Story"
		switch r := rng.Float64(); {
		case r < 0.15:
			itemType = history.BugType
		case r < 0.35:
			itemType = "Task"
		case r < 0.45:
			itemType = "Improvement"
		}

		key := fmt.Sprintf("%s-%d", cfg.Project, i+1)
		points := pointScale[rng.IntN(len(pointScale))]
		items = append(items, history.NewCompletedItem(key, itemType, "Synthetic "+cfg.Scenario+" item", points, start, done))
	}

	return items
}

func weibullSample(rng *rand.Rand, k, lambda float64) float64 {
	u := rng.Float64()
	if u == 0 {
		u = 0.0001
	}
	// X = lambda * (-ln(1-u))^(1/k)
	return lambda * math.Pow(-math.Log(1.0-u), 1.0/k)
}

// Save merges items into the history store at path.
func Save(path string, items []history.CompletedItem) (int, error) {
	store := history.NewStore()
	if err := store.Load(path); err != nil {
		return 0, err
	}
	added := store.Add(items...)
	return added, store.Save(path)
}
