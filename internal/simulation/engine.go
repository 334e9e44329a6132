package simulation

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// DefaultTrials is the number of trials run when none is configured.
const DefaultTrials = 100000

// ctxCheckInterval is how many trials a worker runs between context checks.
const ctxCheckInterval = 1024

// EngineConfig controls how many trials run and how they are spread over workers.
type EngineConfig struct {
	Trials  int
	Workers int
	Sources SourceFactory
}

// Engine performs the Monte-Carlo simulation by bootstrap resampling a Window.
type Engine struct {
	trials  int
	workers int
	sources SourceFactory
}

// trialFunc runs one trial against the window sample and returns its outcome.
type trialFunc func(rng RandSource, sample []int) int

// NewEngine validates cfg and fills in defaults.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Trials == 0 {
		cfg.Trials = DefaultTrials
	}
	if cfg.Trials < 0 {
		return nil, fmt.Errorf("%w: trials must be positive (got %d)", ErrInvalidConfig, cfg.Trials)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	if cfg.Workers > cfg.Trials {
		cfg.Workers = cfg.Trials
	}
	if cfg.Sources == nil {
		cfg.Sources = SystemSources()
	}

	return &Engine{
		trials:  cfg.Trials,
		workers: cfg.Workers,
		sources: cfg.Sources,
	}, nil
}

// Trials returns the configured trial count.
func (e *Engine) Trials() int {
	return e.trials
}

// HowMany simulates the total number of items completed over the given number of days.
func (e *Engine) HowMany(ctx context.Context, days int, w *Window) (*FrequencyTable, error) {
	if days < 0 {
		return nil, fmt.Errorf("%w: cannot forecast %d days", ErrInvalidRange, days)
	}
	if w == nil || w.IsEmpty() {
		return nil, ErrEmptyHistory
	}

	return e.run(ctx, w, func(rng RandSource, sample []int) int {
		total := 0
		for d := 0; d < days; d++ {
			total += sample[rng.IntN(len(sample))]
		}
		return total
	})
}

// When simulates the number of days needed to complete remaining items.
// An all-zero window is rejected up front since no trial could ever finish.
func (e *Engine) When(ctx context.Context, remaining int, w *Window) (*FrequencyTable, error) {
	if remaining <= 0 {
		return nil, fmt.Errorf("%w: remaining items must be positive (got %d)", ErrInvalidRange, remaining)
	}
	if w == nil || w.IsEmpty() {
		return nil, ErrEmptyHistory
	}

	return e.run(ctx, w, func(rng RandSource, sample []int) int {
		days, done := 0, 0
		for done < remaining {
			days++
			done += sample[rng.IntN(len(sample))]
		}
		return days
	})
}

// run partitions the trials across workers, each filling a local table,
// and merges the tables once every worker has finished.
func (e *Engine) run(ctx context.Context, w *Window, trial trialFunc) (*FrequencyTable, error) {
	sample := w.Values()
	tables := make([]*FrequencyTable, e.workers)

	g, ctx := errgroup.WithContext(ctx)
	for worker := 0; worker < e.workers; worker++ {
		n := e.trials / e.workers
		if worker < e.trials%e.workers {
			n++
		}
		local := NewFrequencyTable()
		tables[worker] = local
		rng := e.sources(worker)

		g.Go(func() error {
			for i := 0; i < n; i++ {
				if i%ctxCheckInterval == 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
				}
				local.Add(trial(rng, sample))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := NewFrequencyTable()
	for _, t := range tables {
		merged.Merge(t)
	}
	return merged, nil
}
