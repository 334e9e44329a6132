package forecast

import (
	"context"
	"fmt"
	"time"

	"mcs-forecast/internal/simulation"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Config holds the constructor-level forecast settings.
type Config struct {
	HistoryDays int
	Trials      int
	Workers     int
	Percentiles []float64

	// Reference is the last day of the history window. Zero means today.
	Reference time.Time

	// Sources overrides the random sources, e.g. for seeded tests.
	Sources simulation.SourceFactory
}

// Service answers "how many" and "when" questions from historical throughput.
type Service struct {
	cfg    Config
	engine *simulation.Engine
}

// Option adjusts a single how-many forecast.
type Option func(*Forecast)

// WithTargetItems asks for the likelihood of completing at least n items.
func WithTargetItems(n int) Option {
	return func(f *Forecast) {
		f.TargetItems = n
	}
}

// New validates cfg, applies defaults and builds the simulation engine.
func New(cfg Config) (*Service, error) {
	if cfg.HistoryDays <= 0 {
		return nil, fmt.Errorf("%w: history must be at least one day (got %d)", simulation.ErrInvalidConfig, cfg.HistoryDays)
	}
	if cfg.Trials == 0 {
		cfg.Trials = simulation.DefaultTrials
	}
	if len(cfg.Percentiles) == 0 {
		cfg.Percentiles = simulation.DefaultPercentiles
	}
	if err := simulation.ValidatePercentiles(cfg.Percentiles); err != nil {
		return nil, err
	}

	engine, err := simulation.NewEngine(simulation.EngineConfig{
		Trials:  cfg.Trials,
		Workers: cfg.Workers,
		Sources: cfg.Sources,
	})
	if err != nil {
		return nil, err
	}

	return &Service{cfg: cfg, engine: engine}, nil
}

// HowMany forecasts how many items will be completed between start and target.
func (s *Service) HowMany(ctx context.Context, start, target time.Time, records []simulation.Record, opts ...Option) (*Forecast, error) {
	start, target = simulation.Day(start), simulation.Day(target)
	if target.Before(start) {
		return nil, fmt.Errorf("%w: target date %s is before start date %s", simulation.ErrInvalidRange, target.Format(time.DateOnly), start.Format(time.DateOnly))
	}

	window, err := s.window(records)
	if err != nil {
		return nil, err
	}

	days := simulation.DaysBetween(start, target)
	f := s.newForecast(KindHowMany, start, window)
	f.TargetDate = &target
	f.HorizonDays = days
	for _, opt := range opts {
		opt(f)
	}

	began := time.Now()
	table, err := s.engine.HowMany(ctx, days, window)
	if err != nil {
		return nil, fmt.Errorf("how-many simulation: %w", err)
	}
	th, err := simulation.Extract(table, s.cfg.Percentiles, simulation.HigherIsBetter)
	if err != nil {
		return nil, err
	}

	f.Percentiles = itemPercentiles(th)
	f.Histogram = table.Buckets(false)
	if f.TargetItems > 0 {
		l := simulation.LikelihoodAtLeast(table, f.TargetItems)
		f.Likelihood = &l
	}

	log.Info().
		Str("run_id", f.ID).
		Str("kind", string(f.Kind)).
		Int("days", days).
		Int("trials", table.Trials()).
		Dur("elapsed", time.Since(began)).
		Msg("Simulation finished")

	return f, nil
}

// When forecasts the dates by which remaining items will be completed.
// With a target date it also reports the likelihood of finishing by then.
func (s *Service) When(ctx context.Context, remaining int, records []simulation.Record, start time.Time, target *time.Time) (*Forecast, error) {
	if remaining <= 0 {
		return nil, fmt.Errorf("%w: remaining items must be positive (got %d)", simulation.ErrInvalidRange, remaining)
	}
	start = simulation.Day(start)

	window, err := s.window(records)
	if err != nil {
		return nil, err
	}

	f := s.newForecast(KindWhen, start, window)
	f.RemainingItems = remaining
	if target != nil {
		t := simulation.Day(*target)
		f.TargetDate = &t
	}

	began := time.Now()
	table, err := s.engine.When(ctx, remaining, window)
	if err != nil {
		return nil, fmt.Errorf("when simulation: %w", err)
	}
	th, err := simulation.Extract(table, s.cfg.Percentiles, simulation.LowerIsBetter)
	if err != nil {
		return nil, err
	}

	f.Percentiles = datePercentiles(th, start)
	f.Histogram = table.Buckets(false)
	if f.TargetDate != nil {
		l := simulation.LikelihoodAtMost(table, simulation.DaysBetween(start, *f.TargetDate))
		f.Likelihood = &l
	}

	log.Info().
		Str("run_id", f.ID).
		Str("kind", string(f.Kind)).
		Int("remaining", remaining).
		Int("trials", table.Trials()).
		Dur("elapsed", time.Since(began)).
		Msg("Simulation finished")

	return f, nil
}

// window builds the throughput sample. A missing record set is treated the same
// as an empty history.
func (s *Service) window(records []simulation.Record) (*simulation.Window, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no historical records supplied", simulation.ErrEmptyHistory)
	}

	ref := s.cfg.Reference
	if ref.IsZero() {
		ref = time.Now()
	}

	w, err := simulation.NewWindow(records, s.cfg.HistoryDays, ref)
	if err != nil {
		return nil, err
	}
	if w.IsEmpty() {
		return nil, fmt.Errorf("%w: nothing completed in the %d days up to %s", simulation.ErrEmptyHistory, w.Days(), w.Reference().Format(time.DateOnly))
	}

	log.Debug().
		Int("history_days", w.Days()).
		Int("items", w.Total()).
		Time("reference", w.Reference()).
		Msg("Built throughput window")

	return w, nil
}

func (s *Service) newForecast(kind Kind, start time.Time, w *simulation.Window) *Forecast {
	return &Forecast{
		ID:          uuid.NewString(),
		Kind:        kind,
		StartDate:   start,
		Trials:      s.engine.Trials(),
		HistoryDays: w.Days(),
		Reference:   w.Reference(),
		Throughput:  w.DailyCounts(),
	}
}
