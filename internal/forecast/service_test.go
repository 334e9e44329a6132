package forecast

import (
	"context"
	"testing"
	"time"

	"mcs-forecast/internal/simulation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var reference = time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC)

func constantHistory(days, items int) []simulation.Record {
	records := make([]simulation.Record, days)
	for i := range records {
		records[i] = simulation.Record{Date: reference.AddDate(0, 0, -i), Items: items}
	}
	return records
}

func newService(t *testing.T, history int) *Service {
	t.Helper()
	s, err := New(Config{
		HistoryDays: history,
		Trials:      20000,
		Workers:     4,
		Reference:   reference,
		Sources:     simulation.SeededSources(7),
	})
	require.NoError(t, err)
	return s
}

func TestService_HowMany(t *testing.T) {
	s := newService(t, 5)
	start := reference.AddDate(0, 0, 1)

	f, err := s.HowMany(context.Background(), start, start.AddDate(0, 0, 2), constantHistory(5, 5))
	require.NoError(t, err)

	assert.Equal(t, KindHowMany, f.Kind)
	assert.Equal(t, 2, f.HorizonDays)
	assert.Equal(t, 20000, f.Trials)
	assert.Nil(t, f.Likelihood)
	assert.NotEmpty(t, f.ID)
	assert.Len(t, f.Throughput, 5)
	require.Len(t, f.Percentiles, 4)
	for _, p := range f.Percentiles {
		assert.Equal(t, 10, p.Value)
		assert.Nil(t, p.Date)
	}

	p85, ok := f.At(0.85)
	require.True(t, ok)
	assert.Equal(t, 10, p85.Value)
	_, ok = f.At(0.99)
	assert.False(t, ok)
}

func TestService_HowManyTargetItems(t *testing.T) {
	s := newService(t, 5)
	start := reference

	f, err := s.HowMany(context.Background(), start, start.AddDate(0, 0, 3), constantHistory(5, 2), WithTargetItems(6))
	require.NoError(t, err)
	require.NotNil(t, f.Likelihood)
	assert.InDelta(t, 100.0, *f.Likelihood, 1e-9)

	f, err = s.HowMany(context.Background(), start, start.AddDate(0, 0, 3), constantHistory(5, 2), WithTargetItems(7))
	require.NoError(t, err)
	require.NotNil(t, f.Likelihood)
	assert.InDelta(t, 0.0, *f.Likelihood, 1e-9)
}

func TestService_When(t *testing.T) {
	s := newService(t, 5)
	start := date(t, "2024-06-03")

	tests := []struct {
		name       string
		target     *time.Time
		likelihood *float64
	}{
		{name: "no target", target: nil, likelihood: nil},
		{name: "exactly enough capacity", target: ptr(start.AddDate(0, 0, 5)), likelihood: ptr(100.0)},
		{name: "too early", target: ptr(start.AddDate(0, 0, 3)), likelihood: ptr(0.0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := s.When(context.Background(), 10, constantHistory(5, 2), start, tt.target)
			require.NoError(t, err)

			assert.Equal(t, KindWhen, f.Kind)
			assert.Equal(t, 10, f.RemainingItems)
			for _, p := range f.Percentiles {
				assert.Equal(t, 5, p.Value)
				require.NotNil(t, p.Date)
				assert.Equal(t, date(t, "2024-06-08"), *p.Date)
			}

			if tt.likelihood == nil {
				assert.Nil(t, f.Likelihood)
				return
			}
			require.NotNil(t, f.Likelihood)
			assert.InDelta(t, *tt.likelihood, *f.Likelihood, 1e-9)
		})
	}
}

func TestService_WhenDatesAreOrdered(t *testing.T) {
	s := newService(t, 10)
	records := []simulation.Record{
		{Date: reference, Items: 4},
		{Date: reference.AddDate(0, 0, -3), Items: 1},
		{Date: reference.AddDate(0, 0, -4), Items: 9},
		{Date: reference.AddDate(0, 0, -8), Items: 2},
	}

	f, err := s.When(context.Background(), 30, records, reference, nil)
	require.NoError(t, err)
	for i := 1; i < len(f.Percentiles); i++ {
		assert.False(t, f.Percentiles[i].Date.Before(*f.Percentiles[i-1].Date))
	}
}

func TestService_Errors(t *testing.T) {
	s := newService(t, 5)
	ctx := context.Background()

	_, err := s.HowMany(ctx, reference, reference.AddDate(0, 0, -1), constantHistory(5, 1))
	assert.ErrorIs(t, err, simulation.ErrInvalidRange)

	_, err = s.When(ctx, 0, constantHistory(5, 1), reference, nil)
	assert.ErrorIs(t, err, simulation.ErrInvalidRange)

	_, err = s.When(ctx, 10, nil, reference, nil)
	assert.ErrorIs(t, err, simulation.ErrEmptyHistory)

	_, err = s.When(ctx, 10, constantHistory(5, 0), reference, nil)
	assert.ErrorIs(t, err, simulation.ErrEmptyHistory)

	// History exists but lies entirely outside the window.
	old := []simulation.Record{{Date: reference.AddDate(0, 0, -30), Items: 10}}
	_, err = s.HowMany(ctx, reference, reference.AddDate(0, 0, 5), old)
	assert.ErrorIs(t, err, simulation.ErrEmptyHistory)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{HistoryDays: 0})
	assert.ErrorIs(t, err, simulation.ErrInvalidConfig)

	_, err = New(Config{HistoryDays: 30, Percentiles: []float64{0.5, 1.5}})
	assert.ErrorIs(t, err, simulation.ErrInvalidConfig)

	_, err = New(Config{HistoryDays: 30, Trials: -10})
	assert.ErrorIs(t, err, simulation.ErrInvalidConfig)

	s, err := New(Config{HistoryDays: 30})
	require.NoError(t, err)
	assert.Equal(t, simulation.DefaultTrials, s.engine.Trials())
	assert.Equal(t, simulation.DefaultPercentiles, s.cfg.Percentiles)
}

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(time.DateOnly, s)
	require.NoError(t, err)
	return d
}

func ptr[T any](v T) *T {
	return &v
}
