package mcp

import (
	"context"
	"fmt"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"mcs-forecast/internal/forecast"
	"mcs-forecast/internal/history"
	"mcs-forecast/internal/simulation"
	"mcs-forecast/internal/visuals"
)

func (s *Server) handleHowMany(ctx context.Context, req *sdk.CallToolRequest, in HowManyInput) (*sdk.CallToolResult, any, error) {
	log.Info().Str("tool", toolHowMany).Msg("Tool called")

	start, err := parseDate(in.StartDate, time.Now())
	if err != nil {
		return nil, nil, err
	}
	if in.TargetDate == "" {
		return nil, nil, fmt.Errorf("target_date is required")
	}
	target, err := parseDate(in.TargetDate, time.Time{})
	if err != nil {
		return nil, nil, err
	}

	svc, records, err := s.prepare(in.common())
	if err != nil {
		return nil, nil, err
	}

	var opts []forecast.Option
	if in.TargetItems > 0 {
		opts = append(opts, forecast.WithTargetItems(in.TargetItems))
	}

	f, err := svc.HowMany(ctx, start, target, records, opts...)
	if err != nil {
		return nil, nil, err
	}
	return s.forecastResult(f)
}

func (s *Server) handleWhen(ctx context.Context, req *sdk.CallToolRequest, in WhenInput) (*sdk.CallToolResult, any, error) {
	log.Info().Str("tool", toolWhen).Int("remaining", in.RemainingItems).Msg("Tool called")

	start, err := parseDate(in.StartDate, time.Now())
	if err != nil {
		return nil, nil, err
	}

	var target *time.Time
	if in.TargetDate != "" {
		t, err := parseDate(in.TargetDate, time.Time{})
		if err != nil {
			return nil, nil, err
		}
		target = &t
	}

	svc, records, err := s.prepare(in.common())
	if err != nil {
		return nil, nil, err
	}

	f, err := svc.When(ctx, in.RemainingItems, records, start, target)
	if err != nil {
		return nil, nil, err
	}
	return s.forecastResult(f)
}

func (s *Server) handleSummary(ctx context.Context, req *sdk.CallToolRequest, in SummaryInput) (*sdk.CallToolResult, any, error) {
	items, err := s.items()
	if err != nil {
		return nil, nil, err
	}
	return textResult(formatResult(history.Summarize(items))), nil, nil
}

// prepare builds a forecast service for the call and loads simulation records
// from the stored history.
func (s *Server) prepare(in ForecastInput) (*forecast.Service, []simulation.Record, error) {
	metric := history.MetricPoints
	if in.Metric != "" {
		m, err := history.ParseMetric(in.Metric)
		if err != nil {
			return nil, nil, err
		}
		metric = m
	}

	fc := s.cfg.Forecast
	cfg := forecast.Config{
		HistoryDays: fc.HistoryDays,
		Trials:      fc.Trials,
		Workers:     fc.Workers,
		Percentiles: fc.Percentiles,
	}
	if in.HistoryDays > 0 {
		cfg.HistoryDays = in.HistoryDays
	}
	if len(in.Percentiles) > 0 {
		cfg.Percentiles = in.Percentiles
	}

	svc, err := forecast.New(cfg)
	if err != nil {
		return nil, nil, err
	}

	items, err := s.items()
	if err != nil {
		return nil, nil, err
	}
	return svc, history.Records(history.DailyThroughput(items), metric), nil
}

func (s *Server) forecastResult(f *forecast.Forecast) (*sdk.CallToolResult, any, error) {
	// The raw histogram is only useful for charts.
	view := *f
	view.Histogram = nil
	view.Throughput = nil

	text := formatResult(view)
	if s.cfg.EnableMermaidCharts {
		text += "\n\n" + visuals.ForecastChart(f, "").Markdown()
	}
	return textResult(text), nil, nil
}
