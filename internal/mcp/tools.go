package mcp

import (
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	toolHowMany = "forecast_how_many"
	toolWhen    = "forecast_when"
	toolSummary = "history_summary"
)

// ForecastInput holds the settings both forecast tools share.
type ForecastInput struct {
	Metric      string
	HistoryDays int
	Percentiles []float64
}

// HowManyInput are the arguments of forecast_how_many.
type HowManyInput struct {
	StartDate   string    `json:"start_date,omitempty" jsonschema:"First day of the forecast (YYYY-MM-DD). Default: today."`
	TargetDate  string    `json:"target_date" jsonschema:"Last day of the forecast (YYYY-MM-DD)."`
	TargetItems int       `json:"target_items,omitempty" jsonschema:"Optional: report the likelihood of completing at least this many items."`
	Metric      string    `json:"metric,omitempty" jsonschema:"Throughput to sample: 'points' (story points of Story and Task items) or 'tickets' (Story/Task/Improvement count). Default: points."`
	HistoryDays int       `json:"history_days,omitempty" jsonschema:"Length of the historical throughput window in days. Default: server configuration."`
	Percentiles []float64 `json:"percentiles,omitempty" jsonschema:"Confidence levels in (0, 1]. Default: 0.5, 0.7, 0.85, 0.95."`
}

func (in HowManyInput) common() ForecastInput {
	return ForecastInput{Metric: in.Metric, HistoryDays: in.HistoryDays, Percentiles: in.Percentiles}
}

// WhenInput are the arguments of forecast_when.
type WhenInput struct {
	RemainingItems int       `json:"remaining_items" jsonschema:"Number of items (or points) still to be done."`
	StartDate      string    `json:"start_date,omitempty" jsonschema:"First day of the forecast (YYYY-MM-DD). Default: today."`
	TargetDate     string    `json:"target_date,omitempty" jsonschema:"Optional: report the likelihood of finishing on or before this date (YYYY-MM-DD)."`
	Metric         string    `json:"metric,omitempty" jsonschema:"Throughput to sample: 'points' or 'tickets'. Default: points."`
	HistoryDays    int       `json:"history_days,omitempty" jsonschema:"Length of the historical throughput window in days. Default: server configuration."`
	Percentiles    []float64 `json:"percentiles,omitempty" jsonschema:"Confidence levels in (0, 1]. Default: 0.5, 0.7, 0.85, 0.95."`
}

func (in WhenInput) common() ForecastInput {
	return ForecastInput{Metric: in.Metric, HistoryDays: in.HistoryDays, Percentiles: in.Percentiles}
}

// SummaryInput takes no arguments.
type SummaryInput struct{}

func (s *Server) registerTools() error {
	howManySchema, err := inputSchema[HowManyInput]()
	if err != nil {
		return err
	}
	whenSchema, err := inputSchema[WhenInput]()
	if err != nil {
		return err
	}
	if p, ok := whenSchema.Properties["remaining_items"]; ok {
		one := 1.0
		p.Minimum = &one
	}
	summarySchema, err := inputSchema[SummaryInput]()
	if err != nil {
		return err
	}

	sdk.AddTool(s.server, &sdk.Tool{
		Name: toolHowMany,
		Description: "Run a Monte-Carlo simulation answering 'How many items will be done between the start and the target date?' " +
			"by resampling daily throughput from the stored history. Returns item counts per confidence level: " +
			"the 85% value means 85% of trials completed at least that many items.\n" +
			"DO NOT invent forecasts if the tool fails or reports an empty history; ask the user to sync history first.",
		InputSchema: howManySchema,
	}, s.handleHowMany)

	sdk.AddTool(s.server, &sdk.Tool{
		Name: toolWhen,
		Description: "Run a Monte-Carlo simulation answering 'When will N remaining items be done?' " +
			"by resampling daily throughput from the stored history. Returns a day count and calendar date per confidence level, " +
			"and optionally the likelihood of finishing by a target date.\n" +
			"If the result is far in the future (years instead of months), warn the user that the sampled throughput may be too low.",
		InputSchema: whenSchema,
	}, s.handleWhen)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        toolSummary,
		Description: "Summarize the stored completed-item history (date range, items per type, mean cycle time) before forecasting.",
		InputSchema: summarySchema,
	}, s.handleSummary)

	return nil
}

func inputSchema[T any]() (*jsonschema.Schema, error) {
	schema, err := jsonschema.For[T](nil)
	if err != nil {
		var zero T
		return nil, fmt.Errorf("input schema for %T: %w", zero, err)
	}
	return schema, nil
}
