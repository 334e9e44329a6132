package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcs-forecast/internal/config"
	"mcs-forecast/internal/forecast"
	"mcs-forecast/internal/history"
	"mcs-forecast/internal/simulation"
)

// connect starts a server over in-memory transports with perDay tickets done
// on each of the last ten days.
func connect(t *testing.T, perDay int) *sdk.ClientSession {
	t.Helper()
	ctx := context.Background()

	cfg := &config.AppConfig{
		CacheDir:  t.TempDir(),
		StoreName: "history",
		Forecast: config.ForecastConfig{
			HistoryDays: 10,
			Trials:      2000,
			Percentiles: simulation.DefaultPercentiles,
		},
		EnableMermaidCharts: true,
	}

	store := history.NewStore()
	now := time.Now()
	for d := 0; d < 10; d++ {
		done := now.AddDate(0, 0, -d)
		for i := 0; i < perDay; i++ {
			store.Add(history.NewCompletedItem(
				"PROJ-"+done.Format("0102")+"-"+string(rune('a'+i)), "Story", "s", 1, done.Add(-time.Hour), done))
		}
	}
	require.NoError(t, store.Save(cfg.StorePath()))

	srv, err := NewServer(cfg, "test")
	require.NoError(t, err)

	clientTransport, serverTransport := sdk.NewInMemoryTransports()
	_, err = srv.Connect(ctx, serverTransport)
	require.NoError(t, err)

	client := sdk.NewClient(&sdk.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func callText(t *testing.T, session *sdk.ClientSession, name string, args map[string]any) (*sdk.CallToolResult, string) {
	t.Helper()
	res, err := session.CallTool(context.Background(), &sdk.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*sdk.TextContent)
	require.True(t, ok)
	return res, text.Text
}

// decodeForecast reads the JSON document that precedes the optional chart.
func decodeForecast(t *testing.T, text string) forecast.Forecast {
	t.Helper()
	var f forecast.Forecast
	require.NoError(t, json.NewDecoder(strings.NewReader(text)).Decode(&f))
	return f
}

func TestListTools(t *testing.T) {
	session := connect(t, 2)

	res, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{toolHowMany, toolWhen, toolSummary}, names)
}

func TestForecastWhen_ConstantThroughput(t *testing.T) {
	session := connect(t, 2)

	res, text := callText(t, session, toolWhen, map[string]any{"remaining_items": 10, "metric": "tickets"})
	require.False(t, res.IsError, text)

	f := decodeForecast(t, text)
	assert.Equal(t, forecast.KindWhen, f.Kind)
	require.Len(t, f.Percentiles, 4)
	for _, p := range f.Percentiles {
		assert.Equal(t, 5, p.Value)
	}
	assert.Empty(t, f.Histogram)
	assert.Contains(t, text, "```mermaid")
}

func TestForecastHowMany_TargetItems(t *testing.T) {
	session := connect(t, 3)
	start := time.Now().Format("2006-01-02")
	target := time.Now().AddDate(0, 0, 4).Format("2006-01-02")

	res, text := callText(t, session, toolHowMany, map[string]any{
		"start_date":   start,
		"target_date":  target,
		"target_items": 12,
		"metric":       "points",
		"percentiles":  []float64{0.5},
	})
	require.False(t, res.IsError, text)

	f := decodeForecast(t, text)
	require.Len(t, f.Percentiles, 1)
	assert.Equal(t, 12, f.Percentiles[0].Value)
	require.NotNil(t, f.Likelihood)
	assert.Equal(t, 100.0, *f.Likelihood)
}

func TestForecast_EmptyHistoryIsToolError(t *testing.T) {
	session := connect(t, 0)

	res, text := callText(t, session, toolWhen, map[string]any{"remaining_items": 5})
	assert.True(t, res.IsError)
	assert.Contains(t, text, "no completed items")
}

func TestForecast_BadArguments(t *testing.T) {
	session := connect(t, 1)

	res, text := callText(t, session, toolHowMany, map[string]any{"target_date": "next friday"})
	assert.True(t, res.IsError)
	assert.Contains(t, text, "YYYY-MM-DD")

	res, text = callText(t, session, toolWhen, map[string]any{"remaining_items": 3, "metric": "hours"})
	assert.True(t, res.IsError)
	assert.Contains(t, text, "unknown throughput metric")
}

func TestHistorySummary(t *testing.T) {
	session := connect(t, 1)

	res, text := callText(t, session, toolSummary, map[string]any{})
	require.False(t, res.IsError, text)

	var s history.Summary
	require.NoError(t, json.Unmarshal([]byte(text), &s))
	assert.Equal(t, 10, s.Items)
	assert.Equal(t, 10, s.ByType["Story"])
}

func TestItems_ReflectsRemovalOnDisk(t *testing.T) {
	cfg := &config.AppConfig{CacheDir: t.TempDir(), StoreName: "history"}
	done := time.Date(2024, 3, 5, 15, 0, 0, 0, time.UTC)

	store := history.NewStore()
	store.Add(
		history.NewCompletedItem("P-1", "Story", "one", 1, done.Add(-time.Hour), done),
		history.NewCompletedItem("P-2", "Story", "two", 8, done.Add(-time.Hour), done),
	)
	require.NoError(t, store.Save(cfg.StorePath()))

	srv, err := NewServer(cfg, "test")
	require.NoError(t, err)

	items, err := srv.items()
	require.NoError(t, err)
	assert.Len(t, items, 2)

	store.Remove("P-2")
	require.NoError(t, store.Save(cfg.StorePath()))

	items, err = srv.items()
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "P-1", items[0].Key)
}
