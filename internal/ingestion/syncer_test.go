package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcs-forecast/internal/history"
	"mcs-forecast/internal/jira"
)

type fakeClient struct {
	mu      sync.Mutex
	issues  map[string]string // key -> changelog JSON
	fetched []string
	failOn  string
}

func (f *fakeClient) SearchIssues(ctx context.Context, jql string, startAt, maxResults int) (*jira.SearchResponse, error) {
	keys := make([]string, 0, len(f.issues))
	for i := 1; i <= len(f.issues); i++ {
		keys = append(keys, fmt.Sprintf("PROJ-%d", i))
	}

	resp := &jira.SearchResponse{StartAt: startAt, MaxResults: maxResults, Total: len(keys)}
	for i := startAt; i < min(startAt+maxResults, len(keys)); i++ {
		resp.Issues = append(resp.Issues, jira.IssueDTO{Key: keys[i]})
	}
	return resp, nil
}

func (f *fakeClient) GetIssueWithChangelog(ctx context.Context, key string) (*jira.IssueDTO, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, key)
	f.mu.Unlock()

	if key == f.failOn {
		return nil, errors.New("boom")
	}

	var dto jira.IssueDTO
	raw := fmt.Sprintf(`{"key":%q,"fields":{"issuetype":{"name":"Story"},"summary":"s","customfield_1":2},"changelog":{"histories":%s}}`, key, f.issues[key])
	if err := json.Unmarshal([]byte(raw), &dto); err != nil {
		return nil, err
	}
	return &dto, nil
}

const completed = `[
 {"created":"2024-01-02T10:00:00.000+0000","items":[{"field":"status","toString":"In Progress"}]},
 {"created":"2024-01-04T10:00:00.000+0000","items":[{"field":"status","toString":"Done"}]}
]`

func newFake() *fakeClient {
	return &fakeClient{issues: map[string]string{
		"PROJ-1": completed,
		"PROJ-2": completed,
		"PROJ-3": `[{"created":"2024-01-04T10:00:00.000+0000","items":[{"field":"status","toString":"Done"}]}]`,
	}}
}

func TestSync_AddsCompletedItemsAndPersists(t *testing.T) {
	client := newFake()
	path := history.Path(t.TempDir(), "team")

	s := NewSyncer(client, history.NewStore(), path, Options{StoryPointsField: "customfield_1", PageSize: 2})
	res, err := s.Sync(context.Background(), "project = PROJ")
	require.NoError(t, err)

	assert.Equal(t, 3, res.Found)
	assert.Equal(t, 2, res.Added)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 2, res.StoreLen)

	reloaded := history.NewStore()
	require.NoError(t, reloaded.Load(path))
	items := reloaded.Items()
	require.Len(t, items, 2)
	assert.Equal(t, 2.0, items[0].DurationDays)
	assert.Equal(t, 2.0, items[0].StoryPoints)
}

func TestSync_OnlyFetchesNewKeysAndDropsOutliers(t *testing.T) {
	client := newFake()
	path := history.Path(t.TempDir(), "team")

	first := NewSyncer(client, history.NewStore(), path, Options{})
	_, err := first.Sync(context.Background(), "x")
	require.NoError(t, err)
	assert.Len(t, client.fetched, 3)

	client.fetched = nil
	second := NewSyncer(client, history.NewStore(), path, Options{Outliers: []string{"PROJ-2"}})
	res, err := second.Sync(context.Background(), "x")
	require.NoError(t, err)

	assert.Equal(t, []string{"PROJ-3"}, client.fetched, "stored keys are not fetched again")
	assert.Zero(t, res.Added)
	assert.Equal(t, 1, res.Removed)
	assert.Equal(t, 1, res.StoreLen)
}

func TestSync_PropagatesFetchErrors(t *testing.T) {
	client := newFake()
	client.failOn = "PROJ-2"

	s := NewSyncer(client, history.NewStore(), filepath.Join(t.TempDir(), "x.jsonl"), Options{})
	_, err := s.Sync(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestCompletedJQL(t *testing.T) {
	got := CompletedJQL([]string{"ABC", "XYZ"}, 60)
	assert.Equal(t, "status changed to (Done, Closed) DURING (-60d, now()) and project in (ABC, XYZ) and issuetype in (Story, Task, Bug, Improvement)", got)
}
