package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, cfg Config, h http.Handler) *dcClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	cfg.BaseURL = srv.URL + "/"
	c := NewDataCenterClient(cfg).(*dcClient)
	c.retryDelay = time.Millisecond
	return c
}

func TestSearchIssues_SendsQueryAndToken(t *testing.T) {
	var gotAuth, gotJQL, gotFields string
	c := newTestClient(t, Config{Token: "secret", StoryPointsField: "customfield_10014"},
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			gotJQL = r.URL.Query().Get("jql")
			gotFields = r.URL.Query().Get("fields")
			fmt.Fprint(w, `{"startAt":0,"maxResults":50,"total":1,"issues":[{"key":"PROJ-1","fields":{"summary":"s","customfield_10014":5}}]}`)
		}))

	resp, err := c.SearchIssues(context.Background(), "project = PROJ", 0, 50)
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "project = PROJ", gotJQL)
	assert.Contains(t, gotFields, "customfield_10014")
	require.Len(t, resp.Issues, 1)
	assert.Equal(t, 5.0, resp.Issues[0].Fields.Number("customfield_10014"))
}

func TestSearchIssues_CookieFallback(t *testing.T) {
	var gotCookie string
	c := newTestClient(t, Config{SessionID: "abc", GCLB: `"lb"`},
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotCookie = r.Header.Get("Cookie")
			fmt.Fprint(w, `{"total":0,"issues":[]}`)
		}))

	_, err := c.SearchIssues(context.Background(), "x", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, `JSESSIONID=abc; GCLB="lb"`, gotCookie)
}

func TestGetJSON_RetriesTransientErrors(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, Config{MaxRetries: 3},
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if hits.Add(1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			fmt.Fprint(w, `{"key":"PROJ-7","fields":{}}`)
		}))

	issue, err := c.GetIssueWithChangelog(context.Background(), "PROJ-7")
	require.NoError(t, err)
	assert.Equal(t, "PROJ-7", issue.Key)
	assert.Equal(t, int32(3), hits.Load())
}

func TestGetJSON_AuthFailureIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, Config{MaxRetries: 5},
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
		}))

	_, err := c.SearchIssues(context.Background(), "x", 0, 10)
	require.Error(t, err)
	assert.True(t, IsAuthError(err))
	assert.Equal(t, int32(1), hits.Load())
}

func TestGetJSON_CachesResponses(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, Config{},
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			fmt.Fprint(w, `{"key":"PROJ-1","fields":{}}`)
		}))

	for range 3 {
		_, err := c.GetIssueWithChangelog(context.Background(), "PROJ-1")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), hits.Load())
}

func TestSearchAll_PagesUntilTotal(t *testing.T) {
	const total = 7
	c := newTestClient(t, Config{},
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			startAt, _ := strconv.Atoi(r.URL.Query().Get("startAt"))
			maxResults, _ := strconv.Atoi(r.URL.Query().Get("maxResults"))

			resp := SearchResponse{StartAt: startAt, MaxResults: maxResults, Total: total}
			for i := startAt; i < min(startAt+maxResults, total); i++ {
				resp.Issues = append(resp.Issues, IssueDTO{Key: fmt.Sprintf("PROJ-%d", i+1)})
			}
			_ = json.NewEncoder(w).Encode(resp)
		}))

	issues, err := SearchAll(context.Background(), c, "project = PROJ", 3)
	require.NoError(t, err)
	require.Len(t, issues, total)
	assert.Equal(t, "PROJ-1", issues[0].Key)
	assert.Equal(t, "PROJ-7", issues[6].Key)
}

func TestSearchAll_StopsOnEmptyPage(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, Config{},
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			fmt.Fprint(w, `{"total":100,"issues":[]}`)
		}))

	issues, err := SearchAll(context.Background(), c, "x", 10)
	require.NoError(t, err)
	assert.Empty(t, issues)
	assert.Equal(t, int32(1), hits.Load())
}

func TestStatusError_Messages(t *testing.T) {
	tests := []struct {
		err       *StatusError
		contains  string
		temporary bool
	}{
		{&StatusError{Code: 401}, "authentication", false},
		{&StatusError{Code: 404}, "not found", false},
		{&StatusError{Code: 429, RetryAfter: "30"}, "Retry after 30", true},
		{&StatusError{Code: 502}, "status 502", true},
	}

	for _, tt := range tests {
		assert.Contains(t, tt.err.Error(), tt.contains)
		assert.Equal(t, tt.temporary, tt.err.Temporary(), "code %d", tt.err.Code)
	}
}
