package jira

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	cacheSize = 512
	cacheTTL  = 10 * time.Minute
)

// StatusError is returned when Jira answers with a non-200 status.
type StatusError struct {
	Code       int
	RetryAfter string
}

func (e *StatusError) Error() string {
	switch e.Code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return "Jira authentication failed (401/403). Please check your token or session cookies."
	case http.StatusNotFound:
		return "Jira resource not found (404)."
	case http.StatusTooManyRequests:
		if e.RetryAfter != "" {
			return fmt.Sprintf("Jira rate limit exceeded (429). Retry after %s seconds.", e.RetryAfter)
		}
		return "Jira rate limit exceeded (429)."
	default:
		return fmt.Sprintf("Jira API returned status %d. Please check Jira availability.", e.Code)
	}
}

// Temporary reports whether repeating the request may succeed.
func (e *StatusError) Temporary() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

type dcClient struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      *expirable.LRU[string, []byte]
	retryDelay time.Duration
}

// NewDataCenterClient returns a client for the Jira Data Center REST API v2.
func NewDataCenterClient(cfg Config) Client {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	limit := rate.Inf
	if cfg.RequestDelay > 0 {
		limit = rate.Every(cfg.RequestDelay)
	}

	return &dcClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 90 * time.Second,
		},
		limiter:    rate.NewLimiter(limit, 1),
		cache:      expirable.NewLRU[string, []byte](cacheSize, nil, cacheTTL),
		retryDelay: 500 * time.Millisecond,
	}
}

func (c *dcClient) authenticateRequest(req *http.Request) {
	// 1. Prioritize Personal Access Token (PAT)
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.cfg.Token))
		return
	}

	// 2. Fallback to session cookies
	cookies := []struct {
		name  string
		value string
	}{
		{"atlassian.xsrf.token", c.cfg.XsrfToken},
		{"JSESSIONID", c.cfg.SessionID},
		{"seraph.rememberme.cookie", c.cfg.RememberMe},
		{"GCILB", c.cfg.GCILB},
		{"GCLB", c.cfg.GCLB},
	}

	var cookiePairs []string
	for _, cookie := range cookies {
		if cookie.value != "" {
			// Built by hand: net/http's RFC 6265 validation drops GCLB values with double quotes.
			cookiePairs = append(cookiePairs, fmt.Sprintf("%s=%s", cookie.name, cookie.value))
		}
	}

	if len(cookiePairs) > 0 {
		req.Header.Set("Cookie", strings.Join(cookiePairs, "; "))
	}
}

func (c *dcClient) fields() string {
	fields := "summary,issuetype,status,resolutiondate,created,updated"
	if c.cfg.StoryPointsField != "" {
		fields += "," + c.cfg.StoryPointsField
	}
	return fields
}

func (c *dcClient) SearchIssues(ctx context.Context, jql string, startAt int, maxResults int) (*SearchResponse, error) {
	params := url.Values{}
	params.Set("jql", jql)
	params.Set("startAt", fmt.Sprintf("%d", startAt))
	params.Set("maxResults", fmt.Sprintf("%d", maxResults))
	params.Set("fields", c.fields())

	searchURL := fmt.Sprintf("%s/rest/api/2/search?%s", c.cfg.BaseURL, params.Encode())
	log.Info().Int("startAt", startAt).Msg("Requesting issues from Jira")
	log.Debug().Str("url", searchURL).Str("jql", jql).Msg("Jira search details")

	var result SearchResponse
	if err := c.getJSON(ctx, searchURL, &result); err != nil {
		return nil, fmt.Errorf("search issues: %w", err)
	}
	return &result, nil
}

func (c *dcClient) GetIssueWithChangelog(ctx context.Context, key string) (*IssueDTO, error) {
	params := url.Values{}
	params.Set("expand", "changelog")
	params.Set("fields", c.fields())

	issueURL := fmt.Sprintf("%s/rest/api/2/issue/%s?%s", c.cfg.BaseURL, url.PathEscape(key), params.Encode())
	log.Debug().Str("key", key).Msg("Fetching issue changelog")

	var result IssueDTO
	if err := c.getJSON(ctx, issueURL, &result); err != nil {
		return nil, fmt.Errorf("get issue %s: %w", key, err)
	}
	return &result, nil
}

// getJSON performs a throttled, retried GET and decodes the body into dst.
// Successful bodies are cached by URL.
func (c *dcClient) getJSON(ctx context.Context, reqURL string, dst any) error {
	if body, ok := c.cache.Get(reqURL); ok {
		log.Debug().Str("url", reqURL).Msg("Cache hit")
		return json.Unmarshal(body, dst)
	}

	body, err := retry.DoWithData(
		func() ([]byte, error) {
			return c.fetch(ctx, reqURL)
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.cfg.MaxRetries)),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Warn().Err(err).Uint("attempt", n+1).Msg("Retrying Jira request")
		}),
	)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("failed to decode Jira response: %w", err)
	}
	c.cache.Add(reqURL, body)
	return nil
}

func (c *dcClient) fetch(ctx context.Context, reqURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, retry.Unrecoverable(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, retry.Unrecoverable(err)
	}
	req.Header.Set("Accept", "application/json")
	c.authenticateRequest(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, retry.Unrecoverable(ctx.Err())
		}
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		statusErr := &StatusError{Code: resp.StatusCode, RetryAfter: resp.Header.Get("Retry-After")}
		if !statusErr.Temporary() {
			return nil, retry.Unrecoverable(statusErr)
		}
		return nil, statusErr
	}

	return io.ReadAll(resp.Body)
}

// IsAuthError reports whether err was caused by rejected credentials.
func IsAuthError(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code == http.StatusUnauthorized || statusErr.Code == http.StatusForbidden
	}
	return false
}
