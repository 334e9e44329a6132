package jira

import (
	"context"
	"time"
)

// Issue represents the subset of Jira issue data needed for throughput forecasting.
type Issue struct {
	Key            string
	IssueType      string
	Summary        string
	Status         string
	StoryPoints    float64
	Created        time.Time
	ResolutionDate *time.Time
	Transitions    []StatusTransition
}

// StatusTransition is a single status change taken from the changelog.
type StatusTransition struct {
	FromStatus string
	ToStatus   string
	Date       time.Time
}

// Client is the interface for interacting with Jira.
type Client interface {
	SearchIssues(ctx context.Context, jql string, startAt int, maxResults int) (*SearchResponse, error)
	GetIssueWithChangelog(ctx context.Context, key string) (*IssueDTO, error)
}

// Config holds the authentication and connection settings for Jira.
type Config struct {
	BaseURL string

	// Personal Access Token, preferred over cookies when set
	Token string

	// Data Center Cookies
	XsrfToken  string
	SessionID  string
	RememberMe string

	// Load Balancer Cookies
	GCILB string
	GCLB  string

	// StoryPointsField is the custom field holding story points (e.g. customfield_10014).
	StoryPointsField string

	// Performance Settings
	RequestDelay time.Duration
	MaxRetries   int
}

// NewClient creates a new Jira client based on the provided configuration.
func NewClient(cfg Config) Client {
	return NewDataCenterClient(cfg)
}

// SearchAll pages through a JQL search until Jira's reported total is reached
// or an empty page comes back.
func SearchAll(ctx context.Context, c Client, jql string, pageSize int) ([]IssueDTO, error) {
	if pageSize <= 0 {
		pageSize = 50
	}

	var issues []IssueDTO
	startAt := 0
	total := -1

	for total < 0 || startAt < total {
		page, err := c.SearchIssues(ctx, jql, startAt, pageSize)
		if err != nil {
			return nil, err
		}
		if total < 0 {
			total = page.Total
		}
		if len(page.Issues) == 0 {
			break
		}
		issues = append(issues, page.Issues...)
		startAt += len(page.Issues)
	}

	return issues, nil
}
