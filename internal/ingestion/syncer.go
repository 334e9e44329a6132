// Package ingestion pulls completed work items from Jira into the local history store.
package ingestion

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"mcs-forecast/internal/history"
	"mcs-forecast/internal/jira"
)

const (
	defaultPageSize    = 100
	defaultConcurrency = 4
)

// CompletedJQL builds the query for Stories, Tasks, Bugs and Improvements that
// reached Done or Closed within the last days.
func CompletedJQL(projects []string, days int) string {
	return fmt.Sprintf(
		"status changed to (Done, Closed) DURING (-%dd, now()) and project in (%s) and issuetype in (Story, Task, Bug, Improvement)",
		days, strings.Join(projects, ", "),
	)
}

// Options tune a sync run.
type Options struct {
	StoryPointsField string
	// Outliers are removed from the store after every sync.
	Outliers    []string
	PageSize    int
	Concurrency int
}

// Result summarizes one sync run.
type Result struct {
	Found    int           `json:"found"`
	Added    int           `json:"added"`
	Skipped  int           `json:"skipped"`
	Removed  int           `json:"removed"`
	Elapsed  time.Duration `json:"elapsed"`
	StoreLen int           `json:"store_len"`
}

// Syncer orchestrates search, changelog retrieval and persistence.
type Syncer struct {
	client    jira.Client
	store     *history.Store
	storePath string
	opts      Options
}

// NewSyncer wires a Jira client to a store persisted at storePath.
// An empty storePath keeps the store in memory only.
func NewSyncer(client jira.Client, store *history.Store, storePath string, opts Options) *Syncer {
	if opts.PageSize <= 0 {
		opts.PageSize = defaultPageSize
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	return &Syncer{
		client:    client,
		store:     store,
		storePath: storePath,
		opts:      opts,
	}
}

// Sync loads the store, fetches the changelog of every matching issue not yet
// stored, adds the ones with a complete cycle and saves the store again.
func (s *Syncer) Sync(ctx context.Context, jql string) (Result, error) {
	began := time.Now()
	var res Result

	if s.storePath != "" {
		if err := s.store.Load(s.storePath); err != nil {
			return res, err
		}
	}

	issues, err := jira.SearchAll(ctx, s.client, jql, s.opts.PageSize)
	if err != nil {
		return res, fmt.Errorf("sync search failed: %w", err)
	}
	res.Found = len(issues)

	var pending []string
	for _, dto := range issues {
		if !s.store.Has(dto.Key) {
			pending = append(pending, dto.Key)
		}
	}
	log.Info().Int("found", res.Found).Int("new", len(pending)).Msg("Fetching changelogs for new issues")

	var (
		added, skipped, processed atomic.Int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)

	for _, key := range pending {
		g.Go(func() error {
			dto, err := s.client.GetIssueWithChangelog(gctx, key)
			if err != nil {
				return err
			}

			if item, ok := jira.MapCompletedItem(*dto, s.opts.StoryPointsField); ok {
				added.Add(int64(s.store.Add(item)))
				log.Debug().
					Str("key", item.Key).
					Str("type", item.Type).
					Float64("points", item.StoryPoints).
					Float64("duration", item.DurationDays).
					Msg("Added completed item")
			} else {
				skipped.Add(1)
				log.Debug().Str("key", key).Msg("No start/done transition, skipping")
			}

			if n := processed.Add(1); n%25 == 0 {
				log.Info().Int64("processed", n).Int("total", len(pending)).Msg("Sync progress")
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return res, fmt.Errorf("sync changelog fetch failed: %w", err)
	}

	res.Added = int(added.Load())
	res.Skipped = int(skipped.Load())
	res.Removed = s.store.Remove(s.opts.Outliers...)
	res.StoreLen = s.store.Len()

	if s.storePath != "" {
		if err := s.store.Save(s.storePath); err != nil {
			return res, err
		}
	}

	res.Elapsed = time.Since(began)
	log.Info().
		Int("added", res.Added).
		Int("skipped", res.Skipped).
		Int("removed", res.Removed).
		Dur("elapsed", res.Elapsed).
		Msg("Sync finished")
	return res, nil
}
