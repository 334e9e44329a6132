package commands

import (
	"errors"
	"fmt"
	"time"

	"mcs-forecast/internal/history"
	"mcs-forecast/internal/ingestion"
	"mcs-forecast/internal/jira"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Pull recently completed Jira items into the local history store",
	Long: `sync searches Jira for items completed in the last --days days, fetches the
changelog of every item not yet stored and records its cycle time and story points.
Items listed in MCS_OUTLIERS are removed after every run.`,
	Example: `  mcs-forecast sync --projects PROJ,OPS --days 90
  mcs-forecast sync --jql 'project = PROJ and statusCategory = Done'`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().String("jql", "", "Search query (overrides --projects and --days)")
	syncCmd.Flags().StringSlice("projects", nil, "Project keys to sync (default JIRA_PROJECTS)")
	syncCmd.Flags().Int("days", 0, "Look-back window in days (default MCS_SYNC_DAYS)")
	syncCmd.Flags().Int("concurrency", 4, "Changelog requests in flight")
}

func runSync(cmd *cobra.Command, _ []string) error {
	jql, _ := cmd.Flags().GetString("jql")
	if jql == "" {
		jql = cfg.Sync.JQL
	}
	if jql == "" {
		projects, _ := cmd.Flags().GetStringSlice("projects")
		if len(projects) == 0 {
			projects = cfg.Sync.Projects
		}
		days, _ := cmd.Flags().GetInt("days")
		if days <= 0 {
			days = cfg.Sync.Days
		}
		if len(projects) == 0 {
			return errors.New("nothing to sync: set --projects, --jql, JIRA_PROJECTS or JIRA_JQL")
		}
		jql = ingestion.CompletedJQL(projects, days)
	}
	if cfg.Jira.BaseURL == "" {
		return errors.New("JIRA_URL is not configured")
	}

	concurrency, _ := cmd.Flags().GetInt("concurrency")
	syncer := ingestion.NewSyncer(jira.NewClient(cfg.Jira), history.NewStore(), cfg.StorePath(), ingestion.Options{
		StoryPointsField: cfg.Jira.StoryPointsField,
		Outliers:         cfg.Sync.Outliers,
		Concurrency:      concurrency,
	})

	log.Info().Str("jql", jql).Msg("Syncing completed items")
	res, err := syncer.Sync(cmd.Context(), jql)
	if err != nil {
		if jira.IsAuthError(err) {
			return fmt.Errorf("jira rejected the credentials, refresh JIRA_TOKEN or the session cookies: %w", err)
		}
		return err
	}

	cmd.Printf("Found %d items, added %d, skipped %d, removed %d outliers in %s. Store holds %d items (%s).\n",
		res.Found, res.Added, res.Skipped, res.Removed, res.Elapsed.Round(time.Millisecond), res.StoreLen, cfg.StorePath())
	return nil
}
