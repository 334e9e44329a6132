package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"mcs-forecast/internal/config"
	"mcs-forecast/internal/logging"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Version, Commit, and BuildDate are set at build time via ldflags.
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"

	cfg *config.AppConfig
)

var rootCmd = &cobra.Command{
	Use:   "mcs-forecast",
	Short: "Monte-Carlo throughput forecasting for Jira teams",
	Long: `mcs-forecast answers "how many items will be done by a date?" and
"when will N items be done?" by resampling historical daily throughput.
History comes from a CSV file or from completed Jira items synced into a local store.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// Execute runs the root command, cancelling on SIGINT/SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(howManyCmd)
	rootCmd.AddCommand(whenCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)

	historyCmd.AddCommand(historySummaryCmd)
	historyCmd.AddCommand(historyExportCmd)
	historyCmd.AddCommand(historyRemoveCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	rootCmd.PersistentFlags().StringP("output", "o", "text", "Output format: text or json or yaml or csv")
	rootCmd.PersistentFlags().Int("history-days", 0, "Days of throughput history to sample (default from MCS_HISTORY_DAYS or 60)")
	rootCmd.PersistentFlags().Int("trials", 0, "Number of Monte-Carlo trials (default 100000)")
	rootCmd.PersistentFlags().Int("workers", 0, "Number of concurrent simulation workers (0 = all CPUs)")
	rootCmd.PersistentFlags().StringSlice("percentiles", nil, "Confidence levels, e.g. 50,70,85,95 or 0.5,0.85")
	rootCmd.PersistentFlags().Uint64("seed", 0, "Seed for reproducible runs (0 = random)")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		fmt.Fprintf(os.Stderr, "Error binding root flags: %v\n", err)
		os.Exit(1)
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName(".mcs-forecast")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
	}

	viper.SetEnvPrefix("MCS")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("output", "text")
}

// setup loads .env configuration, starts logging and applies flag overrides.
func setup(cmd *cobra.Command, _ []string) error {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := logging.Init(viper.GetBool("verbose"), cfg.LogDir); err != nil {
		return err
	}

	if err := applyOverrides(cfg); err != nil {
		return err
	}

	log.Debug().
		Str("version", Version).
		Str("commit", Commit).
		Str("command", cmd.Name()).
		Int("history_days", cfg.Forecast.HistoryDays).
		Int("trials", cfg.Forecast.Trials).
		Msg("mcs-forecast starting")
	return nil
}

// applyOverrides lets flags, MCS_* variables and the config file win over .env values.
func applyOverrides(c *config.AppConfig) error {
	if v := viper.GetInt("history-days"); v > 0 {
		c.Forecast.HistoryDays = v
	}
	if v := viper.GetInt("trials"); v > 0 {
		c.Forecast.Trials = v
	}
	if v := viper.GetInt("workers"); v > 0 {
		c.Forecast.Workers = v
	}
	if raw := splitList(viper.GetStringSlice("percentiles")); len(raw) > 0 {
		levels, err := config.ParsePercentiles(raw)
		if err != nil {
			return err
		}
		c.Forecast.Percentiles = levels
	}
	return nil
}

// splitList flattens comma separated elements. Viper splits MCS_PERCENTILES
// on whitespace only, so "50,70,85,95" arrives as a single element.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
