package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"mcs-forecast/internal/jira"
	"mcs-forecast/internal/simulation"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// ForecastConfig holds the simulation defaults.
type ForecastConfig struct {
	HistoryDays int
	Trials      int
	Workers     int
	Percentiles []float64
}

// SyncConfig describes which completed items are pulled from Jira.
type SyncConfig struct {
	Projects []string
	JQL      string
	Days     int
	Outliers []string
}

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Jira                jira.Config
	Forecast            ForecastConfig
	Sync                SyncConfig
	DataPath            string
	LogDir              string
	CacheDir            string
	ChartsDir           string
	StoreName           string
	EnableMermaidCharts bool
}

// StorePath is the JSONL file holding the completed item history.
func (c *AppConfig) StorePath() string {
	return filepath.Join(c.CacheDir, c.StoreName+".jsonl")
}

// Load loads the configuration from .env files and environment variables.
func Load() (*AppConfig, error) {
	var envFiles []string

	// 1. The executable's directory wins (the binary may be launched by an MCP host from anywhere)
	exePath, err := os.Executable()
	exeDir := ""
	if err == nil {
		exeDir = filepath.Dir(exePath)
		envFiles = append(envFiles, filepath.Join(exeDir, ".env"))
	}

	// 2. Fallback to current working directory (useful for development/go run)
	envFiles = append(envFiles, ".env")

	return LoadFrom(exeDir, envFiles...)
}

// LoadFrom reads the given .env files in order (earlier files win) and then
// the environment. defaultDataPath is used when DATA_PATH is unset.
func LoadFrom(defaultDataPath string, envFiles ...string) (*AppConfig, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err == nil {
			log.Debug().Str("path", f).Msg("Loaded configuration file")
		}
	}

	// Resolve Data Paths
	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		dataPath = defaultDataPath
	}
	if dataPath == "" {
		dataPath = "."
	}

	logDir := filepath.Join(dataPath, "logs")
	cacheDir := filepath.Join(dataPath, "cache")
	chartsDir := filepath.Join(dataPath, "charts")

	for _, dir := range []string{logDir, cacheDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Warn().Err(err).Str("path", dir).Msg("Failed to create data directory")
		}
	}

	delaySecs, err := strconv.ParseFloat(getEnv("JIRA_REQUEST_DELAY_SECONDS", "0.2"), 64)
	if err != nil {
		return nil, fmt.Errorf("JIRA_REQUEST_DELAY_SECONDS: %w", err)
	}

	fc, err := loadForecast()
	if err != nil {
		return nil, err
	}

	syncDays, err := getEnvInt("MCS_SYNC_DAYS", 60)
	if err != nil {
		return nil, err
	}

	cfg := &AppConfig{
		Jira: jira.Config{
			BaseURL:          getEnv("JIRA_URL", ""),
			XsrfToken:        getEnv("JIRA_XSRF_TOKEN", ""),
			SessionID:        getEnv("JIRA_SESSION_ID", ""),
			RememberMe:       getEnv("JIRA_REMEMBERME_COOKIE", ""),
			Token:            getEnv("JIRA_TOKEN", ""),
			GCILB:            getEnv("JIRA_GCILB", ""),
			GCLB:             getEnv("JIRA_GCLB", ""),
			StoryPointsField: getEnv("JIRA_STORY_POINTS_FIELD", "customfield_10002"),
			RequestDelay:     time.Duration(delaySecs * float64(time.Second)),
		},
		Forecast: fc,
		Sync: SyncConfig{
			Projects: getEnvList("JIRA_PROJECTS"),
			JQL:      getEnv("JIRA_JQL", ""),
			Days:     syncDays,
			Outliers: getEnvList("MCS_OUTLIERS"),
		},
		DataPath:            dataPath,
		LogDir:              logDir,
		CacheDir:            cacheDir,
		ChartsDir:           chartsDir,
		StoreName:           getEnv("MCS_STORE_NAME", "history"),
		EnableMermaidCharts: getEnvBool("ENABLE_MERMAID_CHARTS", false),
	}

	return cfg, nil
}

func loadForecast() (ForecastConfig, error) {
	var fc ForecastConfig
	var err error

	if fc.HistoryDays, err = getEnvInt("MCS_HISTORY_DAYS", 60); err != nil {
		return fc, err
	}
	if fc.Trials, err = getEnvInt("MCS_TRIALS", simulation.DefaultTrials); err != nil {
		return fc, err
	}
	if fc.Workers, err = getEnvInt("MCS_WORKERS", 0); err != nil {
		return fc, err
	}

	fc.Percentiles = simulation.DefaultPercentiles
	if raw := getEnvList("MCS_PERCENTILES"); len(raw) > 0 {
		if fc.Percentiles, err = ParsePercentiles(raw); err != nil {
			return fc, err
		}
	}
	return fc, nil
}

// ParsePercentiles accepts levels as fractions ("0.5,0.85") or percentages
// ("50,85" or "85%"). A list is read as percentages as soon as one value has a
// "%" suffix or exceeds 1; a bare value of at most 1 in such a list ("1,50")
// is ambiguous and rejected. A lone "1" is the fraction 1.0.
func ParsePercentiles(values []string) ([]float64, error) {
	levels := make([]float64, len(values))
	marked := make([]bool, len(values))
	percent := false
	for i, v := range values {
		v = strings.TrimSpace(v)
		marked[i] = strings.HasSuffix(v, "%")
		p, err := strconv.ParseFloat(strings.TrimSuffix(v, "%"), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: percentile %q", simulation.ErrInvalidConfig, v)
		}
		levels[i] = p
		percent = percent || marked[i] || p > 1
	}

	if percent {
		for i, p := range levels {
			if !marked[i] && p <= 1 {
				return nil, fmt.Errorf("%w: percentile %q is ambiguous next to percentages, write %q or use fractions throughout",
					simulation.ErrInvalidConfig, strings.TrimSpace(values[i]), strings.TrimSpace(values[i])+"%")
			}
			levels[i] = p / 100
		}
	}

	if err := simulation.ValidatePercentiles(levels); err != nil {
		return nil, err
	}
	return levels, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
