// Package cfg loads service settings from an optional YAML file overlaid by
// environment variables, and validates them before anything else starts.
package cfg

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"football-stats/internal/common"

	"gopkg.in/yaml.v3"
)

type Settings struct {
	PlayerDataPath     string
	TeamDataPath       string
	ModelURL           string
	PreprocessorURL    string
	DataPath           string
	HTTPPort           int
	FetchTimeout       time.Duration
	FetchRetries       int
	RecentSeasons      int
	RecentWeight       float64
	TargetColumn       string
	CovariateColumn    string
	WeightedColumn     string
	PlayerEntityColumn string
	TeamEntityColumn   string
	PeriodColumn       string
	DropColumns        []string
	SuggestMinQuery    int
	SuggestLimit       int
	TopScorersLimit    int
	RateLimitRPS       float64
	RateLimitBurst     int
	LogLevel           string
}

type ConfigFile struct {
	Data struct {
		Players string `yaml:"players"`
		Teams   string `yaml:"teams"`
	} `yaml:"data"`

	Model struct {
		ModelURL        string `yaml:"modelURL"`
		PreprocessorURL string `yaml:"preprocessorURL"`
		FetchTimeout    string `yaml:"fetchTimeout"`
		FetchRetries    int    `yaml:"fetchRetries"`
	} `yaml:"model"`

	Features struct {
		RecentSeasons   int      `yaml:"recentSeasons"`
		RecentWeight    float64  `yaml:"recentWeight"`
		TargetColumn    string   `yaml:"targetColumn"`
		CovariateColumn string   `yaml:"covariateColumn"`
		WeightedColumn  string   `yaml:"weightedColumn"`
		DropColumns     []string `yaml:"dropColumns"`
	} `yaml:"features"`

	Columns struct {
		PlayerEntity string `yaml:"playerEntity"`
		TeamEntity   string `yaml:"teamEntity"`
		Period       string `yaml:"period"`
	} `yaml:"columns"`

	Search struct {
		SuggestMinQuery int `yaml:"suggestMinQuery"`
		SuggestLimit    int `yaml:"suggestLimit"`
		TopScorersLimit int `yaml:"topScorersLimit"`
	} `yaml:"search"`

	System struct {
		DataPath       string  `yaml:"dataPath"`
		HTTPPort       int     `yaml:"httpPort"`
		RateLimitRPS   float64 `yaml:"rateLimitRPS"`
		RateLimitBurst int     `yaml:"rateLimitBurst"`
		LogLevel       string  `yaml:"logLevel"`
	} `yaml:"system"`
}

func Load() (Settings, error) {
	// Try to load from YAML file first
	if configPath := os.Getenv(common.EnvConfigFile); configPath != "" {
		return loadFromYAML(configPath)
	}

	// Fallback to environment variables
	return loadFromEnv()
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	fetchTimeout, err := time.ParseDuration(config.Model.FetchTimeout)
	if err != nil {
		fetchTimeout = 30 * time.Second
	}

	settings := Settings{
		PlayerDataPath:     getEnvOrDefault(common.EnvPlayerDataPath, orString(config.Data.Players, common.DefaultPlayerDataPath)),
		TeamDataPath:       getEnvOrDefault(common.EnvTeamDataPath, orString(config.Data.Teams, common.DefaultTeamDataPath)),
		ModelURL:           getEnvOrDefault(common.EnvModelURL, orString(config.Model.ModelURL, common.DefaultModelURL)),
		PreprocessorURL:    getEnvOrDefault(common.EnvPreprocessorURL, orString(config.Model.PreprocessorURL, common.DefaultPreprocessorURL)),
		DataPath:           getEnvOrDefault(common.EnvDataPath, config.System.DataPath),
		HTTPPort:           getIntFromEnvOrConfig(common.EnvHTTPPort, config.System.HTTPPort, common.DefaultHTTPPort),
		FetchTimeout:       getDurationOrDefault(common.EnvFetchTimeout, fetchTimeout),
		FetchRetries:       getIntFromEnvOrConfig(common.EnvFetchRetries, config.Model.FetchRetries, common.DefaultFetchRetries),
		RecentSeasons:      getIntFromEnvOrConfig(common.EnvRecentSeasons, config.Features.RecentSeasons, common.DefaultRecentSeasons),
		RecentWeight:       getFloatFromEnvOrConfig(common.EnvRecentWeight, config.Features.RecentWeight, common.DefaultRecentWeight),
		TargetColumn:       getEnvOrDefault(common.EnvTargetColumn, orString(config.Features.TargetColumn, common.ColumnGoals)),
		CovariateColumn:    getEnvOrDefault(common.EnvCovariateColumn, orString(config.Features.CovariateColumn, common.ColumnAge)),
		WeightedColumn:     getEnvOrDefault(common.EnvWeightedColumn, orString(config.Features.WeightedColumn, common.ColumnWeightedGoals)),
		PlayerEntityColumn: getEnvOrDefault(common.EnvPlayerEntityColumn, orString(config.Columns.PlayerEntity, common.ColumnName)),
		TeamEntityColumn:   getEnvOrDefault(common.EnvTeamEntityColumn, orString(config.Columns.TeamEntity, common.ColumnTeam)),
		PeriodColumn:       getEnvOrDefault(common.EnvPeriodColumn, orString(config.Columns.Period, common.ColumnSeason)),
		DropColumns:        getListFromEnvOrConfig(common.EnvDropColumns, config.Features.DropColumns),
		SuggestMinQuery:    getIntFromEnvOrConfig(common.EnvSuggestMinQuery, config.Search.SuggestMinQuery, common.DefaultSuggestMinQuery),
		SuggestLimit:       getIntFromEnvOrConfig(common.EnvSuggestLimit, config.Search.SuggestLimit, common.DefaultSuggestLimit),
		TopScorersLimit:    getIntFromEnvOrConfig(common.EnvTopScorersLimit, config.Search.TopScorersLimit, common.DefaultTopScorersLimit),
		RateLimitRPS:       getFloatFromEnvOrConfig(common.EnvRateLimitRPS, config.System.RateLimitRPS, common.DefaultRateLimitRPS),
		RateLimitBurst:     getIntFromEnvOrConfig(common.EnvRateLimitBurst, config.System.RateLimitBurst, common.DefaultRateLimitBurst),
		LogLevel:           getEnvOrDefault(common.EnvLogLevel, orString(config.System.LogLevel, common.DefaultLogLevel)),
	}

	// Validate configuration
	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func loadFromEnv() (Settings, error) {
	settings := Settings{
		PlayerDataPath:     getEnvOrDefault(common.EnvPlayerDataPath, common.DefaultPlayerDataPath),
		TeamDataPath:       getEnvOrDefault(common.EnvTeamDataPath, common.DefaultTeamDataPath),
		ModelURL:           getEnvOrDefault(common.EnvModelURL, common.DefaultModelURL),
		PreprocessorURL:    getEnvOrDefault(common.EnvPreprocessorURL, common.DefaultPreprocessorURL),
		DataPath:           os.Getenv(common.EnvDataPath), // optional
		HTTPPort:           getIntOrDefault(common.EnvHTTPPort, common.DefaultHTTPPort),
		FetchTimeout:       getDurationOrDefault(common.EnvFetchTimeout, 30*time.Second),
		FetchRetries:       getIntOrDefault(common.EnvFetchRetries, common.DefaultFetchRetries),
		RecentSeasons:      getIntOrDefault(common.EnvRecentSeasons, common.DefaultRecentSeasons),
		RecentWeight:       getFloatOrDefault(common.EnvRecentWeight, common.DefaultRecentWeight),
		TargetColumn:       getEnvOrDefault(common.EnvTargetColumn, common.ColumnGoals),
		CovariateColumn:    getEnvOrDefault(common.EnvCovariateColumn, common.ColumnAge),
		WeightedColumn:     getEnvOrDefault(common.EnvWeightedColumn, common.ColumnWeightedGoals),
		PlayerEntityColumn: getEnvOrDefault(common.EnvPlayerEntityColumn, common.ColumnName),
		TeamEntityColumn:   getEnvOrDefault(common.EnvTeamEntityColumn, common.ColumnTeam),
		PeriodColumn:       getEnvOrDefault(common.EnvPeriodColumn, common.ColumnSeason),
		DropColumns:        splitOrDefault(os.Getenv(common.EnvDropColumns), nil),
		SuggestMinQuery:    getIntOrDefault(common.EnvSuggestMinQuery, common.DefaultSuggestMinQuery),
		SuggestLimit:       getIntOrDefault(common.EnvSuggestLimit, common.DefaultSuggestLimit),
		TopScorersLimit:    getIntOrDefault(common.EnvTopScorersLimit, common.DefaultTopScorersLimit),
		RateLimitRPS:       getFloatOrDefault(common.EnvRateLimitRPS, common.DefaultRateLimitRPS),
		RateLimitBurst:     getIntOrDefault(common.EnvRateLimitBurst, common.DefaultRateLimitBurst),
		LogLevel:           getEnvOrDefault(common.EnvLogLevel, common.DefaultLogLevel),
	}

	// Validate configuration
	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

// FeatureDropColumns returns every column that must be stripped from a
// prediction row: the target, the entity and period identifiers, and any
// extra configured columns. Duplicates are removed.
func (s *Settings) FeatureDropColumns() []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range append([]string{s.TargetColumn, s.PeriodColumn, s.PlayerEntityColumn}, s.DropColumns...) {
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

func orString(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func splitOrDefault(v string, def []string) []string {
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getIntFromEnvOrConfig(key string, configValue, defaultValue int) int {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.Atoi(env); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

func getFloatFromEnvOrConfig(key string, configValue, defaultValue float64) float64 {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.ParseFloat(env, 64); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

func getListFromEnvOrConfig(key string, configValue []string) []string {
	if env := os.Getenv(key); env != "" {
		return splitOrDefault(env, nil)
	}
	return configValue
}

// validateSettings performs range checks on configuration values
func validateSettings(settings *Settings) error {
	if settings.PlayerDataPath == "" {
		return fmt.Errorf("player data path cannot be empty")
	}
	if settings.ModelURL == "" || settings.PreprocessorURL == "" {
		return fmt.Errorf("model and preprocessor locations are required")
	}

	for name, v := range map[string]string{
		"target":        settings.TargetColumn,
		"weighted":      settings.WeightedColumn,
		"player entity": settings.PlayerEntityColumn,
		"team entity":   settings.TeamEntityColumn,
		"period":        settings.PeriodColumn,
	} {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("%s %s", name, common.ErrMsgColumnMissing)
		}
	}
	if settings.WeightedColumn == settings.TargetColumn {
		return fmt.Errorf("weighted column must differ from target column %q", settings.TargetColumn)
	}

	if settings.HTTPPort < common.MinHTTPPort || settings.HTTPPort > common.MaxHTTPPort {
		return fmt.Errorf("HTTP port must be between %d and %d, got %d", common.MinHTTPPort, common.MaxHTTPPort, settings.HTTPPort)
	}
	if settings.FetchTimeout < time.Second || settings.FetchTimeout > 5*time.Minute {
		return fmt.Errorf("fetch timeout must be between 1s and 5m, got %v", settings.FetchTimeout)
	}
	if settings.FetchRetries < 0 || settings.FetchRetries > common.MaxFetchRetries {
		return fmt.Errorf("fetch retries must be between 0 and %d, got %d", common.MaxFetchRetries, settings.FetchRetries)
	}

	// Weights must stay positive so the weighted average remains a convex combination
	if settings.RecentSeasons < 0 || settings.RecentSeasons > common.MaxRecentSeasons {
		return fmt.Errorf("recent seasons must be between 0 and %d, got %d", common.MaxRecentSeasons, settings.RecentSeasons)
	}
	if settings.RecentWeight <= 0 || settings.RecentWeight > common.MaxRecentWeight {
		return fmt.Errorf("recent season weight must be between 0 and %.0f, got %f", common.MaxRecentWeight, settings.RecentWeight)
	}

	if settings.SuggestMinQuery < 0 {
		return fmt.Errorf("suggestion minimum query length cannot be negative, got %d", settings.SuggestMinQuery)
	}
	if settings.SuggestLimit <= 0 || settings.SuggestLimit > common.MaxSuggestLimit {
		return fmt.Errorf("suggestion limit must be between 1 and %d, got %d", common.MaxSuggestLimit, settings.SuggestLimit)
	}
	if settings.TopScorersLimit <= 0 || settings.TopScorersLimit > common.MaxTopScorersLimit {
		return fmt.Errorf("top scorers limit must be between 1 and %d, got %d", common.MaxTopScorersLimit, settings.TopScorersLimit)
	}
	if settings.RateLimitRPS <= 0 || settings.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit must be positive, got %f rps burst %d", settings.RateLimitRPS, settings.RateLimitBurst)
	}

	switch strings.ToLower(settings.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level: %s", settings.LogLevel)
	}

	return nil
}
