package cfg

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var testEnvKeys = []string{
	"CONFIG_FILE", "PLAYER_DATA_PATH", "TEAM_DATA_PATH", "MODEL_URL", "PREPROCESSOR_URL",
	"DATA_PATH", "HTTP_PORT", "FETCH_TIMEOUT", "FETCH_RETRIES", "RECENT_SEASONS",
	"RECENT_SEASON_WEIGHT", "TARGET_COLUMN", "COVARIATE_COLUMN", "WEIGHTED_COLUMN",
	"PLAYER_ENTITY_COLUMN", "TEAM_ENTITY_COLUMN", "PERIOD_COLUMN", "DROP_COLUMNS",
	"SUGGEST_MIN_QUERY", "SUGGEST_LIMIT", "TOP_SCORERS_LIMIT", "RATE_LIMIT_RPS",
	"RATE_LIMIT_BURST", "LOG_LEVEL",
}

// clearTestEnv blanks every variable the loader reads; t.Setenv restores them afterwards.
func clearTestEnv(t *testing.T) {
	t.Helper()
	for _, k := range testEnvKeys {
		t.Setenv(k, "")
	}
}

func TestLoadFromEnv(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		wantErr  bool
		validate func(t *testing.T, settings Settings)
	}{
		{
			name:    "defaults",
			envVars: map[string]string{},
			validate: func(t *testing.T, settings Settings) {
				if settings.RecentSeasons != 3 {
					t.Errorf("expected default RecentSeasons 3, got %d", settings.RecentSeasons)
				}
				if settings.RecentWeight != 2 {
					t.Errorf("expected default RecentWeight 2, got %f", settings.RecentWeight)
				}
				if settings.TargetColumn != "Goals" || settings.CovariateColumn != "Age" {
					t.Errorf("unexpected default columns %s/%s", settings.TargetColumn, settings.CovariateColumn)
				}
				if settings.WeightedColumn != "Weighted_Goals" {
					t.Errorf("expected Weighted_Goals, got %s", settings.WeightedColumn)
				}
				if settings.HTTPPort != 8501 {
					t.Errorf("expected default port 8501, got %d", settings.HTTPPort)
				}
				if settings.FetchTimeout != 30*time.Second {
					t.Errorf("expected default FetchTimeout 30s, got %v", settings.FetchTimeout)
				}
				if settings.SuggestMinQuery != 3 || settings.SuggestLimit != 10 {
					t.Errorf("unexpected suggestion defaults %d/%d", settings.SuggestMinQuery, settings.SuggestLimit)
				}
				if settings.TopScorersLimit != 100 {
					t.Errorf("expected TopScorersLimit 100, got %d", settings.TopScorersLimit)
				}
				if settings.DataPath != "" {
					t.Errorf("expected empty DataPath, got %s", settings.DataPath)
				}
			},
		},
		{
			name: "custom weighting and columns",
			envVars: map[string]string{
				"RECENT_SEASONS":       "5",
				"RECENT_SEASON_WEIGHT": "1.5",
				"TARGET_COLUMN":        "Assists",
				"WEIGHTED_COLUMN":      "Weighted_Assists",
				"DROP_COLUMNS":         "Nation, League",
				"FETCH_TIMEOUT":        "10s",
				"HTTP_PORT":            "9090",
			},
			validate: func(t *testing.T, settings Settings) {
				if settings.RecentSeasons != 5 {
					t.Errorf("expected RecentSeasons 5, got %d", settings.RecentSeasons)
				}
				if settings.RecentWeight != 1.5 {
					t.Errorf("expected RecentWeight 1.5, got %f", settings.RecentWeight)
				}
				if settings.TargetColumn != "Assists" {
					t.Errorf("expected Assists, got %s", settings.TargetColumn)
				}
				if len(settings.DropColumns) != 2 || settings.DropColumns[0] != "Nation" || settings.DropColumns[1] != "League" {
					t.Errorf("unexpected drop columns %v", settings.DropColumns)
				}
				if settings.FetchTimeout != 10*time.Second {
					t.Errorf("expected FetchTimeout 10s, got %v", settings.FetchTimeout)
				}
				if settings.HTTPPort != 9090 {
					t.Errorf("expected port 9090, got %d", settings.HTTPPort)
				}
			},
		},
		{
			name:    "zero recent weight rejected",
			envVars: map[string]string{"RECENT_SEASON_WEIGHT": "0"},
			wantErr: true,
		},
		{
			name:    "weighted column equal to target rejected",
			envVars: map[string]string{"WEIGHTED_COLUMN": "Goals"},
			wantErr: true,
		},
		{
			name:    "bad log level",
			envVars: map[string]string{"LOG_LEVEL": "verbose"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearTestEnv(t)
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			settings, err := loadFromEnv()
			if tt.wantErr && err == nil {
				t.Error("expected error but got none")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.wantErr && tt.validate != nil {
				tt.validate(t, settings)
			}
		})
	}
}

func TestLoadFromYAML(t *testing.T) {
	tests := []struct {
		name         string
		yamlContent  string
		envOverrides map[string]string
		wantErr      bool
		validate     func(t *testing.T, settings Settings)
	}{
		{
			name: "full YAML",
			yamlContent: `
data:
  players: "stats/players.csv"
  teams: "stats/teams.csv"
model:
  modelURL: "https://example.com/model.json"
  preprocessorURL: "https://example.com/preprocessor.json"
  fetchTimeout: "20s"
  fetchRetries: 2
features:
  recentSeasons: 4
  recentWeight: 3
  dropColumns: ["Nation"]
system:
  dataPath: "/var/lib/footstats"
  httpPort: 9000
  logLevel: "debug"
`,
			validate: func(t *testing.T, settings Settings) {
				if settings.PlayerDataPath != "stats/players.csv" {
					t.Errorf("expected players path from YAML, got %s", settings.PlayerDataPath)
				}
				if settings.ModelURL != "https://example.com/model.json" {
					t.Errorf("unexpected model URL %s", settings.ModelURL)
				}
				if settings.FetchTimeout != 20*time.Second {
					t.Errorf("expected 20s timeout, got %v", settings.FetchTimeout)
				}
				if settings.FetchRetries != 2 {
					t.Errorf("expected 2 retries, got %d", settings.FetchRetries)
				}
				if settings.RecentSeasons != 4 || settings.RecentWeight != 3 {
					t.Errorf("unexpected weighting %d/%f", settings.RecentSeasons, settings.RecentWeight)
				}
				if settings.DataPath != "/var/lib/footstats" {
					t.Errorf("unexpected data path %s", settings.DataPath)
				}
				if settings.LogLevel != "debug" {
					t.Errorf("expected debug log level, got %s", settings.LogLevel)
				}
				// Unset sections fall back to defaults
				if settings.TargetColumn != "Goals" {
					t.Errorf("expected default target column, got %s", settings.TargetColumn)
				}
			},
		},
		{
			name: "YAML with env overrides",
			yamlContent: `
features:
  recentSeasons: 4
system:
  httpPort: 9000
`,
			envOverrides: map[string]string{
				"RECENT_SEASONS": "2",
				"MODEL_URL":      "models/other.json",
			},
			validate: func(t *testing.T, settings Settings) {
				if settings.RecentSeasons != 2 {
					t.Errorf("expected env override RecentSeasons 2, got %d", settings.RecentSeasons)
				}
				if settings.ModelURL != "models/other.json" {
					t.Errorf("expected env override model URL, got %s", settings.ModelURL)
				}
				if settings.HTTPPort != 9000 {
					t.Errorf("expected YAML port 9000, got %d", settings.HTTPPort)
				}
			},
		},
		{
			name: "YAML with invalid values",
			yamlContent: `
system:
  httpPort: 80
`,
			wantErr: true,
		},
		{
			name:        "invalid YAML",
			yamlContent: `invalid: yaml: content: [`,
			wantErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearTestEnv(t)
			for key, value := range tt.envOverrides {
				t.Setenv(key, value)
			}

			tmpDir := t.TempDir()
			configPath := filepath.Join(tmpDir, "config.yaml")
			if err := os.WriteFile(configPath, []byte(tt.yamlContent), 0o644); err != nil {
				t.Fatalf("failed to write test config file: %v", err)
			}

			settings, err := loadFromYAML(configPath)

			if tt.wantErr && err == nil {
				t.Error("expected error but got none")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.wantErr && tt.validate != nil {
				tt.validate(t, settings)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	clearTestEnv(t)

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("system:\n  httpPort: 9123\n"), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	t.Setenv("CONFIG_FILE", configPath)
	settings, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.HTTPPort != 9123 {
		t.Errorf("expected YAML to be used when CONFIG_FILE is set, got port %d", settings.HTTPPort)
	}

	t.Setenv("CONFIG_FILE", filepath.Join(tmpDir, "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestFeatureDropColumns(t *testing.T) {
	s := Settings{
		TargetColumn:       "Goals",
		PeriodColumn:       "Season",
		PlayerEntityColumn: "Name",
		DropColumns:        []string{"Nation", "Goals", ""},
	}

	got := s.FeatureDropColumns()
	want := []string{"Goals", "Season", "Name", "Nation"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}
