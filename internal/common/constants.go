package common

// Environment variable keys
const (
	EnvConfigFile         = "CONFIG_FILE"
	EnvPlayerDataPath     = "PLAYER_DATA_PATH"
	EnvTeamDataPath       = "TEAM_DATA_PATH"
	EnvModelURL           = "MODEL_URL"
	EnvPreprocessorURL    = "PREPROCESSOR_URL"
	EnvDataPath           = "DATA_PATH"
	EnvHTTPPort           = "HTTP_PORT"
	EnvFetchTimeout       = "FETCH_TIMEOUT"
	EnvFetchRetries       = "FETCH_RETRIES"
	EnvRecentSeasons      = "RECENT_SEASONS"
	EnvRecentWeight       = "RECENT_SEASON_WEIGHT"
	EnvTargetColumn       = "TARGET_COLUMN"
	EnvCovariateColumn    = "COVARIATE_COLUMN"
	EnvWeightedColumn     = "WEIGHTED_COLUMN"
	EnvPlayerEntityColumn = "PLAYER_ENTITY_COLUMN"
	EnvTeamEntityColumn   = "TEAM_ENTITY_COLUMN"
	EnvPeriodColumn       = "PERIOD_COLUMN"
	EnvDropColumns        = "DROP_COLUMNS"
	EnvSuggestMinQuery    = "SUGGEST_MIN_QUERY"
	EnvSuggestLimit       = "SUGGEST_LIMIT"
	EnvTopScorersLimit    = "TOP_SCORERS_LIMIT"
	EnvRateLimitRPS       = "RATE_LIMIT_RPS"
	EnvRateLimitBurst     = "RATE_LIMIT_BURST"
	EnvLogLevel           = "LOG_LEVEL"
)

// Column names of the bundled datasets
const (
	ColumnName          = "Name"
	ColumnTeam          = "Team"
	ColumnSeason        = "Season"
	ColumnGoals         = "Goals"
	ColumnAge           = "Age"
	ColumnWeightedGoals = "Weighted_Goals"
)

// Configuration defaults
const (
	DefaultPlayerDataPath  = "data/2017-2023 Football Stats (Cleaned).csv"
	DefaultTeamDataPath    = "data/Top5_SquadTotals.csv"
	DefaultModelURL        = "models/rf_best_model.json"
	DefaultPreprocessorURL = "models/preprocessor.json"
	DefaultHTTPPort        = 8501
	DefaultFetchRetries    = 3
	DefaultRecentSeasons   = 3
	DefaultRecentWeight    = 2.0
	DefaultSuggestMinQuery = 3
	DefaultSuggestLimit    = 10
	DefaultTopScorersLimit = 100
	DefaultRateLimitRPS    = 50.0
	DefaultRateLimitBurst  = 100
	DefaultLogLevel        = "info"
)

// Validation constants
const (
	MinHTTPPort         = 1024
	MaxHTTPPort         = 65535
	MaxFetchRetries     = 10
	MaxRecentSeasons    = 50
	MaxRecentWeight     = 100.0
	MaxSuggestLimit     = 1000
	MaxTopScorersLimit  = 10000
	ErrMsgColumnMissing = "column name must not be empty"
)
