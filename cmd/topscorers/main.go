package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"football-stats/internal/cfg"
	"football-stats/internal/features"
	"football-stats/internal/metrics"
	"football-stats/internal/ml"
	"football-stats/internal/report"
	"football-stats/internal/stats"
	"football-stats/internal/storage"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	var (
		dataPath   = flag.String("data", "", "Player stats CSV (overrides config)")
		modelURL   = flag.String("model", "", "Model artifact path or URL (overrides config)")
		outputPath = flag.String("output", "reports", "Output directory for the report")
		limit      = flag.Int("limit", 0, "Number of players in the table (0 uses config)")
		workers    = flag.Int("workers", runtime.NumCPU(), "Concurrent predictions")
		logLevel   = flag.String("log-level", "info", "Log level: debug, info, warn, error")
		noStore    = flag.Bool("no-store", false, "Do not write predictions to the ledger")
	)
	flag.Parse()

	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("failed to read .env")
	}

	config, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	if *dataPath != "" {
		config.PlayerDataPath = *dataPath
	}
	if *modelURL != "" {
		config.ModelURL = *modelURL
	}
	if *limit <= 0 {
		*limit = config.TopScorersLimit
	}

	fmt.Println("=== Top Scorers Configuration ===")
	fmt.Printf("Player Data: %s\n", config.PlayerDataPath)
	fmt.Printf("Model: %s\n", config.ModelURL)
	fmt.Printf("Preprocessor: %s\n", config.PreprocessorURL)
	fmt.Printf("Output Directory: %s\n", *outputPath)
	fmt.Printf("Limit: %d\n", *limit)
	fmt.Println("=================================")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	mw := metrics.NewWrapper(metrics.New())
	weighting := features.Weighting{RecentSeasons: config.RecentSeasons, RecentWeight: config.RecentWeight}

	players, err := stats.LoadCSV(config.PlayerDataPath, config.PlayerEntityColumn, config.PeriodColumn)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load player stats")
	}
	players, err = weighting.AugmentDataset(players, config.TargetColumn, config.WeightedColumn, mw)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to compute weighted target")
	}
	log.Info().Int("records", players.Len()).Int("players", len(players.Entities())).Msg("Player stats loaded")

	models := ml.NewModelManager(ml.NewArtifactLoader(config.FetchTimeout, config.FetchRetries), config.ModelURL, config.PreprocessorURL, mw)
	if err := models.Load(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to load model artifacts")
	}

	predictor := ml.NewGoalPredictor(ml.PredictorConfig{
		Weighting:       weighting,
		TargetColumn:    config.TargetColumn,
		CovariateColumn: config.CovariateColumn,
		WeightedColumn:  config.WeightedColumn,
		DropColumns:     config.FeatureDropColumns(),
	}, mw)

	engine := report.NewEngine(players, predictor, models.Model(), models.Preprocessor(),
		models.ModelVersion(), config.TeamEntityColumn, *workers)
	results, err := engine.Run(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Batch prediction failed")
	}

	if !*noStore && config.DataPath != "" {
		if err := storeResults(config.DataPath, results, mw); err != nil {
			log.Error().Err(err).Msg("Failed to store predictions")
		}
	}

	reporter := report.NewReporter(results, *outputPath, *limit)
	if err := reporter.GenerateReport(); err != nil {
		log.Fatal().Err(err).Msg("Failed to generate report")
	}
	reporter.PrintSummary()
}

// storeResults writes the run's predictions and a run summary to the ledger.
func storeResults(dataPath string, results *report.Results, mw *metrics.MetricsWrapper) error {
	store, err := storage.New(dataPath)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.StorePredictions(results.Predictions); err != nil {
		return err
	}
	stored := mw.PredictionsStored()
	for range results.Predictions {
		stored.Inc()
	}

	return store.StoreRun(storage.RunRecord{
		ID:           uuid.New().String(),
		ModelVersion: results.ModelVersion,
		Players:      results.Players,
		Stored:       len(results.Predictions),
		Failed:       len(results.Failures),
		StartedAt:    results.StartTime,
		FinishedAt:   results.EndTime,
	})
}
