package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"football-stats/internal/api"
	"football-stats/internal/cfg"
	"football-stats/internal/features"
	"football-stats/internal/metrics"
	"football-stats/internal/ml"
	"football-stats/internal/stats"
	"football-stats/internal/storage"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// A missing .env is normal outside local development
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("failed to read .env")
	}

	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	setupLogging(c.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New()
	mw := metrics.NewWrapper(m)

	weighting := features.Weighting{RecentSeasons: c.RecentSeasons, RecentWeight: c.RecentWeight}
	players := loadPlayers(c, weighting, mw)
	teams := loadDataset(c.TeamDataPath, c.TeamEntityColumn, c.PeriodColumn, "teams", mw)

	models := ml.NewModelManager(ml.NewArtifactLoader(c.FetchTimeout, c.FetchRetries), c.ModelURL, c.PreprocessorURL, mw)
	if err := models.Load(ctx); err != nil {
		log.Error().Err(err).Msg("model artifacts unavailable, predictions disabled")
	}

	predictor := ml.NewGoalPredictor(ml.PredictorConfig{
		Weighting:       weighting,
		TargetColumn:    c.TargetColumn,
		CovariateColumn: c.CovariateColumn,
		WeightedColumn:  c.WeightedColumn,
		DropColumns:     c.FeatureDropColumns(),
	}, mw)

	store := initializeStorage(c)
	if store != nil {
		defer store.Close()
	}

	server := api.NewServer(api.Deps{
		Players:         players,
		Teams:           teams,
		Predictor:       predictor,
		Models:          models,
		Store:           store,
		Metrics:         mw,
		TeamColumn:      c.TeamEntityColumn,
		SuggestMinQuery: c.SuggestMinQuery,
		SuggestLimit:    c.SuggestLimit,
		TopLimit:        c.TopScorersLimit,
		RateLimitRPS:    c.RateLimitRPS,
		RateLimitBurst:  c.RateLimitBurst,
	}, c.HTTPPort)

	go func() {
		if err := server.Start(); err != nil {
			log.Error().Err(err).Msg("API server failed")
			cancel()
		}
	}()

	waitForShutdown(ctx, server)
}

func setupLogging(level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}

// loadDataset returns nil when the file cannot be read so the server can
// still answer with 503 for the affected endpoints.
func loadDataset(path, entityColumn, periodColumn, name string, mw *metrics.MetricsWrapper) *stats.Dataset {
	if path == "" {
		return nil
	}
	ds, err := stats.LoadCSV(path, entityColumn, periodColumn)
	if err != nil {
		mw.DataLoadFailuresInc()
		log.Error().Err(err).Str("dataset", name).Str("path", path).Msg("failed to load stats")
		return nil
	}
	mw.DatasetRecordsSet(name, ds.Len())
	log.Info().Str("dataset", name).Int("records", ds.Len()).Int("entities", len(ds.Entities())).Msg("stats loaded")
	return ds
}

func loadPlayers(c cfg.Settings, weighting features.Weighting, mw *metrics.MetricsWrapper) *stats.Dataset {
	players := loadDataset(c.PlayerDataPath, c.PlayerEntityColumn, c.PeriodColumn, "players", mw)
	if players == nil {
		return nil
	}
	augmented, err := weighting.AugmentDataset(players, c.TargetColumn, c.WeightedColumn, mw)
	if err != nil {
		mw.DataLoadFailuresInc()
		log.Error().Err(err).Msg("failed to compute weighted target, player data disabled")
		return nil
	}
	return augmented
}

func initializeStorage(c cfg.Settings) *storage.Store {
	if c.DataPath == "" {
		return nil
	}
	store, err := storage.New(c.DataPath)
	if err != nil {
		log.Warn().Err(err).Msg("storage initialization failed, continuing without prediction ledger")
		return nil
	}
	return store
}

// waitForShutdown blocks until a signal arrives or the server fails, then
// drains in-flight requests.
func waitForShutdown(ctx context.Context, server *api.Server) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Info().Msg("shutdown signal received")
	case <-ctx.Done():
		log.Info().Msg("context canceled")
	}

	log.Info().Msg("shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to shutdown API server")
	}
}
