package main

import (
	"encoding/json"
	"flag"
	"io"
	"math"
	"os"
	"time"

	"football-stats/internal/storage"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	var (
		dataPath   = flag.String("data", "data", "Directory holding the prediction ledger")
		outputPath = flag.String("output", "", "Output file (empty for stdout)")
		team       = flag.String("team", "", "Team to export (empty for all)")
		version    = flag.String("model-version", "", "Only export predictions from this model version")
		limit      = flag.Int("limit", 0, "Maximum number of predictions (0 for all)")
		runs       = flag.Int("runs-days", 0, "Also log batch runs from the last N days")
	)
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	store, err := storage.New(*dataPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open ledger")
	}
	defer store.Close()

	predictions, err := store.TopPredictions(0)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read predictions")
	}
	predictions = filterPredictions(predictions, *team, *version, *limit)
	if len(predictions) == 0 {
		log.Warn().Msg("No predictions found matching criteria")
	}

	var out io.Writer = os.Stdout
	if *outputPath != "" {
		file, err := os.Create(*outputPath)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create output file")
		}
		defer file.Close()
		out = file
	}

	// Newline-delimited so the file can be streamed line by line
	if err := writeNDJSON(out, predictions); err != nil {
		log.Fatal().Err(err).Msg("Failed to write predictions")
	}
	log.Info().Int("predictions", len(predictions)).Str("output", *outputPath).Msg("Export complete")

	if *runs > 0 {
		history, err := store.GetRuns(time.Now().AddDate(0, 0, -*runs), time.Now())
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to read runs")
		}
		for _, run := range history {
			log.Info().
				Str("id", run.ID).
				Str("model_version", run.ModelVersion).
				Int("stored", run.Stored).
				Int("failed", run.Failed).
				Time("started_at", run.StartedAt).
				Msg("Batch run")
		}
	}
}

// filterPredictions keeps ranked predictions matching team and version,
// dropping any with a non-finite raw value. limit <= 0 keeps all.
func filterPredictions(records []storage.PredictionRecord, team, version string, limit int) []storage.PredictionRecord {
	out := make([]storage.PredictionRecord, 0, len(records))
	for _, r := range records {
		if team != "" && r.Team != team {
			continue
		}
		if version != "" && r.ModelVersion != version {
			continue
		}
		if math.IsNaN(r.RawPrediction) || math.IsInf(r.RawPrediction, 0) {
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func writeNDJSON(w io.Writer, records []storage.PredictionRecord) error {
	encoder := json.NewEncoder(w)
	for _, r := range records {
		if err := encoder.Encode(r); err != nil {
			return err
		}
	}
	return nil
}
