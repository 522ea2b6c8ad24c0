// Package report runs batch goal predictions over every player in a dataset
// and writes the resulting top scorers table.
package report

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"football-stats/internal/ml"
	"football-stats/internal/stats"
	"football-stats/internal/storage"

	"github.com/rs/zerolog/log"
)

// Failure is a player whose prediction could not be computed.
type Failure struct {
	Player string `json:"player"`
	Reason string `json:"reason"`
}

// Results holds one batch run.
type Results struct {
	Predictions  []storage.PredictionRecord
	Failures     []Failure
	Players      int
	ModelVersion string
	StartTime    time.Time
	EndTime      time.Time
}

// Top returns up to n predictions in ranking order. n <= 0 returns all.
func (r *Results) Top(n int) []storage.PredictionRecord {
	if n <= 0 || n >= len(r.Predictions) {
		return r.Predictions
	}
	return r.Predictions[:n]
}

// Engine predicts next-season goals for every player of a dataset.
type Engine struct {
	dataset      *stats.Dataset
	predictor    *ml.GoalPredictor
	model        ml.Predictor
	preprocessor ml.Transformer
	modelVersion string
	teamColumn   string
	workers      int
}

// NewEngine creates a batch engine. teamColumn names the label copied into
// each prediction; workers below 1 run sequentially.
func NewEngine(dataset *stats.Dataset, predictor *ml.GoalPredictor, model ml.Predictor, pre ml.Transformer, modelVersion, teamColumn string, workers int) *Engine {
	if workers < 1 {
		workers = 1
	}
	return &Engine{
		dataset:      dataset,
		predictor:    predictor,
		model:        model,
		preprocessor: pre,
		modelVersion: modelVersion,
		teamColumn:   teamColumn,
		workers:      workers,
	}
}

// Run predicts every player. Per-player failures are collected, not
// returned; an error means the run itself could not proceed.
func (e *Engine) Run(ctx context.Context) (*Results, error) {
	if e.model == nil || e.preprocessor == nil {
		return nil, ml.ErrDataUnavailable
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entities := e.dataset.Entities()
	results := &Results{
		Predictions:  make([]storage.PredictionRecord, 0, len(entities)),
		Players:      len(entities),
		ModelVersion: e.modelVersion,
		StartTime:    time.Now(),
	}

	log.Info().
		Int("players", len(entities)).
		Int("workers", e.workers).
		Str("model_version", e.modelVersion).
		Msg("Starting batch prediction")

	jobs := make(chan string)
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for i := 0; i < e.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for player := range jobs {
				record, err := e.predictOne(player)
				mu.Lock()
				if err != nil {
					results.Failures = append(results.Failures, Failure{Player: player, Reason: err.Error()})
				} else {
					results.Predictions = append(results.Predictions, record)
				}
				mu.Unlock()
			}
		}()
	}

	var runErr error
feed:
	for _, player := range entities {
		select {
		case jobs <- player:
		case <-ctx.Done():
			runErr = ctx.Err()
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if runErr != nil {
		return nil, runErr
	}

	storage.Rank(results.Predictions)
	sort.Slice(results.Failures, func(i, j int) bool {
		return results.Failures[i].Player < results.Failures[j].Player
	})
	results.EndTime = time.Now()

	log.Info().
		Int("predicted", len(results.Predictions)).
		Int("failed", len(results.Failures)).
		Dur("duration", results.EndTime.Sub(results.StartTime)).
		Msg("Batch prediction finished")

	return results, nil
}

func (e *Engine) predictOne(player string) (storage.PredictionRecord, error) {
	series := e.dataset.Series(player)
	raw, err := e.predictor.PredictRaw(player, series, e.model, e.preprocessor)
	if err != nil {
		if errors.Is(err, ml.ErrSchemaMismatch) {
			log.Warn().Err(err).Str("player", player).Msg("Skipping player with mismatched schema")
		}
		return storage.PredictionRecord{}, err
	}

	basis := series[len(series)-1]
	return storage.PredictionRecord{
		Player:         player,
		Team:           basis.Labels[e.teamColumn],
		BasisSeason:    basis.Season,
		PredictedGoals: ml.RoundGoals(raw),
		RawPrediction:  raw,
		ModelVersion:   e.modelVersion,
		CreatedAt:      time.Now().UTC(),
	}, nil
}
