package ml

import (
	"errors"
	"fmt"
	"math"
	"time"

	"football-stats/internal/features"
	"football-stats/internal/stats"

	"github.com/rs/zerolog/log"
)

// PredictorConfig names the columns the orchestrator works with.
type PredictorConfig struct {
	Weighting       features.Weighting
	TargetColumn    string
	CovariateColumn string
	WeightedColumn  string
	// DropColumns are identifier columns removed before preprocessing. The
	// target column is always removed.
	DropColumns []string
}

// DefaultPredictorConfig predicts next-season goals from the Name/Season table.
func DefaultPredictorConfig() PredictorConfig {
	return PredictorConfig{
		Weighting:       features.DefaultWeighting(),
		TargetColumn:    "Goals",
		CovariateColumn: "Age",
		WeightedColumn:  "Weighted_Goals",
		DropColumns:     []string{"Season", "Name"},
	}
}

// GoalPredictor builds next-season inputs from a player's history and runs
// them through the loaded artifacts. It holds no per-request state.
type GoalPredictor struct {
	cfg     PredictorConfig
	metrics MetricsInterface
}

// NewGoalPredictor creates an orchestrator. metrics may be nil.
func NewGoalPredictor(cfg PredictorConfig, metrics MetricsInterface) *GoalPredictor {
	return &GoalPredictor{cfg: cfg, metrics: metrics}
}

// Config returns the orchestrator's configuration.
func (g *GoalPredictor) Config() PredictorConfig { return g.cfg }

// BuildInput projects entity's most recent record one season forward: the
// covariate is advanced by one, the weighted target is recomputed over the
// whole history and the target and identifiers are removed. The returned
// record is the season the projection is based on.
func (g *GoalPredictor) BuildInput(entity string, records []stats.Record) (Row, stats.Record, error) {
	series := stats.FilterEntity(records, entity)
	if len(series) == 0 {
		return Row{}, stats.Record{}, fmt.Errorf("%w: %q", ErrEntityNotFound, entity)
	}
	stats.SortBySeason(series)
	basis := series[len(series)-1]

	weighted, err := g.cfg.Weighting.SeriesAverage(series, g.cfg.TargetColumn)
	if err != nil {
		if errors.Is(err, features.ErrMissingColumn) {
			return Row{}, basis, &SchemaMismatchError{Missing: []string{g.cfg.TargetColumn}}
		}
		return Row{}, basis, fmt.Errorf("weighted %s for %q: %w", g.cfg.TargetColumn, entity, err)
	}

	next := basis.Clone()
	row := Row{Numeric: next.Numeric, Categorical: next.Labels}
	if age, ok := row.Numeric[g.cfg.CovariateColumn]; ok {
		row.Numeric[g.cfg.CovariateColumn] = age + 1
	}
	delete(row.Categorical, g.cfg.WeightedColumn)
	row.Numeric[g.cfg.WeightedColumn] = weighted

	for _, c := range append([]string{g.cfg.TargetColumn}, g.cfg.DropColumns...) {
		delete(row.Numeric, c)
		delete(row.Categorical, c)
	}
	return row, basis, nil
}

// PredictRaw returns the unrounded model output for entity's next season.
func (g *GoalPredictor) PredictRaw(entity string, records []stats.Record, model Predictor, pre Transformer) (float64, error) {
	start := time.Now()
	raw, err := g.predictRaw(entity, records, model, pre)

	if g.metrics != nil {
		g.metrics.MLLatencyObserve(time.Since(start).Seconds())
		switch {
		case err == nil:
			g.metrics.MLPredictionsInc()
			g.metrics.MLPredictionValueObserve(raw)
		case errors.Is(err, ErrEntityNotFound):
			g.metrics.EntityNotFoundInc()
		case errors.Is(err, ErrSchemaMismatch):
			g.metrics.SchemaMismatchInc()
			g.metrics.MLFailuresInc()
		default:
			g.metrics.MLFailuresInc()
		}
	}
	return raw, err
}

func (g *GoalPredictor) predictRaw(entity string, records []stats.Record, model Predictor, pre Transformer) (float64, error) {
	if model == nil || pre == nil {
		return 0, fmt.Errorf("%w: model artifacts not loaded", ErrDataUnavailable)
	}

	row, basis, err := g.BuildInput(entity, records)
	if err != nil {
		return 0, err
	}

	x, err := pre.Transform(row)
	if err != nil {
		var mismatch *SchemaMismatchError
		if errors.As(err, &mismatch) {
			log.Error().
				Str("player", entity).
				Strs("missing", mismatch.Missing).
				Strs("unexpected", mismatch.Unexpected).
				Msg("Model input does not match preprocessor schema")
		}
		return 0, err
	}

	raw, err := model.Predict(x)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		return 0, fmt.Errorf("model returned non-finite prediction for %q", entity)
	}

	log.Debug().
		Str("player", entity).
		Str("basis_season", basis.Season).
		Float64("raw", raw).
		Msg("Prediction computed")

	return raw, nil
}

// Predict returns entity's predicted next-season goals rounded half to even.
func (g *GoalPredictor) Predict(entity string, records []stats.Record, model Predictor, pre Transformer) (int, error) {
	raw, err := g.PredictRaw(entity, records, model, pre)
	if err != nil {
		return 0, err
	}
	return RoundGoals(raw), nil
}

// RoundGoals rounds half to even, so 2.5 becomes 2 and 3.5 becomes 4.
func RoundGoals(raw float64) int {
	return int(math.RoundToEven(raw))
}
