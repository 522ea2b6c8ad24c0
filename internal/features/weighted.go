// Package features computes derived model features from historical stats.
//
// The main feature is a recency-weighted average of a target metric: every
// season weighs 1, and the most recent RecentSeasons seasons weigh
// RecentWeight instead. Inputs are assumed to be ordered by season ascending.
package features

import (
	"errors"
	"fmt"
	"math"
	"time"

	"football-stats/internal/stats"
)

var (
	// ErrMissingColumn is returned when a record lacks the requested target column.
	ErrMissingColumn = errors.New("missing column")
	// ErrNonFinite is returned when a target value is NaN or infinite.
	ErrNonFinite = errors.New("non-finite value")
)

// MetricsTracker receives feature calculation telemetry. A nil tracker is allowed.
type MetricsTracker interface {
	FeatureErrorsInc()
	FeatureCalcDuration(duration time.Duration)
	FeatureSampleCount(count int)
}

// Weighting configures the recency weighting.
type Weighting struct {
	RecentSeasons int
	RecentWeight  float64
}

// DefaultWeighting doubles the three most recent seasons.
func DefaultWeighting() Weighting {
	return Weighting{RecentSeasons: 3, RecentWeight: 2}
}

// Weights returns the per-position weights for a series of n records. Each
// trailing position is multiplied at most once, so asking for more recent
// seasons than exist simply boosts the whole series.
func (w Weighting) Weights(n int) []float64 {
	if n <= 0 {
		return nil
	}
	weights := make([]float64, n)
	for i := range weights {
		weights[i] = 1
	}
	for i := 1; i <= w.RecentSeasons; i++ {
		if i <= n {
			weights[n-i] *= w.RecentWeight
		}
	}
	return weights
}

// TotalWeight is n + (RecentWeight-1) * min(n, RecentSeasons).
func (w Weighting) TotalWeight(n int) float64 {
	var total float64
	for _, v := range w.Weights(n) {
		total += v
	}
	return total
}

// Average returns the weighted average of values, oldest first. An empty
// series has no signal and averages to 0.
func (w Weighting) Average(values []float64) float64 {
	weights := w.Weights(len(values))

	var sum, total float64
	for i, v := range values {
		sum += v * weights[i]
		total += weights[i]
	}
	if total == 0 {
		return 0
	}
	return sum / total
}

// SeriesAverage is Average over column of an entity's season-ordered series.
func (w Weighting) SeriesAverage(series []stats.Record, column string) (float64, error) {
	values := make([]float64, len(series))
	for i, r := range series {
		v, ok := r.Value(column)
		if !ok {
			return 0, fmt.Errorf("%w %q in %s %s", ErrMissingColumn, column, r.Entity, r.Season)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("%w in %q for %s %s", ErrNonFinite, column, r.Entity, r.Season)
		}
		values[i] = v
	}
	return w.Average(values), nil
}

// Augment returns copies of records with column set to the entity's weighted
// target average. The average is computed per entity over that entity's
// records in season order and broadcast to each of its records. Input order
// is preserved.
func (w Weighting) Augment(records []stats.Record, target, column string) ([]stats.Record, error) {
	return w.AugmentWithMetrics(records, target, column, nil)
}

// AugmentWithMetrics is Augment with telemetry.
func (w Weighting) AugmentWithMetrics(records []stats.Record, target, column string, m MetricsTracker) ([]stats.Record, error) {
	start := time.Now()

	out := make([]stats.Record, len(records))
	groups := make(map[string][]int)
	var order []string
	for i, r := range records {
		out[i] = r.Clone()
		if _, ok := groups[r.Entity]; !ok {
			order = append(order, r.Entity)
		}
		groups[r.Entity] = append(groups[r.Entity], i)
	}

	for _, entity := range order {
		idx := groups[entity]
		series := make([]stats.Record, len(idx))
		for i, j := range idx {
			series[i] = out[j]
		}
		stats.SortBySeason(series)

		avg, err := w.SeriesAverage(series, target)
		if err != nil {
			if m != nil {
				m.FeatureErrorsInc()
			}
			return nil, err
		}
		for _, j := range idx {
			delete(out[j].Labels, column)
			out[j].Numeric[column] = avg
		}
	}

	if m != nil {
		m.FeatureCalcDuration(time.Since(start))
		m.FeatureSampleCount(len(records))
	}
	return out, nil
}

// AugmentDataset returns a new dataset with the weighted column appended.
// An existing column of the same name is overwritten.
func (w Weighting) AugmentDataset(ds *stats.Dataset, target, column string, m MetricsTracker) (*stats.Dataset, error) {
	records, err := w.AugmentWithMetrics(ds.Records(), target, column, m)
	if err != nil {
		return nil, err
	}

	columns := ds.Columns()
	numeric := ds.NumericColumns()
	if !ds.HasColumn(column) {
		columns = append(columns, column)
	}
	if !ds.IsNumeric(column) {
		numeric = append(numeric, column)
	}
	return stats.NewDataset(ds.EntityColumn(), ds.PeriodColumn(), columns, numeric, records), nil
}
