package features

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"testing"
	"time"

	"football-stats/internal/stats"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockMetricsTracker is a mock implementation of MetricsTracker for testing.
type MockMetricsTracker struct {
	FeatureErrorsIncCalled int
	CalcDurationInvoked    bool
	LastSampleCount        int
}

func (m *MockMetricsTracker) FeatureErrorsInc() {
	m.FeatureErrorsIncCalled++
}

func (m *MockMetricsTracker) FeatureCalcDuration(duration time.Duration) {
	m.CalcDurationInvoked = true
}

func (m *MockMetricsTracker) FeatureSampleCount(count int) {
	m.LastSampleCount = count
}

func series(entity string, goals ...float64) []stats.Record {
	out := make([]stats.Record, len(goals))
	for i, g := range goals {
		out[i] = stats.Record{
			Entity:  entity,
			Season:  seasonLabel(2017 + i),
			Numeric: map[string]float64{"Goals": g, "Age": float64(20 + i)},
			Labels:  map[string]string{"Team": "Club"},
		}
	}
	return out
}

func seasonLabel(start int) string {
	return fmt.Sprintf("%d-%d", start, start+1)
}

func TestWeights(t *testing.T) {
	w := DefaultWeighting()

	testCases := []struct {
		name     string
		n        int
		expected []float64
	}{
		{"empty", 0, nil},
		{"single season", 1, []float64{2}},
		{"fewer seasons than recent window", 2, []float64{2, 2}},
		{"exactly the window", 3, []float64{2, 2, 2}},
		{"five seasons", 5, []float64{1, 1, 2, 2, 2}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, w.Weights(tc.n))
		})
	}
}

func TestWeights_ZeroRecentSeasons(t *testing.T) {
	w := Weighting{RecentSeasons: 0, RecentWeight: 2}
	assert.Equal(t, []float64{1, 1, 1}, w.Weights(3))
	assert.Equal(t, 2.0, w.Average([]float64{1, 2, 3}))
}

func TestWeights_WindowLargerThanSeriesIsCapped(t *testing.T) {
	w := Weighting{RecentSeasons: 10, RecentWeight: 3}
	// Each position is multiplied once, never 3^k
	assert.Equal(t, []float64{3, 3}, w.Weights(2))
	assert.Equal(t, 6.0, w.TotalWeight(2))
}

func TestTotalWeightProperty(t *testing.T) {
	for _, w := range []Weighting{
		DefaultWeighting(),
		{RecentSeasons: 1, RecentWeight: 5},
		{RecentSeasons: 4, RecentWeight: 1.5},
		{RecentSeasons: 0, RecentWeight: 2},
	} {
		for n := 0; n <= 8; n++ {
			expected := float64(n) + (w.RecentWeight-1)*float64(min(n, w.RecentSeasons))
			assert.InDelta(t, expected, w.TotalWeight(n), 1e-12, "n=%d weighting=%+v", n, w)
		}
	}
}

func TestAverage_Examples(t *testing.T) {
	w := DefaultWeighting()

	// [2,4,6,8,10] with weights [1,1,2,2,2]: 54 / 8
	assert.Equal(t, 6.75, w.Average([]float64{2, 4, 6, 8, 10}))
	// A single season averages to itself
	assert.Equal(t, 3.0, w.Average([]float64{3}))
	// No history, no signal, no division by zero
	assert.Equal(t, 0.0, w.Average(nil))
	assert.Equal(t, 0.0, w.Average([]float64{}))
}

func TestAverage_BoundedByMinMax(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	w := DefaultWeighting()

	for i := 0; i < 200; i++ {
		n := 1 + rng.Intn(10)
		values := make([]float64, n)
		lo, hi := math.Inf(1), math.Inf(-1)
		for j := range values {
			values[j] = float64(rng.Intn(40))
			lo = math.Min(lo, values[j])
			hi = math.Max(hi, values[j])
		}

		avg := w.Average(values)
		assert.GreaterOrEqual(t, avg, lo-1e-9)
		assert.LessOrEqual(t, avg, hi+1e-9)
	}
}

func TestSeriesAverage(t *testing.T) {
	w := DefaultWeighting()

	avg, err := w.SeriesAverage(series("A", 2, 4, 6, 8, 10), "Goals")
	require.NoError(t, err)
	assert.Equal(t, 6.75, avg)

	avg, err = w.SeriesAverage(nil, "Goals")
	require.NoError(t, err)
	assert.Equal(t, 0.0, avg)
}

func TestSeriesAverage_Errors(t *testing.T) {
	w := DefaultWeighting()

	_, err := w.SeriesAverage(series("A", 1, 2), "xG")
	assert.True(t, errors.Is(err, ErrMissingColumn))
	assert.Contains(t, err.Error(), "xG")

	bad := series("A", 1, 2)
	bad[1].Numeric["Goals"] = math.NaN()
	_, err = w.SeriesAverage(bad, "Goals")
	assert.True(t, errors.Is(err, ErrNonFinite))
}

func TestAugment_BroadcastsPerEntity(t *testing.T) {
	w := DefaultWeighting()

	// Interleave two entities and put one season out of order
	a := series("A", 2, 4, 6, 8, 10)
	b := series("B", 3)
	records := []stats.Record{a[4], b[0], a[0], a[1], a[2], a[3]}

	out, err := w.Augment(records, "Goals", "Weighted_Goals")
	require.NoError(t, err)
	require.Len(t, out, len(records))

	for i, r := range out {
		assert.Equal(t, records[i].Entity, r.Entity, "input order preserved")
		switch r.Entity {
		case "A":
			assert.Equal(t, 6.75, r.Numeric["Weighted_Goals"])
		case "B":
			assert.Equal(t, 3.0, r.Numeric["Weighted_Goals"])
		}
	}

	// Inputs are untouched
	for _, r := range records {
		_, ok := r.Numeric["Weighted_Goals"]
		assert.False(t, ok)
	}
}

func TestAugment_EntitiesNeverMixed(t *testing.T) {
	w := DefaultWeighting()

	records := append(series("A", 10, 10), series("B", 0, 0, 0)...)
	out, err := w.Augment(records, "Goals", "Weighted_Goals")
	require.NoError(t, err)

	for _, r := range out {
		if r.Entity == "A" {
			assert.Equal(t, 10.0, r.Numeric["Weighted_Goals"])
		} else {
			assert.Equal(t, 0.0, r.Numeric["Weighted_Goals"])
		}
	}
}

func TestAugmentWithMetrics(t *testing.T) {
	w := DefaultWeighting()
	metrics := &MockMetricsTracker{}

	_, err := w.AugmentWithMetrics(series("A", 1, 2, 3), "Goals", "Weighted_Goals", metrics)
	require.NoError(t, err)
	assert.True(t, metrics.CalcDurationInvoked)
	assert.Equal(t, 3, metrics.LastSampleCount)
	assert.Equal(t, 0, metrics.FeatureErrorsIncCalled)

	_, err = w.AugmentWithMetrics(series("A", 1), "Assists", "Weighted_Assists", metrics)
	require.Error(t, err)
	assert.Equal(t, 1, metrics.FeatureErrorsIncCalled)
}

func TestAugmentDataset(t *testing.T) {
	w := DefaultWeighting()
	records := append(series("A", 2, 4, 6, 8, 10), series("B", 3)...)
	ds := stats.NewDataset("Name", "Season",
		[]string{"Season", "Name", "Team", "Age", "Goals"},
		[]string{"Age", "Goals"},
		records)

	augmented, err := w.AugmentDataset(ds, "Goals", "Weighted_Goals", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"Age", "Goals", "Weighted_Goals"}, augmented.NumericColumns())
	assert.False(t, ds.HasColumn("Weighted_Goals"), "source dataset is unchanged")

	for _, r := range augmented.Series("A") {
		assert.Equal(t, 6.75, r.Numeric["Weighted_Goals"])
	}
	for _, r := range augmented.Series("B") {
		assert.Equal(t, 3.0, r.Numeric["Weighted_Goals"])
	}

	// Re-augmenting overwrites rather than duplicating the column
	again, err := w.AugmentDataset(augmented, "Goals", "Weighted_Goals", nil)
	require.NoError(t, err)
	assert.Equal(t, augmented.Columns(), again.Columns())
}
