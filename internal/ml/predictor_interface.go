// Package ml turns a player's stats history into a goals prediction.
// It holds the prediction orchestrator, the fitted preprocessing and
// regression artifacts it runs, and the loader that fetches them.
//
// Artifacts are loaded once at startup and treated as read-only afterwards,
// so a loaded model and preprocessor can be shared between requests.
package ml

import "sort"

// Row is one model input before preprocessing: a record keyed by column name
// with identifiers and the target already removed.
type Row struct {
	Numeric     map[string]float64
	Categorical map[string]string
}

// Columns returns every column present in the row, sorted.
func (r Row) Columns() []string {
	out := make([]string, 0, len(r.Numeric)+len(r.Categorical))
	for c := range r.Numeric {
		out = append(out, c)
	}
	for c := range r.Categorical {
		if _, dup := r.Numeric[c]; !dup {
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out
}

// Transformer is a fitted preprocessing pipeline. It must be applied with the
// same column set it was fitted on.
type Transformer interface {
	// Transform maps a row onto the model's feature vector. A row whose
	// columns differ from the fitted schema yields a *SchemaMismatchError.
	Transform(row Row) ([]float64, error)
}

// Predictor is a fitted regression model.
type Predictor interface {
	// Predict returns the raw prediction for one transformed feature vector.
	Predict(features []float64) (float64, error)
}

// MetricsInterface receives prediction telemetry. A nil value disables it.
type MetricsInterface interface {
	MLPredictionsInc()
	MLFailuresInc()
	MLLatencyObserve(float64)
	MLModelAgeSet(float64)
	MLPredictionValueObserve(float64)
	EntityNotFoundInc()
	SchemaMismatchInc()
	ArtifactLoadFailuresInc()
}
