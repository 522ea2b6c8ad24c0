package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Interfaces for metrics to avoid circular imports
type MetricsCounter interface {
	Inc()
}

// MetricsWrapper adapts Metrics to the narrow interfaces the ml and features
// packages depend on.
type MetricsWrapper struct {
	m *Metrics
}

func NewWrapper(m *Metrics) *MetricsWrapper {
	return &MetricsWrapper{m: m}
}

// Metrics returns the wrapped metrics.
func (w *MetricsWrapper) Metrics() *Metrics {
	return w.m
}

func (w *MetricsWrapper) PredictionsStored() MetricsCounter {
	return &CounterWrapper{w.m.PredictionsStored}
}

func (w *MetricsWrapper) MLPredictionsInc() {
	w.m.MLPredictions.Inc()
}

func (w *MetricsWrapper) MLFailuresInc() {
	w.m.MLFailures.Inc()
	w.m.ErrorsTotal.Inc()
}

func (w *MetricsWrapper) MLLatencyObserve(v float64) {
	w.m.MLLatency.Observe(v)
}

func (w *MetricsWrapper) MLModelAgeSet(v float64) {
	w.m.MLModelAge.Set(v)
}

func (w *MetricsWrapper) MLPredictionValueObserve(v float64) {
	w.m.MLPredictionValues.Observe(v)
}

func (w *MetricsWrapper) EntityNotFoundInc() {
	w.m.EntityNotFound.Inc()
}

func (w *MetricsWrapper) SchemaMismatchInc() {
	w.m.SchemaMismatches.Inc()
}

func (w *MetricsWrapper) ArtifactLoadFailuresInc() {
	w.m.ArtifactLoadFailures.Inc()
	w.m.ErrorsTotal.Inc()
}

func (w *MetricsWrapper) FeatureErrorsInc() {
	w.m.FeatureErrors.Inc()
	w.m.ErrorsTotal.Inc()
}

func (w *MetricsWrapper) FeatureCalcDuration(d time.Duration) {
	w.m.FeatureCalculations.Inc()
	w.m.FeatureCalcDuration.Observe(d.Seconds())
}

func (w *MetricsWrapper) FeatureSampleCount(n int) {
	w.m.FeatureSamples.Set(float64(n))
}

func (w *MetricsWrapper) DatasetRecordsSet(dataset string, n int) {
	w.m.DatasetRecords.WithLabelValues(dataset).Set(float64(n))
}

func (w *MetricsWrapper) DataLoadFailuresInc() {
	w.m.DataLoadFailures.Inc()
	w.m.ErrorsTotal.Inc()
}

func (w *MetricsWrapper) ObserveRequest(route string, code int, d time.Duration) {
	w.m.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	w.m.HTTPDuration.WithLabelValues(route).Observe(d.Seconds())
}

func (w *MetricsWrapper) RateLimitedInc() {
	w.m.RateLimited.Inc()
}

func (w *MetricsWrapper) FeedClientsSet(n int) {
	w.m.FeedClients.Set(float64(n))
}

type CounterWrapper struct {
	c prometheus.Counter
}

func (cw *CounterWrapper) Inc() {
	cw.c.Inc()
}
