// Package metrics provides Prometheus metrics collection for the football
// stats service. It defines the prediction, feature, data loading and HTTP
// metrics exposed via the /metrics endpoint for monitoring and alerting.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Prediction metrics
	MLPredictions        prometheus.Counter   // Successful goal predictions
	MLFailures           prometheus.Counter   // Predictions that failed after the player was found
	MLModelAge           prometheus.Gauge     // Seconds since the model artifacts were loaded
	MLLatency            prometheus.Histogram // End-to-end prediction latency in seconds
	MLPredictionValues   prometheus.Histogram // Raw predicted goals
	EntityNotFound       prometheus.Counter   // Predictions requested for unknown players
	SchemaMismatches     prometheus.Counter   // Model inputs rejected by the preprocessor
	ArtifactLoadFailures prometheus.Counter   // Failed model or preprocessor loads

	// Feature calculation metrics
	FeatureCalculations prometheus.Counter   // Weighted feature passes completed
	FeatureErrors       prometheus.Counter   // Weighted feature passes that failed
	FeatureCalcDuration prometheus.Histogram // Duration of a weighted feature pass
	FeatureSamples      prometheus.Gauge     // Records in the last feature pass

	// Data metrics
	DatasetRecords    *prometheus.GaugeVec // Records loaded per dataset
	DataLoadFailures  prometheus.Counter   // Stats files that failed to load
	PredictionsStored prometheus.Counter   // Predictions written to the ledger

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec   // Requests by route and status code
	HTTPDuration *prometheus.HistogramVec // Request duration by route
	RateLimited  prometheus.Counter       // Requests rejected by the rate limiter
	FeedClients  prometheus.Gauge         // Connected prediction feed clients

	// System metrics
	ErrorsTotal prometheus.Counter // Total number of errors encountered
}

// New creates and registers all Prometheus metrics using the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry (useful for testing).
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		MLPredictions: factory.NewCounter(prometheus.CounterOpts{
			Name: "ml_predictions_total",
			Help: "Total number of goal predictions made",
		}),
		MLFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "ml_failures_total",
			Help: "Total number of goal prediction failures",
		}),
		MLModelAge: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ml_model_age_seconds",
			Help: "Seconds since the model artifacts were loaded",
		}),
		MLLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ml_latency_seconds",
			Help:    "Goal prediction latency in seconds (end-to-end)",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}),
		MLPredictionValues: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ml_predicted_goals",
			Help:    "Distribution of raw predicted goals",
			Buckets: prometheus.LinearBuckets(0, 2.5, 17),
		}),
		EntityNotFound: factory.NewCounter(prometheus.CounterOpts{
			Name: "ml_entity_not_found_total",
			Help: "Total number of predictions requested for unknown players",
		}),
		SchemaMismatches: factory.NewCounter(prometheus.CounterOpts{
			Name: "ml_schema_mismatches_total",
			Help: "Total number of model inputs rejected by the preprocessor",
		}),
		ArtifactLoadFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "ml_artifact_load_failures_total",
			Help: "Total number of failed model or preprocessor loads",
		}),
		FeatureCalculations: factory.NewCounter(prometheus.CounterOpts{
			Name: "feature_calculations_total",
			Help: "Total number of weighted feature passes completed",
		}),
		FeatureErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "feature_errors_total",
			Help: "Total number of feature calculation errors",
		}),
		FeatureCalcDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "feature_calc_duration_seconds",
			Help:    "Duration of a weighted feature pass in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
		FeatureSamples: factory.NewGauge(prometheus.GaugeOpts{
			Name: "feature_samples",
			Help: "Number of records in the last weighted feature pass",
		}),
		DatasetRecords: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dataset_records",
			Help: "Number of records loaded per dataset",
		}, []string{"dataset"}),
		DataLoadFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "data_load_failures_total",
			Help: "Total number of stats files that failed to load",
		}),
		PredictionsStored: factory.NewCounter(prometheus.CounterOpts{
			Name: "predictions_stored_total",
			Help: "Total number of predictions written to the ledger",
		}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests by route and status code",
		}, []string{"route", "code"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		RateLimited: factory.NewCounter(prometheus.CounterOpts{
			Name: "http_rate_limited_total",
			Help: "Total number of requests rejected by the rate limiter",
		}),
		FeedClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "prediction_feed_clients",
			Help: "Number of connected prediction feed clients",
		}),
		ErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors encountered",
		}),
	}
}

// GetFailureRate returns prediction failures over all prediction attempts
// for players that exist, or 0 if none have been made.
func (m *Metrics) GetFailureRate() float64 {
	ok := counterValue(m.MLPredictions)
	failed := counterValue(m.MLFailures)

	// Avoid division by zero
	if ok+failed == 0 {
		return 0
	}
	return failed / (ok + failed)
}

func counterValue(c prometheus.Counter) float64 {
	var metric dto.Metric
	if err := c.Write(&metric); err != nil || metric.Counter == nil {
		return 0
	}
	return metric.Counter.GetValue()
}
