package ml

import "sync"

// MockMetrics implements MetricsInterface for testing
type MockMetrics struct {
	mu               sync.Mutex
	predictions      int
	failures         int
	latencySum       float64
	modelAge         float64
	notFound         int
	schemaMismatches int
	loadFailures     int
	predictionValues []float64
}

func (m *MockMetrics) MLPredictionsInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.predictions++
}

func (m *MockMetrics) MLFailuresInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures++
}

func (m *MockMetrics) MLLatencyObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencySum += v
}

func (m *MockMetrics) MLModelAgeSet(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modelAge = v
}

func (m *MockMetrics) MLPredictionValueObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.predictionValues = append(m.predictionValues, v)
}

func (m *MockMetrics) EntityNotFoundInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notFound++
}

func (m *MockMetrics) SchemaMismatchInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schemaMismatches++
}

func (m *MockMetrics) ArtifactLoadFailuresInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadFailures++
}
