package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"football-stats/internal/features"
	"football-stats/internal/metrics"
	"football-stats/internal/ml"
	"football-stats/internal/stats"
	"football-stats/internal/storage"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const playersCSV = `Season,Name,Team,Age,Goals
2017-2018,Harry Kane,Tottenham,24,30
2018-2019,Harry Kane,Tottenham,25,17
2019-2020,Harry Kane,Tottenham,26,18
2017-2018,Mohamed Salah,Liverpool,25,32
2018-2019,Mohamed Salah,Liverpool,26,22
2019-2020,Kane Lewis,Burnley,21,0
`

const teamsCSV = `Season,Team,Goals,Points
2018-2019,Liverpool,89,97
2019-2020,Liverpool,85,99
2019-2020,Tottenham,61,59
`

const preprocessorJSON = `{"kind": "column_transformer", "version": "pre-1",
  "numeric": [{"name": "Age", "mean": 0, "scale": 1}, {"name": "Weighted_Goals", "mean": 0, "scale": 1}],
  "categorical": [{"name": "Team", "categories": ["Tottenham", "Liverpool"]}]}`

// Predicts the weighted goals unchanged
const modelJSON = `{"kind": "linear", "version": "ols-1", "coefficients": [0, 1, 0, 0], "intercept": 0}`

type fixture struct {
	deps     Deps
	registry *prometheus.Registry
	metrics  *metrics.Metrics
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func loadModels(t *testing.T, preprocessor, model string, m ml.MetricsInterface) *ml.ModelManager {
	t.Helper()
	dir := t.TempDir()
	mm := ml.NewModelManager(
		ml.NewArtifactLoader(time.Second, 0),
		writeFile(t, dir, "model.json", model),
		writeFile(t, dir, "pre.json", preprocessor),
		m,
	)
	require.NoError(t, mm.Load(context.Background()))
	return mm
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	registry := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(registry)
	wrapper := metrics.NewWrapper(m)

	players, err := stats.ReadCSV(strings.NewReader(playersCSV), "Name", "Season")
	require.NoError(t, err)
	players, err = features.DefaultWeighting().AugmentDataset(players, "Goals", "Weighted_Goals", wrapper)
	require.NoError(t, err)

	teams, err := stats.ReadCSV(strings.NewReader(teamsCSV), "Team", "Season")
	require.NoError(t, err)

	store, err := storage.New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return &fixture{
		registry: registry,
		metrics:  m,
		deps: Deps{
			Players:         players,
			Teams:           teams,
			Predictor:       ml.NewGoalPredictor(ml.DefaultPredictorConfig(), wrapper),
			Models:          loadModels(t, preprocessorJSON, modelJSON, wrapper),
			Store:           store,
			Metrics:         wrapper,
			Gatherer:        registry,
			TeamColumn:      "Team",
			SuggestMinQuery: 3,
			SuggestLimit:    10,
			TopLimit:        100,
		},
	}
}

func (f *fixture) get(t *testing.T, path string) (*http.Response, map[string]interface{}) {
	t.Helper()
	server := NewServer(f.deps, 0)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	resp := rec.Result()
	body := map[string]interface{}{}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	}
	return resp, body
}

func TestPredict(t *testing.T) {
	f := newFixture(t)

	resp, body := f.get(t, "/api/players/predict/Harry%20Kane")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// (30 + 17 + 18) / 3 with every season doubled
	assert.Equal(t, "Harry Kane", body["player"])
	assert.Equal(t, 22.0, body["predicted_goals"])
	assert.InDelta(t, 21.667, body["raw_prediction"], 0.001)
	assert.Equal(t, "2019-2020", body["basis_season"])
	assert.Equal(t, "ols-1", body["model_version"])
	assert.NotEmpty(t, body["request_id"])
	assert.Equal(t, body["request_id"], resp.Header.Get(RequestIDHeader))

	stored, found, err := f.deps.Store.GetPrediction("Harry Kane")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 22, stored.PredictedGoals)
	assert.Equal(t, "Tottenham", stored.Team)
}

func TestPredict_KeepsCallerRequestID(t *testing.T) {
	f := newFixture(t)
	server := NewServer(f.deps, 0)

	req := httptest.NewRequest(http.MethodGet, "/api/players/predict/Mohamed%20Salah", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-42", rec.Header().Get(RequestIDHeader))
	assert.Contains(t, rec.Body.String(), `"request_id":"req-42"`)
}

func TestPredict_UnknownPlayer(t *testing.T) {
	f := newFixture(t)

	resp, body := f.get(t, "/api/players/predict/Lionel%20Messi")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "No data available for Lionel Messi", body["error"])

	n, err := f.deps.Store.CountPredictions()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestPredict_ModelNotLoaded(t *testing.T) {
	f := newFixture(t)
	f.deps.Models = nil

	resp, _ := f.get(t, "/api/players/predict/Harry%20Kane")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	f.deps.Players = nil
	resp, _ = f.get(t, "/api/players/predict/Harry%20Kane")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestPredict_SchemaMismatch(t *testing.T) {
	f := newFixture(t)
	pre := `{"kind": "column_transformer", "version": "pre-2",
	  "numeric": [{"name": "Age", "mean": 0, "scale": 1}, {"name": "Weighted_Goals", "mean": 0, "scale": 1}, {"name": "xG", "mean": 0, "scale": 1}],
	  "categorical": [{"name": "Team", "categories": ["Tottenham", "Liverpool"]}]}`
	model := `{"kind": "linear", "version": "ols-2", "coefficients": [0, 1, 0, 0, 0], "intercept": 0}`
	f.deps.Models = loadModels(t, pre, model, f.deps.Metrics)

	resp, body := f.get(t, "/api/players/predict/Harry%20Kane")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, []interface{}{"xG"}, body["missing"])
	assert.Contains(t, body["error"], "xG")
}

func TestSearchAndSuggest(t *testing.T) {
	f := newFixture(t)

	resp, body := f.get(t, "/api/players/search?q=kane")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []interface{}{"Harry Kane", "Kane Lewis"}, body["results"])

	_, body = f.get(t, "/api/players/search?q=")
	assert.Equal(t, []interface{}{}, body["results"])

	_, body = f.get(t, "/api/players/suggest?q=ka")
	assert.Equal(t, []interface{}{}, body["suggestions"])

	_, body = f.get(t, "/api/teams/suggest?q=liv")
	assert.Equal(t, []interface{}{"Liverpool"}, body["suggestions"])
	assert.Equal(t, "teams", body["kind"])
}

func TestCompare(t *testing.T) {
	f := newFixture(t)

	resp, body := f.get(t, "/api/teams/compare?name=Liverpool&name=Tottenham&metric=Points")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Points", body["metric"])
	assert.Len(t, body["points"], 3)

	resp, body = f.get(t, "/api/players/compare?name=Harry%20Kane&metric=Team")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "unknown metric")

	resp, body = f.get(t, "/api/players/compare?metric=Goals")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["metrics"], "Weighted_Goals")
}

func TestEntity(t *testing.T) {
	f := newFixture(t)

	resp, body := f.get(t, "/api/players/entity/Mohamed%20Salah")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	records, ok := body["records"].([]interface{})
	require.True(t, ok)
	require.Len(t, records, 2)
	first := records[0].(map[string]interface{})
	assert.Equal(t, "2017-2018", first["Season"])
	assert.Equal(t, "Liverpool", first["Team"])
	assert.Equal(t, 27.0, first["Weighted_Goals"])

	resp, _ = f.get(t, "/api/teams/entity/Arsenal")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	f.deps.Teams = nil
	resp, _ = f.get(t, "/api/teams/entity/Liverpool")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestTopPredictions(t *testing.T) {
	f := newFixture(t)
	server := NewServer(f.deps, 0)

	for _, name := range []string{"Harry%20Kane", "Mohamed%20Salah", "Kane%20Lewis"} {
		rec := httptest.NewRecorder()
		server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/players/predict/"+name, nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	resp, body := f.get(t, "/api/predictions/top?limit=2")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	predictions := body["predictions"].([]interface{})
	require.Len(t, predictions, 2)
	assert.Equal(t, "Mohamed Salah", predictions[0].(map[string]interface{})["player"])
	assert.Equal(t, "Harry Kane", predictions[1].(map[string]interface{})["player"])

	_, body = f.get(t, "/api/predictions/top")
	assert.Equal(t, 100.0, body["limit"])
	assert.Len(t, body["predictions"], 3)

	resp, _ = f.get(t, "/api/predictions/top?limit=abc")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	f.deps.Store = nil
	resp, _ = f.get(t, "/api/predictions/top")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestModelAndHealth(t *testing.T) {
	f := newFixture(t)

	resp, body := f.get(t, "/api/model")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["artifacts"], 2)

	resp, body = f.get(t, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])

	f.deps.Models = nil
	resp, body = f.get(t, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "degraded", body["status"])

	resp, _ = f.get(t, "/api/model")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestRateLimit(t *testing.T) {
	f := newFixture(t)
	f.deps.RateLimitRPS = 0.001
	f.deps.RateLimitBurst = 1
	server := NewServer(f.deps, 0)

	codes := make([]int, 3)
	for i := range codes {
		rec := httptest.NewRecorder()
		server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/players/search?q=kane", nil))
		codes[i] = rec.Code
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests, http.StatusTooManyRequests}, codes)

	// Health checks are not rate limited
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	server := NewServer(f.deps, 0)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/players/predict/Harry%20Kane", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "ml_predictions_total 1")
	assert.Contains(t, string(body), `http_requests_total{code="200",route="/api/players/predict/{name}"} 1`)
	assert.Contains(t, string(body), "predictions_stored_total 1")
}

func TestPredictionFeed(t *testing.T) {
	f := newFixture(t)
	server := NewServer(f.deps, 0)
	defer server.feed.Stop()

	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/api/stream/predictions", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return server.feed.clientCount() == 1 }, time.Second, 10*time.Millisecond)

	resp, err := http.Get(ts.URL + "/api/players/predict/Mohamed%20Salah")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var pushed PredictionResponse
	require.NoError(t, conn.ReadJSON(&pushed))
	assert.Equal(t, "Mohamed Salah", pushed.Player)
	assert.Equal(t, 27, pushed.PredictedGoals)

	// Unknown players are not broadcast
	resp, err = http.Get(ts.URL + "/api/players/predict/Nobody")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	conn.Close()
	assert.Eventually(t, func() bool { return server.feed.clientCount() == 0 }, time.Second, 10*time.Millisecond)
}
