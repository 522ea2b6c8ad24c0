package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"football-stats/internal/ml"
	"football-stats/internal/stats"
	"football-stats/internal/storage"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// PredictionResponse is the body of a successful prediction.
type PredictionResponse struct {
	Player         string  `json:"player"`
	PredictedGoals int     `json:"predicted_goals"`
	RawPrediction  float64 `json:"raw_prediction"`
	BasisSeason    string  `json:"basis_season"`
	ModelVersion   string  `json:"model_version"`
	RequestID      string  `json:"request_id"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error      string   `json:"error"`
	Missing    []string `json:"missing,omitempty"`
	Unexpected []string `json:"unexpected,omitempty"`
	RequestID  string   `json:"request_id"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// writeError maps domain errors onto status codes. Unknown players are an
// expected outcome and get an informational message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	resp := ErrorResponse{Error: err.Error(), RequestID: requestID(r)}
	status := http.StatusInternalServerError

	var mismatch *ml.SchemaMismatchError
	switch {
	case errors.Is(err, ml.ErrEntityNotFound):
		status = http.StatusNotFound
		resp.Error = fmt.Sprintf("No data available for %s", mux.Vars(r)["name"])
	case errors.Is(err, ml.ErrDataUnavailable):
		status = http.StatusServiceUnavailable
	case errors.As(err, &mismatch):
		resp.Missing = mismatch.Missing
		resp.Unexpected = mismatch.Unexpected
	case errors.Is(err, stats.ErrUnknownMetric):
		status = http.StatusBadRequest
	}

	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", r.URL.Path).Str("request_id", resp.RequestID).Msg("Request failed")
	}
	writeJSON(w, status, resp)
}

func badRequest(w http.ResponseWriter, r *http.Request, msg string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: msg, RequestID: requestID(r)})
}

func (s *Server) requireDataset(w http.ResponseWriter, r *http.Request) (*stats.Dataset, string, bool) {
	kind := mux.Vars(r)["kind"]
	ds := s.dataset(kind)
	if ds == nil {
		writeError(w, r, fmt.Errorf("%w: %s dataset not loaded", ml.ErrDataUnavailable, kind))
		return nil, kind, false
	}
	return ds, kind, true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	modelReady := s.deps.Models != nil && s.deps.Models.Ready()
	health := map[string]interface{}{
		"players_loaded": s.deps.Players != nil,
		"teams_loaded":   s.deps.Teams != nil,
		"model_ready":    modelReady,
		"ledger_enabled": s.deps.Store != nil,
		"timestamp":      time.Now(),
	}
	if s.deps.Metrics != nil {
		health["failure_rate"] = s.deps.Metrics.Metrics().GetFailureRate()
	}

	status := http.StatusOK
	health["status"] = "ok"
	if s.deps.Players == nil || !modelReady {
		status = http.StatusServiceUnavailable
		health["status"] = "degraded"
	}
	writeJSON(w, status, health)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	ds, kind, ok := s.requireDataset(w, r)
	if !ok {
		return
	}
	query := r.URL.Query().Get("q")
	results := ds.Search(query)
	if results == nil {
		results = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"kind":    kind,
		"query":   query,
		"results": results,
	})
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	ds, kind, ok := s.requireDataset(w, r)
	if !ok {
		return
	}
	query := r.URL.Query().Get("q")
	suggestions := ds.Suggest(query, s.deps.SuggestMinQuery, s.deps.SuggestLimit)
	if suggestions == nil {
		suggestions = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"kind":        kind,
		"query":       query,
		"suggestions": suggestions,
	})
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	ds, _, ok := s.requireDataset(w, r)
	if !ok {
		return
	}
	names := r.URL.Query()["name"]
	metric := r.URL.Query().Get("metric")
	if len(names) == 0 || metric == "" {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":      "name and metric are required",
			"metrics":    ds.NumericColumns(),
			"request_id": requestID(r),
		})
		return
	}

	cmp, err := ds.Compare(names, metric)
	if err != nil {
		writeError(w, r, fmt.Errorf("%w %q", err, metric))
		return
	}
	writeJSON(w, http.StatusOK, cmp)
}

func (s *Server) handleEntity(w http.ResponseWriter, r *http.Request) {
	ds, kind, ok := s.requireDataset(w, r)
	if !ok {
		return
	}
	name := mux.Vars(r)["name"]
	series := ds.Series(name)
	if len(series) == 0 {
		writeError(w, r, fmt.Errorf("%w: %q", ml.ErrEntityNotFound, name))
		return
	}

	records := make([]map[string]interface{}, len(series))
	for i, rec := range series {
		records[i] = rec.Flatten(ds.EntityColumn(), ds.PeriodColumn())
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"kind":    kind,
		"name":    name,
		"columns": ds.Columns(),
		"records": records,
	})
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if s.deps.Players == nil {
		writeError(w, r, fmt.Errorf("%w: players dataset not loaded", ml.ErrDataUnavailable))
		return
	}

	var (
		model        ml.Predictor
		pre          ml.Transformer
		modelVersion string
	)
	if s.deps.Models != nil {
		model, pre, modelVersion = s.deps.Models.Model(), s.deps.Models.Preprocessor(), s.deps.Models.ModelVersion()
	}

	series := s.deps.Players.Series(name)
	raw, err := s.deps.Predictor.PredictRaw(name, series, model, pre)
	if err != nil {
		writeError(w, r, err)
		return
	}

	basis := series[len(series)-1]
	resp := PredictionResponse{
		Player:         name,
		PredictedGoals: ml.RoundGoals(raw),
		RawPrediction:  raw,
		BasisSeason:    basis.Season,
		ModelVersion:   modelVersion,
		RequestID:      requestID(r),
	}

	if s.deps.Store != nil {
		err := s.deps.Store.StorePrediction(storage.PredictionRecord{
			Player:         name,
			Team:           basis.Labels[s.deps.TeamColumn],
			BasisSeason:    basis.Season,
			PredictedGoals: resp.PredictedGoals,
			RawPrediction:  raw,
			ModelVersion:   modelVersion,
			CreatedAt:      time.Now().UTC(),
		})
		if err != nil {
			log.Warn().Err(err).Str("player", name).Msg("Failed to store prediction")
		} else if s.deps.Metrics != nil {
			s.deps.Metrics.PredictionsStored().Inc()
		}
	}

	s.feed.Publish(resp)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTopPredictions(w http.ResponseWriter, r *http.Request) {
	if s.deps.Store == nil {
		writeError(w, r, fmt.Errorf("%w: prediction ledger disabled", ml.ErrDataUnavailable))
		return
	}

	limit := s.deps.TopLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			badRequest(w, r, "limit must be a positive integer")
			return
		}
		limit = n
	}

	top, err := s.deps.Store.TopPredictions(limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if top == nil {
		top = []storage.PredictionRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"limit":       limit,
		"predictions": top,
	})
}

func (s *Server) handleModel(w http.ResponseWriter, r *http.Request) {
	if s.deps.Models == nil || !s.deps.Models.Ready() {
		writeError(w, r, fmt.Errorf("%w: model artifacts not loaded", ml.ErrDataUnavailable))
		return
	}
	s.deps.Models.ReportAge()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"artifacts": s.deps.Models.Versions(),
	})
}
