// Package api exposes the stats datasets, goal predictions and the
// prediction ledger over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"football-stats/internal/metrics"
	"football-stats/internal/ml"
	"football-stats/internal/stats"
	"football-stats/internal/storage"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Dataset kinds in URL paths.
const (
	KindPlayers = "players"
	KindTeams   = "teams"
)

// Deps are the handles the handlers read. Any of the datasets, the model
// manager and the store may be nil; the affected endpoints then answer 503.
type Deps struct {
	Players   *stats.Dataset
	Teams     *stats.Dataset
	Predictor *ml.GoalPredictor
	Models    *ml.ModelManager
	Store     *storage.Store
	Metrics   *metrics.MetricsWrapper
	// Gatherer backs /metrics; nil means the default registry.
	Gatherer prometheus.Gatherer

	TeamColumn      string
	SuggestMinQuery int
	SuggestLimit    int
	TopLimit        int
	RateLimitRPS    float64
	RateLimitBurst  int
}

// Server is the HTTP API.
type Server struct {
	deps   Deps
	router *mux.Router
	server *http.Server
	feed   *PredictionFeed
}

// NewServer wires the routes and middleware.
func NewServer(deps Deps, port int) *Server {
	s := &Server{deps: deps, feed: NewPredictionFeed(deps.Metrics)}

	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods("GET")

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/players/predict/{name}", s.handlePredict).Methods("GET")
	api.HandleFunc("/predictions/top", s.handleTopPredictions).Methods("GET")
	api.HandleFunc("/model", s.handleModel).Methods("GET")
	api.HandleFunc("/stream/predictions", s.feed.handleStream).Methods("GET")
	api.HandleFunc("/{kind:players|teams}/search", s.handleSearch).Methods("GET")
	api.HandleFunc("/{kind:players|teams}/suggest", s.handleSuggest).Methods("GET")
	api.HandleFunc("/{kind:players|teams}/compare", s.handleCompare).Methods("GET")
	api.HandleFunc("/{kind:players|teams}/entity/{name}", s.handleEntity).Methods("GET")
	api.Use(newRateLimiter(deps.RateLimitRPS, deps.RateLimitBurst, deps.Metrics).middleware)

	r.Use(requestIDMiddleware, s.instrument)
	s.router = r

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	log.Info().Str("addr", s.server.Addr).Msg("Starting API server")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.feed.Stop()
	return s.server.Shutdown(ctx)
}

func (s *Server) dataset(kind string) *stats.Dataset {
	if kind == KindTeams {
		return s.deps.Teams
	}
	return s.deps.Players
}
