package api

import (
	"encoding/json"
	"net/http"
	"sync"

	"football-stats/internal/metrics"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const feedBuffer = 100

// PredictionFeed pushes every successful prediction to connected WebSocket
// clients.
type PredictionFeed struct {
	upgrader  websocket.Upgrader
	metrics   *metrics.MetricsWrapper
	clientsMu sync.Mutex
	clients   map[*websocket.Conn]bool
	broadcast chan PredictionResponse
	stop      chan struct{}
	stopOnce  sync.Once
}

// NewPredictionFeed starts the broadcaster. Call Stop to release it.
func NewPredictionFeed(m *metrics.MetricsWrapper) *PredictionFeed {
	f := &PredictionFeed{
		upgrader:  websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		metrics:   m,
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan PredictionResponse, feedBuffer),
		stop:      make(chan struct{}),
	}
	go f.run()
	return f
}

// Publish queues a prediction for broadcast. It never blocks; when the queue
// is full the prediction is skipped.
func (f *PredictionFeed) Publish(p PredictionResponse) {
	select {
	case f.broadcast <- p:
	default:
		log.Debug().Str("player", p.Player).Msg("Prediction feed full, skipping update")
	}
}

// Stop disconnects every client and ends the broadcaster.
func (f *PredictionFeed) Stop() {
	f.stopOnce.Do(func() {
		close(f.stop)

		f.clientsMu.Lock()
		for client := range f.clients {
			client.Close()
		}
		f.clients = make(map[*websocket.Conn]bool)
		f.clientsMu.Unlock()
		f.reportClients(0)
	})
}

func (f *PredictionFeed) run() {
	for {
		select {
		case p := <-f.broadcast:
			f.send(p)
		case <-f.stop:
			return
		}
	}
}

func (f *PredictionFeed) send(p PredictionResponse) {
	data, err := json.Marshal(p)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal prediction for broadcast")
		return
	}

	f.clientsMu.Lock()
	defer f.clientsMu.Unlock()
	for client := range f.clients {
		if err := client.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Warn().Err(err).Msg("Failed to send prediction to WebSocket client")
			client.Close()
			delete(f.clients, client)
		}
	}
	f.reportClients(len(f.clients))
}

func (f *PredictionFeed) clientCount() int {
	f.clientsMu.Lock()
	defer f.clientsMu.Unlock()
	return len(f.clients)
}

func (f *PredictionFeed) reportClients(n int) {
	if f.metrics != nil {
		f.metrics.FeedClientsSet(n)
	}
}

func (f *PredictionFeed) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}
	defer conn.Close()

	f.clientsMu.Lock()
	f.clients[conn] = true
	f.reportClients(len(f.clients))
	f.clientsMu.Unlock()

	// Clients only listen; reading detects the disconnect
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	f.clientsMu.Lock()
	delete(f.clients, conn)
	f.reportClients(len(f.clients))
	f.clientsMu.Unlock()
}
