package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"speech-sentiment-service/internal/models"
	"speech-sentiment-service/internal/observability/logging"
	"speech-sentiment-service/internal/observability/metrics"
)

const writeWait = 5 * time.Second

// Hub fans session snapshots out to WebSocket clients.
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan models.SessionSnapshot
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	upgrader   websocket.Upgrader
	metrics    *metrics.Metrics
	log        zerolog.Logger

	mu   sync.RWMutex
	last *models.SessionSnapshot
}

// NewHub creates a hub. Call Run to start delivering.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan models.SessionSnapshot, 100),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins for local dev
			},
		},
		metrics: metrics.DefaultMetrics,
		log:     logging.WithComponent("ws-hub"),
	}
}

// Publish queues a snapshot for all clients. It never blocks; when the queue
// is full the snapshot is dropped, since a later one supersedes it.
func (h *Hub) Publish(s models.SessionSnapshot) {
	h.mu.Lock()
	h.last = &s
	h.mu.Unlock()

	select {
	case h.broadcast <- s:
	default:
		h.log.Warn().Msg("Broadcast queue full, dropping snapshot")
	}
}

// Run delivers registrations and broadcasts until ctx is done, then closes
// all connections.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for conn := range h.clients {
				conn.Close()
				delete(h.clients, conn)
			}
			h.metrics.WebSocketClients.Set(0)
			return

		case conn := <-h.register:
			h.clients[conn] = true
			h.metrics.WebSocketClients.Set(float64(len(h.clients)))
			h.log.Info().Int("clients", len(h.clients)).Msg("Client connected")

			h.mu.RLock()
			last := h.last
			h.mu.RUnlock()
			if last != nil {
				h.write(conn, *last)
			}

		case conn := <-h.unregister:
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
			h.metrics.WebSocketClients.Set(float64(len(h.clients)))
			h.log.Info().Int("clients", len(h.clients)).Msg("Client disconnected")

		case snap := <-h.broadcast:
			for conn := range h.clients {
				h.write(conn, snap)
			}
		}
	}
}

// write sends one snapshot; a failing client is dropped.
func (h *Hub) write(conn *websocket.Conn, s models.SessionSnapshot) {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(s); err != nil {
		h.log.Debug().Err(err).Msg("Write error")
		conn.Close()
		delete(h.clients, conn)
		h.metrics.WebSocketClients.Set(float64(len(h.clients)))
	}
}

// ServeHTTP upgrades the connection and registers the client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("WebSocket upgrade error")
		return
	}

	select {
	case h.register <- conn:
	case <-h.done:
		conn.Close()
		return
	}

	// Keep connection alive, handle disconnects
	go func() {
		defer func() {
			select {
			case h.unregister <- conn:
			case <-h.done:
			}
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
