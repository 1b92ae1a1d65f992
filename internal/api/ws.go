package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const writeWait = 10 * time.Second

type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub pushes the public order book to websocket clients
type Hub struct {
	book     BookReader
	upgrader websocket.Upgrader
	log      zerolog.Logger

	mu      sync.RWMutex
	clients map[*wsClient]bool
}

// NewHub creates a hub. checkOrigin may be nil to accept same-origin requests only.
func NewHub(book BookReader, checkOrigin func(r *http.Request) bool, log zerolog.Logger) *Hub {
	return &Hub{
		book:     book,
		upgrader: websocket.Upgrader{CheckOrigin: checkOrigin},
		log:      log.With().Str("component", "ws").Logger(),
		clients:  make(map[*wsClient]bool),
	}
}

// ServeHTTP upgrades the connection and registers the client until it disconnects
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("failed to upgrade connection")
		return
	}

	client := &wsClient{conn: conn}
	h.mu.Lock()
	h.clients[client] = true
	h.mu.Unlock()

	// Send initial order book
	if data, err := h.snapshot(); err == nil {
		client.send(data)
	}

	// Keep connection alive and handle disconnection
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.remove(client)
			return
		}
	}
}

func (h *Hub) remove(client *wsClient) {
	h.mu.Lock()
	delete(h.clients, client)
	h.mu.Unlock()
	client.conn.Close()
}

func (h *Hub) snapshot() ([]byte, error) {
	data, err := json.Marshal(bookPayload(h.book))
	if err != nil {
		h.log.Error().Err(err).Msg("failed to marshal order book")
	}
	return data, err
}

// Broadcast sends the current book to every client, dropping clients that fail
func (h *Hub) Broadcast() {
	data, err := h.snapshot()
	if err != nil {
		return
	}

	h.mu.RLock()
	var failed []*wsClient
	for client := range h.clients {
		if err := client.send(data); err != nil {
			failed = append(failed, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range failed {
		h.log.Debug().Msg("dropping websocket client")
		h.remove(client)
	}
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Run broadcasts every interval and whenever updates fires, until ctx is done
func (h *Hub) Run(ctx context.Context, interval time.Duration, updates <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Broadcast()
		case <-updates:
			h.Broadcast()
		}
	}
}
