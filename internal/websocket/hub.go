// Package websocket runs the /ws connectivity channel. Clients hold the
// connection open to learn that the server is reachable; every (re)connect
// starts with a hello, and backup status changes are pushed as they happen.
package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

const (
	TypeHello        = "hello"
	TypeBackupStatus = "backup_status"
)

// Message is the envelope of every frame sent to clients.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Hello is the payload of the first frame on every connection.
type Hello struct {
	Version    string    `json:"version"`
	ServerTime time.Time `json:"server_time"`
	ClientID   string    `json:"client_id"`
}

// NewMessage wraps data under the given type.
func NewMessage(typ string, data any) (Message, error) {
	if data == nil {
		return Message{Type: typ}, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: typ, Data: raw}, nil
}

// Hub maintains the set of active WebSocket clients and broadcasts messages.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	version string
	logger  *slog.Logger
	now     func() time.Time
}

// NewHub creates a new Hub. version is reported in every hello.
func NewHub(version string, logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		version: version,
		logger:  logger,
		now:     time.Now,
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("websocket client registered", "client", c.id, "remote", c.remote)
}

// hello encodes the first frame for the client with the given id.
func (h *Hub) hello(clientID string) ([]byte, error) {
	msg, err := NewMessage(TypeHello, Hello{Version: h.version, ServerTime: h.now().UTC(), ClientID: clientID})
	if err != nil {
		return nil, err
	}
	return json.Marshal(msg)
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Broadcast sends a message to all connected clients.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			// Client buffer full, drop message to avoid blocking
		}
	}
}

// Publish marshals data under typ and broadcasts it.
func (h *Hub) Publish(typ string, data any) {
	msg, err := NewMessage(typ, data)
	if err != nil {
		h.logger.Error("marshal message", "type", typ, "error", err)
		return
	}
	h.Broadcast(msg)
}

// Shutdown drops every client. Their connections close with StatusGoingAway,
// which hijacked websocket connections would not get from http.Server.Shutdown.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
