// Package ws implements the live chat relay: a single shared room that fans
// out transient events to every connected client. The channel is
// intentionally unauthenticated (clients only supply a display name); the
// REST surface is where identity is enforced.
package ws

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"

	"messaging-service/internal/models"
	"messaging-service/internal/observability"
)

// Conn is the subset of *websocket.Conn the hub writes to. Tests register
// fake connections through it.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type client struct {
	conn Conn
	info ConnInfo

	// guards writes; gorilla connections do not support concurrent writers.
	mu sync.Mutex
}

func (c *client) write(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// Hub owns the room membership registry, keyed by connection id. One Hub is
// created per process and injected into the relay handler.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[string]*client)}
}

// Add registers a connection in the room.
func (h *Hub) Add(conn Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[info.ConnID] = &client{conn: conn, info: info}
}

// Remove drops a connection from the room.
func (h *Hub) Remove(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, connID)
}

// Count reports current room membership.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SendTo delivers an event to a single connection.
func (h *Hub) SendTo(connID string, event models.RoomEvent) {
	h.mu.RLock()
	cl := h.clients[connID]
	h.mu.RUnlock()
	if cl == nil {
		return
	}

	payload, _ := json.Marshal(event)
	if err := cl.write(payload); err != nil {
		h.dropClient(cl, err)
	}
}

// Broadcast delivers an event to every connection in the room except the
// sender. A write failure on one connection never aborts delivery to the
// rest.
func (h *Hub) Broadcast(senderConnID string, event models.RoomEvent) {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for id, cl := range h.clients {
		if id != senderConnID {
			targets = append(targets, cl)
		}
	}
	h.mu.RUnlock()

	payload, _ := json.Marshal(event)
	for _, cl := range targets {
		if err := cl.write(payload); err != nil {
			h.dropClient(cl, err)
		}
	}
}

func (h *Hub) dropClient(cl *client, err error) {
	log.Printf("websocket write error conn_id=%s: %v", cl.info.ConnID, err)
	cl.conn.Close()
	h.Remove(cl.info.ConnID)
	observability.IncWSEvent("ws_error")
}
