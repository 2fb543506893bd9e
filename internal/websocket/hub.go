package websocket

import (
	"log/slog"
	"sync"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/shopsync/internal/protocol"
)

// RoomName is the display name of a group's room, used in logs.
func RoomName(groupID string) string {
	return "group:" + groupID
}

// Hub tracks live sessions and the group rooms they have joined, and fans
// item events out to every session in a room. It is owned by the server and
// passed to whoever publishes; nothing here is global.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	rooms   map[string]map[*Client]struct{}
	logger  *slog.Logger
}

// NewHub creates a new Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		rooms:   make(map[string]map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client from the hub and every room it joined, then
// closes its send channel. Safe to call twice.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return
	}
	for groupID := range c.rooms {
		h.removeFromRoom(c, groupID)
	}
	delete(h.clients, c)
	close(c.send)
}

// Join adds a registered client to a group's room. It reports false when the
// client is no longer registered.
func (h *Hub) Join(c *Client, groupID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return false
	}
	room, ok := h.rooms[groupID]
	if !ok {
		room = make(map[*Client]struct{})
		h.rooms[groupID] = room
	}
	room[c] = struct{}{}
	c.rooms[groupID] = struct{}{}
	return true
}

// Leave removes a client from a group's room. Leaving a room the client is
// not in is a no-op.
func (h *Hub) Leave(c *Client, groupID string) {
	h.mu.Lock()
	h.removeFromRoom(c, groupID)
	h.mu.Unlock()
}

// removeFromRoom must be called with h.mu held.
func (h *Hub) removeFromRoom(c *Client, groupID string) {
	delete(c.rooms, groupID)
	room, ok := h.rooms[groupID]
	if !ok {
		return
	}
	delete(room, c)
	if len(room) == 0 {
		delete(h.rooms, groupID)
	}
}

// Publish sends an item event to every session currently in the group's
// room. It never blocks: a session whose buffer is full misses the event and
// must catch up with a full pull. An empty room drops the event.
func (h *Hub) Publish(groupID string, ev protocol.ItemEvent) {
	data, err := protocol.Encode(ev)
	if err != nil {
		h.logger.Error("encode event", "event", ev.EventName(), "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	room := h.rooms[groupID]
	for c := range room {
		select {
		case c.send <- data:
		default:
			h.logger.Debug("send buffer full, dropping event",
				"room", RoomName(groupID), "event", ev.EventName())
		}
	}
	h.logger.Debug("published", "room", RoomName(groupID), "event", ev.EventName(), "recipients", len(room))
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomSize returns the number of sessions subscribed to a group.
func (h *Hub) RoomSize(groupID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[groupID])
}

// Close disconnects every live session. Their read loops then unregister
// them as usual.
func (h *Hub) Close() {
	h.mu.RLock()
	conns := make([]*ws.Conn, 0, len(h.clients))
	for c := range h.clients {
		if c.conn != nil {
			conns = append(conns, c.conn)
		}
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		conn.Close(ws.StatusGoingAway, "server shutting down")
	}
}
