// Package realtime implements the websocket gateway that delivers
// notifications and chat messages to connected clients by room.
// Delivery is best-effort, at-most-once: if nobody is in the room the
// frame is dropped, and a client that cannot keep up is disconnected.
package realtime

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/snapgram/backend/internal/events"
)

// Frame is the wire shape sent to websocket clients.
type Frame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Hub tracks connected clients and their room memberships.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
	log   zerolog.Logger
}

// NewHub creates a new Hub.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		rooms: make(map[string]map[*Client]struct{}),
		log:   log,
	}
}

// BindBus subscribes the hub to the event bus so business logic can
// stay unaware of the websocket layer.
func (h *Hub) BindBus(bus *events.Bus) {
	bus.Subscribe(events.EventNotification, func(payload any) {
		ev, ok := payload.(events.NotificationEvent)
		if !ok {
			return
		}
		h.DeliverToUser(ev.UserID, "notification", ev.Payload)
	})
	bus.Subscribe(events.EventMessage, func(payload any) {
		ev, ok := payload.(events.MessageEvent)
		if !ok {
			return
		}
		h.DeliverToRoom(ev.RoomID, "message", ev.Payload)
	})
}

// Join adds the client to a room.
func (h *Hub) Join(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]struct{})
	}
	h.rooms[room][c] = struct{}{}
	c.rooms[room] = struct{}{}
}

// Leave removes the client from a room.
func (h *Hub) Leave(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(c, room)
}

func (h *Hub) leaveLocked(c *Client, room string) {
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(c.rooms, room)
}

// Unregister removes the client from every room it joined.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for room := range c.rooms {
		h.leaveLocked(c, room)
	}
	c.close()
}

// RoomSize returns the number of clients currently in a room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// DeliverToUser sends an event to the user's private room. A user's
// room name is their user id; every connection auto-joins it.
func (h *Hub) DeliverToUser(userID, event string, payload any) {
	h.DeliverToRoom(userID, event, payload)
}

// DeliverToRoom sends an event to every client in the room. Silently a
// no-op when the room is empty.
func (h *Hub) DeliverToRoom(room, event string, payload any) {
	data, err := json.Marshal(Frame{Event: event, Data: payload})
	if err != nil {
		h.log.Error().Err(err).Str("event", event).Msg("marshal realtime frame")
		return
	}

	h.mu.RLock()
	members := make([]*Client, 0, len(h.rooms[room]))
	for c := range h.rooms[room] {
		members = append(members, c)
	}
	h.mu.RUnlock()

	for _, c := range members {
		if !c.trySend(data) {
			// slow consumer: drop the connection rather than block
			h.log.Warn().Str("room", room).Str("client", c.ID).Msg("dropping slow realtime client")
			h.Unregister(c)
		}
	}
}
