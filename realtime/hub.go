package realtime

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// Client is one live connection. A client is either station-bound
// (stationID set) or an admin that may join exactly one company room.
type Client struct {
	ID   string
	Send chan []byte

	stationID int32
	companyID int32
}

type envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
	At    time.Time   `json:"at"`
}

// Hub keeps the company rooms and the per-station connection registry.
// Rooms are the tenant isolation boundary: an event published for one
// company is never delivered to another company's clients.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*Client]struct{}
	rooms    map[int32]map[*Client]struct{}
	stations map[int32]*Client
	log      *slog.Logger
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		clients:  make(map[*Client]struct{}),
		rooms:    make(map[int32]map[*Client]struct{}),
		stations: make(map[int32]*Client),
		log:      log,
	}
}

// Register adds a freshly-connected client. It belongs to no room and no
// station until BindStation or JoinCompany is called.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = struct{}{}
}

// BindStation marks the client as the station's single live connection.
// Last connection wins: any previous connection for the same station is
// force-closed. The evicted side sees an ordinary disconnect and is
// expected to re-register.
func (h *Hub) BindStation(client *Client, stationID int32) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if old, ok := h.stations[stationID]; ok && old != client {
		h.log.Info("evicting superseded station connection", "stationId", stationID, "clientId", old.ID)
		h.removeLocked(old)
	}
	client.stationID = stationID
	h.stations[stationID] = client
}

// JoinCompany subscribes an admin client to its company room. A client
// sits in at most one room; re-joining moves it.
func (h *Hub) JoinCompany(client *Client, companyID int32) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	if client.companyID != 0 {
		delete(h.rooms[client.companyID], client)
	}
	client.companyID = companyID
	if h.rooms[companyID] == nil {
		h.rooms[companyID] = make(map[*Client]struct{})
	}
	h.rooms[companyID][client] = struct{}{}
}

// Unregister drops the client and closes its send channel. Safe to call
// after an eviction already removed it.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(client)
}

func (h *Hub) removeLocked(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	if client.companyID != 0 {
		delete(h.rooms[client.companyID], client)
	}
	if client.stationID != 0 && h.stations[client.stationID] == client {
		delete(h.stations, client.stationID)
	}
	close(client.Send)
}

// EvictStation force-closes the station's live connection, if any.
func (h *Hub) EvictStation(stationID int32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if client, ok := h.stations[stationID]; ok {
		h.removeLocked(client)
	}
}

// BroadcastToCompany delivers one event to every client in the company
// room. Delivery is at-most-once: a client whose buffer is full misses the
// event and recovers via the ordinary query endpoints on reconnect.
func (h *Hub) BroadcastToCompany(companyID int32, event string, payload interface{}) {
	message, err := json.Marshal(envelope{Event: event, Data: payload, At: time.Now().UTC()})
	if err != nil {
		h.log.Error("failed to marshal event", "event", event, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.rooms[companyID] {
		select {
		case client.Send <- message:
		default:
			h.log.Warn("dropping event for slow client", "event", event, "clientId", client.ID)
		}
	}
}

// RoomSize reports the number of subscribers of a company room.
func (h *Hub) RoomSize(companyID int32) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[companyID])
}
