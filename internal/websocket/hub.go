package websocket

import (
	"encoding/json"
	"sync"

	"github.com/JamesClarke7283/StatelessChat/internal/metrics"
	"github.com/JamesClarke7283/StatelessChat/internal/models"
	"github.com/rs/zerolog/log"
)

// MessageStore is the part of services.RoomStore the hub writes through.
type MessageStore interface {
	AddMessage(roomID, username, content string) error
}

// Hub maintains the set of active clients per room and pushes every new
// room message to them. Clients are only registered after their token was
// validated, so plaintext only reaches token holders.
type Hub struct {
	// rooms maps roomID to a set of clients in that room
	rooms map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *BroadcastMessage
	done       chan struct{}
	stopOnce   sync.Once

	// mutex for thread-safe room operations
	mu sync.RWMutex

	store MessageStore
}

// BroadcastMessage contains an encoded frame for a specific room
type BroadcastMessage struct {
	RoomID  string
	Message []byte
}

// Envelope is the frame format in both directions
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// InboundMessage is the payload of a "message" frame sent by a client
type InboundMessage struct {
	Content string `json:"content"`
}

// NewHub creates a new Hub instance
func NewHub(store MessageStore) *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *BroadcastMessage),
		done:       make(chan struct{}),
		store:      store,
	}
}

// Run starts the hub's main event loop until Stop is called.
// This should be called in a goroutine: go hub.Run()
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case msg := <-h.broadcast:
			h.broadcastToRoom(msg)

		case <-h.done:
			h.closeAll()
			return
		}
	}
}

// Stop ends Run and closes every client connection.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Publish queues msg for every client in roomID. It is registered as a
// services.MessageListener.
func (h *Hub) Publish(roomID string, msg models.Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Msg("encode message frame")
		return
	}
	frame, _ := json.Marshal(Envelope{Type: "message", Payload: payload})

	select {
	case h.broadcast <- &BroadcastMessage{RoomID: roomID, Message: frame}:
	case <-h.done:
	}
}

// registerClient adds a client to a room
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[client.RoomID] == nil {
		h.rooms[client.RoomID] = make(map[*Client]bool)
	}

	h.rooms[client.RoomID][client] = true
	metrics.WsConnections.Inc()
	log.Debug().Str("room", client.RoomID).Str("user", client.Username).
		Int("total", len(h.rooms[client.RoomID])).Msg("websocket client joined")
}

// unregisterClient removes a client from a room
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(client)
}

func (h *Hub) removeLocked(client *Client) {
	clients, ok := h.rooms[client.RoomID]
	if !ok {
		return
	}
	if _, exists := clients[client]; !exists {
		return
	}
	delete(clients, client)
	close(client.send)
	metrics.WsConnections.Dec()
	log.Debug().Str("room", client.RoomID).Str("user", client.Username).
		Int("remaining", len(clients)).Msg("websocket client left")

	if len(clients) == 0 {
		delete(h.rooms, client.RoomID)
	}
}

// broadcastToRoom sends a frame to all clients in a room. Clients with a
// full buffer are dropped.
func (h *Hub) broadcastToRoom(msg *BroadcastMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.rooms[msg.RoomID] {
		select {
		case client.send <- msg.Message:
		default:
			h.removeLocked(client)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, clients := range h.rooms {
		for client := range clients {
			h.removeLocked(client)
		}
	}
}

// handleInbound stores a chat frame received from client. Other frame types
// are ignored.
func (h *Hub) handleInbound(client *Client, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Debug().Err(err).Msg("ignoring malformed websocket frame")
		return
	}
	if env.Type != "message" {
		return
	}
	var in InboundMessage
	if err := json.Unmarshal(env.Payload, &in); err != nil {
		log.Debug().Err(err).Msg("ignoring malformed message payload")
		return
	}
	if err := h.store.AddMessage(client.RoomID, client.Username, in.Content); err != nil {
		log.Warn().Err(err).Str("room", client.RoomID).Msg("websocket message not stored")
	}
}

// GetRoomClientCount returns the number of connected clients in a room
func (h *Hub) GetRoomClientCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}
