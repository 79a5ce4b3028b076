package websocket

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 64 * 1024
)

// Client represents a single WebSocket connection bound to one room
type Client struct {
	hub *Hub

	conn *websocket.Conn

	// Buffered channel of outbound frames
	send chan []byte

	RoomID   string
	Username string

	// expiresAt is when the client's token stops being valid, zero if never
	expiresAt time.Time
}

// NewClient creates a client for an authenticated connection. A non-zero
// expiresAt closes the connection once the token has expired.
func NewClient(hub *Hub, conn *websocket.Conn, roomID, username string, expiresAt time.Time) *Client {
	return &Client{
		hub:       hub,
		conn:      conn,
		send:      make(chan []byte, 256),
		RoomID:    roomID,
		Username:  username,
		expiresAt: expiresAt,
	}
}

// ReadPump pumps frames from the WebSocket connection into the room store.
// This runs in its own goroutine per client
func (c *Client) ReadPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Debug().Err(err).Str("room", c.RoomID).Msg("websocket read error")
			}
			break
		}
		c.hub.handleInbound(c, message)
	}
}

// WritePump pumps frames from the hub to the WebSocket connection and closes
// it when the client's token expires.
// This runs in its own goroutine per client
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	// nil channel blocks forever when the token never expires
	var expired <-chan time.Time
	if !c.expiresAt.IsZero() {
		timer := time.NewTimer(time.Until(c.expiresAt))
		defer timer.Stop()
		expired = timer.C
	}

	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// One frame per message, concatenating would break JSON parsing
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-expired:
			log.Info().Str("room", c.RoomID).Str("user", c.Username).Msg("websocket token expired")
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "token expired"))
			return
		}
	}
}
