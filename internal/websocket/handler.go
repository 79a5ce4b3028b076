package websocket

import (
	"net/http"

	"github.com/JamesClarke7283/StatelessChat/internal/token"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// TokenVerifier checks a room token, records the outcome and returns its claims.
type TokenVerifier interface {
	Authorize(tok, roomID string) (*token.Claims, error)
}

// Handler upgrades authenticated requests to WebSocket connections
type Handler struct {
	hub      *Hub
	tokens   TokenVerifier
	upgrader websocket.Upgrader
	tokenOf  func(*http.Request) string
}

// NewHandler creates a new WebSocket handler. tokenOf extracts the bearer
// token from a request. allowedOrigins mirrors the CORS configuration; an
// empty list accepts any origin.
func NewHandler(hub *Hub, tokens TokenVerifier, tokenOf func(*http.Request) string, allowedOrigins []string) *Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &Handler{
		hub:     hub,
		tokens:  tokens,
		tokenOf: tokenOf,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || len(allowed) == 0 || allowed[origin] || allowed["*"]
			},
		},
	}
}

// ServeWS handles WebSocket upgrade requests at /ws/rooms/{id}
// The token is checked before the upgrade and the socket is closed when it
// expires.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")
	claims, err := h.tokens.Authorize(h.tokenOf(r), roomID)
	if err != nil {
		http.Error(w, "Invalid token", http.StatusForbidden)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := NewClient(h.hub, conn, roomID, claims.Username, claims.ExpiresAt)
	select {
	case h.hub.register <- client:
	case <-h.hub.done:
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}
