package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/JamesClarke7283/StatelessChat/internal/models"
	"github.com/JamesClarke7283/StatelessChat/internal/services"
	"github.com/JamesClarke7283/StatelessChat/internal/token"
	"github.com/go-chi/chi/v5"
)

// maxMessageBytes caps a posted message body
const maxMessageBytes = 64 * 1024

// MessageHandler contains HTTP handlers for message operations.
// Every route requires a token valid for the room in the URL.
type MessageHandler struct {
	store  *services.RoomStore
	tokens *token.Service
}

// NewMessageHandler creates a new MessageHandler instance.
func NewMessageHandler(store *services.RoomStore, tokens *token.Service) *MessageHandler {
	return &MessageHandler{store: store, tokens: tokens}
}

// SendMessage handles POST /api/rooms/{id}/messages
// Encrypts and stores a message, empty content included. The author comes
// from the token.
func (h *MessageHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")
	claims, err := h.tokens.Authorize(TokenFromRequest(r), roomID)
	if err != nil {
		writeError(w, http.StatusForbidden, "Invalid token")
		return
	}

	var req models.SendMessageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMessageBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	username := firstNonEmpty(claims.Username, usernameFromCookie(r), "Anonymous")
	if err := h.store.AddMessage(roomID, username, req.Message); err != nil {
		if errors.Is(err, services.ErrRoomNotFound) {
			writeError(w, http.StatusNotFound, "room not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to store message")
		return
	}

	writeJSON(w, http.StatusOK, models.SendMessageResponse{Success: true})
}

// GetMessages handles GET /api/rooms/{id}/messages
// Returns the decrypted room log in insertion order.
func (h *MessageHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")
	if !h.tokens.Validate(TokenFromRequest(r), roomID) {
		writeError(w, http.StatusForbidden, "Invalid token")
		return
	}

	writeJSON(w, http.StatusOK, models.GetMessagesResponse{
		Messages: h.store.GetMessages(roomID),
	})
}
