package handlers

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/JamesClarke7283/StatelessChat/internal/models"
	"github.com/JamesClarke7283/StatelessChat/internal/services"
	"github.com/JamesClarke7283/StatelessChat/internal/token"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

const (
	// UsernameCookie holds the URL-escaped display name
	UsernameCookie = "username"

	// TokenCookie holds the room bearer token
	TokenCookie = "roomToken"

	maxUsernameLen = 32
)

// RoomHandler contains HTTP handlers for room operations.
// All handlers return JSON responses.
type RoomHandler struct {
	store        *services.RoomStore
	tokens       *token.Service
	cookieMaxAge int
}

// NewRoomHandler creates a new RoomHandler instance.
func NewRoomHandler(store *services.RoomStore, tokens *token.Service, cookieMaxAge int) *RoomHandler {
	return &RoomHandler{store: store, tokens: tokens, cookieMaxAge: cookieMaxAge}
}

// SetUsername handles POST /api/username
// Stores the display name in a cookie, nothing is kept server-side.
func (h *RoomHandler) SetUsername(w http.ResponseWriter, r *http.Request) {
	var req models.UsernameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	username, ok := validUsername(req.Username)
	if !ok {
		writeError(w, http.StatusBadRequest, "Username is required.")
		return
	}

	h.setCookie(w, UsernameCookie, url.QueryEscape(username))
	log.Info().Str("user", username).Msg("username set")
	w.WriteHeader(http.StatusNoContent)
}

// CreateRoom handles POST /api/rooms
// Creates a password protected room. When a username is supplied the
// creator joins immediately and receives a token.
func (h *RoomHandler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req models.CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Password == "" {
		writeError(w, http.StatusBadRequest, "password is required")
		return
	}

	roomID := h.store.CreateRoom(req.Password)
	response := models.CreateRoomResponse{RoomID: roomID}

	if username, ok := validUsername(firstNonEmpty(req.Username, usernameFromCookie(r))); ok {
		h.store.JoinRoom(roomID, req.Password, username)
		tok, err := h.tokens.Generate(username, roomID, req.Password)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		h.setCookie(w, UsernameCookie, url.QueryEscape(username))
		h.setCookie(w, TokenCookie, tok)
		response.Token = tok
	}

	writeJSON(w, http.StatusCreated, response)
}

// JoinRoom handles POST /api/rooms/{id}/join
// Checks the password, records the member and issues a room token.
func (h *RoomHandler) JoinRoom(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")
	req, username, ok := h.decodeCredentials(w, r)
	if !ok {
		return
	}

	if !h.store.JoinRoom(roomID, req.Password, username) {
		writeError(w, http.StatusForbidden, "Invalid room ID or password")
		return
	}
	h.issueToken(w, roomID, username, req.Password)
}

// IssueToken handles POST /api/rooms/{id}/token
// Mints a token from the room password without recording membership.
func (h *RoomHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")
	req, username, ok := h.decodeCredentials(w, r)
	if !ok {
		return
	}
	h.issueToken(w, roomID, username, req.Password)
}

// GetRoom handles GET /api/rooms/{id}
// Returns the room members. Requires a valid room token.
func (h *RoomHandler) GetRoom(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")
	if !h.tokens.Validate(TokenFromRequest(r), roomID) {
		writeError(w, http.StatusForbidden, "Invalid token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"room_id": roomID,
		"members": h.store.Members(roomID),
	})
}

func (h *RoomHandler) decodeCredentials(w http.ResponseWriter, r *http.Request) (models.JoinRoomRequest, string, bool) {
	var req models.JoinRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return req, "", false
	}
	username, ok := validUsername(firstNonEmpty(req.Username, usernameFromCookie(r)))
	if !ok || req.Password == "" {
		writeError(w, http.StatusBadRequest, "All fields are required.")
		return req, "", false
	}
	return req, username, true
}

func (h *RoomHandler) issueToken(w http.ResponseWriter, roomID, username, password string) {
	tok, err := h.tokens.Generate(username, roomID, password)
	if err != nil || !h.tokens.Validate(tok, roomID) {
		writeError(w, http.StatusForbidden, "Invalid room ID or password")
		return
	}
	h.setCookie(w, UsernameCookie, url.QueryEscape(username))
	h.setCookie(w, TokenCookie, tok)
	writeJSON(w, http.StatusOK, models.TokenResponse{Token: tok})
}

func (h *RoomHandler) setCookie(w http.ResponseWriter, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   h.cookieMaxAge,
	})
}

// TokenFromRequest returns the bearer token from the Authorization header,
// the roomToken cookie or the token query parameter, in that order.
func TokenFromRequest(r *http.Request) string {
	if authz := r.Header.Get("Authorization"); len(authz) > 7 && strings.EqualFold(authz[:7], "bearer ") {
		return strings.TrimSpace(authz[7:])
	}
	if c, err := r.Cookie(TokenCookie); err == nil && c.Value != "" {
		return c.Value
	}
	return r.URL.Query().Get("token")
}

func usernameFromCookie(r *http.Request) string {
	c, err := r.Cookie(UsernameCookie)
	if err != nil {
		return ""
	}
	name, err := url.QueryUnescape(c.Value)
	if err != nil {
		return ""
	}
	return name
}

func validUsername(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxUsernameLen {
		return "", false
	}
	return name, true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// writeJSON is a helper function to write JSON responses.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, models.ErrorResponse{Error: msg})
}
