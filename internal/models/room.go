package models

import "time"

// Room is a password-protected chat namespace. Rooms live only in memory
// and are owned by services.RoomStore.
type Room struct {
	// ID is the UUID issued at creation, never reused
	ID string

	// PasswordHash is the hex SHA-256 of the room password. It is never changed.
	PasswordHash string

	// Salt is the per-room key derivation salt. Empty with the raw deriver.
	Salt []byte

	// Users is the set of usernames that joined with the right password
	Users map[string]struct{}

	// Messages is append-only, in insertion order
	Messages []EncryptedMessage

	// CreatedAt is when the room was first created
	CreatedAt time.Time
}

// CreateRoomRequest is the request body for creating a new room
// Username is optional, when set the creator joins the room and gets a token.
type CreateRoomRequest struct {
	Password string `json:"password"`
	Username string `json:"username"`
}

// CreateRoomResponse is the response after creating a room
type CreateRoomResponse struct {
	RoomID string `json:"room_id"`
	Token  string `json:"token,omitempty"`
}

// UsernameRequest is the request body for choosing a display name
type UsernameRequest struct {
	Username string `json:"username"`
}

// JoinRoomRequest is the request body for joining a room or minting a token
type JoinRoomRequest struct {
	Password string `json:"password"`
	Username string `json:"username"`
}

// TokenResponse carries a room bearer token
type TokenResponse struct {
	Token string `json:"token"`
}

// ErrorResponse is written for rejected API calls
type ErrorResponse struct {
	Error string `json:"error"`
}
