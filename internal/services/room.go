package services

import (
	"crypto/sha256"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/JamesClarke7283/StatelessChat/internal/crypto"
	"github.com/JamesClarke7283/StatelessChat/internal/metrics"
	"github.com/JamesClarke7283/StatelessChat/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	// ErrRoomNotFound is returned for operations on an unknown room id.
	ErrRoomNotFound = errors.New("room not found")

	// ErrInvalidCredentials is returned by Join when the password is wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// MessageListener is called after a message has been appended to a room.
type MessageListener func(roomID string, msg models.Message)

// roomEntry pairs a room with the lock guarding its users and messages.
type roomEntry struct {
	mu   sync.RWMutex
	room models.Room
}

// RoomStore is the in-memory registry of rooms. It owns every room and its
// message log; callers only ever see room ids, booleans and plaintext.
//
// The registry lock is held only for map access. Each room has its own lock
// and no lock is held while hashing, deriving keys or running AES-GCM.
type RoomStore struct {
	rooms   map[string]*roomEntry
	mu      sync.RWMutex
	deriver crypto.KeyDeriver
	now     func() time.Time
	newSalt func(n int) ([]byte, error)

	listenersMu sync.RWMutex
	listeners   []MessageListener
}

// NewRoomStore creates an empty store. A nil deriver means crypto.RawDeriver.
func NewRoomStore(deriver crypto.KeyDeriver) *RoomStore {
	if deriver == nil {
		deriver = crypto.RawDeriver{}
	}
	return &RoomStore{
		rooms:   make(map[string]*roomEntry),
		deriver: deriver,
		now:     time.Now,
		newSalt: crypto.NewSalt,
	}
}

// CreateRoom registers a new room protected by password and returns its id.
func (s *RoomStore) CreateRoom(password string) string {
	entry := &roomEntry{room: models.Room{
		PasswordHash: crypto.HashPassword(password),
		Users:        make(map[string]struct{}),
		CreatedAt:    s.now().UTC(),
	}}

	var id string
	for {
		id = uuid.New().String()
		entry.room.ID = id
		entry.room.Salt = s.roomSalt(id)

		s.mu.Lock()
		if s.rooms[id] == nil {
			s.rooms[id] = entry
			s.mu.Unlock()
			break
		}
		s.mu.Unlock()
	}

	metrics.RoomsCreated.Inc()
	log.Info().Str("room", id).Msg("room created")
	return id
}

// JoinRoom adds username to the room if password matches. It returns false
// for unknown rooms and wrong passwords without changing membership.
func (s *RoomStore) JoinRoom(roomID, password, username string) bool {
	err := s.Join(roomID, password, username)
	metrics.JoinAttempts.WithLabelValues(metrics.Result(err == nil)).Inc()
	switch {
	case errors.Is(err, ErrRoomNotFound):
		log.Warn().Str("room", roomID).Msg("room not found")
		return false
	case err != nil:
		log.Warn().Str("room", roomID).Msg("invalid password attempt")
		return false
	}
	log.Info().Str("room", roomID).Str("user", username).Msg("user joined room")
	return true
}

// Join is the error-returning form of JoinRoom.
func (s *RoomStore) Join(roomID, password, username string) error {
	entry := s.get(roomID)
	if entry == nil {
		return ErrRoomNotFound
	}
	// PasswordHash is immutable, no room lock needed to read it
	if !crypto.VerifyPassword(entry.room.PasswordHash, password) {
		return ErrInvalidCredentials
	}
	entry.mu.Lock()
	entry.room.Users[username] = struct{}{}
	entry.mu.Unlock()
	return nil
}

// Exists reports whether roomID is registered.
func (s *RoomStore) Exists(roomID string) bool {
	return s.get(roomID) != nil
}

// RoomCount returns the number of registered rooms.
func (s *RoomStore) RoomCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}

// PasswordHash returns the stored hash for roomID.
func (s *RoomStore) PasswordHash(roomID string) (string, bool) {
	entry := s.get(roomID)
	if entry == nil {
		return "", false
	}
	return entry.room.PasswordHash, true
}

// Members returns the room's usernames sorted alphabetically.
func (s *RoomStore) Members(roomID string) []string {
	entry := s.get(roomID)
	if entry == nil {
		return []string{}
	}
	entry.mu.RLock()
	users := make([]string, 0, len(entry.room.Users))
	for u := range entry.room.Users {
		users = append(users, u)
	}
	entry.mu.RUnlock()
	sort.Strings(users)
	return users
}

// Subscribe registers fn to be called for every message appended to any room.
func (s *RoomStore) Subscribe(fn MessageListener) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *RoomStore) get(roomID string) *roomEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rooms[roomID]
}

func (s *RoomStore) roomKey(entry *roomEntry) (*crypto.Key, error) {
	// PasswordHash and Salt never change after creation
	return s.deriver.DeriveKey(entry.room.PasswordHash, entry.room.Salt)
}

func (s *RoomStore) notify(roomID string, msg models.Message) {
	s.listenersMu.RLock()
	listeners := make([]MessageListener, len(s.listeners))
	copy(listeners, s.listeners)
	s.listenersMu.RUnlock()

	for _, fn := range listeners {
		fn(roomID, msg)
	}
}

// roomSalt returns a fresh random salt for the deriver. If the system random
// source fails the salt is derived from the room id instead, which is unique
// but public, so the room still works with a weaker key.
func (s *RoomStore) roomSalt(roomID string) []byte {
	n := s.deriver.SaltSize()
	salt, err := s.newSalt(n)
	if err == nil {
		return salt
	}
	log.Error().Err(err).Str("room", roomID).Msg("random salt unavailable, deriving from room id")
	sum := sha256.Sum256([]byte(roomID))
	out := make([]byte, 0, n)
	for len(out) < n {
		out = append(out, sum[:]...)
		sum = sha256.Sum256(sum[:])
	}
	return out[:n]
}
