package services

import (
	"errors"
	"fmt"

	"github.com/JamesClarke7283/StatelessChat/internal/crypto"
	"github.com/JamesClarke7283/StatelessChat/internal/metrics"
	"github.com/JamesClarke7283/StatelessChat/internal/models"
	"github.com/rs/zerolog/log"
)

// AddMessage encrypts content and username under the room key and appends
// the result to the room's log. It returns ErrRoomNotFound for unknown rooms.
func (s *RoomStore) AddMessage(roomID, username, content string) error {
	entry := s.get(roomID)
	if entry == nil {
		log.Warn().Str("room", roomID).Msg("room not found when adding message")
		return ErrRoomNotFound
	}

	key, err := s.roomKey(entry)
	if err != nil {
		log.Error().Err(err).Str("room", roomID).Msg("derive room key")
		return fmt.Errorf("derive room key: %w", err)
	}

	aad := []byte(roomID)
	ct, nonce, err := crypto.Encrypt(content, key, aad)
	if err != nil {
		return fmt.Errorf("encrypt message: %w", err)
	}
	authorCT, authorNonce, err := crypto.Encrypt(username, key, aad)
	if err != nil {
		return fmt.Errorf("encrypt author: %w", err)
	}

	ts := s.now().UnixMilli()
	entry.mu.Lock()
	entry.room.Messages = append(entry.room.Messages, models.EncryptedMessage{
		Ciphertext:       ct,
		Nonce:            nonce,
		AuthorCiphertext: authorCT,
		AuthorNonce:      authorNonce,
		Timestamp:        ts,
	})
	entry.mu.Unlock()

	metrics.MessagesStored.Inc()
	log.Info().Str("room", roomID).Str("user", username).Msg("message added")

	s.notify(roomID, models.Message{Username: username, Content: content, Timestamp: ts})
	return nil
}

// GetMessages returns every message of the room decrypted, in insertion
// order. Unknown rooms and integrity failures yield an empty slice.
func (s *RoomStore) GetMessages(roomID string) []models.Message {
	msgs, err := s.Messages(roomID)
	switch {
	case errors.Is(err, ErrRoomNotFound):
		log.Warn().Str("room", roomID).Msg("room not found when retrieving messages")
		return []models.Message{}
	case errors.Is(err, crypto.ErrIntegrity), errors.Is(err, crypto.ErrMalformed):
		metrics.DecryptFailures.Inc()
		log.Error().Err(err).Str("room", roomID).Msg("message decryption failed")
		return []models.Message{}
	case err != nil:
		log.Error().Err(err).Str("room", roomID).Msg("retrieve messages")
		return []models.Message{}
	}
	return msgs
}

// Messages is the error-returning form of GetMessages. It returns
// ErrRoomNotFound, or an error wrapping crypto.ErrIntegrity when a stored
// message fails authentication.
func (s *RoomStore) Messages(roomID string) ([]models.Message, error) {
	entry := s.get(roomID)
	if entry == nil {
		return nil, ErrRoomNotFound
	}

	// Copy under the read lock so appends never interleave with decryption
	entry.mu.RLock()
	stored := make([]models.EncryptedMessage, len(entry.room.Messages))
	copy(stored, entry.room.Messages)
	entry.mu.RUnlock()

	key, err := s.roomKey(entry)
	if err != nil {
		return nil, fmt.Errorf("derive room key: %w", err)
	}

	aad := []byte(roomID)
	out := make([]models.Message, 0, len(stored))
	for i, m := range stored {
		content, err := crypto.Decrypt(m.Ciphertext, m.Nonce, key, aad)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		author, err := crypto.Decrypt(m.AuthorCiphertext, m.AuthorNonce, key, aad)
		if err != nil {
			return nil, fmt.Errorf("message %d author: %w", i, err)
		}
		out = append(out, models.Message{Username: author, Content: content, Timestamp: m.Timestamp})
	}
	return out, nil
}

// MessageCount returns the number of stored messages in a room (for debugging)
func (s *RoomStore) MessageCount(roomID string) int {
	entry := s.get(roomID)
	if entry == nil {
		return 0
	}
	entry.mu.RLock()
	defer entry.mu.RUnlock()
	return len(entry.room.Messages)
}
