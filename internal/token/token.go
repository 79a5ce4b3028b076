// Package token issues and validates room bearer tokens.
//
// Wire format, outer encoding is standard base64:
//
//	base64( username ":" roomID ":" issuedAtMillis ":" base64(signature) )
//
// signature is HMAC-SHA256 over "username:roomID:issuedAtMillis" keyed by the
// room's hex password hash. The server keeps no token state.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/JamesClarke7283/StatelessChat/internal/crypto"
	"github.com/JamesClarke7283/StatelessChat/internal/metrics"
	"github.com/rs/zerolog/log"
)

const sep = ":"

// maxClockSkew is how far in the future a token may be dated when a TTL is set.
const maxClockSkew = time.Minute

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpired      = errors.New("token expired")
	ErrInvalidField = errors.New("room id must not contain ':'")
)

// RoomLookup resolves the stored password hash of a room.
type RoomLookup interface {
	PasswordHash(roomID string) (string, bool)
}

// Claims are the decoded, not yet verified, fields of a token.
type Claims struct {
	Username  string
	RoomID    string
	IssuedAt  time.Time
	Signature []byte

	// ExpiresAt is set by Verify when the service has a TTL, zero otherwise
	ExpiresAt time.Time

	issuedAtRaw string
}

// Service signs and verifies tokens against the rooms known to lookup.
type Service struct {
	rooms RoomLookup
	ttl   time.Duration
	now   func() time.Time
}

// NewService creates a token service. A zero ttl disables expiry.
func NewService(rooms RoomLookup, ttl time.Duration) *Service {
	return &Service{rooms: rooms, ttl: ttl, now: time.Now}
}

// Generate mints a token for username in roomID. The signing key is the hash
// of password, i.e. the value stored for a room created with that password.
func (s *Service) Generate(username, roomID, password string) (string, error) {
	if strings.Contains(roomID, sep) {
		return "", ErrInvalidField
	}
	ts := strconv.FormatInt(s.now().UnixMilli(), 10)
	payload := username + sep + roomID + sep + ts
	sig := sign(crypto.HashPassword(password), payload)

	tok := base64.StdEncoding.EncodeToString([]byte(payload + sep + base64.StdEncoding.EncodeToString(sig)))
	log.Info().Str("user", username).Str("room", roomID).Msg("token generated")
	return tok, nil
}

// Validate reports whether tok was signed for roomID with the room's stored
// password hash. Malformed input is treated as invalid.
func (s *Service) Validate(tok, roomID string) bool {
	_, err := s.Authorize(tok, roomID)
	return err == nil
}

// Authorize verifies tok like Verify and records the outcome in metrics and
// the log. Request paths use it instead of calling Verify directly.
func (s *Service) Authorize(tok, roomID string) (*Claims, error) {
	c, err := s.Verify(tok, roomID)
	metrics.TokenValidations.WithLabelValues(metrics.Result(err == nil)).Inc()
	if err != nil {
		log.Warn().Err(err).Str("room", roomID).Msg("token validation failed")
		return nil, err
	}
	return c, nil
}

// Verify is the error-returning form of Validate. On success it returns the
// token's claims.
func (s *Service) Verify(tok, roomID string) (*Claims, error) {
	c, err := Parse(tok)
	if err != nil {
		return nil, err
	}
	if c.RoomID != roomID {
		return nil, fmt.Errorf("%w: room id mismatch", ErrInvalidToken)
	}
	hash, ok := s.rooms.PasswordHash(roomID)
	if !ok {
		return nil, fmt.Errorf("%w: room not found", ErrInvalidToken)
	}

	want := sign(hash, c.Username+sep+c.RoomID+sep+c.issuedAtRaw)
	if !hmac.Equal(want, c.Signature) {
		return nil, fmt.Errorf("%w: signature mismatch", ErrInvalidToken)
	}

	if s.ttl > 0 {
		now := s.now()
		if now.Sub(c.IssuedAt) > s.ttl {
			return nil, ErrExpired
		}
		if c.IssuedAt.Sub(now) > maxClockSkew {
			return nil, fmt.Errorf("%w: issued in the future", ErrInvalidToken)
		}
		c.ExpiresAt = c.IssuedAt.Add(s.ttl)
	}
	return c, nil
}

// Parse decodes tok without verifying its signature. Fields are taken from
// the right: signature, timestamp and room id never contain ':', so any
// remaining colons belong to the username.
func Parse(tok string) (*Claims, error) {
	raw, err := base64.StdEncoding.DecodeString(tok)
	if err != nil {
		return nil, fmt.Errorf("%w: bad encoding", ErrInvalidToken)
	}
	s := string(raw)

	fields := make([]string, 3)
	for i := 2; i >= 0; i-- {
		idx := strings.LastIndex(s, sep)
		if idx < 0 {
			return nil, fmt.Errorf("%w: wrong field count", ErrInvalidToken)
		}
		fields[i] = s[idx+1:]
		s = s[:idx]
	}
	roomID, ts, sigB64 := fields[0], fields[1], fields[2]

	millis, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad timestamp", ErrInvalidToken)
	}
	sig, err := base64.StdEncoding.DecodeString(sigB64)
	if err != nil || len(sig) != sha256.Size {
		return nil, fmt.Errorf("%w: bad signature", ErrInvalidToken)
	}

	return &Claims{
		Username:    s,
		RoomID:      roomID,
		IssuedAt:    time.UnixMilli(millis),
		Signature:   sig,
		issuedAtRaw: ts,
	}, nil
}

func sign(passwordHash, payload string) []byte {
	mac := hmac.New(sha256.New, []byte(passwordHash))
	mac.Write([]byte(payload))
	return mac.Sum(nil)
}
