package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// KeySize is the AES-256 key length in bytes
	KeySize = 32

	// DefaultSaltSize is the per-room salt length used by PBKDF2Deriver
	DefaultSaltSize = 16
)

// Key is a ready to use AES-256-GCM handle for one room. Callers outside
// this package can only pass it to Encrypt and Decrypt.
type Key struct {
	aead cipher.AEAD
}

// NewKey builds a Key from 32 bytes of key material.
func NewKey(material []byte) (*Key, error) {
	if len(material) != KeySize {
		return nil, fmt.Errorf("key material must be %d bytes, got %d", KeySize, len(material))
	}
	block, err := aes.NewCipher(material)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Key{aead: aead}, nil
}

// KeyDeriver turns a stored password hash into a room key.
// Implementations must be deterministic for a given hash and salt.
type KeyDeriver interface {
	DeriveKey(passwordHash string, salt []byte) (*Key, error)

	// SaltSize is the number of random salt bytes a new room needs. Zero means no salt.
	SaltSize() int
}

// RawDeriver uses the decoded password hash bytes directly as the AES key.
type RawDeriver struct{}

// DeriveKey hex-decodes passwordHash into the 32 byte key. The salt is ignored.
func (RawDeriver) DeriveKey(passwordHash string, _ []byte) (*Key, error) {
	material, err := hex.DecodeString(passwordHash)
	if err != nil {
		return nil, fmt.Errorf("decode password hash: %w", err)
	}
	return NewKey(material)
}

// SaltSize is zero, rooms get no salt.
func (RawDeriver) SaltSize() int { return 0 }

// PBKDF2Deriver stretches the password hash with PBKDF2-HMAC-SHA256 and a
// per-room salt.
type PBKDF2Deriver struct {
	Iterations int
}

// DeriveKey runs PBKDF2 over passwordHash with salt for d.Iterations rounds.
func (d PBKDF2Deriver) DeriveKey(passwordHash string, salt []byte) (*Key, error) {
	if len(salt) == 0 {
		return nil, fmt.Errorf("pbkdf2: salt is required")
	}
	iter := d.Iterations
	if iter <= 0 {
		iter = 210000
	}
	return NewKey(pbkdf2.Key([]byte(passwordHash), salt, iter, KeySize, sha256.New))
}

// SaltSize returns DefaultSaltSize.
func (PBKDF2Deriver) SaltSize() int { return DefaultSaltSize }

// NewSalt returns n random bytes, or nil when n is zero.
func NewSalt(n int) ([]byte, error) {
	if n <= 0 {
		return nil, nil
	}
	salt := make([]byte, n)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	return salt, nil
}
