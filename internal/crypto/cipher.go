package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
)

// NonceSize is the GCM nonce length in bytes (96 bits).
const NonceSize = 12

var (
	// ErrIntegrity means the GCM tag did not verify: tampered data, wrong key or wrong nonce.
	ErrIntegrity = errors.New("message integrity check failed")

	// ErrMalformed means the stored ciphertext or nonce could not be decoded.
	ErrMalformed = errors.New("malformed ciphertext")
)

// Encrypt seals plaintext under key with a fresh random nonce. aad is
// authenticated but not encrypted. Ciphertext (tag appended) and nonce are
// returned base64 encoded.
func Encrypt(plaintext string, key *Key, aad []byte) (ciphertext, nonce string, err error) {
	n := make([]byte, NonceSize)
	if _, err := rand.Read(n); err != nil {
		return "", "", fmt.Errorf("nonce generation: %w", err)
	}
	sealed := key.aead.Seal(nil, n, []byte(plaintext), aad)
	return base64.StdEncoding.EncodeToString(sealed), base64.StdEncoding.EncodeToString(n), nil
}

// Decrypt opens a ciphertext produced by Encrypt.
func Decrypt(ciphertext, nonce string, key *Key, aad []byte) (string, error) {
	n, err := base64.StdEncoding.DecodeString(nonce)
	if err != nil || len(n) != NonceSize {
		return "", fmt.Errorf("%w: bad nonce", ErrMalformed)
	}
	sealed, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: bad ciphertext encoding", ErrMalformed)
	}
	plain, err := key.aead.Open(nil, n, sealed, aad)
	if err != nil {
		return "", ErrIntegrity
	}
	return string(plain), nil
}
