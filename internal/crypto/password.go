// Package crypto holds the room credential primitives: password hashing,
// key derivation and AES-256-GCM message sealing.
//
// A room password is hashed once with SHA-256. The hex digest is both the
// value compared on join and the seed for the room's encryption key and
// token signing key.
package crypto

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// HashSize is the length of a hex encoded password hash.
const HashSize = sha256.Size * 2

// HashPassword returns the lowercase hex SHA-256 digest of password.
// Identical passwords always produce identical hashes.
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// VerifyPassword reports whether password hashes to hash.
func VerifyPassword(hash, password string) bool {
	return subtle.ConstantTimeCompare([]byte(HashPassword(password)), []byte(hash)) == 1
}
