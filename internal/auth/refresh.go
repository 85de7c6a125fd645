package auth

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"
)

// NewRefreshTokenValue produces the opaque refresh credential handed to the
// client. The raw value is never persisted server-side.
func NewRefreshTokenValue() string {
	return uuid.NewString() + uuid.NewString()
}

// FingerprintRefreshToken derives the storable fingerprint of a refresh
// credential. Lookups and rotation operate on fingerprints only, so a leaked
// store never exposes usable tokens.
func FingerprintRefreshToken(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
