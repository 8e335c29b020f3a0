package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
)

// refreshTokenBytes gives 256 bits of entropy per refresh token.
const refreshTokenBytes = 32

// ErrEntropyUnavailable indicates the system entropy source failed. The fault
// is fatal to the calling operation and is never retried here.
var ErrEntropyUnavailable = errors.New("security: entropy source unavailable")

// NewRefreshToken returns a cryptographically random, URL-safe opaque token.
func NewRefreshToken() (string, error) {
	return GenerateSecureToken(refreshTokenBytes)
}

// GenerateSecureToken returns a base64 URL-safe random string using the
// specified number of random bytes.
func GenerateSecureToken(byteLength int) (string, error) {
	if byteLength <= 0 {
		return "", fmt.Errorf("length must be positive")
	}

	buf := make([]byte, byteLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("%w: %v", ErrEntropyUnavailable, err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashToken calculates a SHA-256 hash of the provided value. Used when a
// token needs a stable identifier in logs without exposing the raw value.
func HashToken(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
