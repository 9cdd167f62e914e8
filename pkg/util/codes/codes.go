package codes

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
)

var (
	ErrInvalidLength = errors.New("invalid code length")
)

const (
	// MinTokenByteLength is the floor for access tokens (128 bits of entropy).
	MinTokenByteLength = 16

	// fingerprintLength is the number of hex chars of the SHA-256 kept in logs.
	fingerprintLength = 8
)

// GenerateSecureToken creates a cryptographically secure hex token.
// byteLength specifies the number of random bytes (output will be 2x this length in hex).
func GenerateSecureToken(byteLength int) (string, error) {
	b, err := randomBytes(byteLength)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// GenerateURLSafeToken creates a URL-safe, unpadded base64 token from
// byteLength random bytes. Lengths below MinTokenByteLength are rejected.
func GenerateURLSafeToken(byteLength int) (string, error) {
	if byteLength < MinTokenByteLength {
		return "", fmt.Errorf("%w: %d bytes, need at least %d", ErrInvalidLength, byteLength, MinTokenByteLength)
	}
	b, err := randomBytes(byteLength)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashToken returns the hex SHA-256 of a plaintext token. Only the hash is
// ever stored.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Fingerprint returns a short, non-reversible tag for a token, safe to log.
func Fingerprint(token string) string {
	return HashToken(token)[:fingerprintLength]
}

func randomBytes(n int) ([]byte, error) {
	if n < 1 {
		return nil, ErrInvalidLength
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return b, nil
}
