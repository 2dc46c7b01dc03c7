package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// apiKeyBytes yields a 64-character hex API key
const apiKeyBytes = 32

// GenerateAPIKey generates a cryptographically random API key.
// The raw key is shown to the caller exactly once; only its hash is
// persisted.
func GenerateAPIKey() (string, error) {
	buf := make([]byte, apiKeyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate API key: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// HashAPIKey returns the hex-encoded SHA-256 digest of an API key
func HashAPIKey(apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(sum[:])
}
