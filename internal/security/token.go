package security

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

const rawTokenBytes = 32

// GenerateToken returns a URL-safe random bearer secret. Used for session
// tokens, API keys, and download tokens.
func GenerateToken() (string, error) {
	buf := make([]byte, rawTokenBytes)
	if _, errRead := rand.Read(buf); errRead != nil {
		return "", fmt.Errorf("security: generate token: %w", errRead)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// GenerateHexToken returns a hex random secret, matching the format of
// legacy single-per-user API keys.
func GenerateHexToken() (string, error) {
	buf := make([]byte, rawTokenBytes)
	if _, errRead := rand.Read(buf); errRead != nil {
		return "", fmt.Errorf("security: generate hex token: %w", errRead)
	}
	return hex.EncodeToString(buf), nil
}
