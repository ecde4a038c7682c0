package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// KeyedHash returns the hex HMAC-SHA256 digest of message under secret.
// It is the only transformation applied to raw bearer secrets before they
// are used as database lookup keys.
func KeyedHash(secret, message string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

// DigestEqual compares two digests in constant time.
func DigestEqual(a, b string) bool {
	return hmac.Equal([]byte(a), []byte(b))
}
