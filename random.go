package authcore

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// RandomHex returns a cryptographically secure random string of n hex
// characters. Used for session tokens, OAuth anti-CSRF state and password
// reset tokens.
func RandomHex(n int) (string, error) {
	b := make([]byte, (n+1)/2)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(b)[:n], nil
}
