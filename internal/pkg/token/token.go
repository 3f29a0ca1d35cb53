package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// NewRefreshToken generates a cryptographically random 64-character hex token.
func NewRefreshToken() (string, error) {
	return random(32, "refresh token")
}

// NewEmailToken generates the shorter token mailed in confirmation links.
func NewEmailToken() (string, error) {
	return random(16, "email token")
}

func random(n int, what string) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate %s: %w", what, err)
	}
	return hex.EncodeToString(b), nil
}
