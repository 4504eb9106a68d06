package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// NewResetToken generates a cryptographically random 64-character hex token.
// The raw value is delivered to the user out-of-band; only its hash is stored.
func NewResetToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
