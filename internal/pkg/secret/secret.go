// Package secret provides one-way hashing and verification for passwords and
// reset tokens. Both secret spaces use the same bcrypt primitive; each hash
// carries its own random salt and cost factor.
package secret

import "golang.org/x/crypto/bcrypt"

// Hash produces a salted bcrypt hash of the given secret at the given cost.
func Hash(secret []byte, cost int) (string, error) {
	h, err := bcrypt.GenerateFromPassword(secret, cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// Verify reports whether secret matches hash. A mismatch is a normal outcome,
// never an error.
func Verify(secret []byte, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), secret) == nil
}
