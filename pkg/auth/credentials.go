package auth

import (
	"crypto/subtle"
	"strings"

	"relaydash/internal/auth/hash"
)

// plainPrefix marks an explicitly plain-text credential entry.
const plainPrefix = "plain:"

// Credentials is the static username -> secret table. A secret is either an
// argon2id PHC string, "plain:<password>", or a bare password.
type Credentials map[string]string

// DefaultCredentials is used when the configuration names no users.
func DefaultCredentials() Credentials {
	return Credentials{"admin": "password123"}
}

// Verify reports whether username and password match an entry exactly.
// Both comparisons are case-sensitive.
func (c Credentials) Verify(username, password string) bool {
	secret, ok := c[username]
	if !ok {
		// same work as a miss on a known user
		subtle.ConstantTimeCompare([]byte(password), []byte(password))
		return false
	}
	if hash.IsPHC(secret) {
		return hash.VerifyPassword(secret, password)
	}
	secret = strings.TrimPrefix(secret, plainPrefix)
	return subtle.ConstantTimeCompare([]byte(secret), []byte(password)) == 1
}
