// Package auth provides password hashing and session token generation.
//
// Two hash formats coexist: the admin accounts seeded by the original shop
// carry plain SHA-256 hex digests, while every hash minted by this code
// (`tienda hash`) is bcrypt. CheckPassword accepts both so existing
// documents keep working without a migration.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword returns a bcrypt hash of the plain-text password.
func HashPassword(plain string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	return string(bytes), err
}

// LegacyHash returns the SHA-256 hex digest format used by the seeded
// admin accounts.
func LegacyHash(plain string) string {
	h := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(h[:])
}

// CheckPassword compares a stored hash against the plain-text candidate.
// bcrypt hashes start with "$2"; anything else is treated as a legacy
// SHA-256 hex digest.
func CheckPassword(hash, plain string) bool {
	if strings.HasPrefix(hash, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
	}
	digest := LegacyHash(plain)
	return subtle.ConstantTimeCompare([]byte(digest), []byte(strings.ToLower(hash))) == 1
}

// NewToken generates an opaque session token with 256 bits of entropy,
// hex-encoded.
func NewToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("auth: token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
