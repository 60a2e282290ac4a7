package auth

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/jkalnina/authgate/internal/common"
)

// HashPassword produces a salted bcrypt hash of the plaintext. Empty input
// is rejected with common.ErrInvalidInput.
func HashPassword(plaintext string) (string, error) {
	if plaintext == "" {
		return "", common.ErrInvalidInput
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether plaintext matches the stored hash.
// Comparison is constant-time inside bcrypt; a mismatch returns false,
// never an error.
func CheckPassword(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
