package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// HashAdminKey returns the bcrypt hash to configure as auth.admin_key_hash.
func HashAdminKey(key string) (string, error) {
	if len(key) < 16 {
		return "", fmt.Errorf("admin key must be at least 16 characters")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash admin key: %w", err)
	}
	return string(h), nil
}

// VerifyAdminKey compares key against the configured hash. An empty hash
// disables admin access.
func VerifyAdminKey(hash, key string) bool {
	if hash == "" || key == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) == nil
}
