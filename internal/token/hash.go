package token

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// HashSecret returns the hex SHA-256 digest of a bearer secret.
// The store only ever sees this digest.
func HashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// CompareSecret reports whether presented hashes to storedHash, in constant time
func CompareSecret(presented, storedHash string) bool {
	presentedHash := HashSecret(presented)
	return subtle.ConstantTimeCompare([]byte(presentedHash), []byte(storedHash)) == 1
}
