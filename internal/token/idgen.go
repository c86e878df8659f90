package token

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// idBytes is the entropy of every generated identifier (256 bits)
const idBytes = 32

// IdentifierGenerator produces globally unique, unguessable identifiers.
// It is used independently for jti and token family values.
type IdentifierGenerator interface {
	NewID() (string, error)
}

type randomIDGenerator struct{}

// NewIdentifierGenerator returns a generator backed by crypto/rand
func NewIdentifierGenerator() IdentifierGenerator {
	return randomIDGenerator{}
}

func (randomIDGenerator) NewID() (string, error) {
	buf := make([]byte, idBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
