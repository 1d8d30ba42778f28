package idempotency

import (
	"fmt"
	"strings"
)

const (
	// MaxKeyLength bounds the client-supplied key.
	MaxKeyLength = 255
	// MaxScopedKeyLength bounds a key after operation and user scoping.
	MaxScopedKeyLength = 512
)

var scopeEscaper = strings.NewReplacer("%", "%25", ":", "%3A")

// ScopeKey namespaces a client key by operation and authenticated user so two
// users, or two endpoints, never share a record. Separators inside operation
// and userID are escaped; rawKey is kept verbatim.
func ScopeKey(operation, userID, rawKey string) string {
	return scopeEscaper.Replace(operation) + ":" + scopeEscaper.Replace(userID) + ":" + rawKey
}

// ValidateKey checks a client-supplied key: non-empty, at most MaxKeyLength
// bytes, visible ASCII only.
func ValidateKey(key string) error {
	return validateKey(key, MaxKeyLength)
}

func validateKey(key string, max int) error {
	if key == "" {
		return ErrMissingKey
	}
	if len(key) > max {
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidKey, max)
	}
	for i := 0; i < len(key); i++ {
		if c := key[i]; c < 0x21 || c > 0x7e {
			return fmt.Errorf("%w: byte %d is not visible ASCII", ErrInvalidKey, i)
		}
	}
	return nil
}
