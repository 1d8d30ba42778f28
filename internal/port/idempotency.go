package port

import (
	"context"
	"time"
)

// KeyStore is a key-value store with per-key expiration, reachable over a
// connection that can fail. Transient failures are returned as errors and
// never panic.
type KeyStore interface {
	// Get returns the stored value. found is false when the key was never
	// set or has expired; a key set to an empty value reports found=true.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	// Set stores value under key for ttl, replacing any previous value.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// ConditionalKeyStore is a KeyStore with an atomic set-if-absent primitive.
type ConditionalKeyStore interface {
	KeyStore
	// SetNX stores value only if key is absent. stored=false with a nil
	// error means another writer already holds the key.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (stored bool, err error)
}

// Pinger is implemented by stores that can report their reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}
