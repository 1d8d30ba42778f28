package memory

import (
	"context"
	"sync"
	"time"

	"github.com/strogmv/walletd/internal/pkg/clock"
	"github.com/strogmv/walletd/internal/port"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

// KeyStore is a process-local key store with lazy expiry. It is only valid
// for a single instance and is meant for tests and local development.
type KeyStore struct {
	mu    sync.Mutex
	data  map[string]entry
	clock clock.Clock
}

var _ port.ConditionalKeyStore = (*KeyStore)(nil)

func NewKeyStore(c clock.Clock) *KeyStore {
	if c == nil {
		c = clock.Real{}
	}
	return &KeyStore{data: make(map[string]entry), clock: c}
}

func (s *KeyStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookupLocked(key)
	if !ok {
		return nil, false, nil
	}
	return append([]byte{}, e.value...), true, nil
}

func (s *KeyStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = s.newEntry(value, ttl)
	return nil
}

func (s *KeyStore) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.lookupLocked(key); ok {
		return false, nil
	}
	s.data[key] = s.newEntry(value, ttl)
	return true, nil
}

func (s *KeyStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
	return nil
}

// Ping always succeeds.
func (s *KeyStore) Ping(context.Context) error {
	return nil
}

// Len returns the number of unexpired keys.
func (s *KeyStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for k := range s.data {
		if _, ok := s.lookupLocked(k); ok {
			n++
		}
	}
	return n
}

func (s *KeyStore) newEntry(value []byte, ttl time.Duration) entry {
	e := entry{value: append([]byte{}, value...)}
	if ttl > 0 {
		e.expiresAt = s.clock.Now().Add(ttl)
	}
	return e
}

// lookupLocked returns a live entry and evicts an expired one. Must be called with lock held.
func (s *KeyStore) lookupLocked(key string) (entry, bool) {
	e, ok := s.data[key]
	if !ok {
		return entry{}, false
	}
	if !e.expiresAt.IsZero() && !s.clock.Now().Before(e.expiresAt) {
		delete(s.data, key)
		return entry{}, false
	}
	return e, true
}
