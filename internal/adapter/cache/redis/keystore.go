package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/strogmv/walletd/internal/port"
)

// KeyStore keeps idempotency records in Redis with native key expiry.
type KeyStore struct {
	client redis.UniversalClient
}

var _ port.ConditionalKeyStore = (*KeyStore)(nil)

func NewKeyStore(client redis.UniversalClient) *KeyStore {
	return &KeyStore{client: client}
}

func (s *KeyStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (s *KeyStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *KeyStore) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, key, value, ttl).Result()
}

func (s *KeyStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

func (s *KeyStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
