// Package memory keeps documents in process memory for tests and local runs.
package memory

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"

	"github.com/strogmv/walletd/internal/port"
)

type object struct {
	data        []byte
	contentType string
}

type Storage struct {
	mu      sync.RWMutex
	objects map[string]object
	baseURL string
}

var _ port.FileStorage = (*Storage)(nil)

func New(baseURL string) *Storage {
	return &Storage{objects: make(map[string]object), baseURL: baseURL}
}

func (s *Storage) Upload(ctx context.Context, key string, reader io.Reader, contentType string) (string, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	s.mu.Lock()
	s.objects[key] = object{data: data, contentType: contentType}
	s.mu.Unlock()
	return key, nil
}

func (s *Storage) PresignGet(ctx context.Context, key string, expiresIn time.Duration) (string, error) {
	s.mu.RLock()
	_, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("object %s not found", key)
	}
	return fmt.Sprintf("%s/%s?expires=%d", s.baseURL, url.PathEscape(key), int64(expiresIn.Seconds())), nil
}

// ContentType returns the stored media type of key.
func (s *Storage) ContentType(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.objects[key].contentType
}
