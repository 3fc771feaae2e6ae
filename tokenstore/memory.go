package tokenstore

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps the token in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	token    string
	storedAt time.Time
	now      func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	o := buildOptions(opts)
	return &MemoryStore{now: o.now}
}

// Get returns the stored token.
func (s *MemoryStore) Get(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.token == "" {
		return "", ErrNotFound
	}
	return s.token, nil
}

// Set stores token and stamps it with the current time.
func (s *MemoryStore) Set(_ context.Context, token string) error {
	if token == "" {
		return ErrEmptyToken
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = token
	s.storedAt = s.now()
	return nil
}

// Remove clears the token.
func (s *MemoryStore) Remove(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = ""
	s.storedAt = time.Time{}
	return nil
}

// Age reports how old the stored token is.
func (s *MemoryStore) Age(_ context.Context) (time.Duration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.token == "" {
		return 0, ErrNotFound
	}
	return AgeOf(s.token, s.storedAt, s.now()), nil
}
