package state

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	DefaultCapacity = 1024
	DefaultTTL      = time.Hour
)

// MemoryStore is an in-process Store bounded by capacity and idle TTL. The
// least recently written session is evicted once capacity is reached, and any
// session not written for ttl expires.
type MemoryStore struct {
	mu    sync.Mutex
	cache *expirable.LRU[string, *SessionContext]
}

// NewMemoryStore returns a store holding at most capacity sessions for ttl
// each. Non-positive values fall back to DefaultCapacity and DefaultTTL.
func NewMemoryStore(capacity int, ttl time.Duration) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{cache: expirable.NewLRU[string, *SessionContext](capacity, nil, ttl)}
}

func (s *MemoryStore) Init(_ context.Context, id string, data Data) (*SessionContext, error) {
	if id == "" {
		return nil, fmt.Errorf("init session: id is required")
	}
	sc := newSession(id, data)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Add(id, sc)
	return sc.clone(), nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*SessionContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sc, ok := s.cache.Peek(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSessionNotFound, id)
	}
	return sc.clone(), nil
}

func (s *MemoryStore) Update(_ context.Context, id string, fn func(*SessionContext)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sc, ok := s.cache.Peek(id)
	if !ok {
		return fmt.Errorf("%w: %q", ErrSessionNotFound, id)
	}
	fn(sc)
	sc.UpdatedAt = time.Now().UTC()
	// Re-adding refreshes both recency and expiry.
	s.cache.Add(id, sc)
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Remove(id)
	return nil
}

// Len reports the number of live sessions.
func (s *MemoryStore) Len() int {
	return s.cache.Len()
}

// IDs lists live session ids, oldest first.
func (s *MemoryStore) IDs() []string {
	return s.cache.Keys()
}
