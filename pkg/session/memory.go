package session

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	aircraftID string
	expiresAt  time.Time
}

// MemoryStore is a Store for a single API process.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]entry
	ttl      time.Duration
	now      func() time.Time
}

// NewMemoryStore creates a store whose selections expire after ttl. A zero ttl never expires.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]entry),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *MemoryStore) Aircraft(_ context.Context, sessionID string) (string, error) {
	s.mu.RLock()
	e, ok := s.sessions[sessionID]
	s.mu.RUnlock()

	if !ok || (!e.expiresAt.IsZero() && !s.now().Before(e.expiresAt)) {
		return "", ErrNoAircraft
	}

	return e.aircraftID, nil
}

func (s *MemoryStore) SetAircraft(_ context.Context, sessionID, aircraftID string) error {
	e := entry{aircraftID: aircraftID}
	if s.ttl > 0 {
		e.expiresAt = s.now().Add(s.ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sessionID] = e

	return nil
}

func (s *MemoryStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)

	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
