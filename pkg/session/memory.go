package session

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore is an in-process Store
type MemoryStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]Session
	seen     map[string]time.Time
	now      func() time.Time
}

// Ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an in-process store. A zero ttl keeps sessions
// forever.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:      ttl,
		sessions: make(map[string]Session),
		seen:     make(map[string]time.Time),
		now:      time.Now,
	}
}

func (m *MemoryStore) expired(at time.Time) bool {
	return m.ttl > 0 && m.now().Sub(at) > m.ttl
}

// Get returns a copy of the stored session
func (m *MemoryStore) Get(_ context.Context, phone string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[phone]
	if !ok {
		return nil, ErrNotFound
	}
	if m.expired(s.UpdatedAt) {
		delete(m.sessions, phone)
		return nil, ErrNotFound
	}
	return &s, nil
}

// Save stores s and stamps UpdatedAt
func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	if s == nil || s.Phone == "" {
		return fmt.Errorf("session: phone is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	s.UpdatedAt = m.now()
	m.sessions[s.Phone] = *s
	return nil
}

// Delete removes a session
func (m *MemoryStore) Delete(_ context.Context, phone string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, phone)
	return nil
}

// MarkSeen records messageID. Entries older than the ttl are pruned.
func (m *MemoryStore) MarkSeen(_ context.Context, messageID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, at := range m.seen {
		if m.expired(at) {
			delete(m.seen, id)
		}
	}
	if _, ok := m.seen[messageID]; ok {
		return false, nil
	}
	m.seen[messageID] = m.now()
	return true, nil
}
