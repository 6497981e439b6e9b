package chat

import (
	"context"
	"sync"
)

// MemoryStore keeps sessions in process memory
type MemoryStore struct {
	lock     sync.RWMutex
	sessions map[string]*Session
}

// NewMemoryStore creates in memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: map[string]*Session{}}
}

// Get returns a copy of the user session or ErrNoSession
func (m *MemoryStore) Get(ctx context.Context, userID string) (*Session, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	s, ok := m.sessions[userID]
	if !ok {
		return nil, ErrNoSession
	}
	return copySession(s), nil
}

// Put saves the session
func (m *MemoryStore) Put(ctx context.Context, s *Session) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.sessions[s.UserID] = copySession(s)
	return nil
}

// Delete drops the session
func (m *MemoryStore) Delete(ctx context.Context, userID string) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	delete(m.sessions, userID)
	return nil
}

func copySession(s *Session) *Session {
	res := *s
	res.Messages = append([]Message(nil), s.Messages...)
	return &res
}
