package session

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store. It backs tests and embedded runs where
// nothing needs to survive a restart.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (m *MemoryStore) Save(_ context.Context, s Session) error {
	if s.Token == "" {
		return ErrEmptyToken
	}
	values, err := encodeSession(s)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.values = values
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Load(_ context.Context) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.values[KeyToken] == "" {
		return Session{}, ErrNoSession
	}
	return decodeSession(m.values), nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	m.values = make(map[string]string)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Token(_ context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.values[KeyToken], nil
}
