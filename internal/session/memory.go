package session

import (
	"context"
	"sync"

	"github.com/sakif/vidshare/internal/model"
	"github.com/sakif/vidshare/internal/repository"
)

var _ repository.SessionRepository = (*MemoryStore)(nil)

// NewMemoryStore returns a SessionRepository backed by a map, for tests and
// local development. Contents are lost on restart.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]map[string]string)}
}

// MemoryStore implements repository.SessionRepository in memory.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]map[string]string
}

func (m *MemoryStore) Get(_ context.Context, sessionKey, name string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[sessionKey][name]
	return v, ok, nil
}

func (m *MemoryStore) Credentials(_ context.Context, sessionKey string) (model.Credentials, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return model.CredentialsFrom(m.values[sessionKey]), nil
}

func (m *MemoryStore) Set(_ context.Context, sessionKey, name, value string) error {
	m.mu.Lock()
	m.setLocked(sessionKey, name, value)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) SetCredentials(_ context.Context, sessionKey string, creds model.Credentials) error {
	m.mu.Lock()
	for name, v := range creds.Values() {
		m.setLocked(sessionKey, name, v)
	}
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) DeleteCredentials(_ context.Context, sessionKey string) error {
	m.mu.Lock()
	for _, name := range model.CredentialKeys {
		delete(m.values[sessionKey], name)
	}
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}

func (m *MemoryStore) setLocked(sessionKey, name, value string) {
	vals, ok := m.values[sessionKey]
	if !ok {
		vals = make(map[string]string)
		m.values[sessionKey] = vals
	}
	vals[name] = value
}
