package session

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps sessions in process memory. Everything is lost on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]Turn
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string][]Turn)}
}

func (m *MemoryStore) History(_ context.Context, key string) ([]Turn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	turns := m.sessions[key]
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out, nil
}

func (m *MemoryStore) Append(_ context.Context, key string, turns ...Turn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[key] = append(m.sessions[key], turns...)
	return nil
}

func (m *MemoryStore) Sessions(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.sessions))
	for k := range m.sessions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *MemoryStore) Close() error {
	return nil
}
