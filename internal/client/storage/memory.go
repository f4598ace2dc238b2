package storage

import (
	"context"
	"maps"
	"sync"
)

// MemoryArea is the session-scoped area.
type MemoryArea struct {
	mu    sync.RWMutex
	items map[string][]byte
}

func NewMemoryArea() *MemoryArea {
	return &MemoryArea{items: make(map[string][]byte)}
}

func (m *MemoryArea) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.items[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryArea) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryArea) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

func (m *MemoryArea) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.items)
	return nil
}

func (m *MemoryArea) Replace(_ context.Context, items map[string][]byte) error {
	next := make(map[string][]byte, len(items))
	for k, v := range items {
		next[k] = append([]byte(nil), v...)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = next
	return nil
}

// Snapshot returns a copy of every stored key. Used by tests and
// diagnostics.
func (m *MemoryArea) Snapshot() map[string][]byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.items)
}
