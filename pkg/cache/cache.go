package cache

import (
	"context"
	"sync"
)

// Cacher defines the caching interface.
// store.SQLiteStore satisfies it for persistent caching.
type Cacher interface {
	GetCache(ctx context.Context, key string) ([]byte, bool)
	SetCache(ctx context.Context, key string, val []byte) error
}

// Nop never hits and discards writes. Used when caching is switched off.
type Nop struct{}

func (Nop) GetCache(ctx context.Context, key string) ([]byte, bool) { return nil, false }

func (Nop) SetCache(ctx context.Context, key string, val []byte) error { return nil }

// Memory is a process-local Cacher.
type Memory struct {
	mu    sync.RWMutex
	items map[string][]byte
}

// NewMemory creates an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{items: make(map[string][]byte)}
}

func (m *Memory) GetCache(ctx context.Context, key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.items[key]
	return v, ok
}

func (m *Memory) SetCache(ctx context.Context, key string, val []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(val))
	copy(cp, val)
	m.items[key] = cp
	return nil
}
