package prefs

import (
	"context"
	"sync"
)

type MemoryKV struct {
	mu   sync.RWMutex
	vals map[string]bool
}

var _ KV = &MemoryKV{}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{vals: map[string]bool{}}
}

func (m *MemoryKV) GetBool(_ context.Context, key string) (bool, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.vals[key]
	return v, ok, nil
}

func (m *MemoryKV) SetBool(_ context.Context, key string, value bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vals[key] = value
	return nil
}

func (m *MemoryKV) Close() error { return nil }
