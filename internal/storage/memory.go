package storage

import (
	"context"
	"sync"
)

// NewMemory returns a Store that lives for the process only. It backs
// the scheduler when persistence is disabled, and tests.
func NewMemory() Store {
	return &slotStore{kv: &memKV{slots: map[string][]byte{}}}
}

type memKV struct {
	mu    sync.Mutex
	slots map[string][]byte
}

func (m *memKV) put(ctx context.Context, key string, val []byte) error {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots[key] = append([]byte(nil), val...)
	return nil
}

func (m *memKV) get(ctx context.Context, key string) ([]byte, bool, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.slots[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *memKV) del(ctx context.Context, key string) error {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.slots, key)
	return nil
}

func (m *memKV) close() error { return nil }
