package kv

import (
	"context"
	"fmt"
	"sync"
)

// Memory keeps values in process memory. It is the test double for every
// other backend and can simulate a full store with a byte quota.
type Memory struct {
	mu    sync.Mutex
	data  map[string][]byte
	quota int
	used  int
}

// NewMemory returns an empty store. quota <= 0 disables the limit.
func NewMemory(quota int) *Memory {
	return &Memory{data: make(map[string][]byte), quota: quota}
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *Memory) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	used := m.used - entrySize(key, m.data[key], m.has(key)) + entrySize(key, value, true)
	if m.quota > 0 && used > m.quota {
		return fmt.Errorf("set %s: %w", key, ErrQuotaExceeded)
	}
	m.data[key] = append([]byte(nil), value...)
	m.used = used
	return nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.used -= entrySize(key, m.data[key], m.has(key))
	delete(m.data, key)
	return nil
}

func (m *Memory) Close() error {
	return nil
}

// Used returns the bytes counted against the quota.
func (m *Memory) Used() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.used
}

func (m *Memory) has(key string) bool {
	_, ok := m.data[key]
	return ok
}

func entrySize(key string, value []byte, present bool) int {
	if !present {
		return 0
	}
	return len(key) + len(value)
}
