package store

import (
	"context"
	"sync"
)

// MemoryKV keeps values in process; used by default and in tests
type MemoryKV struct {
	mu sync.RWMutex
	m  map[string]string
}

// NewMemoryKV returns an empty MemoryKV
func NewMemoryKV() *MemoryKV { return &MemoryKV{m: map[string]string{}} }

// Get returns the value for key
func (k *MemoryKV) Get(_ context.Context, key string) (string, bool, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	v, ok := k.m[key]
	return v, ok, nil
}

// Set stores value under key
func (k *MemoryKV) Set(_ context.Context, key, value string) error {
	k.mu.Lock()
	k.m[key] = value
	k.mu.Unlock()
	return nil
}

// Close is a no-op
func (k *MemoryKV) Close() error { return nil }
