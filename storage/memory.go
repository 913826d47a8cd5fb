package storage

import (
	"context"
	"strings"
	"sync"
)

// MemoryAdapter is an in-process Adapter backed by a map, used for testing
// and for short-lived projects that never need to survive a restart.
type MemoryAdapter struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewMemoryAdapter returns an empty in-memory adapter.
func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{entries: make(map[string][]byte)}
}

func (a *MemoryAdapter) Read(ctx context.Context, key string) ([]byte, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	data, ok := a.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (a *MemoryAdapter) Write(ctx context.Context, key string, data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	a.entries[key] = buf
	return nil
}

func (a *MemoryAdapter) Delete(ctx context.Context, key string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.entries, key)
	return nil
}

func (a *MemoryAdapter) Exists(ctx context.Context, key string) (bool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.entries[key]
	return ok, nil
}

func (a *MemoryAdapter) List(ctx context.Context, prefix string) ([]string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	p := strings.TrimSuffix(prefix, "/") + "/"
	var out []string
	for key := range a.entries {
		if strings.HasPrefix(key, p) {
			out = append(out, key)
		}
	}
	return out, nil
}

// Size returns the byte length of the content at key, mirroring the
// size() convenience method the original Python adapters exposed
// alongside read/write/delete/exists/list.
func (a *MemoryAdapter) Size(ctx context.Context, key string) (int64, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	data, ok := a.entries[key]
	if !ok {
		return 0, ErrNotFound
	}
	return int64(len(data)), nil
}

// Clear empties the adapter; useful between test cases.
func (a *MemoryAdapter) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = make(map[string][]byte)
}
