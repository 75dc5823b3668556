package store

import "sync"

// Storage is the external persistence contract: a string-keyed JSON blob
// store. The mock store addresses it through one configured key holding a
// JSON object keyed by collection cache key.
type Storage interface {
	// Get returns the value for key, or ok=false when absent.
	Get(key string) (value []byte, ok bool, err error)
	// Set stores the value under key.
	Set(key string, value []byte) error
	// Remove deletes the key. Removing an absent key is not an error.
	Remove(key string) error
}

// MemoryStorage is an in-process Storage, mainly for tests and for running
// with persistence semantics but no durable backend.
type MemoryStorage struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewMemoryStorage creates an empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{entries: make(map[string][]byte)}
}

// Get implements Storage.
func (m *MemoryStorage) Get(key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, true, nil
}

// Set implements Storage.
func (m *MemoryStorage) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := make([]byte, len(value))
	copy(stored, value)
	m.entries[key] = stored
	return nil
}

// Remove implements Storage.
func (m *MemoryStorage) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}
