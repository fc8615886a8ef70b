// Package storage provides the key-value capability the local cache sits on.
//
// Two implementations are provided:
//   - MemoryStore: process-local, for tests and ephemeral sessions
//   - FileStore: one zstd-compressed file per key under a directory
//
// Callers treat every error as a cache miss; nothing here is authoritative.
package storage

import (
	"errors"
	"strings"
	"sync"
)

// ErrNotFound is returned by Get for absent keys
var ErrNotFound = errors.New("key not found")

// Store is a byte-oriented key-value store
type Store interface {
	Get(key string) ([]byte, error)
	Set(key string, data []byte) error
	Delete(key string) error
	// Clear removes every key starting with prefix; an empty prefix clears all
	Clear(prefix string) error
}

// MemoryStore keeps values in memory
type MemoryStore struct {
	data sync.Map
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Get returns a copy of the stored value
func (m *MemoryStore) Get(key string) ([]byte, error) {
	v, ok := m.data.Load(key)
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v.([]byte)...), nil
}

// Set stores a copy of data
func (m *MemoryStore) Set(key string, data []byte) error {
	m.data.Store(key, append([]byte(nil), data...))
	return nil
}

// Delete removes a key; absent keys are not an error
func (m *MemoryStore) Delete(key string) error {
	m.data.Delete(key)
	return nil
}

// Clear removes keys by prefix
func (m *MemoryStore) Clear(prefix string) error {
	m.data.Range(func(k, _ any) bool {
		if strings.HasPrefix(k.(string), prefix) {
			m.data.Delete(k)
		}
		return true
	})
	return nil
}

// Keys lists stored keys (unordered)
func (m *MemoryStore) Keys() []string {
	var keys []string
	m.data.Range(func(k, _ any) bool {
		keys = append(keys, k.(string))
		return true
	})
	return keys
}
