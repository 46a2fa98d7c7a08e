package store

import (
	"context"
	"sync"

	"codeberg.org/snonux/lexilive/internal/vocab"
)

// MemoryStore keeps the serialized list in memory. It round-trips through
// JSON so callers cannot alias stored records.
type MemoryStore struct {
	mu    sync.Mutex
	value string
	set   bool
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// SetRaw replaces the stored JSON, used to simulate corrupt data
func (m *MemoryStore) SetRaw(value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value = value
	m.set = true
}

// Load returns the saved word list
func (m *MemoryStore) Load(ctx context.Context) ([]vocab.SavedWord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.set {
		return []vocab.SavedWord{}, nil
	}
	return decodeWords(m.value)
}

// Save replaces the saved word list
func (m *MemoryStore) Save(ctx context.Context, words []vocab.SavedWord) error {
	value, err := encodeWords(words)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value = value
	m.set = true
	return nil
}
