package history

import (
	"context"
	"sync"

	"github.com/comigor/leo-go/internal/chat"
)

// MemoryStore keeps encoded blobs in a map. It goes through the same codec
// as the durable backends.
type MemoryStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

func (m *MemoryStore) Load(_ context.Context, userID string) ([]chat.Turn, error) {
	m.mu.Lock()
	data, ok := m.blobs[Key(userID)]
	m.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	return Decode(data)
}

func (m *MemoryStore) Save(_ context.Context, userID string, turns []chat.Turn) error {
	data, err := Encode(turns)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.blobs[Key(userID)] = data
	m.mu.Unlock()
	return nil
}

// Put stores a raw blob under key, bypassing the codec.
func (m *MemoryStore) Put(key string, data []byte) {
	m.mu.Lock()
	m.blobs[key] = append([]byte(nil), data...)
	m.mu.Unlock()
}

// Blob returns the raw bytes stored under key.
func (m *MemoryStore) Blob(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[key]
	return append([]byte(nil), data...), ok
}
