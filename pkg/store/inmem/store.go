// Package inmem provides the reference in-memory chunk store: a map
// guarded by a read-write mutex. It is the default base store for
// comparing chunking algorithms, where backend latency must not pollute
// the measurements.
package inmem

import (
	"context"
	"sync"

	"github.com/oneconcern/chunkfs/pkg/hasher"
	"github.com/oneconcern/chunkfs/pkg/store"
)

// New creates an empty in-memory store
func New() store.IterableDatabase {
	return &memStore{
		chunks: make(map[hasher.Key][]byte),
	}
}

type memStore struct {
	mu     sync.RWMutex
	chunks map[hasher.Key][]byte
}

func (m *memStore) String() string { return "inmem" }

func (m *memStore) Insert(_ context.Context, key hasher.Key, chunk []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insert(key, chunk)
	return nil
}

// insert keeps the first chunk stored under a key: a reinsert never
// corrupts previously stored bytes
func (m *memStore) insert(key hasher.Key, chunk []byte) {
	if _, ok := m.chunks[key]; ok {
		return
	}
	owned := make([]byte, len(chunk))
	copy(owned, chunk)
	m.chunks[key] = owned
}

func (m *memStore) InsertMany(_ context.Context, entries []store.Entry) ([]hasher.Key, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	inserted := make([]hasher.Key, 0, len(entries))
	for _, e := range entries {
		m.insert(e.Key, e.Chunk)
		inserted = append(inserted, e.Key)
	}
	return inserted, nil
}

func (m *memStore) Get(_ context.Context, key hasher.Key) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	chunk, ok := m.chunks[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return chunk, nil
}

func (m *memStore) GetMany(_ context.Context, keys []hasher.Key) ([][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	chunks := make([][]byte, 0, len(keys))
	for _, key := range keys {
		chunk, ok := m.chunks[key]
		if !ok {
			return nil, store.ErrNotFound
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

func (m *memStore) Contains(_ context.Context, key hasher.Key) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.chunks[key]
	return ok, nil
}

func (m *memStore) Delete(_ context.Context, key hasher.Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.chunks, key)
	return nil
}

func (m *memStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks = make(map[hasher.Key][]byte)
	return nil
}

func (m *memStore) Keys(_ context.Context) ([]hasher.Key, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]hasher.Key, 0, len(m.chunks))
	for key := range m.chunks {
		keys = append(keys, key)
	}
	return keys, nil
}
