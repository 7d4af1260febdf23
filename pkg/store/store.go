// Copyright © 2018 One Concern

// Package store defines the keyed chunk store contract of the dedup
// pipeline. Implementations are simple key/value backends: an in-memory
// map, a Badger LSM tree, a local file system.
package store

import (
	"context"

	"github.com/oneconcern/chunkfs/pkg/hasher"
)

type errString string

func (e errString) Error() string { return string(e) }

const (
	// ErrNotFound is returned when a key is not present in the store
	ErrNotFound errString = "not found"

	// ErrExists reports a key that is already stored. The bundled stores
	// never return it: their Insert treats a re-insert as a no-op.
	ErrExists errString = "exists already"

	// ErrNotSupported is returned for operations a backend cannot provide
	ErrNotSupported errString = "not supported"
)

// Entry is a single (key, chunk) pair handed to InsertMany.
type Entry struct {
	Key   hasher.Key
	Chunk []byte
}

// Database implementations know how to store chunks under their keys.
//
// Implementations must be safe for concurrent calls from multiple file
// handles. They are not expected to be persistent.
type Database interface {
	String() string

	// Insert stores a chunk under its key. Re-inserting an existing key
	// must not corrupt the stored chunk.
	Insert(ctx context.Context, key hasher.Key, chunk []byte) error

	// InsertMany stores a batch of entries. Each pair is atomic; on
	// partial failure the keys actually inserted are reported alongside
	// the error.
	InsertMany(ctx context.Context, entries []Entry) ([]hasher.Key, error)

	// Get retrieves the chunk stored under key, or ErrNotFound.
	Get(ctx context.Context, key hasher.Key) ([]byte, error)

	// GetMany retrieves chunks in the order of the requested keys. Any
	// missing key is an error.
	GetMany(ctx context.Context, keys []hasher.Key) ([][]byte, error)

	// Contains reports whether a chunk is stored under key.
	Contains(ctx context.Context, key hasher.Key) (bool, error)

	// Delete removes the chunk stored under key. Deleting an absent key
	// is not an error.
	Delete(ctx context.Context, key hasher.Key) error

	// Clear removes everything from the store.
	Clear(ctx context.Context) error
}

// IterableDatabase is a Database whose key set can be enumerated.
// Scrubber-enabled file systems require their base store to be iterable.
type IterableDatabase interface {
	Database

	// Keys returns every key currently in the store, in no particular order.
	Keys(ctx context.Context) ([]hasher.Key, error)
}
