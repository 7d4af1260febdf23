// Copyright © 2018 One Concern

// Package localfs backs the chunk store contract with a file system,
// one file per chunk named by the hex form of its key.
package localfs

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"

	"github.com/oneconcern/chunkfs/pkg/hasher"
	"github.com/oneconcern/chunkfs/pkg/store"
)

// New creates a file system backed store. When fs is nil, chunks land
// under .chunkfs/objects in the working directory.
func New(fs afero.Fs) store.IterableDatabase {
	if fs == nil {
		fs = afero.NewBasePathFs(afero.NewOsFs(), filepath.Join(".chunkfs", "objects"))
	}
	return &localFS{fs: fs}
}

type localFS struct {
	// serializes insert probes; afero backends do not give us compare-and-create
	mu sync.Mutex
	fs afero.Fs
}

func (l *localFS) String() string { return "localfs" }

func (l *localFS) Insert(ctx context.Context, key hasher.Key, chunk []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.insert(key, chunk)
}

func (l *localFS) insert(key hasher.Key, chunk []byte) error {
	name := key.String()
	if exists, err := afero.Exists(l.fs, name); err != nil {
		return err
	} else if exists {
		return nil
	}
	return afero.WriteFile(l.fs, name, chunk, 0600)
}

func (l *localFS) InsertMany(_ context.Context, entries []store.Entry) ([]hasher.Key, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	inserted := make([]hasher.Key, 0, len(entries))
	for _, e := range entries {
		if err := l.insert(e.Key, e.Chunk); err != nil {
			return inserted, err
		}
		inserted = append(inserted, e.Key)
	}
	return inserted, nil
}

func (l *localFS) Get(_ context.Context, key hasher.Key) ([]byte, error) {
	chunk, err := afero.ReadFile(l.fs, key.String())
	if err != nil && os.IsNotExist(err) {
		return nil, store.ErrNotFound
	}
	return chunk, err
}

func (l *localFS) GetMany(ctx context.Context, keys []hasher.Key) ([][]byte, error) {
	chunks := make([][]byte, 0, len(keys))
	for _, key := range keys {
		chunk, err := l.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

func (l *localFS) Contains(_ context.Context, key hasher.Key) (bool, error) {
	return afero.Exists(l.fs, key.String())
}

func (l *localFS) Delete(_ context.Context, key hasher.Key) error {
	err := l.fs.Remove(key.String())
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

func (l *localFS) Clear(ctx context.Context) error {
	keys, err := l.Keys(ctx)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := l.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

func (l *localFS) Keys(_ context.Context) ([]hasher.Key, error) {
	infos, err := afero.ReadDir(l.fs, ".")
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	keys := make([]hasher.Key, 0, len(infos))
	for _, fi := range infos {
		if fi.IsDir() {
			continue
		}
		key, err := hasher.KeyFromString(fi.Name())
		if err != nil {
			continue // not a chunk
		}
		keys = append(keys, key)
	}
	return keys, nil
}
