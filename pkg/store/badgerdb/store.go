// Package badgerdb backs the chunk store contract with a Badger LSM
// tree, for runs where the base store should behave like a real
// disk-resident key/value engine rather than a map.
package badgerdb

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger"

	"github.com/oneconcern/chunkfs/pkg/hasher"
	"github.com/oneconcern/chunkfs/pkg/store"
)

// New opens (or creates) a Badger-backed store in dir.
func New(dir string) (store.IterableDatabase, error) {
	opts := badger.DefaultOptions
	opts.Dir = dir
	opts.ValueDir = dir

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger open %s: %v", dir, err)
	}
	return &badgerStore{db: db, dir: dir}, nil
}

type badgerStore struct {
	db  *badger.DB
	dir string
}

func (b *badgerStore) String() string { return "badger:" + b.dir }

// Close releases the underlying Badger handle. The store is unusable
// afterwards.
func (b *badgerStore) Close() error {
	return b.db.Close()
}

func (b *badgerStore) Insert(_ context.Context, key hasher.Key, chunk []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return insertTxn(txn, key, chunk)
	})
}

// insertTxn keeps the first chunk stored under a key
func insertTxn(txn *badger.Txn, key hasher.Key, chunk []byte) error {
	_, err := txn.Get(key[:])
	if err == nil {
		return nil
	}
	if err != badger.ErrKeyNotFound {
		return err
	}
	return txn.Set(key[:], chunk)
}

func (b *badgerStore) InsertMany(_ context.Context, entries []store.Entry) ([]hasher.Key, error) {
	inserted := make([]hasher.Key, 0, len(entries))
	for _, e := range entries {
		err := b.db.Update(func(txn *badger.Txn) error {
			return insertTxn(txn, e.Key, e.Chunk)
		})
		if err != nil {
			return inserted, fmt.Errorf("badger insert %s: %v", e.Key, err)
		}
		inserted = append(inserted, e.Key)
	}
	return inserted, nil
}

func (b *badgerStore) Get(_ context.Context, key hasher.Key) ([]byte, error) {
	var chunk []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key[:])
		if err != nil {
			return err
		}
		val, err := item.Value()
		if err != nil {
			return err
		}
		chunk = append([]byte(nil), val...)
		return nil
	})
	if err == badger.ErrKeyNotFound {
		return nil, store.ErrNotFound
	}
	return chunk, err
}

func (b *badgerStore) GetMany(ctx context.Context, keys []hasher.Key) ([][]byte, error) {
	chunks := make([][]byte, 0, len(keys))
	err := b.db.View(func(txn *badger.Txn) error {
		for _, key := range keys {
			item, err := txn.Get(key[:])
			if err != nil {
				return err
			}
			val, err := item.Value()
			if err != nil {
				return err
			}
			chunks = append(chunks, append([]byte(nil), val...))
		}
		return nil
	})
	if err == badger.ErrKeyNotFound {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return chunks, nil
}

func (b *badgerStore) Contains(_ context.Context, key hasher.Key) (bool, error) {
	err := b.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key[:])
		return err
	})
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	return err == nil, err
}

func (b *badgerStore) Delete(_ context.Context, key hasher.Key) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key[:])
	})
}

func (b *badgerStore) Clear(ctx context.Context) error {
	keys, err := b.Keys(ctx)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := b.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

func (b *badgerStore) Keys(_ context.Context) ([]hasher.Key, error) {
	var keys []hasher.Key
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			key, err := hasher.NewKey(it.Item().Key())
			if err != nil {
				return err
			}
			keys = append(keys, key)
		}
		return nil
	})
	return keys, err
}
