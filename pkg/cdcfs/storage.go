package cdcfs

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"

	"github.com/oneconcern/chunkfs/pkg/chunker"
	"github.com/oneconcern/chunkfs/pkg/hasher"
	"github.com/oneconcern/chunkfs/pkg/scrub"
	"github.com/oneconcern/chunkfs/pkg/store"
)

// chunkStorage routes chunk traffic across the base store and the
// optional target store, keeps the dedup accounting sidecar, and drives
// the scrubber.
//
// The sidecar (seen keys, ownership set, counters) is guarded by a
// single mutex: chunking and hashing dwarf the critical section, so
// contention is negligible.
type chunkStorage struct {
	base     store.Database
	iterBase store.IterableDatabase // non-nil iff a scrubber is installed
	target   store.Database
	scrubber scrub.Scrubber
	h        hasher.Hasher
	l        *zap.Logger
	cache    *lru.Cache // chunk bytes by key, read path only
	keySeed  hasher.Key

	mu          sync.Mutex
	seen        map[hasher.Key]struct{}
	targetOwned map[hasher.Key]struct{}

	bytesWritten int64 // everything routed through the write path
	baseBytes    int64 // unique bytes resident in the base store
	targetBytes  int64 // unique bytes resident in the target store
	dedupHits    int64
	uniqueChunks int64

	m *M // optional opencensus metrics
}

type writeStats struct {
	hashTime  time.Duration
	saveTime  time.Duration
	bytes     int64
	chunks    int64
	dedupHits int64
}

// write hashes chunks, deduplicates against the seen-key set and stores
// the survivors in the base store. It returns one key per input chunk,
// in order. On partial backend failure the returned keys cover exactly
// the chunks that are safely stored, alongside the error.
func (s *chunkStorage) write(ctx context.Context, chunks []chunker.Chunk) ([]hasher.Key, writeStats, error) {
	var stats writeStats
	if len(chunks) == 0 {
		return nil, stats, nil
	}

	start := time.Now()
	keys := make([]hasher.Key, len(chunks))
	for i, c := range chunks {
		keys[i] = s.h.Hash(c.Data)
	}
	stats.hashTime = time.Since(start)

	// dedup probe: the seen set answers first; it is kept consistent
	// with the base store contents below
	entries := make([]store.Entry, 0, len(chunks))
	fresh := make(map[hasher.Key]struct{}, len(chunks))
	s.mu.Lock()
	for i, key := range keys {
		size := int64(chunks[i].Len())
		s.bytesWritten += size
		stats.bytes += size
		stats.chunks++

		if _, dup := s.seen[key]; dup {
			s.dedupHits++
			stats.dedupHits++
			if s.m != nil {
				s.m.IncDuplicate("write")
			}
			continue
		}
		if _, dup := fresh[key]; dup {
			s.dedupHits++
			stats.dedupHits++
			continue
		}
		fresh[key] = struct{}{}
		entries = append(entries, store.Entry{Key: key, Chunk: chunks[i].Data})
	}
	s.mu.Unlock()

	start = time.Now()
	inserted, err := s.base.InsertMany(ctx, entries)
	stats.saveTime = time.Since(start)

	s.mu.Lock()
	for _, key := range inserted {
		s.seen[key] = struct{}{}
	}
	s.mu.Unlock()

	if err != nil {
		// only keys whose chunks are safely stored may be collected
		ok := make(map[hasher.Key]struct{}, len(inserted))
		for _, key := range inserted {
			ok[key] = struct{}{}
		}
		safe := make([]hasher.Key, 0, len(keys))
		for _, key := range keys {
			if _, stored := ok[key]; !stored {
				if _, wasFresh := fresh[key]; wasFresh {
					break
				}
			}
			safe = append(safe, key)
		}
		s.accountInserted(entries, ok)
		return safe, stats, fmt.Errorf("base store insert: %w", err)
	}

	okAll := make(map[hasher.Key]struct{}, len(inserted))
	for _, key := range inserted {
		okAll[key] = struct{}{}
	}
	s.accountInserted(entries, okAll)

	if s.m != nil {
		s.m.AddChunks(int64(len(inserted)), "write")
		s.m.AddBytes(stats.bytes, "write")
	}

	return keys, stats, nil
}

func (s *chunkStorage) accountInserted(entries []store.Entry, inserted map[hasher.Key]struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		if _, ok := inserted[e.Key]; !ok {
			continue
		}
		s.baseBytes += int64(len(e.Chunk))
		s.uniqueChunks++
	}
}

// read fetches chunks for an ordered key list. Keys are partitioned by
// owning store in one pass and results stitched back into request
// order: two backend calls total, not one probe per key. The target
// store wins when both stores claim a key mid-migration.
func (s *chunkStorage) read(ctx context.Context, keys []hasher.Key) ([][]byte, error) {
	out := make([][]byte, len(keys))

	var baseKeys, targetKeys []hasher.Key
	var baseIdx, targetIdx []int

	s.mu.Lock()
	for i, key := range keys {
		if s.cache != nil {
			if cached, ok := s.cache.Get(key); ok {
				out[i] = cached.([]byte)
				continue
			}
		}
		if _, owned := s.targetOwned[key]; owned {
			targetKeys = append(targetKeys, key)
			targetIdx = append(targetIdx, i)
		} else {
			baseKeys = append(baseKeys, key)
			baseIdx = append(baseIdx, i)
		}
	}
	s.mu.Unlock()

	if len(baseKeys) > 0 {
		chunks, err := s.base.GetMany(ctx, baseKeys)
		if err != nil {
			return nil, fmt.Errorf("base store read: %w", err)
		}
		for i, chunk := range chunks {
			out[baseIdx[i]] = chunk
			if s.cache != nil {
				s.cache.Add(baseKeys[i], chunk)
			}
		}
	}
	if len(targetKeys) > 0 {
		chunks, err := s.target.GetMany(ctx, targetKeys)
		if err != nil {
			return nil, fmt.Errorf("target store read: %w", err)
		}
		for i, chunk := range chunks {
			out[targetIdx[i]] = chunk
			if s.cache != nil {
				s.cache.Add(targetKeys[i], chunk)
			}
		}
	}
	return out, nil
}

// ensureSeed stores the empty chunk under the configured seed key, so a
// file closed without content still resolves through the normal read
// path on keyed file systems.
func (s *chunkStorage) ensureSeed(ctx context.Context) (hasher.Key, error) {
	s.mu.Lock()
	_, present := s.seen[s.keySeed]
	if !present {
		s.seen[s.keySeed] = struct{}{}
	}
	s.mu.Unlock()

	if !present {
		if err := s.base.Insert(ctx, s.keySeed, nil); err != nil {
			return hasher.Key{}, err
		}
	}
	return s.keySeed, nil
}

func (s *chunkStorage) cdcDedupRatio() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.baseBytes == 0 {
		return 0
	}
	return float64(s.bytesWritten) / float64(s.baseBytes)
}

func (s *chunkStorage) totalDedupRatio() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := s.baseBytes + s.targetBytes
	if stored == 0 {
		return 0
	}
	return float64(s.bytesWritten) / float64(stored)
}

func (s *chunkStorage) averageChunkSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.uniqueChunks == 0 {
		return 0
	}
	return int((s.baseBytes + s.targetBytes) / s.uniqueChunks)
}

func (s *chunkStorage) clear(ctx context.Context) error {
	if err := s.base.Clear(ctx); err != nil {
		return err
	}
	if s.target != nil {
		if err := s.target.Clear(ctx); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = make(map[hasher.Key]struct{})
	s.targetOwned = make(map[hasher.Key]struct{})
	s.bytesWritten, s.baseBytes, s.targetBytes = 0, 0, 0
	s.dedupHits, s.uniqueChunks = 0, 0
	if s.cache != nil {
		s.cache.Purge()
	}
	return nil
}
