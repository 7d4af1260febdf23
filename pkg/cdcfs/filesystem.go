package cdcfs

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/docker/go-units"
	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"

	"github.com/oneconcern/chunkfs/pkg/chunker"
	"github.com/oneconcern/chunkfs/pkg/dlogger"
	"github.com/oneconcern/chunkfs/pkg/hasher"
	"github.com/oneconcern/chunkfs/pkg/scrub"
	"github.com/oneconcern/chunkfs/pkg/store"
)

const (
	// DefaultSegmentSize is the buffer size used when ingesting streams
	DefaultSegmentSize = 1 * units.MiB

	// DefaultCacheSize is the default capacity of the read-path chunk
	// cache, in chunks
	DefaultCacheSize = 1024
)

// FileSystem is the public surface of the dedup laboratory: a flat
// namespace of files whose contents live as deduplicated chunks in the
// configured stores.
//
// A FileSystem may be shared across goroutines for reads and for
// independent handles; a single handle is single-owner.
type FileSystem struct {
	storage *chunkStorage
	fl      *fileLayer
	l       *zap.Logger

	segSize        int
	cacheSize      int
	metricsEnabled bool
	keySeed        hasher.Key
	hasKeySeed     bool
}

// New creates a CDC-only file system on a base store with the given
// hasher. The resulting file system has no target store: Scrub returns
// ErrNoScrubber.
func New(base store.Database, h hasher.Hasher, opts ...Option) (*FileSystem, error) {
	if base == nil {
		return nil, fmt.Errorf("a base store is required")
	}
	if h == nil {
		return nil, fmt.Errorf("a hasher is required")
	}
	return assemble(base, nil, nil, nil, h, opts)
}

// NewWithScrubber creates a file system whose base store can be scrubbed
// into the target store. The base store must be iterable so the scrubber
// can see it.
func NewWithScrubber(base store.IterableDatabase, target store.Database, scrubber scrub.Scrubber, h hasher.Hasher, opts ...Option) (*FileSystem, error) {
	if base == nil || target == nil {
		return nil, fmt.Errorf("base and target stores are required")
	}
	if scrubber == nil {
		return nil, fmt.Errorf("a scrubber is required")
	}
	if h == nil {
		return nil, fmt.Errorf("a hasher is required")
	}
	return assemble(base, base, target, scrubber, h, opts)
}

// NewKeyed creates a CDC-only file system with an explicit key seed: the
// key under which handle-less internal operations (such as closing an
// empty file) record the empty chunk.
func NewKeyed(base store.Database, h hasher.Hasher, seed hasher.Key, opts ...Option) (*FileSystem, error) {
	return New(base, h, append(opts, withKeySeed(seed))...)
}

func assemble(base store.Database, iterBase store.IterableDatabase, target store.Database, scrubber scrub.Scrubber, h hasher.Hasher, opts []Option) (*FileSystem, error) {
	fs := &FileSystem{
		l:         dlogger.MustGetLogger(dlogger.LogLevelInfo),
		segSize:   DefaultSegmentSize,
		cacheSize: DefaultCacheSize,
	}
	for _, apply := range opts {
		apply(fs)
	}

	var cache *lru.Cache
	if fs.cacheSize > 0 {
		var err error
		cache, err = lru.New(fs.cacheSize)
		if err != nil {
			return nil, err
		}
	}

	fs.storage = &chunkStorage{
		base:        base,
		iterBase:    iterBase,
		target:      target,
		scrubber:    scrubber,
		h:           h,
		l:           fs.l,
		cache:       cache,
		keySeed:     fs.keySeed,
		seen:        make(map[hasher.Key]struct{}),
		targetOwned: make(map[hasher.Key]struct{}),
	}
	if fs.metricsEnabled {
		fs.storage.m = newM()
	}
	fs.fl = newFileLayer(fs.l)

	fs.l.Debug("file system assembled",
		zap.String("base", base.String()),
		zap.String("hasher", h.String()),
		zap.Bool("scrubber", scrubber != nil),
	)
	return fs, nil
}

// CreateFile registers a file and returns its write handle. With
// createNew an existing name fails with ErrAlreadyExists; otherwise the
// file is truncated. The handle owns the given chunker for its lifetime.
func (fs *FileSystem) CreateFile(ctx context.Context, name string, c chunker.Chunker, createNew bool) (*Handle, error) {
	if c == nil {
		return nil, ErrChunkerRequired
	}
	if err := fs.fl.create(name, createNew); err != nil {
		return nil, err
	}
	if fs.storage.m != nil {
		fs.storage.m.IncFile("create")
	}
	return &Handle{name: name, mode: modeWrite, chk: c}, nil
}

// OpenFile returns a read handle over the file's current content. The
// chunk-key list is snapshotted at open time: a concurrent close of a
// write handle does not affect an open reader.
func (fs *FileSystem) OpenFile(ctx context.Context, name string) (*Handle, error) {
	keys, size, err := fs.fl.open(name)
	if err != nil {
		return nil, err
	}
	return &Handle{name: name, mode: modeRead, keys: keys, size: size}, nil
}

// WriteToFile chunks data and stores every complete chunk, appending
// chunk keys to the handle. Bytes past the last chunk boundary stay in
// the chunker until the next write or the final flush on close.
func (fs *FileSystem) WriteToFile(ctx context.Context, h *Handle, data []byte) error {
	if err := checkHandle(h, modeWrite); err != nil {
		return err
	}
	if !fs.fl.exists(h.name) {
		return ErrNotFound
	}

	start := time.Now()
	chunks, err := h.chk.ChunkData(data, h.scratch)
	chunkTime := time.Since(start)
	if err != nil {
		return fmt.Errorf("chunker %s: %w", h.chk, err)
	}
	h.scratch = chunks

	keys, stats, err := fs.storage.write(ctx, chunks)
	h.keys = append(h.keys, keys...)
	h.m.Write.add(WriteMeasurements{
		TotalTime:      time.Since(start),
		ChunkTime:      chunkTime,
		HashTime:       stats.hashTime,
		SaveTime:       stats.saveTime,
		BytesWritten:   stats.bytes,
		ChunksProduced: stats.chunks,
		DedupHits:      stats.dedupHits,
	})
	h.size += stats.bytes
	return err
}

// WriteFromStream ingests a reader in segments of SegmentSize.
func (fs *FileSystem) WriteFromStream(ctx context.Context, h *Handle, r io.Reader) error {
	buf := make([]byte, fs.segSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if werr := fs.WriteToFile(ctx, h, buf[:n]); werr != nil {
				return werr
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// ReadFromFile returns the complete file content: the concatenation of
// the chunks referenced by the handle's key snapshot, in order.
func (fs *FileSystem) ReadFromFile(ctx context.Context, h *Handle) ([]byte, error) {
	if err := checkHandle(h, modeRead); err != nil {
		return nil, err
	}

	start := time.Now()
	chunks, err := fs.storage.read(ctx, h.keys)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, h.size)
	for _, chunk := range chunks {
		out = append(out, chunk...)
	}
	h.m.Read.add(ReadMeasurements{
		TotalTime:     time.Since(start),
		BytesRead:     int64(len(out)),
		ChunksFetched: int64(len(chunks)),
	})
	return out, nil
}

// CloseFile finishes a handle and returns its measurements.
//
// For a write handle the chunker tail is flushed as the final chunk
// (nothing is recorded when the stream ended on a boundary; on a keyed
// file system a file closed without any chunk records the seed key), and
// the collected keys replace the file's chunk list atomically. A failed close leaves the previous metadata intact.
func (fs *FileSystem) CloseFile(ctx context.Context, h *Handle) (Measurements, error) {
	if h == nil {
		return Measurements{}, ErrInvalidHandle
	}
	if h.closed {
		return h.m, ErrHandleClosed
	}

	if h.mode == modeRead {
		h.closed = true
		return h.m, nil
	}

	defer fs.fl.releaseWriter(h.name)

	tail := h.chk.Finish()
	if !tail.IsEmpty() {
		start := time.Now()
		keys, stats, err := fs.storage.write(ctx, []chunker.Chunk{tail})
		h.keys = append(h.keys, keys...)
		h.m.Write.add(WriteMeasurements{
			TotalTime:      time.Since(start),
			HashTime:       stats.hashTime,
			SaveTime:       stats.saveTime,
			BytesWritten:   stats.bytes,
			ChunksProduced: stats.chunks,
			DedupHits:      stats.dedupHits,
		})
		h.size += stats.bytes
		if err != nil {
			return h.m, fmt.Errorf("flush tail: %w", err)
		}
	} else if len(h.keys) == 0 && fs.hasKeySeed {
		seed, err := fs.storage.ensureSeed(ctx)
		if err != nil {
			return h.m, fmt.Errorf("seed key: %w", err)
		}
		h.keys = append(h.keys, seed)
	}

	if err := fs.fl.publish(h.name, h.keys, h.size); err != nil {
		return h.m, err
	}
	h.closed = true
	return h.m, nil
}

// RemoveFile drops a file from the registry. Its chunks stay in the
// stores: the core has no garbage collection.
func (fs *FileSystem) RemoveFile(name string) error {
	if fs.storage.m != nil {
		fs.storage.m.IncFile("remove")
	}
	return fs.fl.remove(name)
}

// RenameFile renames a file. The target name must not exist.
func (fs *FileSystem) RenameFile(oldName, newName string) error {
	return fs.fl.rename(oldName, newName)
}

// FileExists checks if the file with the given name exists.
func (fs *FileSystem) FileExists(name string) bool {
	return fs.fl.exists(name)
}

// ListFiles returns the names of all files in the system.
func (fs *FileSystem) ListFiles() []string {
	return fs.fl.list()
}

// Scrub runs the configured scrubber over the base store and applies the
// resulting migration plan: store migrations and file metadata rewrites
// land as one logical update with respect to opens and closes.
func (fs *FileSystem) Scrub(ctx context.Context) (scrub.Measurements, error) {
	var m scrub.Measurements

	err := fs.fl.withExclusive(func(files map[string]*FileMetadata) error {
		snapshot := make(map[string][]hasher.Key, len(files))
		for name, meta := range files {
			keys := make([]hasher.Key, len(meta.Keys))
			copy(keys, meta.Keys)
			snapshot[name] = keys
		}

		rewritten, measurements, err := fs.storage.runScrub(ctx, snapshot)
		if err != nil {
			return err
		}
		m = measurements

		for name, keys := range rewritten {
			files[name].Keys = keys
		}
		return nil
	})
	return m, err
}

// CDCDedupRatio is total bytes written over unique bytes resident in the
// base store, ignoring chunks migrated by the scrubber.
func (fs *FileSystem) CDCDedupRatio() float64 {
	return fs.storage.cdcDedupRatio()
}

// TotalDedupRatio is total bytes written over unique bytes stored in
// both stores.
func (fs *FileSystem) TotalDedupRatio() float64 {
	return fs.storage.totalDedupRatio()
}

// AverageChunkSize returns the mean stored chunk size in bytes.
func (fs *FileSystem) AverageChunkSize() int {
	return fs.storage.averageChunkSize()
}

// DedupHits returns how many chunk writes were dropped as duplicates.
func (fs *FileSystem) DedupHits() int64 {
	fs.storage.mu.Lock()
	defer fs.storage.mu.Unlock()
	return fs.storage.dedupHits
}

// ChunkCountDistribution returns, for the file behind the handle, how
// many times each chunk key occurs in its key list.
func (fs *FileSystem) ChunkCountDistribution(h *Handle) map[hasher.Key]int {
	distribution := make(map[hasher.Key]int, len(h.keys))
	for _, key := range h.keys {
		distribution[key]++
	}
	return distribution
}

// Clear wipes the registry, both stores and all accounting. Open handles
// are invalidated.
func (fs *FileSystem) Clear(ctx context.Context) error {
	fs.fl.clear()
	return fs.storage.clear(ctx)
}

func checkHandle(h *Handle, want handleMode) error {
	if h == nil {
		return ErrInvalidHandle
	}
	if h.closed {
		return ErrHandleClosed
	}
	if h.mode != want {
		return ErrInvalidHandle
	}
	return nil
}
