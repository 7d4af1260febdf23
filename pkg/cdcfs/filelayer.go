package cdcfs

import (
	"sync"

	"go.uber.org/zap"

	"github.com/oneconcern/chunkfs/pkg/hasher"
)

// FileMetadata is the registry entry of a single flat file: the ordered
// chunk keys whose concatenation is the file content.
type FileMetadata struct {
	Name string
	Keys []hasher.Key
	Size int64
}

// fileLayer is the in-memory name → metadata registry. Writers are
// tracked so that a name never has two open write handles.
type fileLayer struct {
	mu      sync.RWMutex
	files   map[string]*FileMetadata
	writers map[string]struct{}
	l       *zap.Logger
}

func newFileLayer(l *zap.Logger) *fileLayer {
	return &fileLayer{
		files:   make(map[string]*FileMetadata),
		writers: make(map[string]struct{}),
		l:       l,
	}
}

// create registers a file and acquires its writer slot. With createNew
// an existing name is an error; otherwise existing metadata is truncated.
func (fl *fileLayer) create(name string, createNew bool) error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if _, locked := fl.writers[name]; locked {
		return ErrFileLocked
	}
	if _, exists := fl.files[name]; exists && createNew {
		return ErrAlreadyExists
	}

	fl.files[name] = &FileMetadata{Name: name}
	fl.writers[name] = struct{}{}
	fl.l.Debug("file created", zap.String("name", name), zap.Bool("create_new", createNew))
	return nil
}

// open returns a snapshot of the file's key list for a read handle.
func (fl *fileLayer) open(name string) ([]hasher.Key, int64, error) {
	fl.mu.RLock()
	defer fl.mu.RUnlock()

	meta, ok := fl.files[name]
	if !ok {
		return nil, 0, ErrNotFound
	}
	keys := make([]hasher.Key, len(meta.Keys))
	copy(keys, meta.Keys)
	return keys, meta.Size, nil
}

// publish atomically replaces the file's chunk keys with the list
// collected by a closing write handle. Readers opening afterwards see
// the new list; readers opened before keep their snapshot.
func (fl *fileLayer) publish(name string, keys []hasher.Key, size int64) error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	meta, ok := fl.files[name]
	if !ok {
		return ErrNotFound
	}
	meta.Keys = keys
	meta.Size = size
	fl.l.Debug("file published", zap.String("name", name), zap.Int("chunks", len(keys)), zap.Int64("size", size))
	return nil
}

func (fl *fileLayer) releaseWriter(name string) {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	delete(fl.writers, name)
}

func (fl *fileLayer) exists(name string) bool {
	fl.mu.RLock()
	defer fl.mu.RUnlock()
	_, ok := fl.files[name]
	return ok
}

func (fl *fileLayer) rename(oldName, newName string) error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	meta, ok := fl.files[oldName]
	if !ok {
		return ErrNotFound
	}
	if _, exists := fl.files[newName]; exists {
		return ErrAlreadyExists
	}
	if _, locked := fl.writers[oldName]; locked {
		return ErrFileLocked
	}

	delete(fl.files, oldName)
	meta.Name = newName
	fl.files[newName] = meta
	return nil
}

func (fl *fileLayer) remove(name string) error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if _, ok := fl.files[name]; !ok {
		return ErrNotFound
	}
	delete(fl.files, name)
	return nil
}

func (fl *fileLayer) list() []string {
	fl.mu.RLock()
	defer fl.mu.RUnlock()

	names := make([]string, 0, len(fl.files))
	for name := range fl.files {
		names = append(names, name)
	}
	return names
}

func (fl *fileLayer) clear() {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	fl.files = make(map[string]*FileMetadata)
}

// withExclusive runs fn while holding the registry lock, giving the
// scrub application path a single critical section over all metadata:
// plan application appears atomic to opens and closes.
func (fl *fileLayer) withExclusive(fn func(files map[string]*FileMetadata) error) error {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	return fn(fl.files)
}
