package cdcfs

import (
	"go.uber.org/zap"

	"github.com/oneconcern/chunkfs/pkg/hasher"
)

// Option to configure a FileSystem
type Option func(*FileSystem)

// Logger sets a logger for this file system
func Logger(l *zap.Logger) Option {
	return func(fs *FileSystem) {
		if l != nil {
			fs.l = l
		}
	}
}

// CacheSize sets the number of chunks kept in the read-path LRU cache.
// Zero disables caching.
func CacheSize(chunks int) Option {
	return func(fs *FileSystem) {
		fs.cacheSize = chunks
	}
}

// SegmentSize sets the buffer size used by WriteFromStream
func SegmentSize(size int) Option {
	return func(fs *FileSystem) {
		if size > 0 {
			fs.segSize = size
		}
	}
}

// WithMetrics enables opencensus metrics collection
func WithMetrics(enabled bool) Option {
	return func(fs *FileSystem) {
		fs.metricsEnabled = enabled
	}
}

func withKeySeed(seed hasher.Key) Option {
	return func(fs *FileSystem) {
		fs.keySeed = seed
		fs.hasKeySeed = true
	}
}
