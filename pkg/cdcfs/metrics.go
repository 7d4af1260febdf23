package cdcfs

import (
	"go.opencensus.io/stats"

	"github.com/oneconcern/chunkfs/pkg/metrics"
)

// M describes metrics for the cdcfs package
type M struct {
	ChunksCount    *stats.Int64Measure
	DuplicateCount *stats.Int64Measure
	ChunkBytes     *stats.Int64Measure
	FilesCount     *stats.Int64Measure
	ScrubCount     *stats.Int64Measure
}

func newM() *M {
	return &M{
		ChunksCount:    stats.Int64("chunkfs/chunks", "number of stored chunks, excluding duplicates", stats.UnitDimensionless),
		DuplicateCount: stats.Int64("chunkfs/duplicateChunks", "number of deduplicated chunks", stats.UnitDimensionless),
		ChunkBytes:     stats.Int64("chunkfs/chunkBytes", "cumulated size of written chunks", stats.UnitBytes),
		FilesCount:     stats.Int64("chunkfs/files", "number of file create and remove operations", stats.UnitDimensionless),
		ScrubCount:     stats.Int64("chunkfs/scrubs", "number of scrub passes", stats.UnitDimensionless),
	}
}

func (m *M) tags(operation string) map[string]string {
	return map[string]string{"kind": "io", "operation": operation}
}

func (m *M) AddChunks(n int64, operation string) {
	metrics.Int64(m.ChunksCount, n, m.tags(operation))
}

func (m *M) IncDuplicate(operation string) {
	metrics.Inc(m.DuplicateCount, m.tags(operation))
}

func (m *M) AddBytes(size int64, operation string) {
	metrics.Int64(m.ChunkBytes, size, m.tags(operation))
}

func (m *M) IncFile(operation string) {
	metrics.Inc(m.FilesCount, m.tags(operation))
}

func (m *M) IncScrub() {
	metrics.Inc(m.ScrubCount, m.tags("scrub"))
}
