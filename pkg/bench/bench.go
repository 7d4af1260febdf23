// Package bench measures dedup pipelines end to end: it writes a
// generated dataset through a file system, reads it back, verifies the
// round trip and derives throughput and dedup figures. Results append to
// CSV reports for later plotting.
package bench

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/oneconcern/chunkfs/pkg/cdcfs"
	"github.com/oneconcern/chunkfs/pkg/chunker"
)

// Dataset describes one benchmark input.
type Dataset struct {
	Name string
	Size int
	Gen  Generator
}

// Result is the outcome of a single write/read cycle.
type Result struct {
	Date    time.Time
	Dataset string
	Chunker string
	Size    int

	DedupRatio   float64
	AvgChunkSize int

	WriteTime time.Duration
	ReadTime  time.Duration
	ChunkTime time.Duration
	HashTime  time.Duration

	// throughputs in bytes per second
	WriteThroughput float64
	ReadThroughput  float64
}

// Run writes the dataset to fs under its name, closes, reopens and reads
// it back, failing if the round trip is not the identity. The chunker is
// built fresh through newChunker so no tail state leaks between runs.
func Run(ctx context.Context, fs *cdcfs.FileSystem, ds Dataset, newChunker func() chunker.Chunker) (Result, error) {
	var r Result

	data := ds.Gen.Generate(ds.Size)
	c := newChunker()

	start := time.Now()
	h, err := fs.CreateFile(ctx, ds.Name, c, false)
	if err != nil {
		return r, err
	}
	if err = fs.WriteToFile(ctx, h, data); err != nil {
		return r, err
	}
	m, err := fs.CloseFile(ctx, h)
	if err != nil {
		return r, err
	}
	writeTime := time.Since(start)

	start = time.Now()
	rh, err := fs.OpenFile(ctx, ds.Name)
	if err != nil {
		return r, err
	}
	got, err := fs.ReadFromFile(ctx, rh)
	if err != nil {
		return r, err
	}
	if _, err = fs.CloseFile(ctx, rh); err != nil {
		return r, err
	}
	readTime := time.Since(start)

	if !bytes.Equal(data, got) {
		return r, fmt.Errorf("round trip mismatch on dataset %s: wrote %d bytes, read %d", ds.Name, len(data), len(got))
	}

	r = Result{
		Date:         time.Now(),
		Dataset:      ds.Name,
		Chunker:      c.String(),
		Size:         ds.Size,
		DedupRatio:   fs.CDCDedupRatio(),
		AvgChunkSize: fs.AverageChunkSize(),
		WriteTime:    writeTime,
		ReadTime:     readTime,
		ChunkTime:    m.Write.ChunkTime,
		HashTime:     m.Write.HashTime,
	}
	if writeTime > 0 {
		r.WriteThroughput = float64(ds.Size) / writeTime.Seconds()
	}
	if readTime > 0 {
		r.ReadThroughput = float64(ds.Size) / readTime.Seconds()
	}
	return r, nil
}
