// Package rolling implements content-defined chunking with a rolling-sum
// hash over a sliding window, bounded by minimum and maximum chunk sizes
// in the manner of FastCDC. Boundaries depend only on content, so an
// insertion shifts boundaries locally and leaves the rest of the stream
// chunked identically.
package rolling

import (
	"fmt"

	"github.com/docker/go-units"

	"github.com/oneconcern/chunkfs/pkg/chunker"
)

const (
	// DefaultMinSize is the smallest chunk the chunker will cut.
	DefaultMinSize = 2 * units.KiB

	// DefaultAvgSize drives the boundary mask: with uniformly distributed
	// window sums one position in DefaultAvgSize qualifies as a boundary.
	DefaultAvgSize = 8 * units.KiB

	// DefaultMaxSize forces a cut regardless of content.
	DefaultMaxSize = 64 * units.KiB

	windowSize = 64
)

// Chunker is a rolling-sum CDC chunker.
type Chunker struct {
	minSize int
	maxSize int
	mask    uint32
	tail    []byte
}

// New creates a rolling chunker with the given bounds. The average size
// is rounded down to a power of two to derive the boundary mask.
// Non-positive arguments fall back to the package defaults.
func New(minSize, avgSize, maxSize int) *Chunker {
	if minSize <= 0 {
		minSize = DefaultMinSize
	}
	if avgSize <= 0 {
		avgSize = DefaultAvgSize
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if minSize < windowSize {
		minSize = windowSize
	}
	if maxSize < minSize {
		maxSize = minSize
	}

	mask := uint32(1)
	for mask<<1 <= uint32(avgSize) {
		mask <<= 1
	}
	mask--

	return &Chunker{
		minSize: minSize,
		maxSize: maxSize,
		mask:    mask,
	}
}

// Default creates a rolling chunker with the package default bounds.
func Default() *Chunker {
	return New(DefaultMinSize, DefaultAvgSize, DefaultMaxSize)
}

func (c *Chunker) String() string {
	return fmt.Sprintf("rolling-%d-%d", c.minSize, c.maxSize)
}

func (c *Chunker) ChunkData(buf []byte, out []chunker.Chunk) ([]chunker.Chunk, error) {
	out = out[:0]

	data := buf
	if len(c.tail) > 0 {
		data = append(c.tail, buf...)
	}

	start := 0
	for {
		cut := c.boundary(data[start:])
		if cut < 0 {
			break
		}
		chunk := make([]byte, cut)
		copy(chunk, data[start:start+cut])
		out = append(out, chunker.Chunk{Data: chunk})
		start += cut
	}

	c.tail = append(c.tail[:0], data[start:]...)
	return out, nil
}

// boundary returns the length of the first complete chunk in data, or -1
// when data holds no complete chunk yet. The decision depends only on the
// bytes since the chunk start, so it is insensitive to how the stream was
// segmented across ChunkData calls.
func (c *Chunker) boundary(data []byte) int {
	if len(data) < c.minSize {
		return -1
	}

	var sum uint32
	for i := 0; i < windowSize; i++ {
		sum += uint32(data[i])
	}

	for i := windowSize; i < len(data); i++ {
		sum -= uint32(data[i-windowSize])
		sum += uint32(data[i])

		length := i + 1
		if length >= c.maxSize {
			return length
		}
		if length >= c.minSize && sum&c.mask == 0 {
			return length
		}
	}
	return -1
}

func (c *Chunker) Finish() chunker.Chunk {
	last := make([]byte, len(c.tail))
	copy(last, c.tail)
	c.tail = c.tail[:0]
	return chunker.Chunk{Data: last}
}

func (c *Chunker) EstimateChunkCount(buf []byte) int {
	return (len(buf)+len(c.tail))/c.minSize + 1
}
