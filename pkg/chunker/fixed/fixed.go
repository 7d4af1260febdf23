// Package fixed implements fixed-size chunking (FSC): the stream is cut
// into even-sized chunks regardless of content.
package fixed

import (
	"fmt"

	"github.com/docker/go-units"

	"github.com/oneconcern/chunkfs/pkg/chunker"
)

// DefaultChunkSize is used when no size is given.
const DefaultChunkSize = 4 * units.KiB

// Chunker cuts the stream into chunks of exactly Size bytes; only the
// final chunk of a stream may be shorter.
type Chunker struct {
	size int
	tail []byte
}

// New creates a fixed-size chunker. A non-positive size falls back to
// DefaultChunkSize.
func New(size int) *Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	return &Chunker{size: size}
}

func (c *Chunker) String() string {
	return fmt.Sprintf("fixed-%d", c.size)
}

func (c *Chunker) ChunkData(buf []byte, out []chunker.Chunk) ([]chunker.Chunk, error) {
	out = out[:0]

	data := buf
	if len(c.tail) > 0 {
		data = append(c.tail, buf...)
	}

	offset := 0
	for len(data)-offset >= c.size {
		chunk := make([]byte, c.size)
		copy(chunk, data[offset:offset+c.size])
		out = append(out, chunker.Chunk{Data: chunk})
		offset += c.size
	}

	c.tail = append(c.tail[:0], data[offset:]...)
	return out, nil
}

func (c *Chunker) Finish() chunker.Chunk {
	last := make([]byte, len(c.tail))
	copy(last, c.tail)
	c.tail = c.tail[:0]
	return chunker.Chunk{Data: last}
}

func (c *Chunker) EstimateChunkCount(buf []byte) int {
	return (len(buf)+len(c.tail))/c.size + 1
}
