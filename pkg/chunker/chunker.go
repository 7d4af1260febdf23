// Package chunker defines the streaming splitter contract of the dedup
// pipeline and the Chunk value it emits.
//
// A Chunker consumes byte buffers and cuts them into complete chunks.
// Bytes past the last boundary are retained inside the chunker and
// prepended to the next buffer; Finish flushes whatever is left as the
// final chunk. A file handle owns exactly one chunker instance for its
// lifetime, so chunker state never leaks across files.
package chunker

import "fmt"

// Chunk is a contiguous run of bytes emitted by a Chunker. It owns its
// bytes: Data never aliases a caller buffer and is immutable once emitted.
type Chunk struct {
	Data []byte
}

// Len returns the chunk length in bytes.
func (c Chunk) Len() int { return len(c.Data) }

// IsEmpty reports whether the chunk carries no bytes. An empty final
// chunk is a legal outcome of Finish when the stream ended exactly on a
// chunk boundary.
func (c Chunk) IsEmpty() bool { return len(c.Data) == 0 }

// Chunker splits a byte stream into chunks.
//
// The tail convention is fixed for all implementations: the chunker owns
// the bytes after the last emitted boundary, and Finish returns them.
// There is deliberately no accessor for the pending tail; exposing one
// invites callers to mix conventions and silently truncate streams.
type Chunker interface {
	fmt.Stringer

	// ChunkData cuts every complete chunk out of the pending tail
	// followed by buf, appending chunks to out and returning it. The
	// pre-existing contents of out are discarded; pass a slice obtained
	// from a previous call to amortize allocations. Bytes past the last
	// boundary are retained internally.
	ChunkData(buf []byte, out []Chunk) ([]Chunk, error)

	// Finish flushes the retained tail as the final chunk of the stream
	// and resets the chunker. The returned chunk is empty when the
	// stream ended on a natural boundary.
	Finish() Chunk

	// EstimateChunkCount returns an upper-bound estimate of the number
	// of chunks ChunkData would emit for buf, used to pre-size output
	// slices. Correctness, not exactness, is required.
	EstimateChunkCount(buf []byte) int
}
