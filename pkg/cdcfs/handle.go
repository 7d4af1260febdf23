package cdcfs

import (
	"github.com/oneconcern/chunkfs/pkg/chunker"
	"github.com/oneconcern/chunkfs/pkg/hasher"
)

type handleMode int

const (
	modeRead handleMode = iota
	modeWrite
)

func (m handleMode) String() string {
	if m == modeWrite {
		return "write"
	}
	return "read"
}

// Handle is the per-open state of a file.
//
// A write handle owns its chunker instance: the chunker's internal tail
// is the handle's pending buffer, flushed on CloseFile. A read handle
// carries the snapshot of chunk keys taken at open time. Handles are
// single-owner; mutating one from several goroutines is not supported.
type Handle struct {
	name string
	mode handleMode

	// write state
	chk     chunker.Chunker
	scratch []chunker.Chunk

	// collected (write) or snapshot (read) chunk keys
	keys []hasher.Key
	size int64

	m      Measurements
	closed bool
}

// Name returns the name of the file the handle refers to.
func (h *Handle) Name() string { return h.name }

// Measurements returns what has been observed on the handle so far.
// CloseFile returns the final value.
func (h *Handle) Measurements() Measurements { return h.m }
