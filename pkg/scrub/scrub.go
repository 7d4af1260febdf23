// Package scrub defines the offline store-optimization extension point.
//
// A Scrubber inspects the base store through an immutable view and emits
// a MigrationPlan: chunks to relocate into the target store, key
// subsequences to rewrite across files, and informational clusters. The
// plan is pure data; it is validated and applied by the chunk storage,
// never by the scrubber itself.
package scrub

import (
	"context"
	"time"

	"github.com/oneconcern/chunkfs/pkg/hasher"
	"github.com/oneconcern/chunkfs/pkg/store"
)

// View is the read-only window a Scrubber gets over the current state of
// the pipeline: the base store contents plus every file's chunk-key list,
// so cross-file redundancy is discoverable.
type View interface {
	// Keys enumerates the keys currently held by the base store.
	Keys(ctx context.Context) ([]hasher.Key, error)

	// Get retrieves a chunk from the base store.
	Get(ctx context.Context, key hasher.Key) ([]byte, error)

	// FileKeys returns the chunk-key list of every file, by file name.
	// The returned map and slices are snapshots owned by the caller.
	FileKeys() map[string][]hasher.Key
}

// Replace rewrites a contiguous run of keys in every file where it
// occurs. New chunks referenced by the replacement run are carried in
// Chunks and land in the target store.
type Replace struct {
	Old    []hasher.Key
	New    []hasher.Key
	Chunks []store.Entry
}

// MigrationPlan is the output of a scrub pass.
type MigrationPlan struct {
	// Moves relocates chunks from the base store to the target store unchanged.
	Moves []hasher.Key

	// Replaces substitutes key subsequences in file metadata.
	Replaces []Replace

	// Clusters groups keys the scrubber considers near-duplicates.
	// Informational: feeds metrics, has no semantic effect.
	Clusters [][]hasher.Key
}

// IsEmpty reports whether the plan changes anything.
func (p MigrationPlan) IsEmpty() bool {
	return len(p.Moves) == 0 && len(p.Replaces) == 0
}

// Measurements captured during a scrub pass.
type Measurements struct {
	RunningTime      time.Duration
	BytesExamined    int64
	BytesMoved       int64
	ChunksEliminated int64
}

// Add merges measurements from consecutive passes.
func (m *Measurements) Add(other Measurements) {
	m.RunningTime += other.RunningTime
	m.BytesExamined += other.BytesExamined
	m.BytesMoved += other.BytesMoved
	m.ChunksEliminated += other.ChunksEliminated
}

// Scrubber turns a view of the base store into a migration plan.
//
// Implementations must not mutate anything: the existing target store is
// provided for inspection only (e.g. to skip chunks already migrated).
type Scrubber interface {
	Scrub(ctx context.Context, view View, target store.Database) (MigrationPlan, Measurements, error)
	String() string
}
