package scrub

import (
	"context"
	"time"

	"github.com/oneconcern/chunkfs/pkg/hasher"
	"github.com/oneconcern/chunkfs/pkg/store"
)

// Copy moves every chunk of the base store into the target store
// unchanged. It optimizes nothing and exists to exercise the full
// migration protocol.
type Copy struct{}

func NewCopy() Copy { return Copy{} }

func (Copy) String() string { return "copy" }

func (Copy) Scrub(ctx context.Context, view View, target store.Database) (MigrationPlan, Measurements, error) {
	start := time.Now()

	var plan MigrationPlan
	var m Measurements

	keys, err := view.Keys(ctx)
	if err != nil {
		return plan, m, err
	}

	for _, key := range keys {
		chunk, err := view.Get(ctx, key)
		if err != nil {
			return plan, m, err
		}
		m.BytesExamined += int64(len(chunk))
		m.BytesMoved += int64(len(chunk))
		plan.Moves = append(plan.Moves, key)
	}

	m.RunningTime = time.Since(start)
	return plan, m, nil
}

// Frequency is an FBC-flavoured scrubber: chunks referenced at least
// Threshold times across all files are considered hot and migrate to the
// target store, grouped into clusters by reference count.
type Frequency struct {
	Threshold int
}

// NewFrequency creates a frequency scrubber. Thresholds below 2 are
// raised to 2: a chunk referenced once gains nothing from migration.
func NewFrequency(threshold int) Frequency {
	if threshold < 2 {
		threshold = 2
	}
	return Frequency{Threshold: threshold}
}

func (f Frequency) String() string { return "frequency" }

func (f Frequency) Scrub(ctx context.Context, view View, target store.Database) (MigrationPlan, Measurements, error) {
	start := time.Now()

	var plan MigrationPlan
	var m Measurements

	refs := make(map[hasher.Key]int)
	for _, keys := range view.FileKeys() {
		for _, key := range keys {
			refs[key]++
		}
	}

	baseKeys, err := view.Keys(ctx)
	if err != nil {
		return plan, m, err
	}

	clusters := make(map[int][]hasher.Key)
	for _, key := range baseKeys {
		chunk, err := view.Get(ctx, key)
		if err != nil {
			return plan, m, err
		}
		m.BytesExamined += int64(len(chunk))

		count := refs[key]
		if count < f.Threshold {
			continue
		}
		plan.Moves = append(plan.Moves, key)
		m.BytesMoved += int64(len(chunk))
		clusters[count] = append(clusters[count], key)
	}

	for _, cluster := range clusters {
		plan.Clusters = append(plan.Clusters, cluster)
	}

	m.RunningTime = time.Since(start)
	return plan, m, nil
}
