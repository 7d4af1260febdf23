package cdcfs

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/oneconcern/chunkfs/pkg/hasher"
	"github.com/oneconcern/chunkfs/pkg/scrub"
)

// storageView is the immutable window handed to the scrubber: base store
// contents plus a snapshot of every file's key list.
type storageView struct {
	s     *chunkStorage
	files map[string][]hasher.Key
}

func (v *storageView) Keys(ctx context.Context) ([]hasher.Key, error) {
	return v.s.iterBase.Keys(ctx)
}

func (v *storageView) Get(ctx context.Context, key hasher.Key) ([]byte, error) {
	return v.s.base.Get(ctx, key)
}

func (v *storageView) FileKeys() map[string][]hasher.Key {
	return v.files
}

// runScrub invokes the scrubber on a snapshot of the file metadata,
// validates the returned plan against both stores and the snapshot, and
// applies it. It returns the rewritten key list of every affected file.
//
// The caller holds the file layer lock for the whole pass, so the plan
// lands as a single logical update.
func (s *chunkStorage) runScrub(ctx context.Context, files map[string][]hasher.Key) (map[string][]hasher.Key, scrub.Measurements, error) {
	var m scrub.Measurements

	if s.scrubber == nil {
		return nil, m, ErrNoScrubber
	}

	s.l.Debug("scrub pass starting", zap.String("scrubber", s.scrubber.String()))

	view := &storageView{s: s, files: files}
	plan, m, err := s.scrubber.Scrub(ctx, view, s.target)
	if err != nil {
		return nil, m, fmt.Errorf("scrubber %s: %w", s.scrubber, err)
	}

	rewritten, eliminated, err := s.validatePlan(ctx, plan, files)
	if err != nil {
		return nil, m, err
	}

	if err := s.applyPlan(ctx, plan, eliminated); err != nil {
		return nil, m, err
	}

	m.ChunksEliminated += int64(len(eliminated))
	s.l.Debug("scrub pass done",
		zap.Int("moves", len(plan.Moves)),
		zap.Int("replaces", len(plan.Replaces)),
		zap.Int("clusters", len(plan.Clusters)),
		zap.Int("chunks_eliminated", len(eliminated)),
	)
	if s.m != nil {
		s.m.IncScrub()
	}

	return rewritten, m, nil
}

// validatePlan treats the plan as pure data and checks it in full before
// anything mutates: every moved key must live in the base store, every
// replacement run must match some file, no key referenced by the
// rewritten metadata may dangle, and no chunk still referenced may be
// destroyed. It returns the rewritten key lists and the keys that lose
// their last reference.
func (s *chunkStorage) validatePlan(ctx context.Context, plan scrub.MigrationPlan, files map[string][]hasher.Key) (map[string][]hasher.Key, []hasher.Key, error) {
	moveSet := make(map[hasher.Key]struct{}, len(plan.Moves))
	for _, key := range plan.Moves {
		if _, dup := moveSet[key]; dup {
			return nil, nil, fmt.Errorf("%w: key %s moved twice", ErrInvalidPlan, key)
		}
		in, err := s.base.Contains(ctx, key)
		if err != nil {
			return nil, nil, fmt.Errorf("move validation: %w", err)
		}
		if !in {
			return nil, nil, fmt.Errorf("%w: moved key %s not in base store", ErrInvalidPlan, key)
		}
		moveSet[key] = struct{}{}
	}

	// keys introduced by replacements, resolvable through plan chunks
	newChunks := make(map[hasher.Key]struct{})
	for _, r := range plan.Replaces {
		if len(r.Old) == 0 {
			return nil, nil, fmt.Errorf("%w: replacement with empty old run", ErrInvalidPlan)
		}
		for _, e := range r.Chunks {
			newChunks[e.Key] = struct{}{}
		}
	}

	rewritten := make(map[string][]hasher.Key, len(files))
	matched := make([]bool, len(plan.Replaces))
	for name, keys := range files {
		next := keys
		changed := false
		for i, r := range plan.Replaces {
			replaced, hit := substituteRun(next, r.Old, r.New)
			if hit {
				matched[i] = true
				next = replaced
				changed = true
			}
		}
		if changed {
			rewritten[name] = next
		}
	}
	for i, r := range plan.Replaces {
		if !matched[i] {
			return nil, nil, fmt.Errorf("%w: replacement run %v matches no file", ErrInvalidPlan, r.Old)
		}
	}

	// reference counts after rewrite decide which keys are eliminated
	refs := make(map[hasher.Key]int)
	for name, keys := range files {
		if updated, ok := rewritten[name]; ok {
			keys = updated
		}
		for _, key := range keys {
			refs[key]++
		}
	}

	// every referenced key must resolve somewhere after the plan applies
	for key := range refs {
		if _, ok := newChunks[key]; ok {
			continue
		}
		if _, ok := moveSet[key]; ok {
			continue
		}
		if s.isTargetOwned(key) {
			continue
		}
		in, err := s.base.Contains(ctx, key)
		if err != nil {
			return nil, nil, fmt.Errorf("reference validation: %w", err)
		}
		if !in {
			return nil, nil, fmt.Errorf("%w: dangling reference to %s", ErrInvalidPlan, key)
		}
	}

	// chunks eliminated: previously referenced, no references left, not moved
	var eliminated []hasher.Key
	before := make(map[hasher.Key]struct{})
	for _, keys := range files {
		for _, key := range keys {
			before[key] = struct{}{}
		}
	}
	for key := range before {
		if refs[key] > 0 {
			continue
		}
		if _, moved := moveSet[key]; moved {
			return nil, nil, fmt.Errorf("%w: key %s both moved and eliminated", ErrInvalidPlan, key)
		}
		eliminated = append(eliminated, key)
	}

	for _, cluster := range plan.Clusters {
		for _, key := range cluster {
			if _, ok := newChunks[key]; ok {
				continue
			}
			if _, ok := before[key]; !ok {
				return nil, nil, fmt.Errorf("%w: cluster references unknown key %s", ErrInvalidPlan, key)
			}
		}
	}

	return rewritten, eliminated, nil
}

// applyPlan mutates the stores; validation has already passed.
func (s *chunkStorage) applyPlan(ctx context.Context, plan scrub.MigrationPlan, eliminated []hasher.Key) error {
	for _, r := range plan.Replaces {
		for _, e := range r.Chunks {
			if err := s.target.Insert(ctx, e.Key, e.Chunk); err != nil {
				return fmt.Errorf("target store insert: %w", err)
			}
			s.mu.Lock()
			if _, known := s.targetOwned[e.Key]; !known {
				s.targetOwned[e.Key] = struct{}{}
				s.seen[e.Key] = struct{}{}
				s.targetBytes += int64(len(e.Chunk))
				s.uniqueChunks++
			}
			s.mu.Unlock()
		}
	}

	for _, key := range plan.Moves {
		chunk, err := s.base.Get(ctx, key)
		if err != nil {
			return fmt.Errorf("move read %s: %w", key, err)
		}
		if err := s.target.Insert(ctx, key, chunk); err != nil {
			return fmt.Errorf("move write %s: %w", key, err)
		}
		// the ownership flip happens before the base delete: a key
		// transiently in both stores reads from the target
		s.mu.Lock()
		s.targetOwned[key] = struct{}{}
		s.baseBytes -= int64(len(chunk))
		s.targetBytes += int64(len(chunk))
		s.mu.Unlock()

		if err := s.base.Delete(ctx, key); err != nil {
			return fmt.Errorf("move delete %s: %w", key, err)
		}
	}

	for _, key := range eliminated {
		chunk, err := s.base.Get(ctx, key)
		if err != nil {
			continue // already absent from base; nothing to reclaim
		}
		if err := s.base.Delete(ctx, key); err != nil {
			return fmt.Errorf("eliminate %s: %w", key, err)
		}
		s.mu.Lock()
		delete(s.seen, key)
		s.baseBytes -= int64(len(chunk))
		s.uniqueChunks--
		if s.cache != nil {
			s.cache.Remove(key)
		}
		s.mu.Unlock()
	}

	return nil
}

func (s *chunkStorage) isTargetOwned(key hasher.Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, owned := s.targetOwned[key]
	return owned
}

// substituteRun replaces every occurrence of the contiguous run old in
// keys with repl, returning the rewritten list and whether a match was
// found. The input is never mutated.
func substituteRun(keys, old, repl []hasher.Key) ([]hasher.Key, bool) {
	if len(old) == 0 || len(old) > len(keys) {
		return keys, false
	}

	out := make([]hasher.Key, 0, len(keys))
	hit := false
	i := 0
	for i < len(keys) {
		if matchesAt(keys, old, i) {
			out = append(out, repl...)
			i += len(old)
			hit = true
			continue
		}
		out = append(out, keys[i])
		i++
	}
	if !hit {
		return keys, false
	}
	return out, true
}

func matchesAt(keys, run []hasher.Key, at int) bool {
	if at+len(run) > len(keys) {
		return false
	}
	for j, key := range run {
		if keys[at+j] != key {
			return false
		}
	}
	return true
}
