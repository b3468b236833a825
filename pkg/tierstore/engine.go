package tierstore

import (
	"sync"
	"sync/atomic"

	"github.com/quanla-dev/tierstore/pkg/settings"

	"go.uber.org/zap"
)

// Stats is a snapshot of engine occupancy, returned by Engine.Stats for
// callers that want a structured view instead of textual output (out of
// scope per spec.md's Non-goals).
type Stats struct {
	C0Count      int
	TierCounts   []int
	KeyCounter   uint64
	RangeSet     bool
	MinSeen      uint64
	MaxSeen      uint64
}

// Engine is the public operation router (§4.5): it owns the memory tier,
// the persistent tier registry, the merge engine, and — when readOptimized
// is set — the tombstone log and range summary.
type Engine struct {
	cfg    settings.Engine
	logger *zap.Logger

	mu      sync.Mutex // serializes router-level decisions (occupancy check + trigger)
	c0      MemoryTier
	c0Count int
	c0Max   int

	registry *Registry
	merge    *MergeEngine

	keyCounter atomic.Uint64

	readOptimized bool
	tombstones    *tombstoneLog
	ranges        *rangeSummary
}

// New constructs an Engine from cfg, validating every constructor
// argument first (§7: "Invalid constructor argument ... Abort
// construction"). Tier files under cfg.Engine.DataDir are opened
// immediately; callers must call Close to release them.
func New(cfg settings.Config, logger *zap.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	eng := cfg.Engine

	registry, err := NewRegistry(eng, logger)
	if err != nil {
		return nil, err
	}

	merge, err := NewMergeEngine(registry, eng, logger)
	if err != nil {
		registry.Close()
		return nil, err
	}

	// c0Max follows the source exactly: firstLevelFileSize is a raw byte
	// budget here, not the already-divided C_1 record count (§3.5's
	// wording is ambiguous on this point; original_source/LsmTree.cpp's
	// constructor resolves it as one division by BytesPerRecord).
	c0Max := int(float64(eng.FirstLevelFileSize) * eng.C0PercentageOfC1 / float64(BytesPerRecord))
	if c0Max < 1 {
		c0Max = 1
	}

	var c0 MemoryTier
	if eng.C0DataStructure == 1 {
		c0 = NewOrderedMemoryTier()
	} else {
		c0 = NewBufferMemoryTier(c0Max)
	}

	e := &Engine{
		cfg:           eng,
		logger:        logger,
		c0:            c0,
		c0Max:         c0Max,
		registry:      registry,
		merge:         merge,
		readOptimized: eng.ReadOptimized,
	}
	if eng.ReadOptimized {
		e.tombstones = newTombstoneLog()
		e.ranges = &rangeSummary{}
	}
	return e, nil
}

// GetKeyCounter issues a fresh monotonically-increasing key (§6.3),
// independent of the per-move migration counters the merge engine uses
// internally. A plain atomic.Uint64 is sufficient — the source's snowflake
// generator solves cross-node uniqueness this engine doesn't need.
func (e *Engine) GetKeyCounter() uint64 {
	return e.keyCounter.Add(1)
}

// InsertValue implements §4.5's insert(v).
func (e *Engine) InsertValue(value uint64) {
	if e.readOptimized {
		e.tombstones.Remove(value)
		e.ranges.observe(value)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.c0Count >= e.c0Max {
		if err := e.merge.RollingMergeC0(e.c0); err != nil {
			e.logger.Warn("rolling merge failed", zap.Error(err))
		}
		e.c0Count = 0
	}

	e.c0.Insert(value, e.GetKeyCounter())
	e.c0Count++
}

// DeleteValue implements §4.5's delete(v).
func (e *Engine) DeleteValue(value uint64) {
	if e.readOptimized {
		e.tombstones.Add(value)
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.c0.Delete(value)
	for _, tier := range e.registry.Tiers() {
		tier.Tree.Delete(value)
	}
}

// UpdateValue implements §4.5's update(old, new).
func (e *Engine) UpdateValue(oldValue, newValue uint64) {
	if e.readOptimized {
		e.tombstones.Add(oldValue)
		e.InsertValue(newValue)
		return
	}

	e.mu.Lock()
	e.c0.Delete(oldValue)
	for _, tier := range e.registry.Tiers() {
		tier.Tree.Delete(oldValue)
	}
	e.mu.Unlock()

	e.InsertValue(newValue)
}

// ReadValue implements §4.5's read(v). A tombstone hit returns false
// (not present) per §9 open question 1 — the source's BTree-variant
// branch returning true there is a documented bug, not replicated here.
func (e *Engine) ReadValue(value uint64) bool {
	if e.readOptimized {
		if e.ranges.outOfRange(value) {
			return false
		}
		if e.tombstones.Contains(value) {
			return false
		}
	}

	if e.c0.Search(value) {
		return true
	}
	h := bloomHash(value, e.registry.Salt())
	for _, tier := range e.registry.Tiers() {
		if !tier.Bloom.Has(h) {
			continue
		}
		if tier.Tree.Search(value) {
			return true
		}
	}
	return false
}

// Stats returns a structured snapshot of engine occupancy.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	tiers := e.registry.Tiers()
	counts := make([]int, len(tiers))
	for i, t := range tiers {
		counts[i] = t.Tree.Count()
	}

	s := Stats{
		C0Count:    e.c0.Count(),
		TierCounts: counts,
		KeyCounter: e.keyCounter.Load(),
	}
	if e.ranges != nil {
		e.ranges.mu.Lock()
		s.RangeSet, s.MinSeen, s.MaxSeen = e.ranges.set, e.ranges.minSeen, e.ranges.maxSeen
		e.ranges.mu.Unlock()
	}
	return s
}

// Close joins the merge engine's background worker (observing
// merge_in_progress == idle first) and closes every tier file, rewriting
// its header (§3.8, §5).
func (e *Engine) Close() error {
	if err := e.merge.Shutdown(); err != nil {
		return err
	}
	return e.registry.Close()
}
