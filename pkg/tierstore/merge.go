package tierstore

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/quanla-dev/tierstore/pkg/datastructs/bloom"
	"github.com/quanla-dev/tierstore/pkg/datastructs/btree"
	pkgruntime "github.com/quanla-dev/tierstore/pkg/runtime"
	"github.com/quanla-dev/tierstore/pkg/settings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	mergeSpinCycles = 4
	mergeSpinTries  = 30
)

// mergeJob is a cascading merge awaiting the detached worker, per §9's
// design note replacing the source's detach-and-spin with a single
// worker pulling from a 1-slot channel.
type mergeJob struct {
	sourceLevel int // 1-based; cascade starts at sourceLevel+1
	toPass      int
}

// MergeEngine drives C0->C1 rolling merges and C_i->C_{i+1} cascades
// (§4.4), either inline on the caller's goroutine or on a single detached
// background worker when ThreadedRollingMerge is set.
type MergeEngine struct {
	registry *Registry
	cfg      settings.Engine
	logger   *zap.Logger

	mergeInProgress atomic.Bool
	mergeMu         sync.Mutex

	jobs chan mergeJob
	done chan struct{}
	eg   *errgroup.Group
}

// NewMergeEngine validates the merge strategy and, if threaded cascades
// are enabled, starts the single background worker.
func NewMergeEngine(registry *Registry, cfg settings.Engine, logger *zap.Logger) (*MergeEngine, error) {
	if cfg.MergeStrategy != 2 {
		return nil, ErrMergeStrategyUnsupported
	}

	m := &MergeEngine{
		registry: registry,
		cfg:      cfg,
		logger:   logger,
		jobs:     make(chan mergeJob, 1),
		done:     make(chan struct{}),
	}

	if cfg.ThreadedRollingMerge {
		m.eg, _ = errgroup.WithContext(context.Background())
		m.eg.Go(m.runWorker)
	}

	return m, nil
}

func (m *MergeEngine) runWorker() error {
	for {
		select {
		case <-m.done:
			return nil
		case job := <-m.jobs:
			m.mergeMu.Lock()
			if err := m.cascade(job.sourceLevel, job.toPass); err != nil {
				m.logger.Warn("detached cascade failed", zap.Error(err))
			}
			m.mergeMu.Unlock()
			m.mergeInProgress.Store(false)
		}
	}
}

// waitIdle spin-waits, yielding the scheduler after a short active-spin
// ladder, until no detached cascade is in flight. Matches the source's
// "busy wait with yield" semantics (§4.4.3, §9) via the teacher's
// Procyield idiom instead of a condition variable.
func (m *MergeEngine) waitIdle() {
	for spin := 0; m.mergeInProgress.Load(); spin++ {
		if spin < mergeSpinTries {
			pkgruntime.Procyield(mergeSpinCycles)
		} else {
			runtime.Gosched()
			spin = 0
		}
	}
}

// RollingMergeC0 migrates records out of c0 into C1 per §4.4.1, cascading
// into deeper tiers if C1 overflows.
func (m *MergeEngine) RollingMergeC0(c0 MemoryTier) error {
	m.waitIdle()

	c1 := m.registry.Tier(1)
	if c1 == nil {
		return nil
	}

	// cap1 is the room left in C1, not its raw capacity: the source compares
	// the batch size against C_1 itself, which on repeated rolling merges
	// with the same occupancy never changes and so never cascades, violating
	// the tier-capacity invariant (§8.1 property 6) the moment a second
	// merge lands on an already-full C1. Computing against remaining room
	// keeps every quiescent tier under its target.
	occ := c0.Count()
	room := c1.Capacity - c1.Tree.Count()
	var toMove, cap1 int
	if m.cfg.CopyAllFromC0 {
		toMove = occ
		cap1 = room
	} else {
		toMove = int(float64(occ) * m.cfg.C0PercentageToCopy)
		cap1 = int(float64(room) * m.cfg.C0PercentageToCopy)
	}
	if toMove <= 0 {
		return nil
	}

	var migrationKey uint64
	c0.Drain(toMove, func(value uint64) {
		migrationKey++
		c1.Tree.Insert(value, migrationKey)
		c1.Bloom.Add(bloomHash(value, m.registry.Salt()))
	})

	m.logger.Info("rolling merge c0->c1", zap.Int("moved", toMove))

	if cap1 >= toMove {
		return nil
	}

	surplus := c1.Tree.Count() - c1.Capacity
	if surplus <= 0 {
		return nil
	}

	if m.cfg.ThreadedRollingMerge {
		return m.detachCascade(1, surplus)
	}
	return m.cascade(1, surplus)
}

func (m *MergeEngine) detachCascade(sourceLevel, toPass int) error {
	m.mergeInProgress.Store(true)
	select {
	case m.jobs <- mergeJob{sourceLevel: sourceLevel, toPass: toPass}:
		return nil
	default:
		// Worker not keeping up (job already queued); fall back to inline
		// so a write is never lost waiting on a full 1-slot channel.
		m.mergeInProgress.Store(false)
		return m.cascade(sourceLevel, toPass)
	}
}

// cascade implements §4.4.2: for each tier after sourceLevel, move toPass
// records in; if the destination has room for all of them, stop, else
// recompute the overflow and continue to the next tier. If the final tier
// overflows, the surplus is retained and logged, never surfaced as an
// error (§7, "capacity exceeded at final tier" is a soft error).
func (m *MergeEngine) cascade(sourceLevel, toPass int) error {
	m.logger.Info("cascade started", zap.Int("source_level", sourceLevel), zap.Int("to_pass", toPass))

	tiers := m.registry.Tiers()
	for j := sourceLevel; j < len(tiers); j++ {
		src := tiers[j-1]
		dst := tiers[j]

		room := dst.Capacity - dst.Tree.Count()
		moveRecords(src.Tree, dst.Tree, toPass, dst.Bloom, m.registry.Salt())

		if room >= toPass {
			m.logger.Info("cascade finished", zap.Int("destination_level", dst.Level))
			return nil
		}
		toPass = dst.Tree.Count() - dst.Capacity
	}

	m.logger.Warn("final tier exceeded capacity; retaining overflow",
		zap.Int("level", tiers[len(tiers)-1].Level),
		zap.Int("overflow", toPass),
	)
	return nil
}

// moveRecords migrates up to n records from src to dst in natural B-tree
// order, preserving value and assigning key from a migration-local
// counter (§4.4.2's "overwriting key from the migration counter"). Each
// Min/Insert/Delete call re-acquires the destination and source's node
// mutex independently, matching "re-read the root through the node mutex
// between successive moves".
func moveRecords(src, dst *btree.Tree, n int, dstBloom *bloom.Bloom, salt uint64) {
	var migrationKey uint64
	for i := 0; i < n; i++ {
		value, ok := src.Min()
		if !ok {
			return
		}
		migrationKey++
		dst.Insert(value, migrationKey)
		dstBloom.Add(bloomHash(value, salt))
		src.Delete(value)
	}
}

// Shutdown joins the background worker, if one was started, after
// observing merge_in_progress == idle (§5, "the engine's shutdown must
// observe merge_in_progress == idle before destructing tier state").
func (m *MergeEngine) Shutdown() error {
	m.waitIdle()
	close(m.done)
	if m.eg != nil {
		return m.eg.Wait()
	}
	return nil
}
