package tierstore

import (
	"path/filepath"
	"strconv"

	"github.com/quanla-dev/tierstore/pkg/datastructs/bloom"
	"github.com/quanla-dev/tierstore/pkg/datastructs/btree"
	"github.com/quanla-dev/tierstore/pkg/hash"
	pkgruntime "github.com/quanla-dev/tierstore/pkg/runtime"
	"github.com/quanla-dev/tierstore/pkg/settings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// tierBloomFPRate is the false-positive rate targeted for each tier's
// bloom filter. A false positive costs one wasted Tree.Search; a false
// negative is impossible by construction, so read correctness never
// depends on this value.
const tierBloomFPRate = 0.01

// bloomHash passes a value through hash.KeyToHash, whose uint64 case is an
// identity pass-through rather than a real mix like its string/[]byte cases.
// salt is XORed in first so that identity pass-through still gets a
// process-specific seed, the same property hash.KeyToHash's string/[]byte
// cases get for free from runtime.MemHash — without it, every instance of
// this engine would hash the same integer domain values identically,
// which is exactly the kind of fixed hashing a hash-flooding adversary
// could target.
func bloomHash(value, salt uint64) uint64 {
	h, _ := hash.KeyToHash(value ^ salt)
	return h
}

// BytesPerRecord is the fixed per-record byte constant used to turn a
// byte-budget construction parameter into a record-count capacity target;
// it must agree with the divisor used to size C0 (see the c0Max
// computation in New, engine.go).
const BytesPerRecord = 50

// PersistentTier is one on-disk B-tree level, C_i for i in 1..N.
type PersistentTier struct {
	Level    int
	FileName string
	Capacity int
	Store    *btree.DiskStore
	Tree     *btree.Tree
	Bloom    *bloom.Bloom // read-path skip filter; never shrinks on delete
}

// Registry holds the ordered list of persistent tiers [L_1, ..., L_N].
// It is built once at engine construction; membership never changes.
type Registry struct {
	tiers     []*PersistentTier
	bloomSalt uint64
}

// Salt returns the per-registry random value folded into every bloom
// hash computed against this registry's tiers.
func (r *Registry) Salt() uint64 { return r.bloomSalt }

// NewRegistry opens (or creates) one tier file per level under dataDir,
// deriving each level's capacity from the byte-budget ladder in §3.4:
// C_1 = firstLevelFileSize/BytesPerRecord, C_{i+1} = C_i * sizeBetweenLevels.
func NewRegistry(cfg settings.Engine, logger *zap.Logger) (*Registry, error) {
	r := &Registry{
		tiers:     make([]*PersistentTier, 0, cfg.NumberOfLevels),
		bloomSalt: pkgruntime.Unit64(),
	}

	levelFileSize := cfg.FirstLevelFileSize
	for i := 1; i <= cfg.NumberOfLevels; i++ {
		fileName := filepath.Join(cfg.DataDir, "c"+strconv.Itoa(i)+".bin")
		store, err := btree.OpenDiskStore(fileName)
		if err != nil {
			r.Close()
			return nil, errors.Wrapf(err, "opening tier %d file %s", i, fileName)
		}

		tier := &PersistentTier{
			Level:    i,
			FileName: fileName,
			Capacity: int(levelFileSize / BytesPerRecord),
			Store:    store,
			Tree:     btree.New(store),
		}
		bloomCapacity := uint64(tier.Capacity)
		if bloomCapacity == 0 {
			bloomCapacity = 1
		}
		tier.Bloom, err = bloom.New(bloomCapacity, tierBloomFPRate)
		if err != nil {
			r.Close()
			return nil, errors.Wrapf(err, "building bloom filter for tier %d", i)
		}
		r.tiers = append(r.tiers, tier)
		logger.Info("opened tier",
			zap.Int("level", i),
			zap.String("file", fileName),
			zap.Int("capacity", tier.Capacity),
		)

		levelFileSize *= int64(cfg.SizeBetweenLevels)
	}

	return r, nil
}

// Tiers returns the ordered [L_1..L_N] slice; callers must not mutate it.
func (r *Registry) Tiers() []*PersistentTier { return r.tiers }

// Tier returns the level-th tier (1-based), or nil if out of range.
func (r *Registry) Tier(level int) *PersistentTier {
	if level < 1 || level > len(r.tiers) {
		return nil
	}
	return r.tiers[level-1]
}

// Close closes every tier file, rewriting its header per §3.8. The first
// error encountered is returned; Close still attempts every tier.
func (r *Registry) Close() error {
	var first error
	for _, t := range r.tiers {
		if t == nil || t.Store == nil {
			continue
		}
		if err := t.Store.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
