package tierstore

import (
	"testing"
	"time"

	"github.com/quanla-dev/tierstore/pkg/settings"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRegistry(t *testing.T, cfg settings.Engine) *Registry {
	t.Helper()
	cfg.DataDir = t.TempDir()
	reg, err := NewRegistry(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { reg.Close() })
	return reg
}

func TestMergeEngine_RollingMergeC0_FitsWithoutCascade(t *testing.T) {
	cfg := settings.Engine{
		NumberOfLevels:     3,
		FirstLevelFileSize: 1000, // C_1 = 20
		SizeBetweenLevels:  2,
		CopyAllFromC0:      true,
		MergeStrategy:      2,
	}
	reg := newTestRegistry(t, cfg)
	me, err := NewMergeEngine(reg, cfg, zap.NewNop())
	require.NoError(t, err)

	c0 := NewOrderedMemoryTier()
	for i := uint64(1); i <= 10; i++ {
		c0.Insert(i, i)
	}

	require.NoError(t, me.RollingMergeC0(c0))
	require.Equal(t, 0, c0.Count())
	require.Equal(t, 10, reg.Tier(1).Tree.Count())
	require.Equal(t, 0, reg.Tier(2).Tree.Count())
}

func TestMergeEngine_RollingMergeC0_CascadesOnOverflow(t *testing.T) {
	cfg := settings.Engine{
		NumberOfLevels:     3,
		FirstLevelFileSize: 500, // C_1 = 10
		SizeBetweenLevels:  2,   // C_2 = 20
		CopyAllFromC0:      true,
		MergeStrategy:      2,
	}
	reg := newTestRegistry(t, cfg)
	me, err := NewMergeEngine(reg, cfg, zap.NewNop())
	require.NoError(t, err)

	c0 := NewOrderedMemoryTier()
	for i := uint64(1); i <= 25; i++ {
		c0.Insert(i, i)
	}

	require.NoError(t, me.RollingMergeC0(c0))
	require.Equal(t, 0, c0.Count())
	require.LessOrEqual(t, reg.Tier(1).Tree.Count(), reg.Tier(1).Capacity)

	total := reg.Tier(1).Tree.Count() + reg.Tier(2).Tree.Count() + reg.Tier(3).Tree.Count()
	require.Equal(t, 25, total)
}

func TestMergeEngine_CascadeOverflowsFinalTierWithoutError(t *testing.T) {
	cfg := settings.Engine{
		NumberOfLevels:     2,
		FirstLevelFileSize: 250, // C_1 = 5
		SizeBetweenLevels:  2,   // C_2 = 10
		CopyAllFromC0:      true,
		MergeStrategy:      2,
	}
	reg := newTestRegistry(t, cfg)
	me, err := NewMergeEngine(reg, cfg, zap.NewNop())
	require.NoError(t, err)

	c0 := NewOrderedMemoryTier()
	for i := uint64(1); i <= 30; i++ {
		c0.Insert(i, i)
	}

	require.NoError(t, me.RollingMergeC0(c0))
	total := reg.Tier(1).Tree.Count() + reg.Tier(2).Tree.Count()
	require.Equal(t, 30, total)
	require.Greater(t, reg.Tier(2).Tree.Count(), reg.Tier(2).Capacity)
}

func TestMergeEngine_ThreadedCascadeEventuallyCompletes(t *testing.T) {
	cfg := settings.Engine{
		NumberOfLevels:       3,
		FirstLevelFileSize:   500,
		SizeBetweenLevels:    2,
		CopyAllFromC0:        true,
		MergeStrategy:        2,
		ThreadedRollingMerge: true,
	}
	reg := newTestRegistry(t, cfg)
	me, err := NewMergeEngine(reg, cfg, zap.NewNop())
	require.NoError(t, err)
	defer me.Shutdown()

	c0 := NewOrderedMemoryTier()
	for i := uint64(1); i <= 25; i++ {
		c0.Insert(i, i)
	}

	require.NoError(t, me.RollingMergeC0(c0))

	require.Eventually(t, func() bool {
		return !me.mergeInProgress.Load()
	}, time.Second, time.Millisecond)

	total := reg.Tier(1).Tree.Count() + reg.Tier(2).Tree.Count() + reg.Tier(3).Tree.Count()
	require.Equal(t, 25, total)
}

func TestMergeEngine_RejectsUnsupportedStrategy(t *testing.T) {
	cfg := settings.Engine{
		NumberOfLevels:     1,
		FirstLevelFileSize: 1000,
		SizeBetweenLevels:  2,
		MergeStrategy:      1,
	}
	reg := newTestRegistry(t, cfg)

	_, err := NewMergeEngine(reg, cfg, zap.NewNop())
	require.ErrorIs(t, err, ErrMergeStrategyUnsupported)
}
