package tierstore

import (
	"sync"

	"github.com/quanla-dev/tierstore/pkg/datastructs/buffer"
	"github.com/quanla-dev/tierstore/pkg/utils"
)

// tombstoneLog is the append-only set of values the router treats as
// logically absent when readOptimized is enabled (§3.6), grounded on the
// same append-buffer/linear-scan idiom as the buffer memory tier variant.
type tombstoneLog struct {
	mu  sync.Mutex
	buf *buffer.Buffer
}

func newTombstoneLog() *tombstoneLog {
	return &tombstoneLog{buf: buffer.New(256)}
}

// Add marks value as tombstoned.
func (t *tombstoneLog) Add(value uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf.WriteSlice(utils.Uint64ToBytes(value))
}

// Remove clears a prior tombstone on value, if one exists, matching
// insert_value's "if the value is in the tombstone log, remove it".
func (t *tombstoneLog) Remove(value uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	found := false
	rebuilt := buffer.New(t.buf.LenNoPadding())
	t.buf.SliceIterate(func(p []byte) error {
		if !found && utils.BytesToUint64(p) == value {
			found = true
			return nil
		}
		rebuilt.WriteSlice(p)
		return nil
	})
	if found {
		t.buf = rebuilt
	}
}

// Contains reports whether value currently has a tombstone.
func (t *tombstoneLog) Contains(value uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	found := false
	t.buf.SliceIterate(func(p []byte) error {
		if utils.BytesToUint64(p) == value {
			found = true
		}
		return nil
	})
	return found
}
