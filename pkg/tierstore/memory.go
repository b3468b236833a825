package tierstore

import (
	"github.com/quanla-dev/tierstore/pkg/datastructs/btree"
	"github.com/quanla-dev/tierstore/pkg/datastructs/buffer"
	"github.com/quanla-dev/tierstore/pkg/utils"
)

// MemoryTier is C0, configurable as either an ordered in-memory B-tree or
// an unordered append buffer, per §3.5.
type MemoryTier interface {
	Insert(value, key uint64) bool // false on duplicate
	Delete(value uint64) bool      // false if absent
	Search(value uint64) bool
	Count() int
	// Drain removes up to n records and invokes fn(value) for each, in an
	// implementation-defined order; records past the first n stay in C0.
	// Used by the rolling merge to move part or all of C0's contents.
	Drain(n int, fn func(value uint64))
}

// orderedMemoryTier is C0DataStructure == 1: an in-memory B-tree of the
// same shape as a persistent tier, with process-memory child references.
type orderedMemoryTier struct {
	tree *btree.Tree
}

// NewOrderedMemoryTier returns the ordered C0 variant.
func NewOrderedMemoryTier() MemoryTier {
	return &orderedMemoryTier{tree: btree.New(btree.NewMemStore())}
}

func (m *orderedMemoryTier) Insert(value, key uint64) bool {
	return m.tree.Insert(value, key) == btree.Success
}

func (m *orderedMemoryTier) Delete(value uint64) bool {
	return m.tree.Delete(value) == btree.Success
}

func (m *orderedMemoryTier) Search(value uint64) bool {
	return m.tree.Search(value)
}

func (m *orderedMemoryTier) Count() int {
	return m.tree.Count()
}

// Drain repeatedly takes the minimum value and deletes it, handing each
// to fn in ascending order. The B-tree has no separate in-order iterator,
// but Min+Delete is the same O(log n) descent insert already pays, so
// draining n records costs no more asymptotically than inserting them did.
func (m *orderedMemoryTier) Drain(n int, fn func(value uint64)) {
	for i := 0; i < n; i++ {
		v, ok := m.tree.Min()
		if !ok {
			return
		}
		fn(v)
		m.tree.Delete(v)
	}
}

// bufferMemoryTier is C0DataStructure == 2: an unordered append sequence
// with capacity pre-reserved at construction, per §3.5 option 2 and
// §4.2's "buffer variant".
type bufferMemoryTier struct {
	buf *buffer.Buffer
	n   int
}

// NewBufferMemoryTier returns the buffer C0 variant with capacity
// pre-reserved for c0Max records (8 bytes/value plus an 8-byte length
// header per slice.go's block format).
func NewBufferMemoryTier(c0Max int) MemoryTier {
	const bytesPerRecord = 16 // 8B length header + 8B value, per slice.go
	return &bufferMemoryTier{buf: buffer.New(c0Max * bytesPerRecord)}
}

func (m *bufferMemoryTier) Insert(value, _ uint64) bool {
	if m.Search(value) {
		return false
	}
	m.buf.WriteSlice(utils.Uint64ToBytes(value))
	m.n++
	return true
}

func (m *bufferMemoryTier) Delete(value uint64) bool {
	found := false
	rebuilt := buffer.New(m.buf.LenNoPadding())
	m.buf.SliceIterate(func(p []byte) error {
		v := utils.BytesToUint64(p)
		if !found && v == value {
			found = true
			return nil
		}
		rebuilt.WriteSlice(p)
		return nil
	})
	if found {
		m.buf = rebuilt
		m.n--
	}
	return found
}

func (m *bufferMemoryTier) Search(value uint64) bool {
	found := false
	m.buf.SliceIterate(func(p []byte) error {
		if utils.BytesToUint64(p) == value {
			found = true
		}
		return nil
	})
	return found
}

func (m *bufferMemoryTier) Count() int { return m.n }

// Drain hands the first n stored values to fn in append order and rebuilds
// the buffer from whatever is left, so a partial drain (to_move < occupancy,
// per §4.4.1) keeps the untouched tail rather than losing it. When n covers
// everything this degenerates to a single Reset, matching §4.4.1's "the
// implementation may batch-drain the buffer variant by clearing C0 once
// all values have been inserted into C1".
func (m *bufferMemoryTier) Drain(n int, fn func(value uint64)) {
	if n <= 0 {
		return
	}
	if n >= m.n {
		m.buf.SliceIterate(func(p []byte) error {
			fn(utils.BytesToUint64(p))
			return nil
		})
		m.buf.Reset()
		m.n = 0
		return
	}

	moved := 0
	rebuilt := buffer.New(m.buf.LenNoPadding())
	m.buf.SliceIterate(func(p []byte) error {
		if moved < n {
			fn(utils.BytesToUint64(p))
			moved++
			return nil
		}
		rebuilt.WriteSlice(p)
		return nil
	})
	m.buf = rebuilt
	m.n -= moved
}
