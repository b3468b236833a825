package btree

// Node is a flat word-addressed view of a single B-tree node, laid out as
// [n | value[0..M-2] | seq[0..M-2] | child[0..M-1]] with metadata at the
// front for cache locality on the common "check n, binary-search values"
// path. A nil Node (len 0) represents the absence of a node.
type Node []uint64

// Ref addresses a node: a byte offset for a DiskStore, an arena index for
// a MemStore. NilRef is the absence of a child/root/free-list entry.
type Ref int64

// NilRef is the sentinel "no node" reference, stored as -1 in word form.
const NilRef Ref = -1

func newNodeWords() Node {
	return make(Node, nodeWords)
}

// NumKeys returns the live record count n.
func (n Node) NumKeys() int { return int(n[idxN]) }

// SetNumKeys sets n.
func (n Node) SetNumKeys(k int) { n[idxN] = uint64(k) }

// Value returns the value of record i.
func (n Node) Value(i int) uint64 { return n[idxValue+i] }

// SetValue sets the value of record i.
func (n Node) SetValue(i int, v uint64) { n[idxValue+i] = v }

// Seq returns the insertion-provenance sequence number of record i.
func (n Node) Seq(i int) uint64 { return n[idxSeq+i] }

// SetSeq sets the sequence number of record i.
func (n Node) SetSeq(i int, s uint64) { n[idxSeq+i] = s }

// Child returns the i-th child reference, or NilRef.
func (n Node) Child(i int) Ref { return Ref(int64(n[idxChild+i])) }

// SetChild sets the i-th child reference.
func (n Node) SetChild(i int, r Ref) { n[idxChild+i] = uint64(int64(r)) }

// IsLeaf reports whether this node has no children. Leaves always carry
// NilRef in every child slot, so checking the first is sufficient.
func (n Node) IsLeaf() bool { return n.Child(0) == NilRef }

// search returns the smallest index i in [0, n] such that Value(i) >= value
// (lower-bound binary search, per §4.1's "intra-node search").
func (n Node) search(value uint64) int {
	lo, hi := 0, n.NumKeys()
	for lo < hi {
		mid := (lo + hi) / 2
		if n.Value(mid) < value {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}
