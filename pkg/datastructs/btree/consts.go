package btree

// M is the B-tree order: the maximum number of children a node may have.
// A node holds at most M-1 records.
const M = 20

const (
	numValueSlots = M - 1
	numChildSlots = M

	idxN     = 0
	idxValue = idxN + 1
	idxSeq   = idxValue + numValueSlots
	idxChild = idxSeq + numValueSlots

	// nodeWords is the total []uint64 length of a node: n, M-1 values,
	// M-1 sequence numbers, M child refs.
	nodeWords = idxChild + numChildSlots

	// nodeBytes is the on-disk/wire size of a node record.
	nodeBytes = nodeWords * 8

	// minKeys is floor((M-1)/2), the minimum record count for a non-root
	// node before it is in underflow. It equals the left half of a split,
	// and an underflowed child (minKeys-1) plus the pivot plus a sibling
	// at minKeys still fits in one node of M-1 records when merged.
	minKeys = numValueSlots / 2
)
