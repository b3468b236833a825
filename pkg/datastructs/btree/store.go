package btree

// Store backs a Tree with node storage: an in-process arena (MemStore) for
// the ordered C0 memory tier, or a paged file (DiskStore) for a persistent
// tier. Node I/O never exposes raw offsets to Tree's algorithms beyond the
// opaque Ref they're handed back.
type Store interface {
	// Root returns the current root reference, or NilRef if empty.
	Root() Ref
	// SetRoot installs a new root reference.
	SetRoot(Ref)

	// ReadNode returns the node at ref. ref must not be NilRef.
	ReadNode(Ref) Node
	// WriteNode persists node at ref.
	WriteNode(Ref, Node)

	// NewNode allocates a zeroed node, popping the free list if
	// non-empty, else growing the backing store. Returns its ref.
	NewNode() (Ref, Node)
	// FreeNode threads ref onto the free list via its first child slot.
	FreeNode(Ref)

	// Close releases resources held by the store.
	Close() error
}
