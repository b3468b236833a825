// Package btree implements the fixed-order B-tree shared by every tier:
// the persistent C1..CN tiers run it over a DiskStore, the ordered C0
// memory tier runs it over a MemStore. Split, delete, borrow and merge
// follow the same node-mutex discipline regardless of backing Store.
package btree

import "sync"

// Tree is the order-M B-tree algorithm, parameterized over a Store. All
// node I/O on this tree serializes through mu, matching the "per-tier node
// mutex" concurrency model: held for at most one node read or write, with
// a multi-node descent re-acquiring it repeatedly.
type Tree struct {
	mu    sync.Mutex
	store Store
}

// New wraps store with the B-tree algorithms.
func New(store Store) *Tree {
	return &Tree{store: store}
}

func (t *Tree) rootRef() Ref {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.store.Root()
}

func (t *Tree) setRoot(ref Ref) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.store.SetRoot(ref)
}

func (t *Tree) readNode(ref Ref) Node {
	if ref == NilRef {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.store.ReadNode(ref)
}

func (t *Tree) writeNode(ref Ref, n Node) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.store.WriteNode(ref, n)
}

func (t *Tree) newNode() (Ref, Node) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.store.NewNode()
}

func (t *Tree) freeNode(ref Ref) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.store.FreeNode(ref)
}

// Close releases the underlying store.
func (t *Tree) Close() error {
	return t.store.Close()
}

type insertResult struct {
	outcome Outcome
	value   uint64
	key     uint64
	child   Ref
}

// Insert adds (value, key) to the tree. key carries only insertion
// provenance; ordering and duplicate detection use value alone. Inserting
// an existing value is a silent no-op (DuplicateKey), per §3.1.
func (t *Tree) Insert(value, key uint64) Outcome {
	res := t.insert(t.rootRef(), value, key)
	switch res.outcome {
	case DuplicateKey:
		return DuplicateKey
	case InsertNotComplete:
		oldRoot := t.rootRef()
		newRootRef, newRoot := t.newNode()
		newRoot.SetNumKeys(1)
		newRoot.SetValue(0, res.value)
		newRoot.SetSeq(0, res.key)
		newRoot.SetChild(0, oldRoot)
		newRoot.SetChild(1, res.child)
		t.setRoot(newRootRef)
		t.writeNode(newRootRef, newRoot)
		return Success
	default:
		return Success
	}
}

// insert recursively descends to a leaf and attempts a local insert,
// splitting on overflow and propagating the median upward, per §4.1.
func (t *Tree) insert(ref Ref, value, key uint64) insertResult {
	if ref == NilRef {
		return insertResult{outcome: InsertNotComplete, value: value, key: key, child: NilRef}
	}

	node := t.readNode(ref)
	n := node.NumKeys()
	i := node.search(value)
	if i < n && node.Value(i) == value {
		return insertResult{outcome: DuplicateKey}
	}

	res := t.insert(node.Child(i), value, key)
	if res.outcome != InsertNotComplete {
		return res
	}

	node = t.readNode(ref)
	n = node.NumKeys()
	xNewValue, xNewKey, pNew := res.value, res.key, res.child
	i = node.search(xNewValue)

	if n < numValueSlots {
		for j := n; j > i; j-- {
			node.SetValue(j, node.Value(j-1))
			node.SetSeq(j, node.Seq(j-1))
			node.SetChild(j+1, node.Child(j))
		}
		node.SetValue(i, xNewValue)
		node.SetSeq(i, xNewKey)
		node.SetChild(i+1, pNew)
		node.SetNumKeys(n + 1)
		t.writeNode(ref, node)
		return insertResult{outcome: Success}
	}

	// Node is full: split. Determine the augmented rightmost pair first.
	var kFinalValue, kFinalKey uint64
	var pFinal Ref
	if i == numValueSlots {
		kFinalValue, kFinalKey, pFinal = xNewValue, xNewKey, pNew
	} else {
		kFinalValue = node.Value(numValueSlots - 1)
		kFinalKey = node.Seq(numValueSlots - 1)
		pFinal = node.Child(numValueSlots)
		for j := numValueSlots - 1; j > i; j-- {
			node.SetValue(j, node.Value(j-1))
			node.SetSeq(j, node.Seq(j-1))
			node.SetChild(j+1, node.Child(j))
		}
		node.SetValue(i, xNewValue)
		node.SetSeq(i, xNewKey)
		node.SetChild(i+1, pNew)
	}

	h := numValueSlots / 2
	promotedValue, promotedKey := node.Value(h), node.Seq(h)

	newRef, newNode := t.newNode()
	node.SetNumKeys(h)

	rightCount := numValueSlots - h
	newNode.SetNumKeys(rightCount)
	for j := 0; j < rightCount; j++ {
		newNode.SetChild(j, node.Child(j+h+1))
		if j < rightCount-1 {
			newNode.SetValue(j, node.Value(j+h+1))
			newNode.SetSeq(j, node.Seq(j+h+1))
		} else {
			newNode.SetValue(j, kFinalValue)
			newNode.SetSeq(j, kFinalKey)
		}
	}
	newNode.SetChild(rightCount, pFinal)

	t.writeNode(ref, node)
	t.writeNode(newRef, newNode)

	return insertResult{outcome: InsertNotComplete, value: promotedValue, key: promotedKey, child: newRef}
}

// Search reports whether value is present, per §4.1's iterative descent.
func (t *Tree) Search(value uint64) bool {
	ref := t.rootRef()
	for ref != NilRef {
		node := t.readNode(ref)
		n := node.NumKeys()
		i := node.search(value)
		if i < n && node.Value(i) == value {
			return true
		}
		ref = node.Child(i)
	}
	return false
}

// Count returns the number of live records reachable from the root, via a
// depth-first traversal summing n across all reachable nodes.
func (t *Tree) Count() int {
	return t.count(t.rootRef())
}

func (t *Tree) count(ref Ref) int {
	if ref == NilRef {
		return 0
	}
	node := t.readNode(ref)
	n := node.NumKeys()
	total := n
	for i := 0; i <= n; i++ {
		total += t.count(node.Child(i))
	}
	return total
}

// Min returns the smallest value in the tree, or ok=false if empty. Used
// by the memory tier's rolling-merge drain, which has no separate
// in-order iterator and instead repeatedly takes the minimum.
func (t *Tree) Min() (uint64, bool) {
	ref := t.rootRef()
	if ref == NilRef {
		return 0, false
	}
	for {
		node := t.readNode(ref)
		child := node.Child(0)
		if child == NilRef {
			return node.Value(0), true
		}
		ref = child
	}
}

// Delete removes value if present. Deleting an absent value is a silent
// NotFound, per §3.1/§7.
func (t *Tree) Delete(value uint64) Outcome {
	code := t.delete(t.rootRef(), value)
	if code == Underflow {
		root := t.rootRef()
		node := t.readNode(root)
		newRoot := node.Child(0)
		t.freeNode(root)
		t.setRoot(newRoot)
		return Success
	}
	return code
}

// delete implements §4.1's recursive descent: interior hits are swapped
// down to a leaf, leaves shrink in place, and underflowing children are
// borrowed-from or merged on the way back up.
func (t *Tree) delete(ref Ref, value uint64) Outcome {
	if ref == NilRef {
		return NotFound
	}

	node := t.readNode(ref)
	n := node.NumKeys()
	i := node.search(value)

	if node.IsLeaf() {
		if i == n || node.Value(i) != value {
			return NotFound
		}
		for j := i + 1; j < n; j++ {
			node.SetValue(j-1, node.Value(j))
			node.SetSeq(j-1, node.Seq(j))
			node.SetChild(j, node.Child(j+1))
		}
		node.SetNumKeys(n - 1)
		t.writeNode(ref, node)
		return successOrUnderflow(node.NumKeys(), ref == t.rootRef())
	}

	if i < n && node.Value(i) == value {
		leafRef, leaf := t.rightmostDescendant(node.Child(i))
		nq := leaf.NumKeys()
		swapValue, swapKey := leaf.Value(nq-1), leaf.Seq(nq-1)
		origKey := node.Seq(i)
		leaf.SetValue(nq-1, value)
		leaf.SetSeq(nq-1, origKey)
		node.SetValue(i, swapValue)
		node.SetSeq(i, swapKey)
		t.writeNode(ref, node)
		t.writeNode(leafRef, leaf)
	}

	code := t.delete(node.Child(i), value)
	if code != Underflow {
		return code
	}

	node = t.readNode(ref)
	n = node.NumKeys()

	if i > 0 {
		pivot := i - 1
		leftRef := node.Child(pivot)
		left := t.readNode(leftRef)
		if left.NumKeys() > minKeys {
			t.borrowFromLeft(ref, node, i, pivot, leftRef, left)
			return Success
		}
	}

	if i < n {
		pivot := i
		rightRef := node.Child(pivot + 1)
		right := t.readNode(rightRef)
		if right.NumKeys() > minKeys {
			t.borrowFromRight(ref, node, pivot, rightRef, right)
			return Success
		}
	}

	pivot := i
	if i == n {
		pivot = i - 1
	}
	t.mergeChildren(ref, node, i, pivot)

	node = t.readNode(ref)
	return successOrUnderflow(node.NumKeys(), ref == t.rootRef())
}

func successOrUnderflow(n int, isRoot bool) Outcome {
	min := minKeys
	if isRoot {
		min = 1
	}
	if n >= min {
		return Success
	}
	return Underflow
}

// rightmostDescendant follows rightmost children from ref down to a leaf,
// returning that leaf's ref and node.
func (t *Tree) rightmostDescendant(ref Ref) (Ref, Node) {
	for {
		node := t.readNode(ref)
		next := node.Child(node.NumKeys())
		if next == NilRef {
			return ref, node
		}
		ref = next
	}
}

// borrowFromLeft moves the parent pivot down into right's leftmost slot
// and the left sibling's rightmost record up into the pivot slot.
func (t *Tree) borrowFromLeft(parentRef Ref, parent Node, childIdx, pivot int, leftRef Ref, left Node) {
	rightRef := parent.Child(childIdx)
	right := t.readNode(rightRef)
	rn := right.NumKeys()

	right.SetChild(rn+1, right.Child(rn))
	for j := rn; j > 0; j-- {
		right.SetValue(j, right.Value(j-1))
		right.SetSeq(j, right.Seq(j-1))
		right.SetChild(j, right.Child(j-1))
	}
	right.SetNumKeys(rn + 1)
	right.SetValue(0, parent.Value(pivot))
	right.SetSeq(0, parent.Seq(pivot))
	right.SetChild(0, left.Child(left.NumKeys()))

	ln := left.NumKeys() - 1
	parent.SetValue(pivot, left.Value(ln))
	parent.SetSeq(pivot, left.Seq(ln))
	left.SetNumKeys(ln)

	t.writeNode(leftRef, left)
	t.writeNode(rightRef, right)
	t.writeNode(parentRef, parent)
}

// borrowFromRight is the symmetric operation to borrowFromLeft.
func (t *Tree) borrowFromRight(parentRef Ref, parent Node, pivot int, rightRef Ref, right Node) {
	leftRef := parent.Child(pivot)
	left := t.readNode(leftRef)
	ln := left.NumKeys()

	left.SetValue(ln, parent.Value(pivot))
	left.SetSeq(ln, parent.Seq(pivot))
	left.SetChild(ln+1, right.Child(0))
	parent.SetValue(pivot, right.Value(0))
	parent.SetSeq(pivot, right.Seq(0))
	left.SetNumKeys(ln + 1)

	rn := right.NumKeys() - 1
	for j := 0; j < rn; j++ {
		right.SetValue(j, right.Value(j+1))
		right.SetSeq(j, right.Seq(j+1))
		right.SetChild(j, right.Child(j+1))
	}
	right.SetChild(rn, right.Child(rn+1))
	right.SetNumKeys(rn)

	t.writeNode(leftRef, left)
	t.writeNode(rightRef, right)
	t.writeNode(parentRef, parent)
}

// mergeChildren folds the pivot record and the right child into the left
// child, frees the right child, and removes the pivot from parent.
func (t *Tree) mergeChildren(parentRef Ref, parent Node, childIdx, pivot int) {
	leftRef, rightRef := parent.Child(pivot), parent.Child(pivot+1)
	left := t.readNode(leftRef)
	right := t.readNode(rightRef)

	ln := left.NumKeys()
	left.SetValue(ln, parent.Value(pivot))
	left.SetSeq(ln, parent.Seq(pivot))
	left.SetChild(ln+1, right.Child(0))

	rn := right.NumKeys()
	for j := 0; j < rn; j++ {
		left.SetValue(ln+1+j, right.Value(j))
		left.SetSeq(ln+1+j, right.Seq(j))
		left.SetChild(ln+2+j, right.Child(j+1))
	}
	left.SetNumKeys(ln + 1 + rn)
	t.freeNode(rightRef)

	n := parent.NumKeys()
	for j := childIdx + 1; j < n; j++ {
		parent.SetValue(j-1, parent.Value(j))
		parent.SetSeq(j-1, parent.Seq(j))
		parent.SetChild(j, parent.Child(j+1))
	}
	parent.SetNumKeys(n - 1)

	t.writeNode(leftRef, left)
	t.writeNode(parentRef, parent)
}
