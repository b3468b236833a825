package btree

import (
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/quanla-dev/tierstore/pkg/pool/byteslice"
	"github.com/quanla-dev/tierstore/pkg/utils"
)

const (
	headerBytes = 16 // root_offset (8B) + free_list_head (8B)

	// signatureByte is the trailer byte written on a clean close and
	// checked on open; it stands in for the source's platform-dependent
	// sizeof(int) check with a fixed, documented value.
	signatureByte byte = 4
)

// DiskStore is a paged-file Store backing a persistent tier (component A):
// header with root_offset/free_list_head, a body of fixed-size node
// records, and a trailer signature byte, per §3.3/§6.1.
type DiskStore struct {
	file      *os.File
	root      Ref
	freeHead  Ref
	rootCache Node
}

var _ Store = (*DiskStore)(nil)

// OpenDiskStore opens (or creates) the tier file at path. A freshly created
// file gets an empty header; an existing file has its trailer signature
// byte verified before its header is trusted.
func OpenDiskStore(path string) (*DiskStore, error) {
	_, statErr := os.Stat(path)
	isNew := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "open tier file")
	}

	s := &DiskStore{file: f, root: NilRef, freeHead: NilRef}
	if isNew {
		if err := s.writeHeader(); err != nil {
			f.Close()
			return nil, err
		}
		return s, nil
	}
	if err := s.readHeaderAndVerify(); err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

func (s *DiskStore) readHeaderAndVerify() error {
	info, err := s.file.Stat()
	if err != nil {
		return errors.Wrap(err, "stat tier file")
	}
	if info.Size() < headerBytes+1 {
		return ErrWrongFileFormat
	}

	sig := make([]byte, 1)
	if _, err := s.file.ReadAt(sig, info.Size()-1); err != nil {
		return errors.Wrap(err, "read trailer byte")
	}
	if sig[0] != signatureByte {
		return ErrWrongFileFormat
	}

	hdr := make([]byte, headerBytes)
	if _, err := s.file.ReadAt(hdr, 0); err != nil {
		return errors.Wrap(err, "read tier header")
	}
	s.root = Ref(utils.BytesToInt64(hdr[0:8]))
	s.freeHead = Ref(utils.BytesToInt64(hdr[8:16]))
	return nil
}

func (s *DiskStore) writeHeader() error {
	buf := make([]byte, headerBytes)
	copy(buf[0:8], utils.Int64ToBytes(int64(s.root)))
	copy(buf[8:16], utils.Int64ToBytes(int64(s.freeHead)))
	if _, err := s.file.WriteAt(buf, 0); err != nil {
		return errors.Wrap(err, "write tier header")
	}
	return nil
}

// Close rewrites the header and restores the trailer signature byte if the
// current file length is even, then closes the file, per §3.8.
func (s *DiskStore) Close() error {
	if err := s.writeHeader(); err != nil {
		return err
	}
	info, err := s.file.Stat()
	if err != nil {
		return errors.Wrap(err, "stat tier file")
	}
	if info.Size()%2 == 0 {
		if _, err := s.file.WriteAt([]byte{signatureByte}, info.Size()); err != nil {
			return errors.Wrap(err, "write trailer byte")
		}
	}
	return s.file.Close()
}

// FileSize returns the current file length in bytes.
func (s *DiskStore) FileSize() int64 {
	info, err := s.file.Stat()
	if err != nil {
		panic(errors.Wrap(err, "stat tier file"))
	}
	return info.Size()
}

func (s *DiskStore) Root() Ref { return s.root }

func (s *DiskStore) SetRoot(ref Ref) {
	s.root = ref
	s.rootCache = nil
}

// ReadNode returns the cached root when ref is the root and the cache is
// populated, else reads a node-sized blob from the file, per §4.1.
func (s *DiskStore) ReadNode(ref Ref) Node {
	if ref == NilRef {
		return nil
	}
	if ref == s.root && s.rootCache != nil && s.rootCache.NumKeys() > 0 {
		return s.rootCache
	}
	return s.readNodeUncached(ref)
}

func (s *DiskStore) readNodeUncached(ref Ref) Node {
	buf := byteslice.Get(nodeBytes)
	defer byteslice.Put(buf)
	if _, err := s.file.ReadAt(buf, int64(ref)); err != nil && err != io.EOF {
		panic(errors.Wrap(err, "read node"))
	}
	node := newNodeWords()
	copy(node, utils.BytesToUint64Slice(buf))
	if ref == s.root {
		s.rootCache = node
	}
	return node
}

// WriteNode updates the root cache (if ref is the root) then writes the
// node-sized blob to the file, per §4.1.
func (s *DiskStore) WriteNode(ref Ref, node Node) {
	if ref == s.root {
		s.rootCache = node
	}
	buf := byteslice.Get(nodeBytes)
	defer byteslice.Put(buf)
	copy(utils.BytesToUint64Slice(buf), node)
	if _, err := s.file.WriteAt(buf, int64(ref)); err != nil {
		panic(errors.Wrap(err, "write node"))
	}
}

// NewNode pops the free list head if non-empty, else appends at
// end-of-file, rounding the offset down to even so a trailing signature
// byte is overwritten by the new node rather than orphaned, per §4.1.
func (s *DiskStore) NewNode() (Ref, Node) {
	node := newNodeWords()
	if s.freeHead != NilRef {
		ref := s.freeHead
		old := s.readNodeUncached(ref)
		s.freeHead = old.Child(0)
		s.WriteNode(ref, node)
		return ref, node
	}

	offset := s.FileSize()
	if offset < headerBytes {
		offset = headerBytes
	}
	if offset&1 != 0 {
		offset--
	}
	ref := Ref(offset)
	s.WriteNode(ref, node)
	return ref, node
}

// FreeNode threads ref onto the free list via its first child slot.
func (s *DiskStore) FreeNode(ref Ref) {
	node := s.ReadNode(ref)
	node.SetChild(0, s.freeHead)
	s.freeHead = ref
	s.WriteNode(ref, node)
}
