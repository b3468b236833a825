package btree

import "github.com/pkg/errors"

// ErrWrongFileFormat is returned by OpenDiskStore when an existing tier file
// is too short to hold a header and trailer, or its trailer byte is not
// signatureByte.
var ErrWrongFileFormat = errors.New("btree: wrong file format")
