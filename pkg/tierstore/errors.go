package tierstore

import "github.com/pkg/errors"

// ErrMergeStrategyUnsupported is returned by NewMergeEngine when the
// configured merge strategy is not 2. Strategy 1 (whole-file handoff when
// the destination is empty) is declared but never implemented by the
// reference implementation; this engine follows suit.
var ErrMergeStrategyUnsupported = errors.New("tierstore: only merge strategy 2 is implemented")
