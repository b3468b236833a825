package tierstore

import "sync"

// rangeSummary tracks the [min_seen, max_seen] bounds of every value ever
// inserted or updated-in, per §3.7, used only to short-circuit reads when
// readOptimized is enabled. It never shrinks: a value removed by delete
// or update does not retract the range, matching the source (the range
// is observation-only, not reconciled against deletes).
type rangeSummary struct {
	mu      sync.Mutex
	minSeen uint64
	maxSeen uint64
	set     bool
}

// observe folds value into the running [min_seen, max_seen] bounds.
func (r *rangeSummary) observe(value uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.set {
		r.minSeen, r.maxSeen, r.set = value, value, true
		return
	}
	if value < r.minSeen {
		r.minSeen = value
	}
	if value > r.maxSeen {
		r.maxSeen = value
	}
}

// outOfRange reports whether value is known to fall outside every value
// ever inserted, spelled as a logical conjunction per §9 open question 2
// (the source relies on bitwise & over boolean operands).
func (r *rangeSummary) outOfRange(value uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.set {
		return false
	}
	return !(value >= r.minSeen && value <= r.maxSeen)
}
