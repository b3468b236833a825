package locks

import (
	"runtime"
	"sync"
	"sync/atomic"

	pkgruntime "github.com/quanla-dev/tierstore/pkg/runtime"
)

const (
	activeSpinCycles = 4
	activeSpinTries  = 30
)

// SpinLock is a sync.Locker that spins briefly before yielding to the
// scheduler, using the same adaptive-spin ladder as queue.MPMC.
// Suited for critical sections held for a handful of instructions, such as
// flipping a handful of bloom-filter words.
type SpinLock struct {
	held atomic.Bool
}

var _ sync.Locker = (*SpinLock)(nil)

// NewSpinLock returns a ready-to-use SpinLock.
func NewSpinLock() *SpinLock {
	return &SpinLock{}
}

func (l *SpinLock) Lock() {
	for spin := 0; ; spin++ {
		if l.held.CompareAndSwap(false, true) {
			return
		}
		if spin < activeSpinTries {
			pkgruntime.Procyield(activeSpinCycles)
		} else {
			runtime.Gosched()
			spin = 0
		}
	}
}

func (l *SpinLock) Unlock() {
	l.held.Store(false)
}
