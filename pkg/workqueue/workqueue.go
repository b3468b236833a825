// Package workqueue generalizes the teacher's lock-free MPMC ring into a
// bounded producer/consumer worker pool (§4.6, §6.4): a fixed-capacity
// queue fans work out to W consumer goroutines, each invoking a
// caller-supplied function.
package workqueue

import (
	"runtime"
	"sync"

	"github.com/quanla-dev/tierstore/pkg/datastructs/queue"
	pkgruntime "github.com/quanla-dev/tierstore/pkg/runtime"
)

const (
	activeSpinCycles = 4
	activeSpinTries  = 30
)

// WorkQueue is a bounded producer/consumer adapter with W worker
// goroutines, each draining a shared queue.MPMC and invoking fn on every
// item, matching original_source/WorkerQueue.h's shape with the teacher's
// adaptive-spin idiom standing in for its condition-variable wait.
type WorkQueue[T any] struct {
	q  *queue.MPMC[T]
	wg sync.WaitGroup

	done chan struct{}
}

// New starts a WorkQueue with workers consumer goroutines, each capable
// of holding perWorkerCapacity queued items before Push blocks (total
// capacity workers*perWorkerCapacity, rounded up to a power of two by
// queue.NewMPMC). fn is invoked once per pushed item; it must not panic.
func New[T any](workers, perWorkerCapacity int, fn func(T)) *WorkQueue[T] {
	if workers < 1 {
		workers = 1
	}
	if perWorkerCapacity < 1 {
		perWorkerCapacity = 1
	}

	w := &WorkQueue[T]{
		q:    queue.NewMPMC[T](workers * perWorkerCapacity),
		done: make(chan struct{}),
	}

	w.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go w.runWorker(fn)
	}
	return w
}

func (w *WorkQueue[T]) runWorker(fn func(T)) {
	defer w.wg.Done()
	for {
		item, ok := w.q.Dequeue()
		if ok {
			fn(item)
			continue
		}
		select {
		case <-w.done:
			if item, ok := w.q.Dequeue(); ok {
				fn(item)
				continue
			}
			return
		default:
			runtime.Gosched()
		}
	}
}

// Push blocks until there is room in the queue or Shutdown has been
// called, in which case it returns false without enqueuing.
func (w *WorkQueue[T]) Push(item T) bool {
	select {
	case <-w.done:
		return false
	default:
	}

	for spin := 0; ; spin++ {
		if w.q.Enqueue(item) {
			return true
		}
		select {
		case <-w.done:
			return false
		default:
		}
		if spin < activeSpinTries {
			pkgruntime.Procyield(activeSpinCycles)
		} else {
			runtime.Gosched()
			spin = 0
		}
	}
}

// Shutdown signals every worker to stop once the queue has drained, then
// blocks until all of them have joined.
func (w *WorkQueue[T]) Shutdown() {
	close(w.done)
	w.wg.Wait()
}
