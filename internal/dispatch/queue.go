// Package dispatch provides a serial background execution queue.
//
// Work items submitted to a Queue run one at a time on a dedicated
// goroutine, in submission order. Remote command recording uses a Queue
// to encode passes off the recording goroutine.
package dispatch

import (
	"sync"
	"sync/atomic"
)

// defaultQueueSize is the channel buffer of a Queue. Submitters block once
// this many items are waiting.
const defaultQueueSize = 64

// Queue is a serial goroutine-backed work queue.
//
// Thread safety: Queue is safe for concurrent use.
type Queue struct {
	label string

	// work feeds the worker goroutine.
	work chan func()

	// done is closed by Close.
	done chan struct{}

	// wg waits for the worker to finish.
	wg sync.WaitGroup

	// mu orders submission against Close.
	mu sync.RWMutex

	// running indicates whether the queue is accepting work.
	running atomic.Bool

	// executed counts completed work items.
	executed atomic.Uint64
}

// New creates a queue and starts its worker.
func New(label string) *Queue {
	q := &Queue{
		label: label,
		work:  make(chan func(), defaultQueueSize),
		done:  make(chan struct{}),
	}
	q.running.Store(true)
	q.wg.Add(1)
	go q.worker()
	return q
}

// Label returns the label given to New.
func (q *Queue) Label() string { return q.label }

func (q *Queue) worker() {
	defer q.wg.Done()
	for {
		select {
		case fn := <-q.work:
			q.run(fn)
		case <-q.done:
			// Drain remaining work before exiting.
			for {
				select {
				case fn := <-q.work:
					q.run(fn)
				default:
					return
				}
			}
		}
	}
}

func (q *Queue) run(fn func()) {
	if fn != nil {
		fn()
	}
	q.executed.Add(1)
}

// ExecAsync schedules fn and returns immediately. After Close, fn runs on
// the calling goroutine.
func (q *Queue) ExecAsync(fn func()) {
	q.mu.RLock()
	if !q.running.Load() {
		q.mu.RUnlock()
		q.run(fn)
		return
	}
	q.work <- fn
	q.mu.RUnlock()
}

// ExecSync schedules fn and waits for it to finish. Work scheduled earlier
// finishes first. ExecSync must not be called from work running on q.
func (q *Queue) ExecSync(fn func()) {
	done := make(chan struct{})
	q.ExecAsync(func() {
		defer close(done)
		if fn != nil {
			fn()
		}
	})
	<-done
}

// Wait blocks until every item scheduled before the call has run.
func (q *Queue) Wait() {
	q.ExecSync(nil)
}

// Executed returns the number of work items that have run.
func (q *Queue) Executed() uint64 { return q.executed.Load() }

// Close stops the worker after draining scheduled work. Close is
// idempotent.
func (q *Queue) Close() {
	q.mu.Lock()
	if !q.running.Swap(false) {
		q.mu.Unlock()
		return
	}
	close(q.done)
	q.mu.Unlock()
	q.wg.Wait()
}
