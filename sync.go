package cmdbuf

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/gogpu/cmdbuf/native"
)

// Event is a host-visible flag. Command buffers set and reset events on
// completion, and submissions can wait for them to be set by the host.
type Event struct {
	set atomic.Bool
}

// NewEvent creates an unset event.
func NewEvent() *Event { return &Event{} }

// Set raises the event. Use Queue.SetEvent to also release submissions
// waiting on it.
func (e *Event) Set() { e.set.Store(true) }

// Reset lowers the event.
func (e *Event) Reset() { e.set.Store(false) }

// IsSet reports whether the event is raised.
func (e *Event) IsSet() bool { return e.set.Load() }

type eventUpdate struct {
	event *Event
	value bool
}

func (u eventUpdate) apply() { u.event.set.Store(u.value) }

// Semaphore is a counting semaphore signaled by command buffer completion
// and waited on by the host before a submission proceeds.
type Semaphore struct {
	mu    sync.Mutex
	cond  *sync.Cond
	count int
}

// NewSemaphore creates an unsignaled semaphore.
func NewSemaphore() *Semaphore {
	s := &Semaphore{}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Signal increments the semaphore.
func (s *Semaphore) Signal() {
	s.mu.Lock()
	s.count++
	s.mu.Unlock()
	s.cond.Signal()
}

// Wait blocks until the semaphore is signaled and decrements it.
func (s *Semaphore) Wait() {
	s.mu.Lock()
	for s.count == 0 {
		s.cond.Wait()
	}
	s.count--
	s.mu.Unlock()
}

// Count returns the number of pending signals.
func (s *Semaphore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// FenceStatus is the state of a Fence.
type FenceStatus uint8

// Fence states.
const (
	FenceUnsignaled FenceStatus = iota
	FencePending
	FenceSignaled
)

var fenceStatusNames = [...]string{
	FenceUnsignaled: "unsignaled",
	FencePending:    "pending",
	FenceSignaled:   "signaled",
}

// String returns the status name.
func (s FenceStatus) String() string {
	if int(s) < len(fenceStatusNames) {
		return fenceStatusNames[s]
	}
	return "unknown"
}

// Fence is signaled when every command buffer of a submission completed.
//
// A fence is either idle, signaled or not, or pending on the native
// command buffer carrying the submission's completion handler.
type Fence struct {
	mu      sync.Mutex
	status  FenceStatus
	pending native.CommandBuffer
	done    chan struct{}
	err     error
}

// NewFence creates a fence, optionally already signaled.
func NewFence(signaled bool) *Fence {
	f := &Fence{}
	if signaled {
		f.status = FenceSignaled
	}
	return f
}

// Status returns the current state.
func (f *Fence) Status() FenceStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

// Reset returns the fence to the unsignaled idle state.
func (f *Fence) Reset() {
	f.mu.Lock()
	f.status = FenceUnsignaled
	f.pending = nil
	f.done = nil
	f.err = nil
	f.mu.Unlock()
}

// Wait blocks until the fence is signaled or ctx is done. It returns
// ErrNotSubmitted for an unsignaled idle fence and ErrDeviceLost when the
// command buffer failed.
func (f *Fence) Wait(ctx context.Context) error {
	f.mu.Lock()
	switch f.status {
	case FenceSignaled:
		err := f.err
		f.mu.Unlock()
		return err
	case FenceUnsignaled:
		f.mu.Unlock()
		return ErrNotSubmitted
	}
	done := f.done
	f.mu.Unlock()

	select {
	case <-done:
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// pend marks the fence pending on cb. It must be called before cb is
// committed.
func (f *Fence) pend(cb native.CommandBuffer) {
	f.mu.Lock()
	f.status = FencePending
	f.pending = cb
	f.done = make(chan struct{})
	f.err = nil
	f.mu.Unlock()
}

// signal completes a pending fence. A fence reset or re-pended on another
// buffer in the meantime is left alone.
func (f *Fence) signal(cb native.CommandBuffer, failed bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status != FencePending || f.pending != cb {
		return
	}
	f.status = FenceSignaled
	f.pending = nil
	if failed {
		f.err = ErrDeviceLost
	}
	close(f.done)
}
