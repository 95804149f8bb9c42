package cmdbuf

import (
	"fmt"
	"sync"

	"github.com/gogpu/cmdbuf/internal/cache"
	"github.com/gogpu/cmdbuf/internal/reserve"
	"github.com/gogpu/cmdbuf/native"
	"github.com/gogpu/cmdbuf/sink"
)

// Token proves a native command buffer was checked out by Spawn. It must
// be passed to Release exactly once.
type Token = reserve.Token

// Queue owns a native command queue and sequences submissions onto it.
//
// Queue is safe for concurrent use.
type Queue struct {
	device native.Device
	raw    native.CommandQueue
	opts   queueOptions

	reserve      *reserve.Reserve
	blocker      QueueBlocker
	visibility   *visibility
	depthStencil *depthStencilCache

	fillOnce sync.Once
	fill     native.ComputePipelineState
	fillErr  error
}

// NewQueue creates a queue on device.
func NewQueue(device native.Device, opts ...QueueOption) (*Queue, error) {
	o := defaultQueueOptions()
	for _, opt := range opts {
		opt(&o)
	}
	propagateLogger(device)

	raw, err := device.NewCommandQueue(o.reserve)
	if err != nil {
		return nil, fmt.Errorf("cmdbuf: create command queue: %w", err)
	}
	vis, err := newVisibility(device, o.queryCapacity)
	if err != nil {
		return nil, err
	}
	q := &Queue{
		device:       device,
		raw:          raw,
		opts:         o,
		visibility:   vis,
		depthStencil: newDepthStencilCache(device, o.depthStencils),
	}
	q.reserve = reserve.New(o.reserve, func(id uint64) {
		slogger().Warn("cmdbuf: command buffer token leaked", "token", id)
	})
	slogger().Info("cmdbuf: queue created",
		"device", device.Name(),
		"reserve", o.reserve,
		"stitch_deferred", o.stitchDeferred,
		"dummy_encoders", o.dummyEncoders)
	return q, nil
}

// Device returns the native device.
func (q *Queue) Device() native.Device { return q.device }

// Blocker returns the queue's blocked submissions.
func (q *Queue) Blocker() *QueueBlocker { return &q.blocker }

// Outstanding returns the number of native command buffers checked out.
func (q *Queue) Outstanding() int { return q.reserve.Outstanding() }

// Spawn checks out a new native command buffer.
func (q *Queue) Spawn() (native.CommandBuffer, *Token, error) {
	token, err := q.reserve.Acquire()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrOutOfResources, err)
	}
	cb, err := q.raw.NewCommandBuffer()
	if err != nil {
		q.reserve.Release(token)
		return nil, nil, fmt.Errorf("%w: %w", ErrOutOfResources, err)
	}
	return cb, token, nil
}

// Release checks a native command buffer back in. It panics if token was
// already released.
func (q *Queue) Release(token *Token) {
	q.reserve.Release(token)
}

// spawnTemp spawns a buffer whose token is released when it completes.
func (q *Queue) spawnTemp(label string) (native.CommandBuffer, error) {
	cb, token, err := q.Spawn()
	if err != nil {
		return nil, err
	}
	return q.adoptTemp(cb, token, label), nil
}

func (q *Queue) adoptTemp(cb native.CommandBuffer, token *Token, label string) native.CommandBuffer {
	cb.SetLabel(label)
	cb.AddCompletedHandler(func(native.CommandBuffer) { q.Release(token) })
	return cb
}

// tempBuffers holds native buffers checked out ahead of a submission.
type tempBuffers struct {
	q      *Queue
	cbs    []native.CommandBuffer
	tokens []*Token
}

// spawnTemps checks out n buffers, or none.
func (q *Queue) spawnTemps(n int) (*tempBuffers, error) {
	t := &tempBuffers{q: q}
	for range n {
		cb, token, err := q.Spawn()
		if err != nil {
			t.release()
			return nil, err
		}
		t.cbs = append(t.cbs, cb)
		t.tokens = append(t.tokens, token)
	}
	return t, nil
}

// take hands out the next buffer, released when it completes.
func (t *tempBuffers) take(label string) native.CommandBuffer {
	cb, token := t.cbs[0], t.tokens[0]
	t.cbs, t.tokens = t.cbs[1:], t.tokens[1:]
	return t.q.adoptTemp(cb, token, label)
}

// release checks in every buffer not taken.
func (t *tempBuffers) release() {
	for _, token := range t.tokens {
		t.q.Release(token)
	}
	t.cbs, t.tokens = nil, nil
}

func (q *Queue) recordEmpty(cb native.CommandBuffer) {
	if q.opts.dummyEncoders {
		cb.BlitCommandEncoder().EndEncoding()
	}
}

// SetEvent sets e and commits every submission it unblocks.
func (q *Queue) SetEvent(e *Event) {
	e.Set()
	q.Triage()
}

// Triage commits the blocked submissions whose host events are all set.
func (q *Queue) Triage() {
	q.blocker.Triage()
}

// SubmitInfo is one batch of command buffers.
type SubmitInfo struct {
	CommandBuffers   []*CommandBuffer
	WaitSemaphores   []*Semaphore
	SignalSemaphores []*Semaphore
}

// completion is the work attached to the last native buffer of a
// submission.
type completion struct {
	semaphores []*Semaphore
	events     []eventUpdate
	queries    []uint32
	fence      *Fence
	vis        *visibility
}

func (c *completion) empty() bool {
	return len(c.semaphores) == 0 && len(c.events) == 0 && len(c.queries) == 0 && c.fence == nil
}

func (c *completion) run(cb native.CommandBuffer) {
	for _, s := range c.semaphores {
		s.Signal()
	}
	for _, u := range c.events {
		u.apply()
	}
	c.vis.publish(c.queries)
	if c.fence != nil {
		c.fence.signal(cb, cb.Status() == native.StatusError)
	}
}

// Submit commits the command buffers of info in order. It first waits for
// every wait semaphore. fence, when non-nil, is signaled once all buffers
// completed.
//
// Deferred buffers are replayed into a queue-owned native buffer; with
// stitching enabled, consecutive deferred buffers share one. Submissions
// whose buffers wait on unset host events are held until Triage.
//
// Every queue-owned buffer is checked out before anything is committed,
// so a Submit that fails leaves info's buffers submittable and runs none
// of their work.
func (q *Queue) Submit(info SubmitInfo, fence *Fence) error {
	for _, s := range info.WaitSemaphores {
		s.Wait()
	}

	done := &completion{semaphores: info.SignalSemaphores, fence: fence, vis: q.visibility}
	for _, cb := range info.CommandBuffers {
		cb.checkSubmittable()
		done.events = append(done.events, cb.events...)
		for _, r := range cb.queries {
			done.queries = append(done.queries, r.pool.slot(r.query))
		}
	}

	q.blocker.mu.Lock()
	defer q.blocker.mu.Unlock()
	q.blocker.triageLocked()

	temps, err := q.spawnTemps(q.tempsNeeded(info.CommandBuffers, !done.empty()))
	if err != nil {
		return err
	}
	defer temps.release()

	var deferred native.CommandBuffer
	flush := func() {
		if deferred != nil {
			q.blocker.submitLocked(deferred)
			deferred = nil
		}
	}

	for _, cb := range info.CommandBuffers {
		cb.markSubmitted()
		if len(cb.waitEvents) > 0 {
			flush()
			q.blocker.blockLocked(cb.waitEvents)
		}

		switch s := cb.sink.(type) {
		case *sink.Immediate:
			if s.NumPasses() == 0 {
				continue
			}
			flush()
			q.blocker.submitLocked(s.CB)
		case *sink.Deferred:
			if deferred == nil {
				deferred = temps.take("deferred")
			}
			slogger().Debug("cmdbuf: replaying journal", "buffer", s.Label(), "passes", s.NumPasses())
			s.Journal.Record(deferred)
			if !q.opts.stitchDeferred {
				flush()
			}
		case *sink.Remote:
			flush()
			// Enqueue before scheduling so the native order matches the
			// submission order even though the commit happens on the
			// dispatch queue.
			q.blocker.commitLocked(func() {
				s.CB.With(func(raw native.CommandBuffer) { raw.Enqueue() })
				s.Schedule(func(raw native.CommandBuffer) { raw.Commit() })
			})
		}
	}

	if done.empty() {
		flush()
		return nil
	}
	last := deferred
	if last == nil {
		last = temps.take("signal")
		q.recordEmpty(last)
	}
	if fence != nil {
		fence.pend(last)
	}
	last.AddCompletedHandler(done.run)
	q.blocker.submitLocked(last)
	return nil
}

// tempsNeeded counts the queue-owned buffers Submit takes for cbs: one per
// run of deferred buffers, plus a signal buffer when signal is set and the
// submission does not end in a deferred run.
func (q *Queue) tempsNeeded(cbs []*CommandBuffer, signal bool) int {
	n, open := 0, false
	for _, cb := range cbs {
		if len(cb.waitEvents) > 0 {
			open = false
		}
		switch s := cb.sink.(type) {
		case *sink.Immediate:
			if s.NumPasses() > 0 {
				open = false
			}
		case *sink.Deferred:
			if !open {
				n++
			}
			open = q.opts.stitchDeferred
		case *sink.Remote:
			open = false
		}
	}
	if signal && !open {
		n++
	}
	return n
}

// Present presents drawables after waiting for waitSemaphores.
func (q *Queue) Present(drawables []native.Drawable, waitSemaphores []*Semaphore) error {
	for _, s := range waitSemaphores {
		s.Wait()
	}
	cb, err := q.spawnTemp("present")
	if err != nil {
		return err
	}
	for _, d := range drawables {
		cb.PresentDrawable(d)
	}
	q.blocker.Submit(cb)
	return nil
}

// WaitIdle blocks until every committed native buffer completed. Blocked
// submissions are not waited for.
func (q *Queue) WaitIdle() error {
	cb, token, err := q.Spawn()
	if err != nil {
		return err
	}
	cb.SetLabel("empty")
	q.recordEmpty(cb)
	cb.Commit()
	cb.WaitUntilCompleted()
	q.Release(token)
	if cb.Status() == native.StatusError {
		return ErrDeviceLost
	}
	return nil
}

// fillPipeline returns the device's fill-buffer service pipeline.
func (q *Queue) fillPipeline() (native.ComputePipelineState, error) {
	q.fillOnce.Do(func() {
		q.fill, q.fillErr = q.device.FillBufferPipeline()
		if q.fillErr != nil {
			q.fillErr = fmt.Errorf("cmdbuf: fill buffer pipeline: %w", q.fillErr)
		}
	})
	return q.fill, q.fillErr
}

// depthStencilCache resolves depth-stencil descriptors to native state
// objects, creating each distinct one once.
type depthStencilCache struct {
	device native.Device
	states *cache.Cache[native.DepthStencilDescriptor, native.DepthStencilState]
}

func newDepthStencilCache(device native.Device, capacity int) *depthStencilCache {
	return &depthStencilCache{
		device: device,
		states: cache.New[native.DepthStencilDescriptor, native.DepthStencilState](capacity),
	}
}

// DepthStencilState implements state.DepthStencilStates.
func (c *depthStencilCache) DepthStencilState(desc native.DepthStencilDescriptor) native.DepthStencilState {
	s, err := c.states.GetOrCreate(desc, func() (native.DepthStencilState, error) {
		return c.device.NewDepthStencilState(desc)
	})
	if err != nil {
		slogger().Warn("cmdbuf: depth-stencil state creation failed", "err", err)
		return nil
	}
	return s
}
