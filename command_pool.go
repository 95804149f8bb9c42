package cmdbuf

import (
	"slices"
	"sync"

	"github.com/gogpu/cmdbuf/internal/dispatch"
	"github.com/gogpu/cmdbuf/sink"
)

// DispatchQueue is a serial background queue used by Remote recording.
type DispatchQueue = dispatch.Queue

// NewDispatchQueue starts a dispatch queue.
func NewDispatchQueue(label string) *DispatchQueue { return dispatch.New(label) }

// CommandPool allocates command buffers that share a recording strategy,
// a render pass descriptor pool and, for Remote recording, a dispatch
// queue.
//
// CommandPool is safe for concurrent use; the buffers it allocates are
// not.
type CommandPool struct {
	queue       *Queue
	recording   Recording
	descriptors *sink.DescriptorPool

	dispatch     *dispatch.Queue
	ownsDispatch bool

	mu      sync.Mutex
	buffers []*CommandBuffer
}

// NewCommandPool creates a pool submitting to queue.
func NewCommandPool(queue *Queue, opts ...PoolOption) *CommandPool {
	var o poolOptions
	for _, opt := range opts {
		opt(&o)
	}
	p := &CommandPool{
		queue:       queue,
		recording:   o.recording,
		descriptors: sink.NewDescriptorPool(),
		dispatch:    o.dispatch,
	}
	if p.recording == RecordRemote && p.dispatch == nil {
		p.dispatch = dispatch.New("cmdbuf-remote")
		p.ownsDispatch = true
	}
	return p
}

// Recording returns the pool's recording strategy.
func (p *CommandPool) Recording() Recording { return p.recording }

// Descriptors returns the render pass descriptor pool shared by the
// pool's buffers.
func (p *CommandPool) Descriptors() *sink.DescriptorPool { return p.descriptors }

// AllocateCommandBuffer creates an unrecorded command buffer.
func (p *CommandPool) AllocateCommandBuffer(level Level) *CommandBuffer {
	cb := newCommandBuffer(p, level)
	p.mu.Lock()
	p.buffers = append(p.buffers, cb)
	p.mu.Unlock()
	return cb
}

// Reset resets every buffer allocated from the pool.
func (p *CommandPool) Reset(releaseResources bool) {
	p.mu.Lock()
	buffers := slices.Clone(p.buffers)
	p.mu.Unlock()
	for _, cb := range buffers {
		cb.Reset(releaseResources)
	}
}

// Free resets cbs and removes them from the pool.
func (p *CommandPool) Free(cbs ...*CommandBuffer) {
	for _, cb := range cbs {
		cb.Reset(true)
	}
	p.mu.Lock()
	p.buffers = slices.DeleteFunc(p.buffers, func(cb *CommandBuffer) bool {
		return slices.Contains(cbs, cb)
	})
	p.mu.Unlock()
}

// Len returns the number of allocated buffers.
func (p *CommandPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.buffers)
}

// Close waits for outstanding Remote encoding and stops the pool's own
// dispatch queue.
func (p *CommandPool) Close() {
	if p.dispatch == nil {
		return
	}
	if p.ownsDispatch {
		p.dispatch.Close()
		return
	}
	p.dispatch.Wait()
}
