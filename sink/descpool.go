package sink

import (
	"sync"

	"github.com/gogpu/cmdbuf/native"
)

// DescriptorPool is a free list of render pass descriptors shared by every
// command buffer of a command pool.
//
// Remote sinks return descriptors from the dispatch queue, so the pool is
// safe for concurrent use.
type DescriptorPool struct {
	mu        sync.Mutex
	free      []*native.RenderPassDescriptor
	allocated int
}

// NewDescriptorPool creates an empty pool.
func NewDescriptorPool() *DescriptorPool {
	return &DescriptorPool{free: make([]*native.RenderPassDescriptor, 0, 8)}
}

// Get returns a cleared descriptor, reusing a released one when possible.
func (p *DescriptorPool) Get() *native.RenderPassDescriptor {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n := len(p.free); n > 0 {
		d := p.free[n-1]
		p.free[n-1] = nil
		p.free = p.free[:n-1]
		return d
	}
	p.allocated++
	return new(native.RenderPassDescriptor)
}

// Put clears d and returns it to the pool.
func (p *DescriptorPool) Put(d *native.RenderPassDescriptor) {
	if d == nil {
		return
	}
	d.Reset()
	p.mu.Lock()
	p.free = append(p.free, d)
	p.mu.Unlock()
}

// Free returns the number of descriptors waiting for reuse.
func (p *DescriptorPool) Free() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free)
}

// Allocated returns the number of descriptors ever created by the pool.
func (p *DescriptorPool) Allocated() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.allocated
}
