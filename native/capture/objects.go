package capture

import (
	"fmt"
	"sync"

	"github.com/gogpu/cmdbuf/native"
)

type object struct {
	id    uintptr
	label string
}

func (o *object) NativeHandle() uintptr { return o.id }

func (o *object) String() string {
	if o.label != "" {
		return o.label
	}
	return fmt.Sprintf("#%d", o.id)
}

// Buffer is a host-backed buffer.
type Buffer struct {
	object
	mu   sync.Mutex
	data []byte
}

// Length returns the buffer size in bytes.
func (b *Buffer) Length() uint64 { return uint64(len(b.data)) }

// Contents returns the backing memory. Callers must not read it while a
// command buffer that writes the buffer is in flight.
func (b *Buffer) Contents() []byte { return b.data }

// Bytes returns a copy of the current contents.
func (b *Buffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]byte, len(b.data))
	copy(out, b.data)
	return out
}

func (b *Buffer) write(offset uint64, src []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if offset >= uint64(len(b.data)) {
		return
	}
	copy(b.data[offset:], src)
}

func (b *Buffer) read(offset, size uint64) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	end := min(offset+size, uint64(len(b.data)))
	if offset >= end {
		return nil
	}
	out := make([]byte, end-offset)
	copy(out, b.data[offset:end])
	return out
}

// Texture is an opaque texture.
type Texture struct{ object }

// Sampler is an opaque sampler.
type Sampler struct{ object }

// RenderPipeline is an opaque render pipeline.
type RenderPipeline struct{ object }

// ComputePipeline is an opaque compute pipeline.
type ComputePipeline struct {
	object
	width uint32
}

// ThreadExecutionWidth returns the SIMD width given at creation.
func (p *ComputePipeline) ThreadExecutionWidth() uint32 { return p.width }

// DepthStencilState remembers the descriptor it was created from.
type DepthStencilState struct {
	object
	Desc native.DepthStencilDescriptor
}

// Drawable is a presentable texture.
type Drawable struct {
	object
	tex       *Texture
	mu        sync.Mutex
	presented bool
}

// Texture returns the drawable's backing texture.
func (d *Drawable) Texture() native.Texture { return d.tex }

// Presented reports whether the drawable has been presented.
func (d *Drawable) Presented() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.presented
}
