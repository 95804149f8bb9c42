package capture

import (
	"github.com/gogpu/cmdbuf/native"
)

// CommandBuffer is a recording native.CommandBuffer.
type CommandBuffer struct {
	object
	dev *Device

	// Guarded by dev.mu.
	status   native.Status
	handlers []func(native.CommandBuffer)
	work     []func() error
	drawable []*Drawable
	open     bool
	done     bool
}

var _ native.CommandBuffer = (*CommandBuffer)(nil)

// Label returns the buffer label.
func (cb *CommandBuffer) Label() string {
	cb.dev.mu.Lock()
	defer cb.dev.mu.Unlock()
	return cb.label
}

// SetLabel sets the buffer label.
func (cb *CommandBuffer) SetLabel(label string) {
	cb.dev.mu.Lock()
	cb.label = label
	cb.dev.mu.Unlock()
	cb.record("cb.SetLabel", label)
}

func (cb *CommandBuffer) record(op string, args ...any) {
	cb.dev.Trace.add(Call{Buffer: cb.Label(), Op: op, Args: args})
}

func (cb *CommandBuffer) begin(op string, args ...any) {
	cb.dev.mu.Lock()
	if cb.open {
		cb.dev.mu.Unlock()
		panic("capture: " + op + " while another encoder is open")
	}
	if cb.status >= native.StatusCommitted {
		cb.dev.mu.Unlock()
		panic("capture: " + op + " after commit")
	}
	cb.open = true
	cb.dev.mu.Unlock()
	cb.record(op, args...)
}

func (cb *CommandBuffer) end(scope string) {
	cb.dev.mu.Lock()
	cb.open = false
	cb.dev.mu.Unlock()
	cb.record(scope + ".EndEncoding")
}

func (cb *CommandBuffer) schedule(fn func() error) {
	cb.dev.mu.Lock()
	cb.work = append(cb.work, fn)
	cb.dev.mu.Unlock()
}

// RenderCommandEncoder opens a render encoder. The descriptor is copied.
func (cb *CommandBuffer) RenderCommandEncoder(desc *native.RenderPassDescriptor) native.RenderCommandEncoder {
	var snapshot native.RenderPassDescriptor
	snapshot.CopyFrom(desc)
	cb.begin("cb.RenderCommandEncoder", &snapshot)
	return &RenderEncoder{encoder: encoder{cb: cb, scope: "render"}, Desc: &snapshot}
}

// ComputeCommandEncoder opens a compute encoder.
func (cb *CommandBuffer) ComputeCommandEncoder() native.ComputeCommandEncoder {
	cb.begin("cb.ComputeCommandEncoder")
	return &ComputeEncoder{
		encoder: encoder{cb: cb, scope: "compute"},
		buffers: map[uint32]boundBuffer{},
		bytes:   map[uint32][]byte{},
	}
}

// BlitCommandEncoder opens a blit encoder.
func (cb *CommandBuffer) BlitCommandEncoder() native.BlitCommandEncoder {
	cb.begin("cb.BlitCommandEncoder")
	return &BlitEncoder{encoder: encoder{cb: cb, scope: "blit"}}
}

// PresentDrawable presents d when the buffer completes.
func (cb *CommandBuffer) PresentDrawable(d native.Drawable) {
	cb.record("cb.PresentDrawable", d)
	if cd, ok := d.(*Drawable); ok {
		cb.dev.mu.Lock()
		cb.drawable = append(cb.drawable, cd)
		cb.dev.mu.Unlock()
	}
}

// AddCompletedHandler registers fn to run on completion.
func (cb *CommandBuffer) AddCompletedHandler(fn func(native.CommandBuffer)) {
	cb.dev.mu.Lock()
	defer cb.dev.mu.Unlock()
	if cb.status >= native.StatusCommitted {
		panic("capture: completed handler added after commit")
	}
	cb.handlers = append(cb.handlers, fn)
}

// Enqueue reserves the buffer's position in the queue.
func (cb *CommandBuffer) Enqueue() {
	cb.dev.mu.Lock()
	if cb.status != native.StatusNotEnqueued {
		cb.dev.mu.Unlock()
		return
	}
	cb.status = native.StatusEnqueued
	cb.dev.mu.Unlock()
	cb.dev.enqueue(cb)
	cb.record("cb.Enqueue")
}

// Commit submits the buffer. It panics if an encoder is still open or the
// buffer was already committed.
func (cb *CommandBuffer) Commit() {
	cb.Enqueue()
	cb.dev.mu.Lock()
	if cb.open {
		cb.dev.mu.Unlock()
		panic("capture: commit with an open encoder")
	}
	if cb.status != native.StatusEnqueued {
		cb.dev.mu.Unlock()
		panic("capture: command buffer committed twice")
	}
	cb.status = native.StatusCommitted
	cb.dev.mu.Unlock()
	cb.record("cb.Commit")
	if !cb.dev.manual {
		cb.dev.drain(-1)
	}
}

// WaitUntilCompleted blocks until the buffer completes or fails.
func (cb *CommandBuffer) WaitUntilCompleted() {
	cb.dev.mu.Lock()
	defer cb.dev.mu.Unlock()
	for !cb.done {
		cb.dev.cond.Wait()
	}
}

// Status returns the buffer status.
func (cb *CommandBuffer) Status() native.Status {
	cb.dev.mu.Lock()
	defer cb.dev.mu.Unlock()
	return cb.status
}

func (cb *CommandBuffer) execute() {
	cb.dev.mu.Lock()
	work := cb.work
	handlers := cb.handlers
	drawables := cb.drawable
	cb.work, cb.handlers, cb.drawable = nil, nil, nil
	cb.dev.mu.Unlock()

	for _, fn := range work {
		if err := fn(); err != nil {
			cb.dev.mu.Lock()
			cb.status = native.StatusError
			cb.dev.mu.Unlock()
			cb.record("cb.Error", err)
			break
		}
	}
	for _, d := range drawables {
		d.mu.Lock()
		d.presented = true
		d.mu.Unlock()
	}
	cb.record("cb.Completed")
	for _, fn := range handlers {
		fn(cb)
	}
}
