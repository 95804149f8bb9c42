package capture

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/gogpu/cmdbuf/native"
)

// FillPipelineLabel is the label of the device's fill-buffer pipeline.
const FillPipelineLabel = "fill_buffer"

// ErrQueueFull is returned when a queue already holds its maximum number
// of uncompleted command buffers.
var ErrQueueFull = errors.New("capture: command queue is full")

// Option configures a Device.
type Option func(*Device)

// WithManualCompletion holds committed command buffers until CompleteAll
// or CompleteNext is called.
func WithManualCompletion() Option {
	return func(d *Device) { d.manual = true }
}

// WithThreadExecutionWidth sets the SIMD width reported by pipelines
// created by the device. The default is 32.
func WithThreadExecutionWidth(w uint32) Option {
	return func(d *Device) { d.width = w }
}

// FillFunc produces the bytes of a fill-pipeline dispatch: words copies
// of pattern, little endian.
type FillFunc func(pattern, words uint32) ([]byte, error)

// WithFillFunc runs fill-pipeline dispatches through fn instead of on host
// memory. A failing fn puts the command buffer in StatusError.
func WithFillFunc(fn FillFunc) Option {
	return func(d *Device) { d.fillFn = fn }
}

// Device is a recording native.Device.
type Device struct {
	Trace Trace

	nextID atomic.Uintptr
	manual bool
	width  uint32
	fill   *ComputePipeline
	fillFn FillFunc

	mu       sync.Mutex
	cond     *sync.Cond
	order    []*CommandBuffer // enqueued, not yet completed
	draining bool
	depth    []*DepthStencilState
}

var _ native.Device = (*Device)(nil)

// NewDevice creates a capture device.
func NewDevice(opts ...Option) *Device {
	d := &Device{width: 32}
	d.cond = sync.NewCond(&d.mu)
	for _, opt := range opts {
		opt(d)
	}
	d.fill = d.NewComputePipeline(FillPipelineLabel)
	return d
}

func (d *Device) object(label string) object {
	return object{id: d.nextID.Add(1), label: label}
}

// Name returns "capture".
func (d *Device) Name() string { return "capture" }

// NewCommandQueue creates a queue.
func (d *Device) NewCommandQueue(maxCommandBuffers int) (native.CommandQueue, error) {
	return &CommandQueue{dev: d, max: maxCommandBuffers}, nil
}

// NewBuffer creates a buffer holding a copy of data.
func (d *Device) NewBuffer(data []byte) (native.Buffer, error) {
	b := &Buffer{object: d.object(""), data: make([]byte, len(data))}
	copy(b.data, data)
	return b, nil
}

// NewBufferSize creates a zeroed buffer.
func (d *Device) NewBufferSize(label string, size int) *Buffer {
	return &Buffer{object: d.object(label), data: make([]byte, size)}
}

// NewTexture creates an opaque texture.
func (d *Device) NewTexture(label string) *Texture {
	return &Texture{object: d.object(label)}
}

// NewSampler creates an opaque sampler.
func (d *Device) NewSampler(label string) *Sampler {
	return &Sampler{object: d.object(label)}
}

// NewRenderPipeline creates an opaque render pipeline.
func (d *Device) NewRenderPipeline(label string) *RenderPipeline {
	return &RenderPipeline{object: d.object(label)}
}

// NewComputePipeline creates an opaque compute pipeline.
func (d *Device) NewComputePipeline(label string) *ComputePipeline {
	return &ComputePipeline{object: d.object(label), width: d.width}
}

// NewDrawable creates a presentable drawable.
func (d *Device) NewDrawable(label string) *Drawable {
	return &Drawable{object: d.object(label), tex: d.NewTexture(label + ".texture")}
}

// NewDepthStencilState records the creation and returns a new state.
func (d *Device) NewDepthStencilState(desc native.DepthStencilDescriptor) (native.DepthStencilState, error) {
	s := &DepthStencilState{object: d.object(""), Desc: desc}
	d.mu.Lock()
	d.depth = append(d.depth, s)
	d.mu.Unlock()
	d.Trace.add(Call{Op: "device.NewDepthStencilState", Args: []any{desc}})
	return s, nil
}

// DepthStencilStates returns how many depth-stencil states were created.
func (d *Device) DepthStencilStates() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.depth)
}

// FillBufferPipeline returns the fill-buffer service pipeline.
func (d *Device) FillBufferPipeline() (native.ComputePipelineState, error) {
	return d.fill, nil
}

// Pending returns how many enqueued command buffers have not completed.
func (d *Device) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.order)
}

// CompleteAll completes every committed command buffer at the head of the
// enqueue order. It returns the number completed.
func (d *Device) CompleteAll() int {
	return d.drain(-1)
}

// CompleteNext completes the head command buffer if it is committed.
func (d *Device) CompleteNext() bool {
	return d.drain(1) == 1
}

func (d *Device) enqueue(cb *CommandBuffer) {
	d.mu.Lock()
	d.order = append(d.order, cb)
	d.mu.Unlock()
}

// drain completes up to limit head buffers (all when limit < 0). Only one
// goroutine drains at a time so completion handlers observe enqueue order;
// a nested or concurrent call returns immediately and the active drainer
// picks up the work.
func (d *Device) drain(limit int) int {
	d.mu.Lock()
	if d.draining {
		d.mu.Unlock()
		return 0
	}
	d.draining = true
	done := 0
	for limit < 0 || done < limit {
		if len(d.order) == 0 || d.order[0].status != native.StatusCommitted {
			break
		}
		cb := d.order[0]
		d.order = d.order[1:]
		cb.status = native.StatusScheduled
		d.mu.Unlock()

		cb.execute()

		d.mu.Lock()
		if cb.status != native.StatusError {
			cb.status = native.StatusCompleted
		}
		cb.done = true
		done++
		d.cond.Broadcast()
	}
	d.draining = false
	d.mu.Unlock()
	return done
}

// CommandQueue vends capture command buffers.
type CommandQueue struct {
	dev *Device
	max int
}

// NewCommandBuffer creates a command buffer.
func (q *CommandQueue) NewCommandBuffer() (native.CommandBuffer, error) {
	if q.max > 0 && q.dev.Pending() >= q.max {
		return nil, ErrQueueFull
	}
	cb := &CommandBuffer{object: q.dev.object(""), dev: q.dev}
	q.dev.Trace.add(Call{Op: "queue.NewCommandBuffer"})
	return cb, nil
}
