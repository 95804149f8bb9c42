package native

// Handle is implemented by every native object that can be bound.
// NativeHandle returns a stable identity used for equality checks.
type Handle interface {
	NativeHandle() uintptr
}

// Buffer is a linear GPU allocation.
type Buffer interface {
	Handle

	// Length returns the size of the allocation in bytes.
	Length() uint64

	// Contents returns host-visible memory, or nil when the buffer is
	// device-private.
	Contents() []byte
}

// Texture is an image resource or a view of one.
type Texture interface {
	Handle
}

// SamplerState is an immutable sampler object.
type SamplerState interface {
	Handle
}

// RenderPipelineState is a compiled graphics pipeline.
type RenderPipelineState interface {
	Handle
}

// ComputePipelineState is a compiled compute pipeline.
type ComputePipelineState interface {
	Handle

	// ThreadExecutionWidth is the SIMD width the pipeline executes with.
	ThreadExecutionWidth() uint32
}

// DepthStencilState is an immutable depth/stencil configuration created
// from a DepthStencilDescriptor.
type DepthStencilState interface {
	Handle
}

// Drawable is a presentable surface image.
type Drawable interface {
	Handle
	Texture() Texture
}

// Device creates native objects.
type Device interface {
	// Name returns a human readable adapter name.
	Name() string

	// NewCommandQueue creates a queue able to hold maxCommandBuffers
	// uncompleted command buffers.
	NewCommandQueue(maxCommandBuffers int) (CommandQueue, error)

	// NewBuffer creates a host-visible buffer initialized with data.
	NewBuffer(data []byte) (Buffer, error)

	// NewDepthStencilState creates a depth/stencil state object.
	NewDepthStencilState(desc DepthStencilDescriptor) (DepthStencilState, error)

	// FillBufferPipeline returns the service compute pipeline used to fill
	// buffer ranges with a 32-bit pattern. Binding 0 is the destination
	// buffer, binding 1 holds the pattern, the word count and, optionally,
	// the byte count. Each invocation fills one word; a byte count ends
	// the fill mid-word.
	FillBufferPipeline() (ComputePipelineState, error)
}

// CommandQueue vends command buffers.
type CommandQueue interface {
	NewCommandBuffer() (CommandBuffer, error)
}

// Status is the lifecycle position of a native command buffer.
type Status uint8

// Command buffer statuses.
const (
	StatusNotEnqueued Status = iota
	StatusEnqueued
	StatusCommitted
	StatusScheduled
	StatusCompleted
	StatusError
)

var statusNames = [...]string{
	StatusNotEnqueued: "NotEnqueued",
	StatusEnqueued:    "Enqueued",
	StatusCommitted:   "Committed",
	StatusScheduled:   "Scheduled",
	StatusCompleted:   "Completed",
	StatusError:       "Error",
}

// String returns the status name.
func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "Unknown"
}

// CommandBuffer is a native command buffer.
//
// Lifecycle: NotEnqueued -> Enqueued -> Committed -> Completed.
// Enqueue reserves the buffer's position in the queue; Commit hands it to
// the GPU. A buffer never runs before every buffer enqueued ahead of it.
type CommandBuffer interface {
	Label() string
	SetLabel(label string)

	RenderCommandEncoder(desc *RenderPassDescriptor) RenderCommandEncoder
	ComputeCommandEncoder() ComputeCommandEncoder
	BlitCommandEncoder() BlitCommandEncoder

	// PresentDrawable schedules d for presentation once the buffer completes.
	PresentDrawable(d Drawable)

	// AddCompletedHandler registers fn to run after the GPU finishes the
	// buffer. Handlers must be added before Commit.
	AddCompletedHandler(fn func(CommandBuffer))

	Enqueue()
	Commit()
	WaitUntilCompleted()
	Status() Status
}
