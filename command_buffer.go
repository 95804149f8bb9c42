package cmdbuf

import (
	"fmt"

	"github.com/gogpu/cmdbuf/native"
	"github.com/gogpu/cmdbuf/resource"
	"github.com/gogpu/cmdbuf/sink"
	"github.com/gogpu/cmdbuf/state"
)

// Level is the level of a command buffer.
type Level uint8

// Command buffer levels.
const (
	LevelPrimary Level = iota
	LevelSecondary
)

// UsageFlags are passed to Begin.
type UsageFlags uint8

// Usage flags.
const (
	// UsageOneTimeSubmit promises the buffer is submitted once. Only such
	// primary buffers can be recorded immediately or remotely.
	UsageOneTimeSubmit UsageFlags = 1 << iota
	// UsageRenderPassContinue marks a secondary buffer recorded entirely
	// inside a render pass of the primary that executes it.
	UsageRenderPassContinue
	// UsageSimultaneousUse allows the buffer to be pending more than once.
	UsageSimultaneousUse
)

// Inheritance describes the render pass a secondary buffer continues.
type Inheritance struct {
	RenderPass  *resource.RenderPass
	Subpass     int
	Framebuffer *resource.Framebuffer
}

// BufferState is the recording lifecycle position of a CommandBuffer.
type BufferState uint8

// Buffer states.
const (
	StateUnrecorded BufferState = iota
	StateRecording
	StateSubmittable
	StateRetired
)

var bufferStateNames = [...]string{
	StateUnrecorded:  "unrecorded",
	StateRecording:   "recording",
	StateSubmittable: "submittable",
	StateRetired:     "retired",
}

// String returns the state name.
func (s BufferState) String() string {
	if int(s) < len(bufferStateNames) {
		return bufferStateNames[s]
	}
	return "unknown"
}

// CommandBuffer records commands through a state cache into a sink.
//
// A CommandBuffer is not safe for concurrent use.
type CommandBuffer struct {
	pool  *CommandPool
	level Level
	label string

	status BufferState
	usage  UsageFlags
	sink   sink.Sink
	state  *state.State

	events     []eventUpdate
	waitEvents []*Event
	queries    []queryRef
	retained   []native.Buffer
}

func newCommandBuffer(p *CommandPool, level Level) *CommandBuffer {
	return &CommandBuffer{pool: p, level: level, state: state.New()}
}

// Level returns the buffer level.
func (c *CommandBuffer) Level() Level { return c.level }

// State returns the lifecycle state.
func (c *CommandBuffer) State() BufferState { return c.status }

// Sink returns the active recording sink, or nil before Begin.
func (c *CommandBuffer) Sink() sink.Sink { return c.sink }

// Cache returns the buffer's state cache.
func (c *CommandBuffer) Cache() *state.State { return c.state }

// SetLabel sets the debug label used for native buffers created by Begin.
func (c *CommandBuffer) SetLabel(label string) { c.label = label }

// Begin starts recording. A buffer that is not unrecorded is reset first.
// It fails with ErrOutOfResources when no native command buffer can be
// checked out.
func (c *CommandBuffer) Begin(usage UsageFlags, inheritance *Inheritance) error {
	if c.status == StateRecording {
		panic("cmdbuf: Begin on a recording command buffer")
	}
	if c.status != StateUnrecorded {
		c.Reset(false)
	}
	c.usage = usage
	q := c.pool.queue
	descriptors := c.pool.descriptors

	eligible := c.level == LevelPrimary && usage&UsageOneTimeSubmit != 0
	switch {
	case eligible && c.pool.recording == RecordImmediate:
		raw, token, err := q.Spawn()
		if err != nil {
			return fmt.Errorf("cmdbuf: begin: %w", err)
		}
		if c.label != "" {
			raw.SetLabel(c.label)
		}
		c.sink = sink.NewImmediate(raw, token, descriptors)
	case eligible && c.pool.recording == RecordRemote:
		raw, token, err := q.Spawn()
		if err != nil {
			return fmt.Errorf("cmdbuf: begin: %w", err)
		}
		if c.label != "" {
			raw.SetLabel(c.label)
		}
		c.sink = sink.NewRemote(c.pool.dispatch, raw, token, descriptors)
	default:
		inherit := c.level == LevelSecondary && usage&UsageRenderPassContinue != 0 && inheritance != nil
		c.sink = sink.NewDeferred(c.label, inherit, descriptors)
		if inherit {
			c.inheritTarget(inheritance)
		}
	}
	c.status = StateRecording
	return nil
}

func (c *CommandBuffer) inheritTarget(in *Inheritance) {
	t := in.RenderPass.Target(in.Subpass)
	target := state.Target{
		Aspects:            t.Aspects,
		ColorFormats:       t.ColorFormats,
		DepthStencilFormat: t.DepthStencilFormat,
		Samples:            t.Samples,
	}
	if in.Framebuffer != nil {
		target.Extent = in.Framebuffer.Extent
	}
	c.state.SetTarget(target)
}

// Finish ends recording.
func (c *CommandBuffer) Finish() error {
	if c.status != StateRecording {
		return ErrNotRecording
	}
	c.sink.StopEncoding()
	c.status = StateSubmittable
	return nil
}

// Reset returns the buffer to the unrecorded state, checking its native
// buffer back in. releaseResources also drops retained staging buffers
// capacity.
func (c *CommandBuffer) Reset(releaseResources bool) {
	switch s := c.sink.(type) {
	case *sink.Immediate:
		s.StopEncoding()
		c.pool.queue.Release(s.Token)
	case *sink.Remote:
		s.StopEncoding()
		c.pool.queue.Release(s.Token)
	case *sink.Deferred:
		s.Clear()
	}
	c.sink = nil
	c.state.Reset()
	clear(c.events)
	clear(c.waitEvents)
	clear(c.queries)
	clear(c.retained)
	c.events = c.events[:0]
	c.waitEvents = c.waitEvents[:0]
	c.queries = c.queries[:0]
	c.retained = c.retained[:0]
	if releaseResources {
		c.events, c.waitEvents, c.queries, c.retained = nil, nil, nil, nil
	}
	c.usage = 0
	c.status = StateUnrecorded
}

// markSubmitted checks the buffer can be submitted and retires it.
// Deferred buffers without UsageOneTimeSubmit may be submitted again.
func (c *CommandBuffer) markSubmitted() {
	c.checkSubmittable()
	c.status = StateRetired
}

// checkSubmittable panics unless c may be submitted.
func (c *CommandBuffer) checkSubmittable() {
	switch c.status {
	case StateSubmittable:
	case StateRetired:
		if _, ok := c.sink.(*sink.Deferred); !ok || c.usage&UsageOneTimeSubmit != 0 {
			panic("cmdbuf: one-time command buffer submitted twice")
		}
	default:
		panic(fmt.Sprintf("cmdbuf: submit of a %s command buffer", c.status))
	}
	if c.level != LevelPrimary {
		panic("cmdbuf: secondary command buffers cannot be submitted")
	}
}

func (c *CommandBuffer) mustRecord(op string) {
	if c.status != StateRecording {
		panic(fmt.Sprintf("cmdbuf: %s on a %s command buffer", op, c.status))
	}
}
