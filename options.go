package cmdbuf

import (
	"github.com/gogpu/cmdbuf/internal/dispatch"
)

// QueueOption configures a Queue during creation.
//
// Example:
//
//	q, err := cmdbuf.NewQueue(dev, cmdbuf.WithReserve(16), cmdbuf.WithStitchDeferred(false))
type QueueOption func(*queueOptions)

type queueOptions struct {
	reserve        int
	stitchDeferred bool
	dummyEncoders  bool
	queryCapacity  uint32
	depthStencils  int
}

func defaultQueueOptions() queueOptions {
	return queueOptions{
		reserve:        64,
		stitchDeferred: true,
		queryCapacity:  4096,
		depthStencils:  256,
	}
}

// WithReserve sets how many native command buffers may be checked out at
// once. The default is 64.
func WithReserve(n int) QueueOption {
	return func(o *queueOptions) {
		if n > 0 {
			o.reserve = n
		}
	}
}

// WithStitchDeferred controls whether consecutive deferred command
// buffers of one submission are replayed into a single native buffer.
// Enabled by default.
func WithStitchDeferred(enabled bool) QueueOption {
	return func(o *queueOptions) {
		o.stitchDeferred = enabled
	}
}

// WithDummyEncoders records an empty blit encoder into native buffers that
// would otherwise carry no encoder, so GPU capture tools list them.
// Disabled by default.
func WithDummyEncoders(enabled bool) QueueOption {
	return func(o *queueOptions) {
		o.dummyEncoders = enabled
	}
}

// WithQueryCapacity sets the number of occlusion query slots shared by all
// query pools of the queue. The default is 4096.
func WithQueryCapacity(n uint32) QueueOption {
	return func(o *queueOptions) {
		if n > 0 {
			o.queryCapacity = n
		}
	}
}

// WithDepthStencilCache bounds the number of cached native depth-stencil
// state objects. The default is 256.
func WithDepthStencilCache(n int) QueueOption {
	return func(o *queueOptions) {
		if n > 0 {
			o.depthStencils = n
		}
	}
}

// Recording selects the recording strategy of a command pool.
type Recording uint8

// Recording strategies.
const (
	// RecordDeferred journals every command buffer.
	RecordDeferred Recording = iota
	// RecordImmediate records eligible buffers onto live native buffers.
	RecordImmediate
	// RecordRemote encodes eligible buffers on a dispatch queue.
	RecordRemote
)

var recordingNames = [...]string{
	RecordDeferred:  "deferred",
	RecordImmediate: "immediate",
	RecordRemote:    "remote",
}

// String returns the strategy name.
func (r Recording) String() string {
	if int(r) < len(recordingNames) {
		return recordingNames[r]
	}
	return "unknown"
}

// PoolOption configures a CommandPool during creation.
type PoolOption func(*poolOptions)

type poolOptions struct {
	recording Recording
	dispatch  *dispatch.Queue
}

// WithRecording selects the recording strategy. The default is
// RecordDeferred.
func WithRecording(r Recording) PoolOption {
	return func(o *poolOptions) {
		o.recording = r
	}
}

// WithDispatchQueue makes Remote recording use q instead of a queue owned
// by the pool. The caller keeps ownership of q.
func WithDispatchQueue(q *DispatchQueue) PoolOption {
	return func(o *poolOptions) {
		o.dispatch = q
	}
}
