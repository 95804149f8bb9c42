package sink

import (
	"sync"

	"github.com/gogpu/cmdbuf/internal/dispatch"
	"github.com/gogpu/cmdbuf/internal/reserve"
	"github.com/gogpu/cmdbuf/journal"
	"github.com/gogpu/cmdbuf/native"
	"github.com/gogpu/cmdbuf/soft"
)

// SharedCommandBuffer is a native command buffer touched both by the
// recording goroutine and by a dispatch queue.
type SharedCommandBuffer struct {
	mu sync.Mutex
	cb native.CommandBuffer
}

// NewSharedCommandBuffer wraps cb.
func NewSharedCommandBuffer(cb native.CommandBuffer) *SharedCommandBuffer {
	return &SharedCommandBuffer{cb: cb}
}

// With runs fn while holding the buffer lock.
func (s *SharedCommandBuffer) With(fn func(cb native.CommandBuffer)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.cb)
}

// EncodePass is one pass accumulated by a Remote sink before it is
// encoded.
type EncodePass struct {
	Pass    soft.Pass
	Label   string
	Arena   *soft.Arena
	Render  []soft.RenderCommand
	Compute []soft.ComputeCommand
	Blit    []soft.BlitCommand
}

// Len returns the number of commands in the pass.
func (p *EncodePass) Len() int { return len(p.Render) + len(p.Compute) + len(p.Blit) }

// Encode records the pass onto cb with a fresh encoder.
func (p *EncodePass) Encode(cb native.CommandBuffer) {
	enc := p.Pass.Begin(cb)
	if p.Label != "" {
		enc.SetLabel(p.Label)
	}
	switch p.Pass.Kind {
	case soft.PassRender:
		soft.ExecRenderAll(enc.(native.RenderCommandEncoder), p.Render)
	case soft.PassCompute:
		soft.ExecComputeAll(enc.(native.ComputeCommandEncoder), p.Compute)
	case soft.PassBlit:
		soft.ExecBlitAll(enc.(native.BlitCommandEncoder), p.Blit)
	}
	enc.EndEncoding()
}

// Capacity records the largest pass seen per kind, used to size the
// command slices of the next pass.
type Capacity struct {
	Render, Compute, Blit int
}

func (c *Capacity) observe(p *EncodePass) {
	c.Render = max(c.Render, len(p.Render))
	c.Compute = max(c.Compute, len(p.Compute))
	c.Blit = max(c.Blit, len(p.Blit))
}

// Remote accumulates passes locally and encodes each one on a dispatch
// queue when it ends.
//
// The recording side of Remote is single-threaded; only the shared buffer
// and the descriptor pool are touched by the queue.
type Remote struct {
	Queue    *dispatch.Queue
	CB       *SharedCommandBuffer
	Token    *reserve.Token
	Pass     *EncodePass
	Capacity Capacity

	label  string
	passes int
	pool   *DescriptorPool
}

// NewRemote creates a remote sink over a checked-out native buffer.
func NewRemote(q *dispatch.Queue, cb native.CommandBuffer, token *reserve.Token, pool *DescriptorPool) *Remote {
	return &Remote{
		Queue: q,
		CB:    NewSharedCommandBuffer(cb),
		Token: token,
		label: cb.Label(),
		pool:  pool,
	}
}

func (*Remote) sealed() {}

// Label returns the native buffer label.
func (s *Remote) Label() string { return s.label }

// NumPasses returns the number of passes opened.
func (s *Remote) NumPasses() int { return s.passes }

func (s *Remote) open(pass soft.Pass, label string) *EncodePass {
	s.StopEncoding()
	p := &EncodePass{Pass: pass, Label: label, Arena: soft.NewArena()}
	switch pass.Kind {
	case soft.PassRender:
		p.Render = make([]soft.RenderCommand, 0, s.Capacity.Render)
	case soft.PassCompute:
		p.Compute = make([]soft.ComputeCommand, 0, s.Capacity.Compute)
	case soft.PassBlit:
		p.Blit = make([]soft.BlitCommand, 0, s.Capacity.Blit)
	}
	s.Pass = p
	s.passes++
	return p
}

func (s *Remote) openKind() (soft.PassKind, bool) {
	if s.Pass == nil {
		return 0, false
	}
	return s.Pass.Pass.Kind, true
}

// PreRender implements Sink.
func (s *Remote) PreRender() RenderCursor {
	if k, ok := s.openKind(); ok && k == soft.PassRender {
		return RenderCursor{pass: s.Pass}
	}
	return RenderCursor{}
}

// PreCompute implements Sink.
func (s *Remote) PreCompute() ComputeCursor {
	if k, ok := s.openKind(); ok && k == soft.PassCompute {
		return ComputeCursor{pass: s.Pass}
	}
	return ComputeCursor{}
}

// Schedule stops encoding and runs fn on the dispatch queue with the
// native buffer locked. Jobs run in scheduling order.
func (s *Remote) Schedule(fn func(cb native.CommandBuffer)) {
	s.StopEncoding()
	shared := s.CB
	s.Queue.ExecAsync(func() { shared.With(fn) })
}

// StopEncoding hands the in-flight pass to the dispatch queue.
func (s *Remote) StopEncoding() {
	p := s.Pass
	if p == nil {
		return
	}
	s.Pass = nil
	s.Capacity.observe(p)
	shared, pool := s.CB, s.pool
	s.Queue.ExecAsync(func() {
		shared.With(p.Encode)
		if p.Pass.Desc != nil {
			pool.Put(p.Pass.Desc)
		}
	})
}

// SwitchRender implements Sink.
func (s *Remote) SwitchRender(desc *native.RenderPassDescriptor, label string) RenderCursor {
	slogger().Debug("sink: render pass", "mode", "remote", "label", label)
	return RenderCursor{pass: s.open(soft.RenderPass(desc), label)}
}

// SwitchCompute implements Sink.
func (s *Remote) SwitchCompute(label string) (ComputeCursor, bool) {
	if k, ok := s.openKind(); ok && k == soft.PassCompute {
		return ComputeCursor{pass: s.Pass}, false
	}
	slogger().Debug("sink: compute pass", "mode", "remote", "label", label)
	return ComputeCursor{pass: s.open(soft.ComputePass(), label)}, true
}

// BlitCommands implements Sink.
func (s *Remote) BlitCommands(cmds ...soft.BlitCommand) {
	if k, ok := s.openKind(); !ok || k != soft.PassBlit {
		s.open(soft.BlitPass(), "")
	}
	for _, c := range cmds {
		s.Pass.Blit = append(s.Pass.Blit, soft.Own(c, s.Pass.Arena))
	}
}

// QuickRender implements Sink.
func (s *Remote) QuickRender(label string, desc *native.RenderPassDescriptor, cmds ...soft.RenderCommand) {
	RenderCursor{pass: s.open(soft.RenderPass(desc), label)}.IssueMany(cmds)
	s.StopEncoding()
}

// QuickCompute implements Sink.
func (s *Remote) QuickCompute(label string, cmds ...soft.ComputeCommand) {
	ComputeCursor{pass: s.open(soft.ComputePass(), label)}.IssueMany(cmds)
	s.StopEncoding()
}

// ScheduleJournal replays a copy of j on the dispatch queue, so j may be
// reset or re-recorded before the queue runs.
func (s *Remote) ScheduleJournal(j *journal.Journal) {
	snapshot := journal.New()
	snapshot.Extend(j, false, s.pool)
	s.passes += snapshot.NumPasses()
	pool := s.pool
	s.Schedule(func(cb native.CommandBuffer) {
		snapshot.Record(cb)
		snapshot.Clear(pool)
	})
}
