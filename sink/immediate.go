package sink

import (
	"github.com/gogpu/cmdbuf/internal/reserve"
	"github.com/gogpu/cmdbuf/journal"
	"github.com/gogpu/cmdbuf/native"
	"github.com/gogpu/cmdbuf/soft"
)

// Immediate records straight into a live native command buffer.
//
// Immediate is strictly single-threaded.
type Immediate struct {
	CB    native.CommandBuffer
	Token *reserve.Token
	State EncoderState

	render  native.RenderCommandEncoder
	compute native.ComputeCommandEncoder
	blit    native.BlitCommandEncoder
	passes  int
	pool    *DescriptorPool
}

// NewImmediate wraps a checked-out native command buffer.
func NewImmediate(cb native.CommandBuffer, token *reserve.Token, pool *DescriptorPool) *Immediate {
	return &Immediate{CB: cb, Token: token, pool: pool}
}

func (*Immediate) sealed() {}

// Label returns the native buffer label.
func (s *Immediate) Label() string { return s.CB.Label() }

// NumPasses returns the number of encoders created.
func (s *Immediate) NumPasses() int { return s.passes }

// PreRender implements Sink.
func (s *Immediate) PreRender() RenderCursor {
	if s.State == EncoderRender {
		return RenderCursor{enc: s.render}
	}
	return RenderCursor{}
}

// PreCompute implements Sink.
func (s *Immediate) PreCompute() ComputeCursor {
	if s.State == EncoderCompute {
		return ComputeCursor{enc: s.compute}
	}
	return ComputeCursor{}
}

// StopEncoding ends the open native encoder.
func (s *Immediate) StopEncoding() {
	switch s.State {
	case EncoderRender:
		s.render.EndEncoding()
		s.render = nil
	case EncoderCompute:
		s.compute.EndEncoding()
		s.compute = nil
	case EncoderBlit:
		s.blit.EndEncoding()
		s.blit = nil
	}
	s.State = EncoderNone
}

func (s *Immediate) openRender(desc *native.RenderPassDescriptor, label string) native.RenderCommandEncoder {
	s.StopEncoding()
	enc := s.CB.RenderCommandEncoder(desc)
	s.pool.Put(desc)
	if label != "" {
		enc.SetLabel(label)
	}
	s.passes++
	return enc
}

func (s *Immediate) openCompute(label string) native.ComputeCommandEncoder {
	s.StopEncoding()
	enc := s.CB.ComputeCommandEncoder()
	if label != "" {
		enc.SetLabel(label)
	}
	s.passes++
	return enc
}

// SwitchRender implements Sink.
func (s *Immediate) SwitchRender(desc *native.RenderPassDescriptor, label string) RenderCursor {
	slogger().Debug("sink: render pass", "mode", "immediate", "label", label)
	s.render = s.openRender(desc, label)
	s.State = EncoderRender
	return RenderCursor{enc: s.render}
}

// SwitchCompute implements Sink.
func (s *Immediate) SwitchCompute(label string) (ComputeCursor, bool) {
	if s.State == EncoderCompute {
		return ComputeCursor{enc: s.compute}, false
	}
	slogger().Debug("sink: compute pass", "mode", "immediate", "label", label)
	s.compute = s.openCompute(label)
	s.State = EncoderCompute
	return ComputeCursor{enc: s.compute}, true
}

// BlitCommands implements Sink.
func (s *Immediate) BlitCommands(cmds ...soft.BlitCommand) {
	if s.State != EncoderBlit {
		s.StopEncoding()
		s.blit = s.CB.BlitCommandEncoder()
		s.State = EncoderBlit
		s.passes++
	}
	soft.ExecBlitAll(s.blit, cmds)
}

// QuickRender implements Sink.
func (s *Immediate) QuickRender(label string, desc *native.RenderPassDescriptor, cmds ...soft.RenderCommand) {
	enc := s.openRender(desc, label)
	soft.ExecRenderAll(enc, cmds)
	enc.EndEncoding()
}

// QuickCompute implements Sink.
func (s *Immediate) QuickCompute(label string, cmds ...soft.ComputeCommand) {
	enc := s.openCompute(label)
	soft.ExecComputeAll(enc, cmds)
	enc.EndEncoding()
}

// Replay ends the open encoder and records every pass of j into the
// native buffer.
func (s *Immediate) Replay(j *journal.Journal) {
	s.StopEncoding()
	j.Record(s.CB)
	s.passes += j.NumPasses()
}
