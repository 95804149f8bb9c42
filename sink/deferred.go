package sink

import (
	"github.com/gogpu/cmdbuf/journal"
	"github.com/gogpu/cmdbuf/native"
	"github.com/gogpu/cmdbuf/soft"
)

// Deferred records into a journal that is replayed onto a native command
// buffer at submission time.
//
// A Deferred sink that inherits a render pass belongs to a secondary
// command buffer. Its journal holds exactly the one inherited render pass,
// opened by NewDeferred; opening any other pass panics.
type Deferred struct {
	Journal      *journal.Journal
	IsEncoding   bool
	IsInheriting bool

	label string
	pool  *DescriptorPool
}

// NewDeferred creates a deferred sink. When inheriting, the inherited
// render pass is opened immediately with no descriptor, since its target
// belongs to the primary buffer that executes it.
func NewDeferred(label string, inheriting bool, pool *DescriptorPool) *Deferred {
	s := &Deferred{Journal: journal.New(), IsInheriting: inheriting, label: label, pool: pool}
	if inheriting {
		s.Journal.Switch(soft.RenderPass(nil), "")
		s.IsEncoding = true
	}
	return s
}

func (*Deferred) sealed() {}

// Label returns the label given at creation.
func (s *Deferred) Label() string { return s.label }

// NumPasses returns the number of journal passes.
func (s *Deferred) NumPasses() int { return s.Journal.NumPasses() }

func (s *Deferred) openKind() (soft.PassKind, bool) {
	if !s.IsEncoding {
		return 0, false
	}
	return s.Journal.OpenKind()
}

// PreRender implements Sink.
func (s *Deferred) PreRender() RenderCursor {
	if k, ok := s.openKind(); ok && k == soft.PassRender {
		return RenderCursor{journal: s.Journal}
	}
	return RenderCursor{}
}

// PreCompute implements Sink.
func (s *Deferred) PreCompute() ComputeCursor {
	if k, ok := s.openKind(); ok && k == soft.PassCompute {
		return ComputeCursor{journal: s.Journal}
	}
	return ComputeCursor{}
}

func (s *Deferred) mustOwnPasses(op string) {
	if s.IsInheriting {
		panic("sink: " + op + " on a secondary buffer that inherits a render pass")
	}
}

// StopEncoding closes the open journal pass. The inherited pass of a
// secondary buffer is closed too, so the journal can be replayed.
func (s *Deferred) StopEncoding() {
	s.Journal.Stop()
	s.IsEncoding = false
}

// SwitchRender implements Sink.
func (s *Deferred) SwitchRender(desc *native.RenderPassDescriptor, label string) RenderCursor {
	s.mustOwnPasses("SwitchRender")
	slogger().Debug("sink: render pass", "mode", "deferred", "label", label)
	s.Journal.Switch(soft.RenderPass(desc), label)
	s.IsEncoding = true
	return RenderCursor{journal: s.Journal}
}

// SwitchCompute implements Sink.
func (s *Deferred) SwitchCompute(label string) (ComputeCursor, bool) {
	s.mustOwnPasses("SwitchCompute")
	if k, ok := s.openKind(); ok && k == soft.PassCompute {
		return ComputeCursor{journal: s.Journal}, false
	}
	slogger().Debug("sink: compute pass", "mode", "deferred", "label", label)
	s.Journal.Switch(soft.ComputePass(), label)
	s.IsEncoding = true
	return ComputeCursor{journal: s.Journal}, true
}

// BlitCommands implements Sink.
func (s *Deferred) BlitCommands(cmds ...soft.BlitCommand) {
	s.mustOwnPasses("BlitCommands")
	if k, ok := s.openKind(); !ok || k != soft.PassBlit {
		s.Journal.Switch(soft.BlitPass(), "")
		s.IsEncoding = true
	}
	s.Journal.AppendBlit(cmds...)
}

// QuickRender implements Sink.
func (s *Deferred) QuickRender(label string, desc *native.RenderPassDescriptor, cmds ...soft.RenderCommand) {
	s.mustOwnPasses("QuickRender")
	s.Journal.Switch(soft.RenderPass(desc), label)
	s.Journal.AppendRender(cmds...)
	s.StopEncoding()
}

// QuickCompute implements Sink.
func (s *Deferred) QuickCompute(label string, cmds ...soft.ComputeCommand) {
	s.mustOwnPasses("QuickCompute")
	s.Journal.Switch(soft.ComputePass(), label)
	s.Journal.AppendCompute(cmds...)
	s.StopEncoding()
}

// Extend appends the journal of a finished secondary buffer. With
// inherit set, its single render pass joins the open render pass.
func (s *Deferred) Extend(other *journal.Journal, inherit bool) {
	s.Journal.Extend(other, inherit, s.pool)
	if !inherit {
		s.IsEncoding = false
	}
}

// Clear empties the journal and returns its descriptors to the pool.
func (s *Deferred) Clear() {
	s.Journal.Clear(s.pool)
	s.IsEncoding = false
}
