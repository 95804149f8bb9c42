// Package journal implements the append-only command log used for
// deferred recording.
//
// A Journal groups soft commands into passes. Each pass records its kind,
// the half-open index range of its commands within the per-kind command
// list, and a debug label. Record replays the journal onto a native
// command buffer; Extend merges another journal into this one, either as
// new passes or, for secondary command buffers that inherit a render pass,
// into the currently open pass.
//
// A Journal is not safe for concurrent use.
package journal

import (
	"fmt"

	"github.com/gogpu/cmdbuf/native"
	"github.com/gogpu/cmdbuf/soft"
)

// Range is a half-open range of command indices.
type Range struct {
	Start, End int
}

// Len returns the number of indices in r.
func (r Range) Len() int { return r.End - r.Start }

// PassEntry is one pass of a journal.
type PassEntry struct {
	Pass  soft.Pass
	Range Range
	Label string
}

// DescriptorPool recycles render pass descriptors.
type DescriptorPool interface {
	Get() *native.RenderPassDescriptor
	Put(desc *native.RenderPassDescriptor)
}

// Journal is a replayable, pass-grouped command log.
type Journal struct {
	Resources *soft.Arena
	Passes    []PassEntry
	Render    []soft.RenderCommand
	Compute   []soft.ComputeCommand
	Blit      []soft.BlitCommand

	open bool
}

// New creates an empty journal.
func New() *Journal {
	return &Journal{Resources: soft.NewArena()}
}

// IsOpen reports whether the last pass is still accepting commands.
func (j *Journal) IsOpen() bool { return j.open }

// LastPass returns the last pass, if any.
func (j *Journal) LastPass() (PassEntry, bool) {
	if len(j.Passes) == 0 {
		return PassEntry{}, false
	}
	return j.Passes[len(j.Passes)-1], true
}

// OpenKind returns the kind of the open pass, or false if none is open.
func (j *Journal) OpenKind() (soft.PassKind, bool) {
	if !j.open {
		return 0, false
	}
	return j.Passes[len(j.Passes)-1].Pass.Kind, true
}

func (j *Journal) listLen(kind soft.PassKind) int {
	switch kind {
	case soft.PassRender:
		return len(j.Render)
	case soft.PassCompute:
		return len(j.Compute)
	default:
		return len(j.Blit)
	}
}

// Stop closes the open pass. It is a no-op when no pass is open.
func (j *Journal) Stop() {
	if !j.open {
		return
	}
	last := &j.Passes[len(j.Passes)-1]
	last.Range.End = j.listLen(last.Pass.Kind)
	j.open = false
}

// Switch closes the open pass and opens a new one.
func (j *Journal) Switch(pass soft.Pass, label string) {
	j.Stop()
	n := j.listLen(pass.Kind)
	j.Passes = append(j.Passes, PassEntry{Pass: pass, Range: Range{Start: n, End: n}, Label: label})
	j.open = true
}

func (j *Journal) requireOpen(kind soft.PassKind) {
	k, ok := j.OpenKind()
	if !ok || k != kind {
		panic(fmt.Sprintf("journal: append %s commands without an open %s pass", kind, kind))
	}
}

// AppendRender appends render commands to the open render pass, taking
// ownership of their payloads.
func (j *Journal) AppendRender(cmds ...soft.RenderCommand) {
	j.requireOpen(soft.PassRender)
	for _, c := range cmds {
		j.Render = append(j.Render, soft.Own(c, j.Resources))
	}
}

// AppendCompute appends compute commands to the open compute pass.
func (j *Journal) AppendCompute(cmds ...soft.ComputeCommand) {
	j.requireOpen(soft.PassCompute)
	for _, c := range cmds {
		j.Compute = append(j.Compute, soft.Own(c, j.Resources))
	}
}

// AppendBlit appends blit commands to the open blit pass.
func (j *Journal) AppendBlit(cmds ...soft.BlitCommand) {
	j.requireOpen(soft.PassBlit)
	for _, c := range cmds {
		j.Blit = append(j.Blit, soft.Own(c, j.Resources))
	}
}

// Record replays every pass in order onto cb, each into a fresh encoder.
// The journal must not have an open pass.
func (j *Journal) Record(cb native.CommandBuffer) {
	if j.open {
		panic("journal: record with an open pass")
	}
	for _, p := range j.Passes {
		enc := p.Pass.Begin(cb)
		if p.Label != "" {
			enc.SetLabel(p.Label)
		}
		switch p.Pass.Kind {
		case soft.PassRender:
			soft.ExecRenderAll(enc.(native.RenderCommandEncoder), j.Render[p.Range.Start:p.Range.End])
		case soft.PassCompute:
			soft.ExecComputeAll(enc.(native.ComputeCommandEncoder), j.Compute[p.Range.Start:p.Range.End])
		case soft.PassBlit:
			soft.ExecBlitAll(enc.(native.BlitCommandEncoder), j.Blit[p.Range.Start:p.Range.End])
		}
		enc.EndEncoding()
	}
}

// RenderCommands returns the commands of pass p, which must be a render
// pass of j.
func (j *Journal) RenderCommands(p PassEntry) []soft.RenderCommand {
	return j.Render[p.Range.Start:p.Range.End]
}

// Extend appends other to j.
//
// With inherit set, other must consist of exactly one render pass and j
// must have an open render pass; other's commands join that pass.
// Otherwise j's open pass is closed and every pass of other is appended
// with its command ranges rebased onto j's lists. Render pass descriptors
// are copied so both journals stay independently clearable; pool may be
// nil.
func (j *Journal) Extend(other *Journal, inherit bool, pool DescriptorPool) {
	if inherit {
		if len(other.Passes) != 1 {
			panic(fmt.Sprintf("journal: inherited extend needs exactly one pass, got %d", len(other.Passes)))
		}
		if k, ok := j.OpenKind(); !ok || k != soft.PassRender {
			panic("journal: inherited extend outside an open render pass")
		}
		if other.Passes[0].Pass.Kind != soft.PassRender {
			panic("journal: only render passes can be inherited")
		}
		j.AppendRender(other.RenderCommands(other.Passes[0])...)
		return
	}

	j.Stop()
	base := [3]int{len(j.Render), len(j.Compute), len(j.Blit)}
	for _, c := range other.Render {
		j.Render = append(j.Render, soft.Own(c, j.Resources))
	}
	for _, c := range other.Compute {
		j.Compute = append(j.Compute, soft.Own(c, j.Resources))
	}
	for _, c := range other.Blit {
		j.Blit = append(j.Blit, soft.Own(c, j.Resources))
	}
	for i, p := range other.Passes {
		off := base[p.Pass.Kind]
		end := p.Range.End
		if other.open && i == len(other.Passes)-1 {
			end = other.listLen(p.Pass.Kind)
		}
		entry := PassEntry{
			Pass:  p.Pass,
			Range: Range{Start: p.Range.Start + off, End: end + off},
			Label: p.Label,
		}
		if p.Pass.Desc != nil {
			entry.Pass.Desc = copyDescriptor(p.Pass.Desc, pool)
		}
		j.Passes = append(j.Passes, entry)
	}
}

func copyDescriptor(src *native.RenderPassDescriptor, pool DescriptorPool) *native.RenderPassDescriptor {
	var d *native.RenderPassDescriptor
	if pool != nil {
		d = pool.Get()
	} else {
		d = new(native.RenderPassDescriptor)
	}
	d.CopyFrom(src)
	return d
}

// Clear empties the journal, returning render pass descriptors to pool
// when it is non-nil.
func (j *Journal) Clear(pool DescriptorPool) {
	if pool != nil {
		for _, p := range j.Passes {
			if p.Pass.Desc != nil {
				pool.Put(p.Pass.Desc)
			}
		}
	}
	clear(j.Passes)
	clear(j.Render)
	clear(j.Compute)
	clear(j.Blit)
	j.Passes = j.Passes[:0]
	j.Render = j.Render[:0]
	j.Compute = j.Compute[:0]
	j.Blit = j.Blit[:0]
	j.Resources.Clear()
	j.open = false
}

// NumPasses returns the number of passes recorded.
func (j *Journal) NumPasses() int { return len(j.Passes) }
