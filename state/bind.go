package state

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/cmdbuf/resource"
	"github.com/gogpu/cmdbuf/soft"
)

// BindResult reports the effect of BindSet.
type BindResult struct {
	// Next holds, per stage, the slot following the last one written.
	Next resource.StageCounts
	// SizesChanged has the flag of every stage whose runtime-sized binding
	// lengths changed.
	SizesChanged gputypes.ShaderStage
	// DynamicUsed is the number of dynamic offsets consumed.
	DynamicUsed int
}

// BindSet copies the entries of set into the tables of every stage in
// stages, starting at the per-stage offsets. Dynamic buffer bindings take
// their offsets from dynamic, in binding order.
func (s *State) BindSet(stages gputypes.ShaderStage, set *resource.DescriptorSet, offsets resource.StageCounts, dynamic []uint32) BindResult {
	res := BindResult{Next: offsets, DynamicUsed: set.DynamicCount()}
	for st := resource.Stage(0); st < resource.NumStages; st++ {
		flag := st.ShaderStage()
		if stages&flag == 0 {
			continue
		}
		table := &s.Stages[st]
		next := offsets[st]
		d := 0
		for _, b := range set.Buffers {
			var dyn uint64
			if b.Dynamic {
				if d < len(dynamic) {
					dyn = uint64(dynamic[d])
				}
				d++
			}
			if b.Stages&flag == 0 {
				continue
			}
			table.BindBuffer(next.Buffers, b.Buffer, b.Offset+dyn)
			if b.Sized && table.SetSize(next.Buffers, uint32(b.Size)) {
				res.SizesChanged |= flag
			}
			next.Buffers++
		}
		for _, t := range set.Textures {
			if t.Stages&flag == 0 {
				continue
			}
			table.BindTexture(next.Textures, t.Texture)
			next.Textures++
		}
		for _, sm := range set.Samplers {
			if sm.Stages&flag == 0 {
				continue
			}
			table.BindSampler(next.Samplers, sm.Sampler)
			next.Samplers++
		}
		res.Next[st] = next
	}
	return res
}

// StageCommands returns the binding commands for the slots of stage st in
// the half-open ranges [start, end) of each kind.
func (s *State) StageCommands(st resource.Stage, start, end resource.ResourceCounts) []soft.Command {
	r := &s.Stages[st]
	flag := st.ShaderStage()
	var cmds []soft.Command
	if hi := min(end.Buffers, uint32(len(r.Buffers))); start.Buffers < hi {
		cmds = append(cmds, soft.BindBuffers{
			Stage:   flag,
			Index:   start.Buffers,
			Buffers: r.Buffers[start.Buffers:hi],
			Offsets: r.BufferOffsets[start.Buffers:hi],
		})
	}
	if hi := min(end.Textures, uint32(len(r.Textures))); start.Textures < hi {
		cmds = append(cmds, soft.BindTextures{Stage: flag, Index: start.Textures, Textures: r.Textures[start.Textures:hi]})
	}
	if hi := min(end.Samplers, uint32(len(r.Samplers))); start.Samplers < hi {
		cmds = append(cmds, soft.BindSamplers{Stage: flag, Index: start.Samplers, Samplers: r.Samplers[start.Samplers:hi]})
	}
	return cmds
}

func lastBound[T comparable](items []T) uint32 {
	var zero T
	for i := len(items) - 1; i >= 0; i-- {
		if items[i] != zero {
			return uint32(i + 1)
		}
	}
	return 0
}

// fullStageCommands binds every slot of st up to the last one holding a
// resource.
func (s *State) fullStageCommands(st resource.Stage) []soft.Command {
	r := &s.Stages[st]
	used := resource.ResourceCounts{
		Buffers:  lastBound(r.Buffers),
		Textures: lastBound(r.Textures),
		Samplers: lastBound(r.Samplers),
	}
	return s.StageCommands(st, resource.ResourceCounts{}, used)
}

// MakeRenderCommands returns every command needed to re-establish render
// state on a freshly opened render encoder whose target has aspects.
func (s *State) MakeRenderCommands(aspects resource.Aspects, ds DepthStencilStates) []soft.RenderCommand {
	var cmds []soft.RenderCommand
	if s.Viewport != nil {
		cmds = append(cmds, soft.SetViewport{Viewport: *s.Viewport})
	}
	if s.Scissor != nil {
		clamped := ClampScissor(*s.Scissor, s.Target.Extent)
		s.ActiveScissor = clamped
		cmds = append(cmds, soft.SetScissor{Rect: clamped})
	}
	if s.BlendColor != nil {
		cmds = append(cmds, soft.SetBlendColor{Color: *s.BlendColor})
	}
	if aspects.Has(resource.AspectDepth) {
		cmds = append(cmds, soft.SetDepthBias{Bias: s.DepthBias})
	}
	if s.Visibility.Mode != 0 {
		cmds = append(cmds, soft.SetVisibilityResult{Mode: s.Visibility.Mode, Offset: s.Visibility.Offset})
	}
	if s.RenderPSO != nil && s.RenderPSOIsCompatible {
		cmds = append(cmds, soft.BindPipeline{Pipeline: s.RenderPSO.Raw})
		if s.Rasterizer != nil {
			cmds = append(cmds, soft.SetRasterizerState{State: *s.Rasterizer})
		}
	}
	if aspects&(resource.AspectDepth|resource.AspectStencil) != 0 && ds != nil {
		if desc, changed := s.BuildDepthStencil(); changed {
			cmds = append(cmds, soft.SetDepthStencilState{State: ds.DepthStencilState(desc)})
		}
	}
	if aspects.Has(resource.AspectStencil) {
		cmds = append(cmds, soft.SetStencilReferenceValues{Front: s.Stencil.Reference[0], Back: s.Stencil.Reference[1]})
	}
	for _, st := range resource.GraphicsStages {
		for _, c := range s.fullStageCommands(st) {
			cmds = append(cmds, c.(soft.RenderCommand))
		}
		if pc, ok := s.PushConstantsCommand(st); ok {
			cmds = append(cmds, pc)
		}
		if sz, ok := s.SizesCommand(st); ok {
			cmds = append(cmds, sz)
		}
	}
	return cmds
}

// MakeComputeCommands returns every command needed to re-establish compute
// state on a freshly opened compute encoder.
func (s *State) MakeComputeCommands() []soft.ComputeCommand {
	var cmds []soft.ComputeCommand
	if s.ComputePSO != nil {
		cmds = append(cmds, soft.BindComputePipeline{Pipeline: s.ComputePSO.Raw})
	}
	for _, c := range s.fullStageCommands(resource.StageCompute) {
		cmds = append(cmds, c.(soft.ComputeCommand))
	}
	if pc, ok := s.PushCSConstants(); ok {
		cmds = append(cmds, pc)
	}
	if sz, ok := s.SizesCommand(resource.StageCompute); ok {
		cmds = append(cmds, sz)
	}
	return cmds
}
