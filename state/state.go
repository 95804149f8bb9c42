// Package state tracks the render and compute state of one command buffer
// and derives the minimal native commands needed to apply it.
//
// State holds two layers. The abstract layer is what the caller set
// through dynamic state and binding calls. The native layer mirrors what
// has actually been issued to the current encoder (bound pipeline,
// per-stage tables, active depth-stencil descriptor, active scissor).
// Mutations diff against the mirror and return only the commands whose
// inputs changed; after a pass switch MakeRenderCommands and
// MakeComputeCommands re-establish everything.
//
// State is not safe for concurrent use.
package state

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/cmdbuf/native"
	"github.com/gogpu/cmdbuf/resource"
	"github.com/gogpu/cmdbuf/soft"
)

// DepthStencilStates resolves descriptors to native state objects.
type DepthStencilStates interface {
	DepthStencilState(desc native.DepthStencilDescriptor) native.DepthStencilState
}

// StencilFaces selects stencil faces.
type StencilFaces uint8

// Stencil face selections.
const (
	FaceFront StencilFaces = 1 << iota
	FaceBack
	FaceBoth = FaceFront | FaceBack
)

// Stencil is the dynamic stencil state. Index 0 is the front face.
type Stencil struct {
	Reference [2]uint32
	ReadMask  [2]uint32
	WriteMask [2]uint32
}

func (s *Stencil) set(faces StencilFaces, dst *[2]uint32, value uint32) {
	if faces&FaceFront != 0 {
		dst[0] = value
	}
	if faces&FaceBack != 0 {
		dst[1] = value
	}
}

// Target describes the render target of the active subpass.
type Target struct {
	Aspects            resource.Aspects
	ColorFormats       []gputypes.TextureFormat
	DepthStencilFormat gputypes.TextureFormat
	Samples            uint32
	Extent             gputypes.Extent3D
}

// Subpass is a subpass waiting to be started.
type Subpass struct {
	Desc   *native.RenderPassDescriptor
	Target Target
	Label  string
}

// VertexBinding is a raw vertex buffer bound at an abstract binding index.
type VertexBinding struct {
	Buffer native.Buffer
	Offset uint64
}

// VisibilityQuery is the active occlusion query mode.
type VisibilityQuery struct {
	Mode   native.VisibilityResultMode
	Offset uint64
}

// State is the tracked state of one command buffer.
type State struct {
	Viewport      *native.Viewport
	Scissor       *native.ScissorRect
	BlendColor    *gputypes.Color
	DepthBias     native.DepthBias
	Stencil       Stencil
	PushConstants []uint32
	Visibility    VisibilityQuery
	Target        Target
	// PendingSubpasses is consumed from the end.
	PendingSubpasses []Subpass

	RenderPSO             *resource.GraphicsPipeline
	RenderPSOIsCompatible bool
	ComputePSO            *resource.ComputePipeline
	WorkGroupSize         native.Size
	Primitive             gputypes.PrimitiveTopology
	Rasterizer            *native.RasterizerState
	IndexBuffer           *native.IndexBuffer
	Stages                [resource.NumStages]StageResources
	VertexBuffers         map[uint32]VertexBinding

	ActiveDepthStencilDesc native.DepthStencilDescriptor
	ActiveScissor          native.ScissorRect

	// dsStale forces the next BuildDepthStencil to report a change.
	dsStale bool
}

// New returns a reset State.
func New() *State {
	s := &State{}
	s.Reset()
	return s
}

// Reset returns every field to its default. Calling Reset twice has the
// same effect as calling it once.
func (s *State) Reset() {
	s.Viewport = nil
	s.Scissor = nil
	s.BlendColor = nil
	s.DepthBias = native.DepthBias{}
	s.Stencil = Stencil{ReadMask: [2]uint32{0xFF, 0xFF}, WriteMask: [2]uint32{0xFF, 0xFF}}
	s.PushConstants = s.PushConstants[:0]
	s.Visibility = VisibilityQuery{}
	s.Target = Target{Samples: 1}
	clear(s.PendingSubpasses)
	s.PendingSubpasses = s.PendingSubpasses[:0]
	s.RenderPSO = nil
	s.RenderPSOIsCompatible = false
	s.ComputePSO = nil
	s.WorkGroupSize = native.Size{}
	s.Primitive = gputypes.PrimitiveTopologyTriangleList
	s.Rasterizer = nil
	s.IndexBuffer = nil
	for i := range s.Stages {
		s.Stages[i].Clear()
	}
	if s.VertexBuffers == nil {
		s.VertexBuffers = make(map[uint32]VertexBinding)
	}
	clear(s.VertexBuffers)
	s.ActiveDepthStencilDesc = native.DefaultDepthStencil()
	s.ActiveScissor = native.ScissorRect{}
	s.dsStale = false
}

// Invalidate forgets the native mirror without touching the abstract
// state. It is used after foreign commands, such as those of an executed
// secondary buffer, ran on the current encoder.
func (s *State) Invalidate() {
	s.RenderPSO = nil
	s.RenderPSOIsCompatible = false
	s.ComputePSO = nil
	s.ActiveScissor = native.ScissorRect{}
	s.dsStale = true
}

// SetTarget makes t the active render target, recomputes pipeline
// compatibility and resets the depth-stencil and scissor mirrors, since
// a new encoder starts from native defaults.
func (s *State) SetTarget(t Target) {
	s.Target = t
	s.RenderPSOIsCompatible = s.RenderPSO != nil && s.compatible(s.RenderPSO)
	s.ActiveDepthStencilDesc = native.DefaultDepthStencil()
	s.ActiveScissor = fullScissor(t.Extent)
	s.dsStale = false
}

func fullScissor(e gputypes.Extent3D) native.ScissorRect {
	return native.ScissorRect{Width: e.Width, Height: e.Height}
}

func (s *State) compatible(p *resource.GraphicsPipeline) bool {
	if len(p.ColorFormats) != len(s.Target.ColorFormats) {
		return false
	}
	for i, f := range p.ColorFormats {
		if s.Target.ColorFormats[i] != f {
			return false
		}
	}
	if s.Target.Aspects&(resource.AspectDepth|resource.AspectStencil) != 0 &&
		p.DepthStencilFormat != s.Target.DepthStencilFormat {
		return false
	}
	return max(p.SampleCount, 1) == max(s.Target.Samples, 1)
}

// SetRenderPipeline makes p the bound render pipeline. It reports false
// when p is already bound. Compatibility with the active target is
// recomputed and per-stage layout metadata is applied.
func (s *State) SetRenderPipeline(p *resource.GraphicsPipeline) bool {
	if s.RenderPSO != nil && s.RenderPSO.Raw.NativeHandle() == p.Raw.NativeHandle() {
		return false
	}
	s.RenderPSO = p
	s.RenderPSOIsCompatible = s.compatible(p)
	s.Primitive = p.Primitive
	s.Rasterizer = p.Rasterizer
	if p.Layout != nil {
		for _, st := range resource.GraphicsStages {
			s.Stages[st].PushConstants = p.Layout.PushConstants[st]
			s.Stages[st].SizesSlot = p.Layout.SizesSlot[st]
			s.Stages[st].PreAllocate(p.Layout.Total[st])
		}
	}
	return true
}

// SetComputePipeline makes p the bound compute pipeline. It reports false
// when p is already bound.
func (s *State) SetComputePipeline(p *resource.ComputePipeline) bool {
	if s.ComputePSO != nil && s.ComputePSO.Raw.NativeHandle() == p.Raw.NativeHandle() {
		return false
	}
	s.ComputePSO = p
	s.WorkGroupSize = p.WorkGroupSize
	if p.Layout != nil {
		cs := &s.Stages[resource.StageCompute]
		cs.PushConstants = p.Layout.PushConstants[resource.StageCompute]
		cs.SizesSlot = p.Layout.SizesSlot[resource.StageCompute]
		cs.PreAllocate(p.Layout.Total[resource.StageCompute])
	}
	return true
}

// BuildDepthStencil computes the depth-stencil descriptor implied by the
// bound pipeline and the active target's aspects. It returns false when
// the result equals the last issued descriptor.
func (s *State) BuildDepthStencil() (native.DepthStencilDescriptor, bool) {
	desc := native.DefaultDepthStencil()
	if s.RenderPSO != nil {
		desc = s.RenderPSO.DepthStencil
	}
	if !s.Target.Aspects.Has(resource.AspectDepth) {
		desc.DepthCompare = gputypes.CompareFunctionAlways
		desc.DepthWriteEnabled = false
	}
	if !s.Target.Aspects.Has(resource.AspectStencil) || !desc.StencilEnabled {
		desc.StencilEnabled = false
		desc.Front = native.DefaultStencilFace()
		desc.Back = native.DefaultStencilFace()
	} else if s.RenderPSO != nil && s.RenderPSO.StencilMasksDynamic {
		desc.Front.ReadMask, desc.Back.ReadMask = s.Stencil.ReadMask[0], s.Stencil.ReadMask[1]
		desc.Front.WriteMask, desc.Back.WriteMask = s.Stencil.WriteMask[0], s.Stencil.WriteMask[1]
	}
	if desc == s.ActiveDepthStencilDesc && !s.dsStale {
		return desc, false
	}
	s.ActiveDepthStencilDesc = desc
	s.dsStale = false
	return desc, true
}

// ClampScissor fits r inside extent. The result never extends past the
// extent and is at least one pixel in each dimension.
func ClampScissor(r native.ScissorRect, extent gputypes.Extent3D) native.ScissorRect {
	w, h := max(extent.Width, 1), max(extent.Height, 1)
	x := min(r.X, w-1)
	y := min(r.Y, h-1)
	return native.ScissorRect{
		X:      x,
		Y:      y,
		Width:  max(min(r.Width, w-x), 1),
		Height: max(min(r.Height, h-y), 1),
	}
}

// SetScissor records the dynamic scissor and returns the command to issue,
// if the clamped rectangle differs from the active one.
func (s *State) SetScissor(r native.ScissorRect) (soft.RenderCommand, bool) {
	s.Scissor = &r
	return s.SetHALScissor(r)
}

// SetHALScissor applies r without recording it as dynamic state, as done
// for pipeline-baked scissors.
func (s *State) SetHALScissor(r native.ScissorRect) (soft.RenderCommand, bool) {
	clamped := ClampScissor(r, s.Target.Extent)
	if clamped == s.ActiveScissor {
		return nil, false
	}
	s.ActiveScissor = clamped
	return soft.SetScissor{Rect: clamped}, true
}

// SetViewport records the viewport.
func (s *State) SetViewport(v native.Viewport) soft.RenderCommand {
	s.Viewport = &v
	return soft.SetViewport{Viewport: v}
}

// SetBlendColor records the blend constant.
func (s *State) SetBlendColor(c gputypes.Color) soft.RenderCommand {
	s.BlendColor = &c
	return soft.SetBlendColor{Color: c}
}

// SetDepthBias records the depth bias.
func (s *State) SetDepthBias(b native.DepthBias) soft.RenderCommand {
	s.DepthBias = b
	return soft.SetDepthBias{Bias: b}
}

// SetVisibilityQuery records the occlusion mode.
func (s *State) SetVisibilityQuery(mode native.VisibilityResultMode, offset uint64) soft.RenderCommand {
	s.Visibility = VisibilityQuery{Mode: mode, Offset: offset}
	return soft.SetVisibilityResult{Mode: mode, Offset: offset}
}

// SetStencilReferenceValues records the stencil references of faces.
func (s *State) SetStencilReferenceValues(faces StencilFaces, value uint32) soft.RenderCommand {
	s.Stencil.set(faces, &s.Stencil.Reference, value)
	return soft.SetStencilReferenceValues{Front: s.Stencil.Reference[0], Back: s.Stencil.Reference[1]}
}

// SetStencilReadMask records the dynamic stencil read mask of faces.
func (s *State) SetStencilReadMask(faces StencilFaces, value uint32) {
	s.Stencil.set(faces, &s.Stencil.ReadMask, value)
}

// SetStencilWriteMask records the dynamic stencil write mask of faces.
func (s *State) SetStencilWriteMask(faces StencilFaces, value uint32) {
	s.Stencil.set(faces, &s.Stencil.WriteMask, value)
}

// BindVertexBuffer records a raw vertex buffer at an abstract binding.
func (s *State) BindVertexBuffer(binding uint32, buf native.Buffer, offset uint64) {
	s.VertexBuffers[binding] = VertexBinding{Buffer: buf, Offset: offset}
}

// SetVertexBuffers rebuilds the vertex-stage slots read by the bound
// pipeline from the raw per-binding buffers. Bindings not supplied yet are
// left unbound. It returns false when the pipeline reads no vertex buffers.
func (s *State) SetVertexBuffers() (soft.RenderCommand, bool) {
	p := s.RenderPSO
	if p == nil || len(p.VertexBuffers) == 0 {
		return nil, false
	}
	vs := &s.Stages[resource.StageVertex]
	base := p.VertexBufferBase
	n := uint32(len(p.VertexBuffers))
	vs.PreAllocate(resource.ResourceCounts{Buffers: base + n})
	for i, slot := range p.VertexBuffers {
		idx := base + uint32(i)
		if vb, ok := s.VertexBuffers[slot.Binding]; ok {
			vs.Buffers[idx] = vb.Buffer
			vs.BufferOffsets[idx] = vb.Offset + slot.Offset
		} else {
			vs.Buffers[idx] = nil
			vs.BufferOffsets[idx] = 0
		}
	}
	return soft.BindBuffers{
		Stage:   gputypes.ShaderStageVertex,
		Index:   base,
		Buffers: vs.Buffers[base : base+n],
		Offsets: vs.BufferOffsets[base : base+n],
	}, true
}

// UpdatePushConstants writes words at a byte offset of the push-constant
// block.
func (s *State) UpdatePushConstants(offset uint32, words []uint32) {
	start := int(offset / 4)
	for len(s.PushConstants) < start+len(words) {
		s.PushConstants = append(s.PushConstants, 0)
	}
	copy(s.PushConstants[start:], words)
}

// PushConstantsCommand returns the upload of stage st's push-constant
// block, or false when the stage has none.
func (s *State) PushConstantsCommand(st resource.Stage) (soft.BindBufferData, bool) {
	pc := s.Stages[st].PushConstants
	if pc == nil || pc.Count == 0 {
		return soft.BindBufferData{}, false
	}
	words := make([]uint32, pc.Count)
	copy(words, s.PushConstants)
	return soft.BindBufferData{Stage: st.ShaderStage(), Index: pc.Slot, Data: wordBytes(words)}, true
}

// PushVSConstants returns the vertex-stage push-constant upload.
func (s *State) PushVSConstants() (soft.BindBufferData, bool) {
	return s.PushConstantsCommand(resource.StageVertex)
}

// PushPSConstants returns the fragment-stage push-constant upload.
func (s *State) PushPSConstants() (soft.BindBufferData, bool) {
	return s.PushConstantsCommand(resource.StageFragment)
}

// PushCSConstants returns the compute-stage push-constant upload.
func (s *State) PushCSConstants() (soft.BindBufferData, bool) {
	return s.PushConstantsCommand(resource.StageCompute)
}

// SizesCommand returns the runtime-sized length side channel upload of
// stage st, or false when the stage has none.
func (s *State) SizesCommand(st resource.Stage) (soft.BindBufferData, bool) {
	r := &s.Stages[st]
	if r.SizesSlot == nil || len(r.Sizes) == 0 {
		return soft.BindBufferData{}, false
	}
	return soft.BindBufferData{Stage: st.ShaderStage(), Index: *r.SizesSlot, Data: r.SizesBytes()}, true
}
