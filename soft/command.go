// Package soft provides data-only descriptions of native encoder
// operations ("soft commands").
//
// A soft command captures one render, compute or blit encoder call as a
// typed value. Commands are executed against a live native encoder with
// ExecRender, ExecCompute and ExecBlit, or stored in a journal and
// replayed later.
//
// # Ownership
//
// Commands carrying slices (BindBuffers, BindBufferData, BindTextures,
// BindSamplers) may borrow caller memory. A borrowed command is valid only
// for the duration of the call that built it. Own copies every slice into
// an Arena so the command can be stored:
//
//	cmd := soft.BindBuffers{Stage: gputypes.ShaderStageVertex, Index: 0, Buffers: bufs}
//	stored := soft.Own(cmd, &arena)
//
// Once built, a command is never mutated; replaying it any number of times
// issues the same native call.
package soft

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/cmdbuf/native"
)

// Kind identifies the operation of a command.
type Kind uint8

const (
	// Render state
	KindSetViewport Kind = iota
	KindSetScissor
	KindSetBlendColor
	KindSetDepthBias
	KindSetDepthStencilState
	KindSetStencilReferenceValues
	KindSetRasterizerState
	KindSetVisibilityResult

	// Resource binding (render and compute)
	KindBindBuffer
	KindBindBuffers
	KindBindBufferData
	KindBindTextures
	KindBindSamplers
	KindBindPipeline
	KindBindComputePipeline
	KindUseResource

	// Work
	KindDraw
	KindDrawIndexed
	KindDrawIndirect
	KindDrawIndexedIndirect
	KindDispatch
	KindDispatchIndirect

	// Transfer
	KindFillBuffer
	KindCopyBuffer
	KindCopyImage
	KindCopyBufferToImage
	KindCopyImageToBuffer

	// Debug markers (every encoder)
	KindPushDebugGroup
	KindPopDebugGroup
	KindInsertDebugSignpost
)

var kindNames = [...]string{
	KindSetViewport:               "SetViewport",
	KindSetScissor:                "SetScissor",
	KindSetBlendColor:             "SetBlendColor",
	KindSetDepthBias:              "SetDepthBias",
	KindSetDepthStencilState:      "SetDepthStencilState",
	KindSetStencilReferenceValues: "SetStencilReferenceValues",
	KindSetRasterizerState:        "SetRasterizerState",
	KindSetVisibilityResult:       "SetVisibilityResult",
	KindBindBuffer:                "BindBuffer",
	KindBindBuffers:               "BindBuffers",
	KindBindBufferData:            "BindBufferData",
	KindBindTextures:              "BindTextures",
	KindBindSamplers:              "BindSamplers",
	KindBindPipeline:              "BindPipeline",
	KindBindComputePipeline:       "BindComputePipeline",
	KindUseResource:               "UseResource",
	KindDraw:                      "Draw",
	KindDrawIndexed:               "DrawIndexed",
	KindDrawIndirect:              "DrawIndirect",
	KindDrawIndexedIndirect:       "DrawIndexedIndirect",
	KindDispatch:                  "Dispatch",
	KindDispatchIndirect:          "DispatchIndirect",
	KindFillBuffer:                "FillBuffer",
	KindCopyBuffer:                "CopyBuffer",
	KindCopyImage:                 "CopyImage",
	KindCopyBufferToImage:         "CopyBufferToImage",
	KindCopyImageToBuffer:         "CopyImageToBuffer",
	KindPushDebugGroup:            "PushDebugGroup",
	KindPopDebugGroup:             "PopDebugGroup",
	KindInsertDebugSignpost:       "InsertDebugSignpost",
}

// String returns the kind name.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Unknown"
}

// Command is implemented by every soft command.
type Command interface {
	Kind() Kind
}

// RenderCommand is a command valid inside a render pass.
type RenderCommand interface {
	Command
	render()
}

// ComputeCommand is a command valid inside a compute pass.
type ComputeCommand interface {
	Command
	compute()
}

// BlitCommand is a command valid inside a blit pass.
type BlitCommand interface {
	Command
	blit()
}

// SetViewport sets the viewport.
type SetViewport struct{ Viewport native.Viewport }

// SetScissor sets the scissor rectangle.
type SetScissor struct{ Rect native.ScissorRect }

// SetBlendColor sets the constant blend color.
type SetBlendColor struct{ Color gputypes.Color }

// SetDepthBias sets the depth bias.
type SetDepthBias struct{ Bias native.DepthBias }

// SetDepthStencilState sets the depth-stencil state object.
type SetDepthStencilState struct{ State native.DepthStencilState }

// SetStencilReferenceValues sets the front and back stencil references.
type SetStencilReferenceValues struct{ Front, Back uint32 }

// SetRasterizerState sets encoder-level rasterizer state.
type SetRasterizerState struct{ State native.RasterizerState }

// SetVisibilityResult sets the occlusion result mode and offset.
type SetVisibilityResult struct {
	Mode   native.VisibilityResultMode
	Offset uint64
}

// BindBuffer binds one buffer at a slot of a stage's buffer table.
// A nil Buffer unbinds the slot.
type BindBuffer struct {
	Stage  gputypes.ShaderStage
	Index  uint32
	Buffer native.Buffer
	Offset uint64
}

// BindBuffers binds consecutive buffer slots starting at Index.
type BindBuffers struct {
	Stage   gputypes.ShaderStage
	Index   uint32
	Buffers []native.Buffer
	Offsets []uint64
}

// BindBufferData uploads inline bytes to a buffer slot.
type BindBufferData struct {
	Stage gputypes.ShaderStage
	Index uint32
	Data  []byte
}

// BindTextures binds consecutive texture slots starting at Index.
type BindTextures struct {
	Stage    gputypes.ShaderStage
	Index    uint32
	Textures []native.Texture
}

// BindSamplers binds consecutive sampler slots starting at Index.
type BindSamplers struct {
	Stage    gputypes.ShaderStage
	Index    uint32
	Samplers []native.SamplerState
}

// BindPipeline binds a render pipeline.
type BindPipeline struct{ Pipeline native.RenderPipelineState }

// BindComputePipeline binds a compute pipeline.
type BindComputePipeline struct{ Pipeline native.ComputePipelineState }

// UseResource declares a resource reached through an argument buffer.
type UseResource struct {
	Resource native.Handle
	Usage    native.ResourceUsage
}

// Draw draws non-indexed primitives.
type Draw struct {
	Primitive     gputypes.PrimitiveTopology
	VertexStart   uint32
	VertexCount   uint32
	InstanceCount uint32
	BaseInstance  uint32
}

// DrawIndexed draws indexed primitives.
type DrawIndexed struct {
	Primitive     gputypes.PrimitiveTopology
	Index         native.IndexBuffer
	IndexCount    uint32
	InstanceCount uint32
	BaseVertex    int32
	BaseInstance  uint32
}

// DrawIndirect draws with arguments read from a buffer.
type DrawIndirect struct {
	Primitive gputypes.PrimitiveTopology
	Buffer    native.Buffer
	Offset    uint64
}

// DrawIndexedIndirect draws indexed primitives with arguments read from
// a buffer.
type DrawIndexedIndirect struct {
	Primitive gputypes.PrimitiveTopology
	Index     native.IndexBuffer
	Buffer    native.Buffer
	Offset    uint64
}

// Dispatch runs compute threadgroups.
type Dispatch struct {
	Groups          native.Size
	ThreadsPerGroup native.Size
}

// DispatchIndirect runs compute threadgroups counted by a buffer.
type DispatchIndirect struct {
	Buffer          native.Buffer
	Offset          uint64
	ThreadsPerGroup native.Size
}

// FillBuffer sets every byte of a range to Value.
type FillBuffer struct {
	Dst    native.Buffer
	Offset uint64
	Size   uint64
	Value  byte
}

// CopyBuffer copies a byte range between buffers.
type CopyBuffer struct {
	Src       native.Buffer
	SrcOffset uint64
	Dst       native.Buffer
	DstOffset uint64
	Size      uint64
}

// CopyImage copies texels between textures.
type CopyImage struct {
	Src, Dst native.TextureRegion
	Size     native.Size
}

// CopyBufferToImage uploads texels from a buffer.
type CopyBufferToImage struct {
	Src  native.BufferLayout
	Dst  native.TextureRegion
	Size native.Size
}

// CopyImageToBuffer reads texels back into a buffer.
type CopyImageToBuffer struct {
	Src  native.TextureRegion
	Dst  native.BufferLayout
	Size native.Size
}

// PushDebugGroup opens a debug group.
type PushDebugGroup struct{ Label string }

// PopDebugGroup closes the innermost debug group.
type PopDebugGroup struct{}

// InsertDebugSignpost inserts a debug marker.
type InsertDebugSignpost struct{ Label string }

func (SetViewport) Kind() Kind               { return KindSetViewport }
func (SetScissor) Kind() Kind                { return KindSetScissor }
func (SetBlendColor) Kind() Kind             { return KindSetBlendColor }
func (SetDepthBias) Kind() Kind              { return KindSetDepthBias }
func (SetDepthStencilState) Kind() Kind      { return KindSetDepthStencilState }
func (SetStencilReferenceValues) Kind() Kind { return KindSetStencilReferenceValues }
func (SetRasterizerState) Kind() Kind        { return KindSetRasterizerState }
func (SetVisibilityResult) Kind() Kind       { return KindSetVisibilityResult }
func (BindBuffer) Kind() Kind                { return KindBindBuffer }
func (BindBuffers) Kind() Kind               { return KindBindBuffers }
func (BindBufferData) Kind() Kind            { return KindBindBufferData }
func (BindTextures) Kind() Kind              { return KindBindTextures }
func (BindSamplers) Kind() Kind              { return KindBindSamplers }
func (BindPipeline) Kind() Kind              { return KindBindPipeline }
func (BindComputePipeline) Kind() Kind       { return KindBindComputePipeline }
func (UseResource) Kind() Kind               { return KindUseResource }
func (Draw) Kind() Kind                      { return KindDraw }
func (DrawIndexed) Kind() Kind               { return KindDrawIndexed }
func (DrawIndirect) Kind() Kind              { return KindDrawIndirect }
func (DrawIndexedIndirect) Kind() Kind       { return KindDrawIndexedIndirect }
func (Dispatch) Kind() Kind                  { return KindDispatch }
func (DispatchIndirect) Kind() Kind          { return KindDispatchIndirect }
func (FillBuffer) Kind() Kind                { return KindFillBuffer }
func (CopyBuffer) Kind() Kind                { return KindCopyBuffer }
func (CopyImage) Kind() Kind                 { return KindCopyImage }
func (CopyBufferToImage) Kind() Kind         { return KindCopyBufferToImage }
func (CopyImageToBuffer) Kind() Kind         { return KindCopyImageToBuffer }
func (PushDebugGroup) Kind() Kind            { return KindPushDebugGroup }
func (PopDebugGroup) Kind() Kind             { return KindPopDebugGroup }
func (InsertDebugSignpost) Kind() Kind       { return KindInsertDebugSignpost }

func (SetViewport) render()               {}
func (SetScissor) render()                {}
func (SetBlendColor) render()             {}
func (SetDepthBias) render()              {}
func (SetDepthStencilState) render()      {}
func (SetStencilReferenceValues) render() {}
func (SetRasterizerState) render()        {}
func (SetVisibilityResult) render()       {}
func (BindBuffer) render()                {}
func (BindBuffers) render()               {}
func (BindBufferData) render()            {}
func (BindTextures) render()              {}
func (BindSamplers) render()              {}
func (BindPipeline) render()              {}
func (UseResource) render()               {}
func (Draw) render()                      {}
func (DrawIndexed) render()               {}
func (DrawIndirect) render()              {}
func (DrawIndexedIndirect) render()       {}
func (PushDebugGroup) render()            {}
func (PopDebugGroup) render()             {}
func (InsertDebugSignpost) render()       {}

func (BindBuffer) compute()          {}
func (BindBuffers) compute()         {}
func (BindBufferData) compute()      {}
func (BindTextures) compute()        {}
func (BindSamplers) compute()        {}
func (BindComputePipeline) compute() {}
func (UseResource) compute()         {}
func (Dispatch) compute()            {}
func (DispatchIndirect) compute()    {}
func (PushDebugGroup) compute()      {}
func (PopDebugGroup) compute()       {}
func (InsertDebugSignpost) compute() {}

func (FillBuffer) blit()          {}
func (CopyBuffer) blit()          {}
func (CopyImage) blit()           {}
func (CopyBufferToImage) blit()   {}
func (CopyImageToBuffer) blit()   {}
func (PushDebugGroup) blit()      {}
func (PopDebugGroup) blit()       {}
func (InsertDebugSignpost) blit() {}
