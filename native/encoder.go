package native

import (
	"github.com/gogpu/gputypes"
)

// CommandEncoder is the part shared by every encoder kind.
type CommandEncoder interface {
	SetLabel(label string)
	EndEncoding()

	PushDebugGroup(label string)
	PopDebugGroup()
	InsertDebugSignpost(label string)
}

// RenderCommandEncoder records commands for one render pass.
//
// Resource binding methods take a stage, which must be one of
// gputypes.ShaderStageVertex or gputypes.ShaderStageFragment.
type RenderCommandEncoder interface {
	CommandEncoder

	SetViewport(v Viewport)
	SetScissorRect(r ScissorRect)
	SetBlendColor(r, g, b, a float32)
	SetDepthBias(bias DepthBias)
	SetDepthStencilState(s DepthStencilState)
	SetStencilReferenceValues(front, back uint32)
	SetRasterizerState(r RasterizerState)
	SetVisibilityResultMode(mode VisibilityResultMode, offset uint64)
	SetRenderPipelineState(p RenderPipelineState)

	SetBuffers(stage gputypes.ShaderStage, index uint32, buffers []Buffer, offsets []uint64)
	SetBytes(stage gputypes.ShaderStage, index uint32, data []byte)
	SetTextures(stage gputypes.ShaderStage, index uint32, textures []Texture)
	SetSamplerStates(stage gputypes.ShaderStage, index uint32, samplers []SamplerState)
	UseResource(resource Handle, usage ResourceUsage)

	DrawPrimitives(prim gputypes.PrimitiveTopology, vertexStart, vertexCount, instanceCount, baseInstance uint32)
	DrawIndexedPrimitives(prim gputypes.PrimitiveTopology, index IndexBuffer, indexCount, instanceCount uint32, baseVertex int32, baseInstance uint32)
	DrawPrimitivesIndirect(prim gputypes.PrimitiveTopology, indirect Buffer, offset uint64)
	DrawIndexedPrimitivesIndirect(prim gputypes.PrimitiveTopology, index IndexBuffer, indirect Buffer, offset uint64)
}

// ComputeCommandEncoder records commands for one compute pass.
type ComputeCommandEncoder interface {
	CommandEncoder

	SetComputePipelineState(p ComputePipelineState)
	SetBuffers(index uint32, buffers []Buffer, offsets []uint64)
	SetBytes(index uint32, data []byte)
	SetTextures(index uint32, textures []Texture)
	SetSamplerStates(index uint32, samplers []SamplerState)
	UseResource(resource Handle, usage ResourceUsage)

	DispatchThreadgroups(groups, threadsPerGroup Size)
	DispatchThreadgroupsIndirect(indirect Buffer, offset uint64, threadsPerGroup Size)
}

// BlitCommandEncoder records transfer commands.
type BlitCommandEncoder interface {
	CommandEncoder

	FillBuffer(dst Buffer, offset, size uint64, value byte)
	CopyBuffer(src Buffer, srcOffset uint64, dst Buffer, dstOffset, size uint64)
	CopyTexture(src TextureRegion, dst TextureRegion, size Size)
	CopyBufferToTexture(src BufferLayout, dst TextureRegion, size Size)
	CopyTextureToBuffer(src TextureRegion, dst BufferLayout, size Size)
}
