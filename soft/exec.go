package soft

import (
	"fmt"

	"github.com/gogpu/cmdbuf/native"
)

// ExecRender applies c to a render encoder.
func ExecRender(enc native.RenderCommandEncoder, c RenderCommand) {
	switch c := c.(type) {
	case SetViewport:
		enc.SetViewport(c.Viewport)
	case SetScissor:
		enc.SetScissorRect(c.Rect)
	case SetBlendColor:
		enc.SetBlendColor(float32(c.Color.R), float32(c.Color.G), float32(c.Color.B), float32(c.Color.A))
	case SetDepthBias:
		enc.SetDepthBias(c.Bias)
	case SetDepthStencilState:
		enc.SetDepthStencilState(c.State)
	case SetStencilReferenceValues:
		enc.SetStencilReferenceValues(c.Front, c.Back)
	case SetRasterizerState:
		enc.SetRasterizerState(c.State)
	case SetVisibilityResult:
		enc.SetVisibilityResultMode(c.Mode, c.Offset)
	case BindBuffer:
		enc.SetBuffers(c.Stage, c.Index, []native.Buffer{c.Buffer}, []uint64{c.Offset})
	case BindBuffers:
		enc.SetBuffers(c.Stage, c.Index, c.Buffers, c.Offsets)
	case BindBufferData:
		enc.SetBytes(c.Stage, c.Index, c.Data)
	case BindTextures:
		enc.SetTextures(c.Stage, c.Index, c.Textures)
	case BindSamplers:
		enc.SetSamplerStates(c.Stage, c.Index, c.Samplers)
	case BindPipeline:
		enc.SetRenderPipelineState(c.Pipeline)
	case UseResource:
		enc.UseResource(c.Resource, c.Usage)
	case Draw:
		enc.DrawPrimitives(c.Primitive, c.VertexStart, c.VertexCount, c.InstanceCount, c.BaseInstance)
	case DrawIndexed:
		enc.DrawIndexedPrimitives(c.Primitive, c.Index, c.IndexCount, c.InstanceCount, c.BaseVertex, c.BaseInstance)
	case DrawIndirect:
		enc.DrawPrimitivesIndirect(c.Primitive, c.Buffer, c.Offset)
	case DrawIndexedIndirect:
		enc.DrawIndexedPrimitivesIndirect(c.Primitive, c.Index, c.Buffer, c.Offset)
	case PushDebugGroup:
		enc.PushDebugGroup(c.Label)
	case PopDebugGroup:
		enc.PopDebugGroup()
	case InsertDebugSignpost:
		enc.InsertDebugSignpost(c.Label)
	default:
		panic(fmt.Sprintf("soft: unknown render command %T", c))
	}
}

// ExecCompute applies c to a compute encoder. The Stage of binding
// commands is ignored.
func ExecCompute(enc native.ComputeCommandEncoder, c ComputeCommand) {
	switch c := c.(type) {
	case BindBuffer:
		enc.SetBuffers(c.Index, []native.Buffer{c.Buffer}, []uint64{c.Offset})
	case BindBuffers:
		enc.SetBuffers(c.Index, c.Buffers, c.Offsets)
	case BindBufferData:
		enc.SetBytes(c.Index, c.Data)
	case BindTextures:
		enc.SetTextures(c.Index, c.Textures)
	case BindSamplers:
		enc.SetSamplerStates(c.Index, c.Samplers)
	case BindComputePipeline:
		enc.SetComputePipelineState(c.Pipeline)
	case UseResource:
		enc.UseResource(c.Resource, c.Usage)
	case Dispatch:
		enc.DispatchThreadgroups(c.Groups, c.ThreadsPerGroup)
	case DispatchIndirect:
		enc.DispatchThreadgroupsIndirect(c.Buffer, c.Offset, c.ThreadsPerGroup)
	case PushDebugGroup:
		enc.PushDebugGroup(c.Label)
	case PopDebugGroup:
		enc.PopDebugGroup()
	case InsertDebugSignpost:
		enc.InsertDebugSignpost(c.Label)
	default:
		panic(fmt.Sprintf("soft: unknown compute command %T", c))
	}
}

// ExecBlit applies c to a blit encoder.
func ExecBlit(enc native.BlitCommandEncoder, c BlitCommand) {
	switch c := c.(type) {
	case FillBuffer:
		enc.FillBuffer(c.Dst, c.Offset, c.Size, c.Value)
	case CopyBuffer:
		enc.CopyBuffer(c.Src, c.SrcOffset, c.Dst, c.DstOffset, c.Size)
	case CopyImage:
		enc.CopyTexture(c.Src, c.Dst, c.Size)
	case CopyBufferToImage:
		enc.CopyBufferToTexture(c.Src, c.Dst, c.Size)
	case CopyImageToBuffer:
		enc.CopyTextureToBuffer(c.Src, c.Dst, c.Size)
	case PushDebugGroup:
		enc.PushDebugGroup(c.Label)
	case PopDebugGroup:
		enc.PopDebugGroup()
	case InsertDebugSignpost:
		enc.InsertDebugSignpost(c.Label)
	default:
		panic(fmt.Sprintf("soft: unknown blit command %T", c))
	}
}

// ExecRenderAll applies cmds in order.
func ExecRenderAll(enc native.RenderCommandEncoder, cmds []RenderCommand) {
	for _, c := range cmds {
		ExecRender(enc, c)
	}
}

// ExecComputeAll applies cmds in order.
func ExecComputeAll(enc native.ComputeCommandEncoder, cmds []ComputeCommand) {
	for _, c := range cmds {
		ExecCompute(enc, c)
	}
}

// ExecBlitAll applies cmds in order.
func ExecBlitAll(enc native.BlitCommandEncoder, cmds []BlitCommand) {
	for _, c := range cmds {
		ExecBlit(enc, c)
	}
}
