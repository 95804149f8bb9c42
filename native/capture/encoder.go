package capture

import (
	"encoding/binary"
	"slices"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/cmdbuf/native"
)

type encoder struct {
	cb    *CommandBuffer
	scope string
	ended bool
}

func (e *encoder) record(method string, args ...any) {
	if e.ended {
		panic("capture: " + e.scope + "." + method + " after EndEncoding")
	}
	e.cb.record(e.scope+"."+method, args...)
}

func (e *encoder) SetLabel(label string) { e.record("SetLabel", label) }

func (e *encoder) EndEncoding() {
	if e.ended {
		panic("capture: " + e.scope + " encoder ended twice")
	}
	e.ended = true
	e.cb.end(e.scope)
}

func (e *encoder) PushDebugGroup(label string)      { e.record("PushDebugGroup", label) }
func (e *encoder) PopDebugGroup()                   { e.record("PopDebugGroup") }
func (e *encoder) InsertDebugSignpost(label string) { e.record("InsertDebugSignpost", label) }

// RenderEncoder records render commands.
type RenderEncoder struct {
	encoder
	// Desc is the snapshot of the descriptor the encoder was opened with.
	Desc *native.RenderPassDescriptor
}

var _ native.RenderCommandEncoder = (*RenderEncoder)(nil)

func (e *RenderEncoder) SetViewport(v native.Viewport)       { e.record("SetViewport", v) }
func (e *RenderEncoder) SetScissorRect(r native.ScissorRect) { e.record("SetScissorRect", r) }
func (e *RenderEncoder) SetBlendColor(r, g, b, a float32)    { e.record("SetBlendColor", r, g, b, a) }
func (e *RenderEncoder) SetDepthBias(bias native.DepthBias)  { e.record("SetDepthBias", bias) }

func (e *RenderEncoder) SetDepthStencilState(s native.DepthStencilState) {
	e.record("SetDepthStencilState", s)
}

func (e *RenderEncoder) SetStencilReferenceValues(front, back uint32) {
	e.record("SetStencilReferenceValues", front, back)
}

func (e *RenderEncoder) SetRasterizerState(r native.RasterizerState) {
	e.record("SetRasterizerState", r)
}

func (e *RenderEncoder) SetVisibilityResultMode(mode native.VisibilityResultMode, offset uint64) {
	e.record("SetVisibilityResultMode", mode, offset)
}

func (e *RenderEncoder) SetRenderPipelineState(p native.RenderPipelineState) {
	e.record("SetRenderPipelineState", p)
}

func (e *RenderEncoder) SetBuffers(stage gputypes.ShaderStage, index uint32, buffers []native.Buffer, offsets []uint64) {
	e.record("SetBuffers", stage, index, slices.Clone(buffers), slices.Clone(offsets))
}

func (e *RenderEncoder) SetBytes(stage gputypes.ShaderStage, index uint32, data []byte) {
	e.record("SetBytes", stage, index, slices.Clone(data))
}

func (e *RenderEncoder) SetTextures(stage gputypes.ShaderStage, index uint32, textures []native.Texture) {
	e.record("SetTextures", stage, index, slices.Clone(textures))
}

func (e *RenderEncoder) SetSamplerStates(stage gputypes.ShaderStage, index uint32, samplers []native.SamplerState) {
	e.record("SetSamplerStates", stage, index, slices.Clone(samplers))
}

func (e *RenderEncoder) UseResource(resource native.Handle, usage native.ResourceUsage) {
	e.record("UseResource", resource, usage)
}

func (e *RenderEncoder) DrawPrimitives(prim gputypes.PrimitiveTopology, vertexStart, vertexCount, instanceCount, baseInstance uint32) {
	e.record("DrawPrimitives", prim, vertexStart, vertexCount, instanceCount, baseInstance)
}

func (e *RenderEncoder) DrawIndexedPrimitives(prim gputypes.PrimitiveTopology, index native.IndexBuffer, indexCount, instanceCount uint32, baseVertex int32, baseInstance uint32) {
	e.record("DrawIndexedPrimitives", prim, index, indexCount, instanceCount, baseVertex, baseInstance)
}

func (e *RenderEncoder) DrawPrimitivesIndirect(prim gputypes.PrimitiveTopology, indirect native.Buffer, offset uint64) {
	e.record("DrawPrimitivesIndirect", prim, indirect, offset)
}

func (e *RenderEncoder) DrawIndexedPrimitivesIndirect(prim gputypes.PrimitiveTopology, index native.IndexBuffer, indirect native.Buffer, offset uint64) {
	e.record("DrawIndexedPrimitivesIndirect", prim, index, indirect, offset)
}

type boundBuffer struct {
	buf    native.Buffer
	offset uint64
}

// ComputeEncoder records compute commands and runs the fill-buffer
// service pipeline against host memory.
type ComputeEncoder struct {
	encoder
	pipeline native.ComputePipelineState
	buffers  map[uint32]boundBuffer
	bytes    map[uint32][]byte
}

var _ native.ComputeCommandEncoder = (*ComputeEncoder)(nil)

func (e *ComputeEncoder) SetComputePipelineState(p native.ComputePipelineState) {
	e.pipeline = p
	e.record("SetComputePipelineState", p)
}

func (e *ComputeEncoder) SetBuffers(index uint32, buffers []native.Buffer, offsets []uint64) {
	for i, b := range buffers {
		var off uint64
		if i < len(offsets) {
			off = offsets[i]
		}
		e.buffers[index+uint32(i)] = boundBuffer{buf: b, offset: off}
	}
	e.record("SetBuffers", index, slices.Clone(buffers), slices.Clone(offsets))
}

func (e *ComputeEncoder) SetBytes(index uint32, data []byte) {
	e.bytes[index] = slices.Clone(data)
	e.record("SetBytes", index, slices.Clone(data))
}

func (e *ComputeEncoder) SetTextures(index uint32, textures []native.Texture) {
	e.record("SetTextures", index, slices.Clone(textures))
}

func (e *ComputeEncoder) SetSamplerStates(index uint32, samplers []native.SamplerState) {
	e.record("SetSamplerStates", index, slices.Clone(samplers))
}

func (e *ComputeEncoder) UseResource(resource native.Handle, usage native.ResourceUsage) {
	e.record("UseResource", resource, usage)
}

func (e *ComputeEncoder) DispatchThreadgroups(groups, threadsPerGroup native.Size) {
	e.record("DispatchThreadgroups", groups, threadsPerGroup)
	if p, ok := e.pipeline.(*ComputePipeline); ok && p == e.cb.dev.fill {
		e.scheduleFill()
	}
}

func (e *ComputeEncoder) DispatchThreadgroupsIndirect(indirect native.Buffer, offset uint64, threadsPerGroup native.Size) {
	e.record("DispatchThreadgroupsIndirect", indirect, offset, threadsPerGroup)
}

func (e *ComputeEncoder) scheduleFill() {
	dst, ok := e.buffers[0]
	params := e.bytes[1]
	if !ok || len(params) < 8 {
		return
	}
	buf, ok := dst.buf.(*Buffer)
	if !ok {
		return
	}
	pattern := params[:4]
	words := binary.LittleEndian.Uint32(params[4:8])
	n := int(words) * 4
	if len(params) >= 12 {
		n = min(n, int(binary.LittleEndian.Uint32(params[8:12])))
	}
	offset := dst.offset
	fillFn := e.cb.dev.fillFn
	e.cb.schedule(func() error {
		if fillFn != nil {
			data, err := fillFn(binary.LittleEndian.Uint32(pattern), words)
			if err != nil {
				return err
			}
			buf.write(offset, data[:min(n, len(data))])
			return nil
		}
		data := make([]byte, 0, int(words)*4)
		for range words {
			data = append(data, pattern...)
		}
		buf.write(offset, data[:n])
		return nil
	})
}

// BlitEncoder records transfer commands and executes buffer operations.
type BlitEncoder struct {
	encoder
}

var _ native.BlitCommandEncoder = (*BlitEncoder)(nil)

func (e *BlitEncoder) FillBuffer(dst native.Buffer, offset, size uint64, value byte) {
	e.record("FillBuffer", dst, offset, size, value)
	if buf, ok := dst.(*Buffer); ok {
		e.cb.schedule(func() error {
			data := make([]byte, size)
			for i := range data {
				data[i] = value
			}
			buf.write(offset, data)
			return nil
		})
	}
}

func (e *BlitEncoder) CopyBuffer(src native.Buffer, srcOffset uint64, dst native.Buffer, dstOffset, size uint64) {
	e.record("CopyBuffer", src, srcOffset, dst, dstOffset, size)
	s, sok := src.(*Buffer)
	d, dok := dst.(*Buffer)
	if sok && dok {
		e.cb.schedule(func() error {
			d.write(dstOffset, s.read(srcOffset, size))
			return nil
		})
	}
}

func (e *BlitEncoder) CopyTexture(src, dst native.TextureRegion, size native.Size) {
	e.record("CopyTexture", src, dst, size)
}

func (e *BlitEncoder) CopyBufferToTexture(src native.BufferLayout, dst native.TextureRegion, size native.Size) {
	e.record("CopyBufferToTexture", src, dst, size)
}

func (e *BlitEncoder) CopyTextureToBuffer(src native.TextureRegion, dst native.BufferLayout, size native.Size) {
	e.record("CopyTextureToBuffer", src, dst, size)
}
