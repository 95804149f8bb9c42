package cmdbuf

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/cmdbuf/native"
	"github.com/gogpu/cmdbuf/resource"
	"github.com/gogpu/cmdbuf/soft"
	"github.com/gogpu/cmdbuf/state"
)

// ClearValue is the clear value of one attachment.
type ClearValue struct {
	Color   gputypes.Color
	Depth   float32
	Stencil uint32
}

// SubpassContents tells whether subpass commands are recorded inline or
// through secondary buffers.
type SubpassContents uint8

// Subpass contents.
const (
	ContentsInline SubpassContents = iota
	ContentsSecondary
)

func loadOp(first bool, op gputypes.LoadOp) gputypes.LoadOp {
	if first {
		return op
	}
	return gputypes.LoadOpLoad
}

func storeOp(last bool, op gputypes.StoreOp) gputypes.StoreOp {
	if last {
		return op
	}
	return gputypes.StoreOpStore
}

// BeginRenderPass starts rp on fb. Every subpass gets its own native
// render pass; attachments load on first use and store on last use as the
// render pass declares, and are preserved in between.
func (c *CommandBuffer) BeginRenderPass(rp *resource.RenderPass, fb *resource.Framebuffer, clears []ClearValue, contents SubpassContents) {
	c.mustRecord("BeginRenderPass")
	first, last := rp.FirstUse(), rp.LastUse()
	clearOf := func(a int) ClearValue {
		if a < len(clears) {
			return clears[a]
		}
		return ClearValue{}
	}

	pending := c.state.PendingSubpasses[:0]
	for i := len(rp.Subpasses) - 1; i >= 0; i-- {
		sp := rp.Subpasses[i]
		desc := c.pool.descriptors.Get()
		desc.RenderTargetWidth = fb.Extent.Width
		desc.RenderTargetHeight = fb.Extent.Height
		desc.RenderTargetArrayLen = max(fb.Extent.DepthOrArrayLayers, 1)
		desc.VisibilityResultBuffer = c.pool.queue.visibility.buffer

		for j, a := range sp.Colors {
			if a == resource.Unused {
				desc.ColorAttachments = append(desc.ColorAttachments, native.ColorAttachment{})
				continue
			}
			att := rp.Attachments[a]
			view := fb.Attachments[a]
			ca := native.ColorAttachment{
				Texture:    view.Raw,
				Level:      view.BaseLevel,
				Slice:      view.BaseLayer,
				LoadOp:     loadOp(first[a] == i, att.LoadOp),
				StoreOp:    storeOp(last[a] == i, att.StoreOp),
				ClearColor: clearOf(a).Color,
			}
			if j < len(sp.Resolves) && sp.Resolves[j] != resource.Unused {
				rv := fb.Attachments[sp.Resolves[j]]
				ca.ResolveTexture = rv.Raw
				ca.ResolveLevel = rv.BaseLevel
				ca.ResolveSlice = rv.BaseLayer
			}
			desc.ColorAttachments = append(desc.ColorAttachments, ca)
		}

		if a := sp.DepthStencil; a != resource.Unused {
			att := rp.Attachments[a]
			view := fb.Attachments[a]
			if att.Aspects.Has(resource.AspectDepth) {
				desc.Depth = &native.DepthAttachment{
					Texture:    view.Raw,
					Level:      view.BaseLevel,
					Slice:      view.BaseLayer,
					LoadOp:     loadOp(first[a] == i, att.LoadOp),
					StoreOp:    storeOp(last[a] == i, att.StoreOp),
					ClearDepth: clearOf(a).Depth,
				}
			}
			if att.Aspects.Has(resource.AspectStencil) {
				desc.Stencil = &native.StencilAttachment{
					Texture:      view.Raw,
					Level:        view.BaseLevel,
					Slice:        view.BaseLayer,
					LoadOp:       loadOp(first[a] == i, att.StencilLoadOp),
					StoreOp:      storeOp(last[a] == i, att.StencilStoreOp),
					ClearStencil: clearOf(a).Stencil,
				}
			}
		}

		t := rp.Target(i)
		pending = append(pending, state.Subpass{
			Desc: desc,
			Target: state.Target{
				Aspects:            t.Aspects,
				ColorFormats:       t.ColorFormats,
				DepthStencilFormat: t.DepthStencilFormat,
				Samples:            t.Samples,
				Extent:             fb.Extent,
			},
		})
	}
	c.state.PendingSubpasses = pending
	c.NextSubpass(contents)
}

// NextSubpass ends the current subpass and starts the next one, then
// re-establishes the render state on the new native pass.
func (c *CommandBuffer) NextSubpass(contents SubpassContents) {
	c.mustRecord("NextSubpass")
	n := len(c.state.PendingSubpasses)
	if n == 0 {
		panic("cmdbuf: NextSubpass past the last subpass")
	}
	sp := c.state.PendingSubpasses[n-1]
	c.state.PendingSubpasses[n-1] = state.Subpass{}
	c.state.PendingSubpasses = c.state.PendingSubpasses[:n-1]

	c.state.SetTarget(sp.Target)
	cmds := c.state.MakeRenderCommands(sp.Target.Aspects, c.pool.queue.depthStencil)
	c.sink.SwitchRender(sp.Desc, sp.Label).IssueMany(cmds)
}

// EndRenderPass ends the render pass. Subpasses never started are
// dropped.
func (c *CommandBuffer) EndRenderPass() {
	c.mustRecord("EndRenderPass")
	for i, sp := range c.state.PendingSubpasses {
		c.pool.descriptors.Put(sp.Desc)
		c.state.PendingSubpasses[i] = state.Subpass{}
	}
	c.state.PendingSubpasses = c.state.PendingSubpasses[:0]
	c.sink.StopEncoding()
}

// BindGraphicsPipeline binds p. Binding the pipeline already bound emits
// nothing. A pipeline incompatible with the current subpass is recorded
// and bound once a compatible pass opens.
func (c *CommandBuffer) BindGraphicsPipeline(p *resource.GraphicsPipeline) {
	c.mustRecord("BindGraphicsPipeline")
	prevVS := c.state.Stages[resource.StageVertex].PushConstants
	prevPS := c.state.Stages[resource.StageFragment].PushConstants
	if !c.state.SetRenderPipeline(p) {
		return
	}

	var cmds []soft.RenderCommand
	if c.state.RenderPSOIsCompatible {
		cmds = append(cmds, soft.BindPipeline{Pipeline: p.Raw})
		if p.Rasterizer != nil {
			cmds = append(cmds, soft.SetRasterizerState{State: *p.Rasterizer})
		}
	} else {
		slogger().Debug("cmdbuf: delaying pipeline bind until a compatible pass")
	}
	if cmd, ok := c.state.SetVertexBuffers(); ok {
		cmds = append(cmds, cmd)
	}
	if pushChanged(prevVS, c.state.Stages[resource.StageVertex].PushConstants) {
		if pc, ok := c.state.PushVSConstants(); ok {
			cmds = append(cmds, pc)
		}
	}
	if pushChanged(prevPS, c.state.Stages[resource.StageFragment].PushConstants) {
		if pc, ok := c.state.PushPSConstants(); ok {
			cmds = append(cmds, pc)
		}
	}
	if desc, changed := c.state.BuildDepthStencil(); changed {
		cmds = append(cmds, soft.SetDepthStencilState{State: c.pool.queue.depthStencil.DepthStencilState(desc)})
	}

	if v := p.Baked.Viewport; v != nil {
		cmds = append(cmds, c.state.SetViewport(*v))
	}
	if r := p.Baked.Scissor; r != nil {
		if cmd, ok := c.state.SetHALScissor(*r); ok {
			cmds = append(cmds, cmd)
		}
	}
	if bc := p.Baked.BlendColor; bc != nil {
		cmds = append(cmds, c.state.SetBlendColor(*bc))
	}
	if db := p.Baked.DepthBias; db != nil {
		cmds = append(cmds, c.state.SetDepthBias(*db))
	}
	c.sink.PreRender().IssueMany(cmds)
}

func pushChanged(prev, next *resource.PushConstantInfo) bool {
	if next == nil {
		return false
	}
	return prev == nil || *prev != *next
}

// BindGraphicsDescriptorSets binds sets starting at set index firstSet of
// layout, consuming dynamic offsets in binding order.
func (c *CommandBuffer) BindGraphicsDescriptorSets(layout *resource.PipelineLayout, firstSet int, sets []*resource.DescriptorSet, dynamicOffsets []uint32) {
	c.mustRecord("BindGraphicsDescriptorSets")
	var cmds []soft.RenderCommand
	dyn := dynamicOffsets
	for i, set := range sets {
		offsets := layout.SetOffsets[firstSet+i]
		res := c.state.BindSet(gputypes.ShaderStageVertex|gputypes.ShaderStageFragment, set, offsets, dyn)
		dyn = dyn[min(res.DynamicUsed, len(dyn)):]
		for _, st := range resource.GraphicsStages {
			for _, cmd := range c.state.StageCommands(st, offsets[st], res.Next[st]) {
				cmds = append(cmds, cmd.(soft.RenderCommand))
			}
			if res.SizesChanged&st.ShaderStage() != 0 {
				if sz, ok := c.state.SizesCommand(st); ok {
					cmds = append(cmds, sz)
				}
			}
		}
	}
	c.sink.PreRender().IssueMany(cmds)
}

// BindVertexBuffers binds buffers at consecutive bindings from first.
func (c *CommandBuffer) BindVertexBuffers(first uint32, buffers []*resource.Buffer, offsets []uint64) {
	c.mustRecord("BindVertexBuffers")
	for i, b := range buffers {
		var off uint64
		if i < len(offsets) {
			off = offsets[i]
		}
		c.state.BindVertexBuffer(first+uint32(i), b.Raw, b.Offset+off)
	}
	if cmd, ok := c.state.SetVertexBuffers(); ok {
		c.sink.PreRender().Issue(cmd)
	}
}

// BindIndexBuffer binds the index buffer used by indexed draws.
func (c *CommandBuffer) BindIndexBuffer(buf *resource.Buffer, offset uint64, format gputypes.IndexFormat) {
	c.mustRecord("BindIndexBuffer")
	c.state.IndexBuffer = &native.IndexBuffer{Buffer: buf.Raw, Offset: buf.Offset + offset, Format: format}
}

// PushGraphicsConstants writes words at a byte offset of the push-constant
// block and uploads it to the stages in stages.
func (c *CommandBuffer) PushGraphicsConstants(stages gputypes.ShaderStage, offset uint32, words []uint32) {
	c.mustRecord("PushGraphicsConstants")
	c.state.UpdatePushConstants(offset, words)
	cur := c.sink.PreRender()
	if stages&gputypes.ShaderStageVertex != 0 {
		if pc, ok := c.state.PushVSConstants(); ok {
			cur.Issue(pc)
		}
	}
	if stages&gputypes.ShaderStageFragment != 0 {
		if pc, ok := c.state.PushPSConstants(); ok {
			cur.Issue(pc)
		}
	}
}

// SetViewports sets the viewport. Only a single viewport at index 0 is
// supported.
func (c *CommandBuffer) SetViewports(first uint32, viewports []native.Viewport) error {
	c.mustRecord("SetViewports")
	if first != 0 || len(viewports) != 1 {
		return unsupported("multiple viewports")
	}
	c.sink.PreRender().Issue(c.state.SetViewport(viewports[0]))
	return nil
}

// SetScissors sets the scissor rectangle. Only a single scissor at index 0
// is supported.
func (c *CommandBuffer) SetScissors(first uint32, rects []native.ScissorRect) error {
	c.mustRecord("SetScissors")
	if first != 0 || len(rects) != 1 {
		return unsupported("multiple scissors")
	}
	if cmd, ok := c.state.SetScissor(rects[0]); ok {
		c.sink.PreRender().Issue(cmd)
	}
	return nil
}

// SetBlendConstants sets the blend color.
func (c *CommandBuffer) SetBlendConstants(color gputypes.Color) {
	c.mustRecord("SetBlendConstants")
	c.sink.PreRender().Issue(c.state.SetBlendColor(color))
}

// SetDepthBias sets the depth bias.
func (c *CommandBuffer) SetDepthBias(bias native.DepthBias) {
	c.mustRecord("SetDepthBias")
	c.sink.PreRender().Issue(c.state.SetDepthBias(bias))
}

// SetStencilReference sets the stencil reference of faces.
func (c *CommandBuffer) SetStencilReference(faces state.StencilFaces, value uint32) {
	c.mustRecord("SetStencilReference")
	c.sink.PreRender().Issue(c.state.SetStencilReferenceValues(faces, value))
}

// SetStencilReadMask sets the dynamic stencil read mask of faces.
func (c *CommandBuffer) SetStencilReadMask(faces state.StencilFaces, value uint32) {
	c.mustRecord("SetStencilReadMask")
	c.state.SetStencilReadMask(faces, value)
	c.updateDepthStencil()
}

// SetStencilWriteMask sets the dynamic stencil write mask of faces.
func (c *CommandBuffer) SetStencilWriteMask(faces state.StencilFaces, value uint32) {
	c.mustRecord("SetStencilWriteMask")
	c.state.SetStencilWriteMask(faces, value)
	c.updateDepthStencil()
}

func (c *CommandBuffer) updateDepthStencil() {
	if desc, changed := c.state.BuildDepthStencil(); changed {
		c.sink.PreRender().Issue(soft.SetDepthStencilState{State: c.pool.queue.depthStencil.DepthStencilState(desc)})
	}
}

// SetLineWidth accepts only the width 1.
func (c *CommandBuffer) SetLineWidth(width float32) error {
	c.mustRecord("SetLineWidth")
	if width != 1 {
		return unsupported("line width")
	}
	return nil
}

// SetDepthBounds is not supported by the native API.
func (c *CommandBuffer) SetDepthBounds(minDepth, maxDepth float32) error {
	c.mustRecord("SetDepthBounds")
	return unsupported("depth bounds")
}

// Draw records a non-indexed draw.
func (c *CommandBuffer) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	c.mustRecord("Draw")
	c.sink.PreRender().Issue(soft.Draw{
		Primitive:     c.state.Primitive,
		VertexStart:   firstVertex,
		VertexCount:   vertexCount,
		InstanceCount: instanceCount,
		BaseInstance:  firstInstance,
	})
}

func indexStride(f gputypes.IndexFormat) uint64 {
	if f == gputypes.IndexFormatUint16 {
		return 2
	}
	return 4
}

func (c *CommandBuffer) indexBuffer(op string) native.IndexBuffer {
	if c.state.IndexBuffer == nil {
		panic("cmdbuf: " + op + " without an index buffer")
	}
	return *c.state.IndexBuffer
}

// DrawIndexed records an indexed draw.
func (c *CommandBuffer) DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	c.mustRecord("DrawIndexed")
	ib := c.indexBuffer("DrawIndexed")
	ib.Offset += uint64(firstIndex) * indexStride(ib.Format)
	c.sink.PreRender().Issue(soft.DrawIndexed{
		Primitive:     c.state.Primitive,
		Index:         ib,
		IndexCount:    indexCount,
		InstanceCount: instanceCount,
		BaseVertex:    vertexOffset,
		BaseInstance:  firstInstance,
	})
}

// DrawIndirect records drawCount draws whose arguments are read from buf,
// stride bytes apart.
func (c *CommandBuffer) DrawIndirect(buf *resource.Buffer, offset uint64, drawCount, stride uint32) {
	c.mustRecord("DrawIndirect")
	cmds := make([]soft.RenderCommand, 0, drawCount)
	for i := range drawCount {
		cmds = append(cmds, soft.DrawIndirect{
			Primitive: c.state.Primitive,
			Buffer:    buf.Raw,
			Offset:    buf.Offset + offset + uint64(i)*uint64(stride),
		})
	}
	c.sink.PreRender().IssueMany(cmds)
}

// DrawIndexedIndirect records drawCount indexed draws whose arguments are
// read from buf, stride bytes apart.
func (c *CommandBuffer) DrawIndexedIndirect(buf *resource.Buffer, offset uint64, drawCount, stride uint32) {
	c.mustRecord("DrawIndexedIndirect")
	ib := c.indexBuffer("DrawIndexedIndirect")
	cmds := make([]soft.RenderCommand, 0, drawCount)
	for i := range drawCount {
		cmds = append(cmds, soft.DrawIndexedIndirect{
			Primitive: c.state.Primitive,
			Index:     ib,
			Buffer:    buf.Raw,
			Offset:    buf.Offset + offset + uint64(i)*uint64(stride),
		})
	}
	c.sink.PreRender().IssueMany(cmds)
}
