package native

import (
	"github.com/gogpu/gputypes"
)

// ColorAttachment is one color target of a render pass.
type ColorAttachment struct {
	Texture    Texture
	Level      uint32
	Slice      uint32
	LoadOp     gputypes.LoadOp
	StoreOp    gputypes.StoreOp
	ClearColor gputypes.Color

	// ResolveTexture, when set, receives the multisample resolve.
	ResolveTexture Texture
	ResolveLevel   uint32
	ResolveSlice   uint32
}

// DepthAttachment is the depth target of a render pass.
type DepthAttachment struct {
	Texture    Texture
	Level      uint32
	Slice      uint32
	LoadOp     gputypes.LoadOp
	StoreOp    gputypes.StoreOp
	ClearDepth float32
}

// StencilAttachment is the stencil target of a render pass.
type StencilAttachment struct {
	Texture      Texture
	Level        uint32
	Slice        uint32
	LoadOp       gputypes.LoadOp
	StoreOp      gputypes.StoreOp
	ClearStencil uint32
}

// RenderPassDescriptor describes the targets of a render encoder.
//
// Descriptors are pooled and reused; Reset returns one to the empty state
// while keeping its attachment storage.
type RenderPassDescriptor struct {
	ColorAttachments       []ColorAttachment
	Depth                  *DepthAttachment
	Stencil                *StencilAttachment
	VisibilityResultBuffer Buffer
	RenderTargetWidth      uint32
	RenderTargetHeight     uint32
	RenderTargetArrayLen   uint32
}

// Reset clears d for reuse.
func (d *RenderPassDescriptor) Reset() {
	clear(d.ColorAttachments)
	d.ColorAttachments = d.ColorAttachments[:0]
	d.Depth = nil
	d.Stencil = nil
	d.VisibilityResultBuffer = nil
	d.RenderTargetWidth = 0
	d.RenderTargetHeight = 0
	d.RenderTargetArrayLen = 0
}

// CopyFrom makes d a deep copy of src.
func (d *RenderPassDescriptor) CopyFrom(src *RenderPassDescriptor) {
	d.Reset()
	d.ColorAttachments = append(d.ColorAttachments, src.ColorAttachments...)
	if src.Depth != nil {
		depth := *src.Depth
		d.Depth = &depth
	}
	if src.Stencil != nil {
		stencil := *src.Stencil
		d.Stencil = &stencil
	}
	d.VisibilityResultBuffer = src.VisibilityResultBuffer
	d.RenderTargetWidth = src.RenderTargetWidth
	d.RenderTargetHeight = src.RenderTargetHeight
	d.RenderTargetArrayLen = src.RenderTargetArrayLen
}
