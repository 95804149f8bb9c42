package native

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Size is a three-dimensional count of threads, groups or texels.
type Size struct {
	Width, Height, Depth uint32
}

// Viewport maps normalized device coordinates to the render target.
type Viewport struct {
	X, Y, Width, Height float32
	ZNear, ZFar         float32
}

// ScissorRect is a pixel rectangle outside of which fragments are dropped.
type ScissorRect struct {
	X, Y, Width, Height uint32
}

// DepthBias is the rasterizer depth offset.
type DepthBias struct {
	Constant float32
	Slope    float32
	Clamp    float32
}

// RasterizerState is the fixed-function rasterizer configuration that is
// set on the encoder rather than baked into the pipeline.
type RasterizerState struct {
	FrontFace  gputypes.FrontFace
	CullMode   gputypes.CullMode
	DepthClamp bool
}

// VisibilityResultMode selects how occlusion results are written.
type VisibilityResultMode uint8

// Visibility result modes.
const (
	VisibilityDisabled VisibilityResultMode = iota
	VisibilityBoolean
	VisibilityCounting
)

// ResourceUsage describes how an indirectly referenced resource is accessed.
type ResourceUsage uint8

// Resource usages.
const (
	UsageRead ResourceUsage = 1 << iota
	UsageWrite
	UsageSample
)

// IndexBuffer is an index buffer binding.
type IndexBuffer struct {
	Buffer Buffer
	Offset uint64
	Format gputypes.IndexFormat
}

// TextureRegion addresses one mip level of one array slice of a texture.
type TextureRegion struct {
	Texture Texture
	Level   uint32
	Slice   uint32
	Origin  gputypes.Origin3D
}

// BufferLayout describes texel data laid out in a buffer.
type BufferLayout struct {
	Buffer        Buffer
	Offset        uint64
	BytesPerRow   uint64
	BytesPerImage uint64
}

// StencilFace is the stencil configuration of one face.
type StencilFace struct {
	Compare     gputypes.CompareFunction
	FailOp      hal.StencilOperation
	DepthFailOp hal.StencilOperation
	PassOp      hal.StencilOperation
	ReadMask    uint32
	WriteMask   uint32
}

// DepthStencilDescriptor describes a DepthStencilState. The zero value is
// not meaningful; start from DefaultDepthStencil.
//
// The type is comparable so it can key caches and detect redundant state.
type DepthStencilDescriptor struct {
	DepthCompare      gputypes.CompareFunction
	DepthWriteEnabled bool
	StencilEnabled    bool
	Front             StencilFace
	Back              StencilFace
}

// DefaultStencilFace is a stencil face that always passes and keeps values.
func DefaultStencilFace() StencilFace {
	return StencilFace{
		Compare:     gputypes.CompareFunctionAlways,
		FailOp:      hal.StencilOperationKeep,
		DepthFailOp: hal.StencilOperationKeep,
		PassOp:      hal.StencilOperationKeep,
		ReadMask:    0xFF,
		WriteMask:   0xFF,
	}
}

// DefaultDepthStencil disables depth writes, always passes the depth test
// and disables stenciling.
func DefaultDepthStencil() DepthStencilDescriptor {
	return DepthStencilDescriptor{
		DepthCompare: gputypes.CompareFunctionAlways,
		Front:        DefaultStencilFace(),
		Back:         DefaultStencilFace(),
	}
}
