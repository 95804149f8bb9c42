package resource

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/cmdbuf/native"
)

// WholeSize selects the remainder of a buffer from an offset.
const WholeSize = ^uint64(0)

// Aspects is a set of image aspects.
type Aspects uint8

// Image aspects.
const (
	AspectColor Aspects = 1 << iota
	AspectDepth
	AspectStencil
)

// AspectsNone is the empty aspect set.
const AspectsNone Aspects = 0

// Has reports whether every aspect in o is present in a.
func (a Aspects) Has(o Aspects) bool { return a&o == o }

// String returns a compact rendering such as "color|depth".
func (a Aspects) String() string {
	if a == 0 {
		return "none"
	}
	s := ""
	for _, p := range []struct {
		bit  Aspects
		name string
	}{{AspectColor, "color"}, {AspectDepth, "depth"}, {AspectStencil, "stencil"}} {
		if a&p.bit != 0 {
			if s != "" {
				s += "|"
			}
			s += p.name
		}
	}
	return s
}

// Buffer is a sub-range of a native buffer.
type Buffer struct {
	Raw    native.Buffer
	Offset uint64
	Size   uint64
}

// Resolve converts a range relative to the buffer into an absolute offset
// and byte count within Raw. A size of WholeSize selects the remainder.
func (b *Buffer) Resolve(offset, size uint64) (uint64, uint64) {
	if offset > b.Size {
		offset = b.Size
	}
	if size == WholeSize || offset+size > b.Size {
		size = b.Size - offset
	}
	return b.Offset + offset, size
}

// Image is a texture with its creation metadata.
type Image struct {
	Raw       native.Texture
	Format    gputypes.TextureFormat
	Extent    gputypes.Extent3D
	Aspects   Aspects
	MipLevels uint32
	Layers    uint32
	Samples   uint32
}

// ImageView is an attachable or bindable view of one image subresource.
type ImageView struct {
	Raw       native.Texture
	Image     *Image
	Format    gputypes.TextureFormat
	Aspects   Aspects
	BaseLevel uint32
	BaseLayer uint32
}

// Sampler wraps a native sampler.
type Sampler struct {
	Raw native.SamplerState
}

// Framebuffer binds image views to the attachments of a render pass.
type Framebuffer struct {
	Attachments []*ImageView
	Extent      gputypes.Extent3D
}
