package cmdbuf

import (
	"encoding/binary"
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/cmdbuf/native"
	"github.com/gogpu/cmdbuf/resource"
	"github.com/gogpu/cmdbuf/soft"
)

// BufferCopy is one region of CopyBuffer.
type BufferCopy struct {
	SrcOffset uint64
	DstOffset uint64
	Size      uint64
}

// ImageSubresource selects a mip level and a run of array layers.
type ImageSubresource struct {
	Level      uint32
	BaseLayer  uint32
	LayerCount uint32
}

func (s ImageSubresource) layers() uint32 { return max(s.LayerCount, 1) }

// ImageCopy is one region of CopyImage.
type ImageCopy struct {
	Src       ImageSubresource
	SrcOrigin gputypes.Origin3D
	Dst       ImageSubresource
	DstOrigin gputypes.Origin3D
	Extent    gputypes.Extent3D
}

// BufferImageCopy is one region of a buffer and image transfer.
// BytesPerRow and RowsPerImage describe the buffer layout and must be
// supplied; rows are not assumed to be tightly packed.
type BufferImageCopy struct {
	BufferOffset uint64
	BytesPerRow  uint64
	RowsPerImage uint64
	Image        ImageSubresource
	Origin       gputypes.Origin3D
	Extent       gputypes.Extent3D
}

// ImageResolve is one region of ResolveImage.
type ImageResolve struct {
	Src ImageSubresource
	Dst ImageSubresource
}

// SubresourceRange selects the subresources of ClearImage.
type SubresourceRange struct {
	Aspects    resource.Aspects
	BaseLevel  uint32
	LevelCount uint32
	BaseLayer  uint32
	LayerCount uint32
}

func extentSize(e gputypes.Extent3D) native.Size {
	return native.Size{Width: e.Width, Height: e.Height, Depth: max(e.DepthOrArrayLayers, 1)}
}

func uniformBytes(v uint32) (byte, bool) {
	b := byte(v)
	return b, v == uint32(b)*0x01010101
}

// FillBuffer fills a range of dst with the 32-bit pattern data. A size of
// resource.WholeSize fills to the end of the buffer, rounded down to a
// whole number of words.
//
// Word aligned ranges of a pattern made of one repeated byte are filled by
// the blit engine. Everything else runs the device's fill compute
// pipeline, which takes a byte count so the range may end mid-word.
func (c *CommandBuffer) FillBuffer(dst *resource.Buffer, offset, size uint64, data uint32) error {
	c.mustRecord("FillBuffer")
	whole := size == resource.WholeSize
	off, n := dst.Resolve(offset, size)
	if whole {
		n &^= 3
	}
	if n == 0 {
		return nil
	}

	if b, ok := uniformBytes(data); ok && off%4 == 0 && n%4 == 0 {
		c.sink.BlitCommands(soft.FillBuffer{Dst: dst.Raw, Offset: off, Size: n, Value: b})
		return nil
	}

	fill, err := c.pool.queue.fillPipeline()
	if err != nil {
		return err
	}
	words := uint32((n + 3) / 4)
	width := max(fill.ThreadExecutionWidth(), 1)
	params := make([]byte, 12)
	binary.LittleEndian.PutUint32(params[0:4], data)
	binary.LittleEndian.PutUint32(params[4:8], words)
	binary.LittleEndian.PutUint32(params[8:12], uint32(n))
	c.sink.QuickCompute("fill_buffer",
		soft.BindComputePipeline{Pipeline: fill},
		soft.BindBuffer{Stage: gputypes.ShaderStageCompute, Index: 0, Buffer: dst.Raw, Offset: off},
		soft.BindBufferData{Stage: gputypes.ShaderStageCompute, Index: 1, Data: params},
		soft.Dispatch{
			Groups:          native.Size{Width: (words + width - 1) / width, Height: 1, Depth: 1},
			ThreadsPerGroup: native.Size{Width: width, Height: 1, Depth: 1},
		},
	)
	return nil
}

// UpdateBuffer writes data into dst at offset. The bytes are staged in a
// buffer kept alive by the command buffer until it is reset.
func (c *CommandBuffer) UpdateBuffer(dst *resource.Buffer, offset uint64, data []byte) error {
	c.mustRecord("UpdateBuffer")
	if len(data) == 0 {
		return nil
	}
	staging, err := c.pool.queue.device.NewBuffer(data)
	if err != nil {
		return fmt.Errorf("%w: staging buffer: %w", ErrOutOfResources, err)
	}
	c.retained = append(c.retained, staging)
	off, n := dst.Resolve(offset, uint64(len(data)))
	c.sink.BlitCommands(soft.CopyBuffer{Src: staging, Dst: dst.Raw, DstOffset: off, Size: n})
	return nil
}

// CopyBuffer copies regions between buffers.
func (c *CommandBuffer) CopyBuffer(src, dst *resource.Buffer, regions []BufferCopy) {
	c.mustRecord("CopyBuffer")
	cmds := make([]soft.BlitCommand, 0, len(regions))
	for _, r := range regions {
		cmds = append(cmds, soft.CopyBuffer{
			Src:       src.Raw,
			SrcOffset: src.Offset + r.SrcOffset,
			Dst:       dst.Raw,
			DstOffset: dst.Offset + r.DstOffset,
			Size:      r.Size,
		})
	}
	c.sink.BlitCommands(cmds...)
}

// CopyImage copies regions between images, one command per array layer.
func (c *CommandBuffer) CopyImage(src, dst *resource.Image, regions []ImageCopy) {
	c.mustRecord("CopyImage")
	var cmds []soft.BlitCommand
	for _, r := range regions {
		for l := range r.Src.layers() {
			cmds = append(cmds, soft.CopyImage{
				Src:  native.TextureRegion{Texture: src.Raw, Level: r.Src.Level, Slice: r.Src.BaseLayer + l, Origin: r.SrcOrigin},
				Dst:  native.TextureRegion{Texture: dst.Raw, Level: r.Dst.Level, Slice: r.Dst.BaseLayer + l, Origin: r.DstOrigin},
				Size: extentSize(r.Extent),
			})
		}
	}
	c.sink.BlitCommands(cmds...)
}

func (r BufferImageCopy) layout(buf *resource.Buffer, layer uint32) native.BufferLayout {
	perImage := r.BytesPerRow * r.RowsPerImage
	return native.BufferLayout{
		Buffer:        buf.Raw,
		Offset:        buf.Offset + r.BufferOffset + uint64(layer)*perImage*uint64(max(r.Extent.DepthOrArrayLayers, 1)),
		BytesPerRow:   r.BytesPerRow,
		BytesPerImage: perImage,
	}
}

// CopyBufferToImage uploads regions of src into dst.
func (c *CommandBuffer) CopyBufferToImage(src *resource.Buffer, dst *resource.Image, regions []BufferImageCopy) {
	c.mustRecord("CopyBufferToImage")
	var cmds []soft.BlitCommand
	for _, r := range regions {
		for l := range r.Image.layers() {
			cmds = append(cmds, soft.CopyBufferToImage{
				Src:  r.layout(src, l),
				Dst:  native.TextureRegion{Texture: dst.Raw, Level: r.Image.Level, Slice: r.Image.BaseLayer + l, Origin: r.Origin},
				Size: extentSize(r.Extent),
			})
		}
	}
	c.sink.BlitCommands(cmds...)
}

// CopyImageToBuffer reads regions of src back into dst.
func (c *CommandBuffer) CopyImageToBuffer(src *resource.Image, dst *resource.Buffer, regions []BufferImageCopy) {
	c.mustRecord("CopyImageToBuffer")
	var cmds []soft.BlitCommand
	for _, r := range regions {
		for l := range r.Image.layers() {
			cmds = append(cmds, soft.CopyImageToBuffer{
				Src:  native.TextureRegion{Texture: src.Raw, Level: r.Image.Level, Slice: r.Image.BaseLayer + l, Origin: r.Origin},
				Dst:  r.layout(dst, l),
				Size: extentSize(r.Extent),
			})
		}
	}
	c.sink.BlitCommands(cmds...)
}

func levelExtent(e gputypes.Extent3D, level uint32) (uint32, uint32) {
	return max(e.Width>>level, 1), max(e.Height>>level, 1)
}

// ClearImage clears the selected subresources of img outside a render
// pass. Every level and layer gets its own clearing render pass.
func (c *CommandBuffer) ClearImage(img *resource.Image, color gputypes.Color, depth float32, stencil uint32, ranges []SubresourceRange) {
	c.mustRecord("ClearImage")
	for _, rg := range ranges {
		levels := rg.LevelCount
		if levels == 0 {
			levels = img.MipLevels - rg.BaseLevel
		}
		layers := rg.LayerCount
		if layers == 0 {
			layers = img.Layers - rg.BaseLayer
		}
		aspects := rg.Aspects & img.Aspects
		for level := rg.BaseLevel; level < rg.BaseLevel+levels; level++ {
			for layer := rg.BaseLayer; layer < rg.BaseLayer+layers; layer++ {
				desc := c.pool.descriptors.Get()
				desc.RenderTargetWidth, desc.RenderTargetHeight = levelExtent(img.Extent, level)
				desc.RenderTargetArrayLen = 1
				if aspects.Has(resource.AspectColor) {
					desc.ColorAttachments = append(desc.ColorAttachments, native.ColorAttachment{
						Texture: img.Raw, Level: level, Slice: layer,
						LoadOp: gputypes.LoadOpClear, StoreOp: gputypes.StoreOpStore,
						ClearColor: color,
					})
				}
				if aspects.Has(resource.AspectDepth) {
					desc.Depth = &native.DepthAttachment{
						Texture: img.Raw, Level: level, Slice: layer,
						LoadOp: gputypes.LoadOpClear, StoreOp: gputypes.StoreOpStore,
						ClearDepth: depth,
					}
				}
				if aspects.Has(resource.AspectStencil) {
					desc.Stencil = &native.StencilAttachment{
						Texture: img.Raw, Level: level, Slice: layer,
						LoadOp: gputypes.LoadOpClear, StoreOp: gputypes.StoreOpStore,
						ClearStencil: stencil,
					}
				}
				c.sink.QuickRender("clear_image", desc)
			}
		}
	}
}

// ResolveImage resolves multisampled src into dst through an empty render
// pass whose store action resolves.
func (c *CommandBuffer) ResolveImage(src, dst *resource.Image, regions []ImageResolve) {
	c.mustRecord("ResolveImage")
	for _, r := range regions {
		for l := range r.Src.layers() {
			desc := c.pool.descriptors.Get()
			desc.RenderTargetWidth, desc.RenderTargetHeight = levelExtent(src.Extent, r.Src.Level)
			desc.RenderTargetArrayLen = 1
			desc.ColorAttachments = append(desc.ColorAttachments, native.ColorAttachment{
				Texture:        src.Raw,
				Level:          r.Src.Level,
				Slice:          r.Src.BaseLayer + l,
				LoadOp:         gputypes.LoadOpLoad,
				StoreOp:        gputypes.StoreOpDiscard,
				ResolveTexture: dst.Raw,
				ResolveLevel:   r.Dst.Level,
				ResolveSlice:   r.Dst.BaseLayer + l,
			})
			c.sink.QuickRender("resolve_image", desc)
		}
	}
}
