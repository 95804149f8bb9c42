package state

import (
	"encoding/binary"

	"github.com/gogpu/cmdbuf/native"
	"github.com/gogpu/cmdbuf/resource"
)

// StageResources mirrors the native binding tables of one shader stage.
type StageResources struct {
	Buffers       []native.Buffer
	BufferOffsets []uint64
	Textures      []native.Texture
	Samplers      []native.SamplerState
	// PushConstants locates the stage's push-constant block in the
	// currently bound pipeline layout.
	PushConstants *resource.PushConstantInfo
	// Sizes holds runtime-sized binding lengths, indexed by buffer slot.
	Sizes []uint32
	// SizesSlot is the buffer slot receiving Sizes, if the layout has one.
	SizesSlot *uint32
}

// Clear empties every table.
func (r *StageResources) Clear() {
	clear(r.Buffers)
	clear(r.Textures)
	clear(r.Samplers)
	r.Buffers = r.Buffers[:0]
	r.BufferOffsets = r.BufferOffsets[:0]
	r.Textures = r.Textures[:0]
	r.Samplers = r.Samplers[:0]
	r.Sizes = r.Sizes[:0]
	r.PushConstants = nil
	r.SizesSlot = nil
}

// PreAllocate grows the tables to hold at least c slots of each kind.
func (r *StageResources) PreAllocate(c resource.ResourceCounts) {
	for uint32(len(r.Buffers)) < c.Buffers {
		r.Buffers = append(r.Buffers, nil)
		r.BufferOffsets = append(r.BufferOffsets, 0)
	}
	for uint32(len(r.Textures)) < c.Textures {
		r.Textures = append(r.Textures, nil)
	}
	for uint32(len(r.Samplers)) < c.Samplers {
		r.Samplers = append(r.Samplers, nil)
	}
}

// BindBuffer stores a buffer at slot index.
func (r *StageResources) BindBuffer(index uint32, buf native.Buffer, offset uint64) {
	r.PreAllocate(resource.ResourceCounts{Buffers: index + 1})
	r.Buffers[index] = buf
	r.BufferOffsets[index] = offset
}

// BindTexture stores a texture at slot index.
func (r *StageResources) BindTexture(index uint32, tex native.Texture) {
	r.PreAllocate(resource.ResourceCounts{Textures: index + 1})
	r.Textures[index] = tex
}

// BindSampler stores a sampler at slot index.
func (r *StageResources) BindSampler(index uint32, s native.SamplerState) {
	r.PreAllocate(resource.ResourceCounts{Samplers: index + 1})
	r.Samplers[index] = s
}

// SetSize records the length of the sized binding at buffer slot index and
// reports whether it changed.
func (r *StageResources) SetSize(index, size uint32) bool {
	for uint32(len(r.Sizes)) <= index {
		r.Sizes = append(r.Sizes, 0)
	}
	if r.Sizes[index] == size {
		return false
	}
	r.Sizes[index] = size
	return true
}

// SizesBytes encodes Sizes as little-endian words.
func (r *StageResources) SizesBytes() []byte {
	return wordBytes(r.Sizes)
}

func wordBytes(words []uint32) []byte {
	out := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(out[4*i:], w)
	}
	return out
}
