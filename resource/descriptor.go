package resource

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/cmdbuf/native"
)

// BufferBinding is one flattened buffer entry of a descriptor set.
type BufferBinding struct {
	Buffer native.Buffer
	Offset uint64
	// Size is the bound range, used by the runtime-sized length side
	// channel when Sized is set.
	Size   uint64
	Stages gputypes.ShaderStage
	// Dynamic bindings consume one dynamic offset at bind time.
	Dynamic bool
	// Sized marks storage buffers whose length shaders query at runtime.
	Sized bool
}

// TextureBinding is one flattened texture entry of a descriptor set.
type TextureBinding struct {
	Texture native.Texture
	Stages  gputypes.ShaderStage
}

// SamplerBinding is one flattened sampler entry of a descriptor set.
type SamplerBinding struct {
	Sampler native.SamplerState
	Stages  gputypes.ShaderStage
}

// DescriptorSet is a set of bindings flattened into native tables.
// Entries appear in binding order; an entry occupies one slot in the table
// of every stage in its Stages mask.
type DescriptorSet struct {
	Buffers  []BufferBinding
	Textures []TextureBinding
	Samplers []SamplerBinding
}

// Counts returns the number of slots the set occupies in stage s.
func (d *DescriptorSet) Counts(s Stage) ResourceCounts {
	flag := s.ShaderStage()
	var c ResourceCounts
	for _, b := range d.Buffers {
		if b.Stages&flag != 0 {
			c.Buffers++
		}
	}
	for _, t := range d.Textures {
		if t.Stages&flag != 0 {
			c.Textures++
		}
	}
	for _, sm := range d.Samplers {
		if sm.Stages&flag != 0 {
			c.Samplers++
		}
	}
	return c
}

// DynamicCount returns how many dynamic offsets binding the set consumes.
func (d *DescriptorSet) DynamicCount() int {
	n := 0
	for _, b := range d.Buffers {
		if b.Dynamic {
			n++
		}
	}
	return n
}
