package soft

import (
	"github.com/gogpu/cmdbuf/native"
)

// Arena owns the slice payloads of stored commands.
//
// Arena is not safe for concurrent use.
type Arena struct {
	Buffers  []native.Buffer
	Offsets  []uint64
	Bytes    []byte
	Textures []native.Texture
	Samplers []native.SamplerState
}

// NewArena creates an empty arena with pre-allocated capacity.
func NewArena() *Arena {
	return &Arena{
		Buffers:  make([]native.Buffer, 0, 32),
		Offsets:  make([]uint64, 0, 32),
		Bytes:    make([]byte, 0, 256),
		Textures: make([]native.Texture, 0, 16),
		Samplers: make([]native.SamplerState, 0, 16),
	}
}

// Clear drops every payload. Commands previously owned by the arena must
// be discarded with it.
func (a *Arena) Clear() {
	clear(a.Buffers)
	clear(a.Textures)
	clear(a.Samplers)
	a.Buffers = a.Buffers[:0]
	a.Offsets = a.Offsets[:0]
	a.Bytes = a.Bytes[:0]
	a.Textures = a.Textures[:0]
	a.Samplers = a.Samplers[:0]
}

// Size reports the number of payload elements held.
func (a *Arena) Size() int {
	return len(a.Buffers) + len(a.Offsets) + len(a.Bytes) + len(a.Textures) + len(a.Samplers)
}

// put appends src to *dst and returns the appended region, capacity-limited
// so later appends to the arena never write through it.
func put[T any](dst *[]T, src []T) []T {
	if len(src) == 0 {
		return nil
	}
	start := len(*dst)
	*dst = append(*dst, src...)
	end := len(*dst)
	return (*dst)[start:end:end]
}

type owner interface {
	own(a *Arena) Command
}

// Own returns c with every slice payload copied into a. Commands without
// payloads are returned unchanged.
func Own[C Command](c C, a *Arena) C {
	if o, ok := any(c).(owner); ok {
		return o.own(a).(C)
	}
	return c
}

func (c BindBuffers) own(a *Arena) Command {
	c.Buffers = put(&a.Buffers, c.Buffers)
	c.Offsets = put(&a.Offsets, c.Offsets)
	return c
}

func (c BindBufferData) own(a *Arena) Command {
	c.Data = put(&a.Bytes, c.Data)
	return c
}

func (c BindTextures) own(a *Arena) Command {
	c.Textures = put(&a.Textures, c.Textures)
	return c
}

func (c BindSamplers) own(a *Arena) Command {
	c.Samplers = put(&a.Samplers, c.Samplers)
	return c
}
