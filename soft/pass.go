package soft

import (
	"github.com/gogpu/cmdbuf/native"
)

// PassKind is the encoder kind of a pass.
type PassKind uint8

// Pass kinds.
const (
	PassRender PassKind = iota
	PassCompute
	PassBlit
)

var passKindNames = [...]string{
	PassRender:  "render",
	PassCompute: "compute",
	PassBlit:    "blit",
}

// String returns the pass kind name.
func (k PassKind) String() string {
	if int(k) < len(passKindNames) {
		return passKindNames[k]
	}
	return "unknown"
}

// Pass describes the encoder a group of commands is recorded into.
type Pass struct {
	Kind PassKind
	// Desc is the render target of a render pass; nil otherwise.
	Desc *native.RenderPassDescriptor
}

// RenderPass returns a render pass over desc.
func RenderPass(desc *native.RenderPassDescriptor) Pass {
	return Pass{Kind: PassRender, Desc: desc}
}

// ComputePass returns a compute pass.
func ComputePass() Pass { return Pass{Kind: PassCompute} }

// BlitPass returns a blit pass.
func BlitPass() Pass { return Pass{Kind: PassBlit} }

// Begin opens the native encoder for p on cb. The encoder is returned as
// the matching concrete encoder interface.
func (p Pass) Begin(cb native.CommandBuffer) native.CommandEncoder {
	switch p.Kind {
	case PassRender:
		return cb.RenderCommandEncoder(p.Desc)
	case PassCompute:
		return cb.ComputeCommandEncoder()
	default:
		return cb.BlitCommandEncoder()
	}
}
