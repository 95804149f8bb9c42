package sink

import (
	"github.com/gogpu/cmdbuf/native"
	"github.com/gogpu/cmdbuf/soft"
)

// Sink is the recording strategy of one command buffer. It is implemented
// by *Immediate, *Deferred and *Remote only.
//
// Render pass descriptors handed to SwitchRender and QuickRender must come
// from the sink's DescriptorPool; the sink returns them once they are no
// longer needed.
type Sink interface {
	// PreRender returns a cursor into the open render pass, or a void
	// cursor when none is open.
	PreRender() RenderCursor
	// PreCompute returns a cursor into the open compute pass, or a void
	// cursor when none is open.
	PreCompute() ComputeCursor
	// SwitchRender ends the current encoding and opens a render pass.
	SwitchRender(desc *native.RenderPassDescriptor, label string) RenderCursor
	// SwitchCompute opens a compute pass unless one is already open. The
	// result reports whether a new pass was opened.
	SwitchCompute(label string) (ComputeCursor, bool)
	// BlitCommands issues cmds into the open blit pass, opening one first
	// when needed.
	BlitCommands(cmds ...soft.BlitCommand)
	// QuickRender records a self-contained render pass.
	QuickRender(label string, desc *native.RenderPassDescriptor, cmds ...soft.RenderCommand)
	// QuickCompute records a self-contained compute pass.
	QuickCompute(label string, cmds ...soft.ComputeCommand)
	// StopEncoding finishes the active pass, if any.
	StopEncoding()
	// NumPasses returns the number of passes opened so far.
	NumPasses() int
	// Label returns the debug label of the command buffer.
	Label() string

	sealed()
}

var (
	_ Sink = (*Immediate)(nil)
	_ Sink = (*Deferred)(nil)
	_ Sink = (*Remote)(nil)
)

// EncoderState is the kind of native encoder an Immediate sink has open.
type EncoderState uint8

// Encoder states.
const (
	EncoderNone EncoderState = iota
	EncoderRender
	EncoderCompute
	EncoderBlit
)

var encoderStateNames = [...]string{
	EncoderNone:    "none",
	EncoderRender:  "render",
	EncoderCompute: "compute",
	EncoderBlit:    "blit",
}

// String returns the state name.
func (s EncoderState) String() string {
	if int(s) < len(encoderStateNames) {
		return encoderStateNames[s]
	}
	return "unknown"
}
