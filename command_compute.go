package cmdbuf

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/cmdbuf/native"
	"github.com/gogpu/cmdbuf/resource"
	"github.com/gogpu/cmdbuf/sink"
	"github.com/gogpu/cmdbuf/soft"
)

// BindComputePipeline binds p. Binding the pipeline already bound emits
// nothing.
func (c *CommandBuffer) BindComputePipeline(p *resource.ComputePipeline) {
	c.mustRecord("BindComputePipeline")
	prev := c.state.Stages[resource.StageCompute].PushConstants
	if !c.state.SetComputePipeline(p) {
		return
	}
	cmds := []soft.ComputeCommand{soft.BindComputePipeline{Pipeline: p.Raw}}
	if pushChanged(prev, c.state.Stages[resource.StageCompute].PushConstants) {
		if pc, ok := c.state.PushCSConstants(); ok {
			cmds = append(cmds, pc)
		}
	}
	c.sink.PreCompute().IssueMany(cmds)
}

// BindComputeDescriptorSets binds sets starting at set index firstSet of
// layout for the compute stage.
func (c *CommandBuffer) BindComputeDescriptorSets(layout *resource.PipelineLayout, firstSet int, sets []*resource.DescriptorSet, dynamicOffsets []uint32) {
	c.mustRecord("BindComputeDescriptorSets")
	var cmds []soft.ComputeCommand
	dyn := dynamicOffsets
	for i, set := range sets {
		offsets := layout.SetOffsets[firstSet+i]
		res := c.state.BindSet(gputypes.ShaderStageCompute, set, offsets, dyn)
		dyn = dyn[min(res.DynamicUsed, len(dyn)):]
		for _, cmd := range c.state.StageCommands(resource.StageCompute, offsets[resource.StageCompute], res.Next[resource.StageCompute]) {
			cmds = append(cmds, cmd.(soft.ComputeCommand))
		}
		if res.SizesChanged&gputypes.ShaderStageCompute != 0 {
			if sz, ok := c.state.SizesCommand(resource.StageCompute); ok {
				cmds = append(cmds, sz)
			}
		}
	}
	c.sink.PreCompute().IssueMany(cmds)
}

// PushComputeConstants writes words at a byte offset of the push-constant
// block and uploads it to the compute stage.
func (c *CommandBuffer) PushComputeConstants(offset uint32, words []uint32) {
	c.mustRecord("PushComputeConstants")
	c.state.UpdatePushConstants(offset, words)
	if pc, ok := c.state.PushCSConstants(); ok {
		c.sink.PreCompute().Issue(pc)
	}
}

// computeCursor opens a compute pass if none is open and replays the
// compute state into it.
func (c *CommandBuffer) computeCursor() sink.ComputeCursor {
	cur, opened := c.sink.SwitchCompute("")
	if opened {
		cur.IssueMany(c.state.MakeComputeCommands())
	}
	return cur
}

// Dispatch records a dispatch of x*y*z work groups.
func (c *CommandBuffer) Dispatch(x, y, z uint32) {
	c.mustRecord("Dispatch")
	c.computeCursor().Issue(soft.Dispatch{
		Groups:          native.Size{Width: x, Height: y, Depth: z},
		ThreadsPerGroup: c.state.WorkGroupSize,
	})
}

// DispatchIndirect records a dispatch whose group counts are read from
// buf.
func (c *CommandBuffer) DispatchIndirect(buf *resource.Buffer, offset uint64) {
	c.mustRecord("DispatchIndirect")
	c.computeCursor().Issue(soft.DispatchIndirect{
		Buffer:          buf.Raw,
		Offset:          buf.Offset + offset,
		ThreadsPerGroup: c.state.WorkGroupSize,
	})
}
