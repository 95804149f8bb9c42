package sink

import (
	"github.com/gogpu/cmdbuf/journal"
	"github.com/gogpu/cmdbuf/native"
	"github.com/gogpu/cmdbuf/soft"
)

// RenderCursor issues render commands into whatever the sink has open.
// The zero value is a void cursor that drops every command; callers
// re-establish state with the state cache when the next pass opens.
type RenderCursor struct {
	enc     native.RenderCommandEncoder
	journal *journal.Journal
	pass    *EncodePass
}

// IsVoid reports whether commands issued to c are dropped.
func (c RenderCursor) IsVoid() bool {
	return c.enc == nil && c.journal == nil && c.pass == nil
}

// Issue issues one command.
func (c RenderCursor) Issue(cmd soft.RenderCommand) {
	switch {
	case c.enc != nil:
		soft.ExecRender(c.enc, cmd)
	case c.journal != nil:
		c.journal.AppendRender(cmd)
	case c.pass != nil:
		c.pass.Render = append(c.pass.Render, soft.Own(cmd, c.pass.Arena))
	}
}

// IssueMany issues cmds in order.
func (c RenderCursor) IssueMany(cmds []soft.RenderCommand) {
	switch {
	case c.enc != nil:
		soft.ExecRenderAll(c.enc, cmds)
	case c.journal != nil:
		c.journal.AppendRender(cmds...)
	case c.pass != nil:
		for _, cmd := range cmds {
			c.pass.Render = append(c.pass.Render, soft.Own(cmd, c.pass.Arena))
		}
	}
}

// ComputeCursor issues compute commands into whatever the sink has open.
// The zero value is a void cursor.
type ComputeCursor struct {
	enc     native.ComputeCommandEncoder
	journal *journal.Journal
	pass    *EncodePass
}

// IsVoid reports whether commands issued to c are dropped.
func (c ComputeCursor) IsVoid() bool {
	return c.enc == nil && c.journal == nil && c.pass == nil
}

// Issue issues one command.
func (c ComputeCursor) Issue(cmd soft.ComputeCommand) {
	switch {
	case c.enc != nil:
		soft.ExecCompute(c.enc, cmd)
	case c.journal != nil:
		c.journal.AppendCompute(cmd)
	case c.pass != nil:
		c.pass.Compute = append(c.pass.Compute, soft.Own(cmd, c.pass.Arena))
	}
}

// IssueMany issues cmds in order.
func (c ComputeCursor) IssueMany(cmds []soft.ComputeCommand) {
	switch {
	case c.enc != nil:
		soft.ExecComputeAll(c.enc, cmds)
	case c.journal != nil:
		c.journal.AppendCompute(cmds...)
	case c.pass != nil:
		for _, cmd := range cmds {
			c.pass.Compute = append(c.pass.Compute, soft.Own(cmd, c.pass.Arena))
		}
	}
}
