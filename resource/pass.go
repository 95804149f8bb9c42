package resource

import (
	"github.com/gogpu/gputypes"
)

// Unused marks an absent attachment reference.
const Unused = -1

// Attachment describes one render pass attachment.
type Attachment struct {
	Format         gputypes.TextureFormat
	Samples        uint32
	Aspects        Aspects
	LoadOp         gputypes.LoadOp
	StoreOp        gputypes.StoreOp
	StencilLoadOp  gputypes.LoadOp
	StencilStoreOp gputypes.StoreOp
}

// Subpass references the attachments used by one subpass.
type Subpass struct {
	Colors []int
	// Resolves, when non-nil, has one entry per color; Unused skips it.
	Resolves     []int
	DepthStencil int
}

// RenderPass is an ordered list of subpasses over a set of attachments.
type RenderPass struct {
	Attachments []Attachment
	Subpasses   []Subpass
}

// SubpassTarget summarizes the render target a subpass draws into.
type SubpassTarget struct {
	ColorFormats       []gputypes.TextureFormat
	DepthStencilFormat gputypes.TextureFormat
	Aspects            Aspects
	Samples            uint32
}

// Target returns the target summary of subpass i.
func (rp *RenderPass) Target(i int) SubpassTarget {
	sp := rp.Subpasses[i]
	t := SubpassTarget{Samples: 1}
	for _, c := range sp.Colors {
		if c == Unused {
			t.ColorFormats = append(t.ColorFormats, gputypes.TextureFormatUndefined)
			continue
		}
		a := rp.Attachments[c]
		t.ColorFormats = append(t.ColorFormats, a.Format)
		t.Aspects |= AspectColor
		t.Samples = max(a.Samples, 1)
	}
	if sp.DepthStencil != Unused {
		a := rp.Attachments[sp.DepthStencil]
		t.DepthStencilFormat = a.Format
		t.Aspects |= a.Aspects & (AspectDepth | AspectStencil)
		t.Samples = max(a.Samples, 1)
	}
	return t
}

// FirstUse returns, per attachment, the first subpass referencing it, or
// Unused when no subpass does.
func (rp *RenderPass) FirstUse() []int {
	first := make([]int, len(rp.Attachments))
	for i := range first {
		first[i] = Unused
	}
	mark := func(att, sp int) {
		if att != Unused && first[att] == Unused {
			first[att] = sp
		}
	}
	for i, sp := range rp.Subpasses {
		for _, c := range sp.Colors {
			mark(c, i)
		}
		for _, r := range sp.Resolves {
			mark(r, i)
		}
		mark(sp.DepthStencil, i)
	}
	return first
}

// LastUse returns, per attachment, the last subpass referencing it, or
// Unused when no subpass does.
func (rp *RenderPass) LastUse() []int {
	last := make([]int, len(rp.Attachments))
	for i := range last {
		last[i] = Unused
	}
	mark := func(att, sp int) {
		if att != Unused {
			last[att] = sp
		}
	}
	for i, sp := range rp.Subpasses {
		for _, c := range sp.Colors {
			mark(c, i)
		}
		for _, r := range sp.Resolves {
			mark(r, i)
		}
		mark(sp.DepthStencil, i)
	}
	return last
}
