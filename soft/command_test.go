package soft

import (
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/cmdbuf/native"
	"github.com/gogpu/cmdbuf/native/capture"
)

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindSetViewport, "SetViewport"},
		{KindBindBuffers, "BindBuffers"},
		{KindDispatch, "Dispatch"},
		{KindFillBuffer, "FillBuffer"},
		{KindInsertDebugSignpost, "InsertDebugSignpost"},
		{Kind(200), "Unknown"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestOwnCopiesPayloads(t *testing.T) {
	dev := capture.NewDevice()
	arena := NewArena()
	tex := []native.Texture{dev.NewTexture("a"), dev.NewTexture("b")}

	owned := Own(BindTextures{Stage: gputypes.ShaderStageFragment, Index: 2, Textures: tex}, arena)
	tex[0] = nil
	if owned.Textures[0] == nil {
		t.Fatal("owned command aliases caller slice")
	}
	if owned.Index != 2 || owned.Stage != gputypes.ShaderStageFragment {
		t.Errorf("owned = %+v", owned)
	}

	// Later appends to the arena must not clobber earlier owned payloads.
	second := Own(BindTextures{Textures: []native.Texture{dev.NewTexture("c")}}, arena)
	if cap(owned.Textures) != len(owned.Textures) {
		t.Error("owned slice capacity not limited")
	}
	if second.Textures[0] == owned.Textures[0] {
		t.Error("payloads overlap")
	}
	if arena.Size() != 3 {
		t.Errorf("arena size = %d", arena.Size())
	}
}

func TestOwnInterfaceValue(t *testing.T) {
	arena := NewArena()
	var c RenderCommand = BindBufferData{Data: []byte{1, 2}}
	owned := Own(c, arena)
	if owned.(BindBufferData).Data[1] != 2 {
		t.Error("payload lost")
	}
	var d RenderCommand = Draw{VertexCount: 3}
	if Own(d, arena) != d {
		t.Error("payload-free command changed")
	}
}

func TestExecRoutesToEncoder(t *testing.T) {
	dev := capture.NewDevice()
	q, _ := dev.NewCommandQueue(0)
	cb, _ := q.NewCommandBuffer()

	rp := cb.RenderCommandEncoder(&native.RenderPassDescriptor{})
	ExecRenderAll(rp, []RenderCommand{
		SetBlendColor{Color: gputypes.Color{R: 1, A: 1}},
		BindBuffer{Stage: gputypes.ShaderStageVertex, Index: 1, Buffer: dev.NewBufferSize("vb", 4)},
		PushDebugGroup{Label: "g"},
		PopDebugGroup{},
	})
	rp.EndEncoding()

	cp := cb.ComputeCommandEncoder()
	ExecCompute(cp, BindBuffer{Stage: gputypes.ShaderStageCompute, Index: 0})
	cp.EndEncoding()

	bl := cb.BlitCommandEncoder()
	ExecBlit(bl, InsertDebugSignpost{Label: "s"})
	bl.EndEncoding()

	for _, op := range []string{
		"render.SetBlendColor",
		"render.SetBuffers",
		"render.PushDebugGroup",
		"render.PopDebugGroup",
		"compute.SetBuffers",
		"blit.InsertDebugSignpost",
	} {
		if dev.Trace.Count(op) != 1 {
			t.Errorf("%s count = %d", op, dev.Trace.Count(op))
		}
	}
}
