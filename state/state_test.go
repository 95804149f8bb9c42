package state

import (
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/cmdbuf/native"
	"github.com/gogpu/cmdbuf/native/capture"
	"github.com/gogpu/cmdbuf/resource"
	"github.com/gogpu/cmdbuf/soft"
)

type fakeDepthStencil struct {
	dev   *capture.Device
	calls int
}

func (f *fakeDepthStencil) DepthStencilState(desc native.DepthStencilDescriptor) native.DepthStencilState {
	f.calls++
	s, _ := f.dev.NewDepthStencilState(desc)
	return s
}

func testTarget() Target {
	return Target{
		Aspects:            resource.AspectColor | resource.AspectDepth,
		ColorFormats:       []gputypes.TextureFormat{gputypes.TextureFormatRGBA8Unorm},
		DepthStencilFormat: gputypes.TextureFormatDepth24PlusStencil8,
		Samples:            1,
		Extent:             gputypes.Extent3D{Width: 800, Height: 600, DepthOrArrayLayers: 1},
	}
}

func testPipeline(dev *capture.Device) *resource.GraphicsPipeline {
	return &resource.GraphicsPipeline{
		Raw:                dev.NewRenderPipeline("pso"),
		Primitive:          gputypes.PrimitiveTopologyTriangleList,
		DepthStencil:       native.DefaultDepthStencil(),
		ColorFormats:       []gputypes.TextureFormat{gputypes.TextureFormatRGBA8Unorm},
		DepthStencilFormat: gputypes.TextureFormatDepth24PlusStencil8,
		SampleCount:        1,
	}
}

func TestResetIdempotent(t *testing.T) {
	dev := capture.NewDevice()
	s := New()
	s.SetTarget(testTarget())
	s.SetRenderPipeline(testPipeline(dev))
	s.SetViewport(native.Viewport{Width: 10, Height: 10})
	s.BindVertexBuffer(0, dev.NewBufferSize("vb", 16), 0)
	s.UpdatePushConstants(0, []uint32{1, 2})

	s.Reset()
	first := *s
	s.Reset()

	if s.RenderPSO != nil || s.Viewport != nil || len(s.PushConstants) != 0 || len(s.VertexBuffers) != 0 {
		t.Fatal("Reset left state behind")
	}
	if s.ActiveDepthStencilDesc != first.ActiveDepthStencilDesc || s.ActiveScissor != first.ActiveScissor {
		t.Error("second Reset changed native mirror")
	}
	if s.Target.Samples != 1 || s.Primitive != gputypes.PrimitiveTopologyTriangleList {
		t.Errorf("defaults not restored: samples=%d primitive=%v", s.Target.Samples, s.Primitive)
	}
}

func TestClampScissor(t *testing.T) {
	extent := gputypes.Extent3D{Width: 100, Height: 50, DepthOrArrayLayers: 1}
	tests := []struct {
		name string
		in   native.ScissorRect
		want native.ScissorRect
	}{
		{"inside", native.ScissorRect{X: 10, Y: 10, Width: 20, Height: 20}, native.ScissorRect{X: 10, Y: 10, Width: 20, Height: 20}},
		{"overflow width", native.ScissorRect{X: 90, Y: 0, Width: 50, Height: 10}, native.ScissorRect{X: 90, Y: 0, Width: 10, Height: 10}},
		{"origin outside", native.ScissorRect{X: 500, Y: 500, Width: 10, Height: 10}, native.ScissorRect{X: 99, Y: 49, Width: 1, Height: 1}},
		{"zero size", native.ScissorRect{X: 5, Y: 5}, native.ScissorRect{X: 5, Y: 5, Width: 1, Height: 1}},
		{"full", native.ScissorRect{Width: ^uint32(0), Height: ^uint32(0)}, native.ScissorRect{Width: 100, Height: 50}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClampScissor(tt.in, extent); got != tt.want {
				t.Errorf("ClampScissor(%+v) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestClampScissorBounds(t *testing.T) {
	values := []uint32{0, 1, 2, 7, 31, 32, 33, 1000, ^uint32(0)}
	for _, ew := range []uint32{1, 2, 32, 33} {
		for _, eh := range []uint32{1, 5, 64} {
			extent := gputypes.Extent3D{Width: ew, Height: eh, DepthOrArrayLayers: 1}
			for _, x := range values {
				for _, w := range values {
					r := ClampScissor(native.ScissorRect{X: x, Y: x, Width: w, Height: w}, extent)
					if r.Width < 1 || r.Height < 1 {
						t.Fatalf("empty result %+v for extent %dx%d", r, ew, eh)
					}
					if uint64(r.X)+uint64(r.Width) > uint64(ew) || uint64(r.Y)+uint64(r.Height) > uint64(eh) {
						t.Fatalf("result %+v exceeds extent %dx%d", r, ew, eh)
					}
				}
			}
		}
	}
}

func TestSetScissorDeduplicates(t *testing.T) {
	s := New()
	s.SetTarget(testTarget())
	rect := native.ScissorRect{X: 1, Y: 2, Width: 3, Height: 4}

	if _, ok := s.SetScissor(rect); !ok {
		t.Fatal("first SetScissor suppressed")
	}
	if _, ok := s.SetScissor(rect); ok {
		t.Error("identical SetScissor issued twice")
	}
	// Clamps to the same rectangle as the active one.
	if _, ok := s.SetScissor(native.ScissorRect{X: 1, Y: 2, Width: 3, Height: 4}); ok {
		t.Error("equal rectangle issued")
	}
	if _, ok := s.SetHALScissor(native.ScissorRect{Width: 800, Height: 600}); !ok {
		t.Error("different rectangle suppressed")
	}
}

func TestBuildDepthStencil(t *testing.T) {
	dev := capture.NewDevice()
	p := testPipeline(dev)
	p.DepthStencil.DepthCompare = gputypes.CompareFunctionLess
	p.DepthStencil.DepthWriteEnabled = true
	p.DepthStencil.StencilEnabled = true

	tests := []struct {
		name        string
		aspects     resource.Aspects
		wantCompare gputypes.CompareFunction
		wantWrite   bool
		wantStencil bool
		wantChanged bool
	}{
		// Masking everything yields the default, which is already active.
		{"color only", resource.AspectColor, gputypes.CompareFunctionAlways, false, false, false},
		{"depth", resource.AspectColor | resource.AspectDepth, gputypes.CompareFunctionLess, true, false, true},
		{"depth stencil", resource.AspectDepth | resource.AspectStencil, gputypes.CompareFunctionLess, true, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			target := testTarget()
			target.Aspects = tt.aspects
			s.SetTarget(target)
			s.SetRenderPipeline(p)

			desc, changed := s.BuildDepthStencil()
			if changed != tt.wantChanged {
				t.Fatalf("changed = %v, want %v", changed, tt.wantChanged)
			}
			if desc.DepthCompare != tt.wantCompare || desc.DepthWriteEnabled != tt.wantWrite || desc.StencilEnabled != tt.wantStencil {
				t.Errorf("desc = %+v", desc)
			}
			if _, again := s.BuildDepthStencil(); again {
				t.Error("second build reported a change")
			}
		})
	}
}

func TestBuildDepthStencilDefaultUnchanged(t *testing.T) {
	s := New()
	s.SetTarget(testTarget())
	if _, changed := s.BuildDepthStencil(); changed {
		t.Error("default descriptor reported as change")
	}
}

func TestSetRenderPipelineSameHandle(t *testing.T) {
	dev := capture.NewDevice()
	s := New()
	s.SetTarget(testTarget())
	p := testPipeline(dev)
	if !s.SetRenderPipeline(p) {
		t.Fatal("first bind suppressed")
	}
	clone := *p
	if s.SetRenderPipeline(&clone) {
		t.Error("pipeline with same native handle rebound")
	}
	if !s.RenderPSOIsCompatible {
		t.Error("pipeline should be compatible with target")
	}
}

func TestCompatibility(t *testing.T) {
	dev := capture.NewDevice()
	tests := []struct {
		name   string
		modify func(*resource.GraphicsPipeline)
		want   bool
	}{
		{"match", func(*resource.GraphicsPipeline) {}, true},
		{"format", func(p *resource.GraphicsPipeline) {
			p.ColorFormats = []gputypes.TextureFormat{gputypes.TextureFormatBGRA8Unorm}
		}, false},
		{"count", func(p *resource.GraphicsPipeline) { p.ColorFormats = nil }, false},
		{"samples", func(p *resource.GraphicsPipeline) { p.SampleCount = 4 }, false},
		{"depth format", func(p *resource.GraphicsPipeline) {
			p.DepthStencilFormat = gputypes.TextureFormatUndefined
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			s.SetTarget(testTarget())
			p := testPipeline(dev)
			tt.modify(p)
			s.SetRenderPipeline(p)
			if s.RenderPSOIsCompatible != tt.want {
				t.Errorf("compatible = %v, want %v", s.RenderPSOIsCompatible, tt.want)
			}
		})
	}
}

func TestSetVertexBuffers(t *testing.T) {
	dev := capture.NewDevice()
	s := New()
	s.SetTarget(testTarget())
	p := testPipeline(dev)
	p.VertexBufferBase = 4
	p.VertexBuffers = []resource.VertexBufferSlot{{Binding: 0}, {Binding: 3, Offset: 8}}
	s.SetRenderPipeline(p)

	vb := dev.NewBufferSize("vb0", 64)
	s.BindVertexBuffer(0, vb, 16)

	cmd, ok := s.SetVertexBuffers()
	if !ok {
		t.Fatal("no command")
	}
	bind := cmd.(soft.BindBuffers)
	if bind.Index != 4 || len(bind.Buffers) != 2 {
		t.Fatalf("bind = %+v", bind)
	}
	if bind.Buffers[0] != vb || bind.Offsets[0] != 16 {
		t.Errorf("slot 0 = %v@%d", bind.Buffers[0], bind.Offsets[0])
	}
	if bind.Buffers[1] != nil {
		t.Errorf("missing binding should stay unbound, got %v", bind.Buffers[1])
	}

	vb3 := dev.NewBufferSize("vb3", 64)
	s.BindVertexBuffer(3, vb3, 4)
	cmd, _ = s.SetVertexBuffers()
	bind = cmd.(soft.BindBuffers)
	if bind.Buffers[1] != vb3 || bind.Offsets[1] != 12 {
		t.Errorf("slot 1 = %v@%d, want vb3@12", bind.Buffers[1], bind.Offsets[1])
	}
}

func TestBindSet(t *testing.T) {
	dev := capture.NewDevice()
	b0 := dev.NewBufferSize("b0", 64)
	b1 := dev.NewBufferSize("b1", 64)
	tex := dev.NewTexture("t0")
	smp := dev.NewSampler("s0")
	set := &resource.DescriptorSet{
		Buffers: []resource.BufferBinding{
			{Buffer: b0, Offset: 4, Stages: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment, Dynamic: true},
			{Buffer: b1, Size: 48, Stages: gputypes.ShaderStageFragment, Sized: true},
		},
		Textures: []resource.TextureBinding{{Texture: tex, Stages: gputypes.ShaderStageFragment}},
		Samplers: []resource.SamplerBinding{{Sampler: smp, Stages: gputypes.ShaderStageFragment}},
	}

	s := New()
	var base resource.StageCounts
	base[resource.StageFragment] = resource.ResourceCounts{Buffers: 2, Textures: 1}
	res := s.BindSet(gputypes.ShaderStageVertex|gputypes.ShaderStageFragment, set, base, []uint32{256})

	if res.DynamicUsed != 1 {
		t.Errorf("DynamicUsed = %d", res.DynamicUsed)
	}
	if got := res.Next[resource.StageVertex]; got != (resource.ResourceCounts{Buffers: 1}) {
		t.Errorf("vertex next = %+v", got)
	}
	if got := res.Next[resource.StageFragment]; got != (resource.ResourceCounts{Buffers: 4, Textures: 2, Samplers: 1}) {
		t.Errorf("fragment next = %+v", got)
	}
	if res.SizesChanged != gputypes.ShaderStageFragment {
		t.Errorf("SizesChanged = %v", res.SizesChanged)
	}
	fs := &s.Stages[resource.StageFragment]
	if fs.Buffers[2] != b0 || fs.BufferOffsets[2] != 260 || fs.Buffers[3] != b1 {
		t.Errorf("fragment buffers = %v offsets %v", fs.Buffers, fs.BufferOffsets)
	}
	if fs.Textures[1] != tex || fs.Samplers[0] != smp {
		t.Error("texture/sampler not bound")
	}

	again := s.BindSet(gputypes.ShaderStageFragment, set, base, []uint32{256})
	if again.SizesChanged != 0 {
		t.Error("unchanged sizes reported")
	}
}

func TestMakeRenderCommands(t *testing.T) {
	dev := capture.NewDevice()
	ds := &fakeDepthStencil{dev: dev}
	p := testPipeline(dev)
	p.DepthStencil.DepthCompare = gputypes.CompareFunctionLess
	p.Rasterizer = &native.RasterizerState{CullMode: gputypes.CullModeBack}
	p.Layout = &resource.PipelineLayout{}
	p.Layout.PushConstants[resource.StageVertex] = &resource.PushConstantInfo{Slot: 7, Count: 2}

	s := New()
	s.SetTarget(testTarget())
	s.SetRenderPipeline(p)
	s.SetViewport(native.Viewport{Width: 800, Height: 600, ZFar: 1})
	s.SetScissor(native.ScissorRect{Width: 4000, Height: 4000})
	s.UpdatePushConstants(0, []uint32{9, 10})
	s.Stages[resource.StageFragment].BindTexture(0, dev.NewTexture("t"))

	// A new encoder starts from defaults.
	s.SetTarget(testTarget())
	cmds := s.MakeRenderCommands(s.Target.Aspects, ds)

	var kinds []soft.Kind
	for _, c := range cmds {
		kinds = append(kinds, c.Kind())
	}
	want := []soft.Kind{
		soft.KindSetViewport,
		soft.KindSetScissor,
		soft.KindSetDepthBias,
		soft.KindBindPipeline,
		soft.KindSetRasterizerState,
		soft.KindSetDepthStencilState,
		soft.KindBindBufferData,
		soft.KindBindTextures,
	}
	if len(kinds) != len(want) {
		t.Fatalf("kinds = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("kinds = %v, want %v", kinds, want)
		}
	}
	if sc := cmds[1].(soft.SetScissor); sc.Rect != (native.ScissorRect{Width: 800, Height: 600}) {
		t.Errorf("scissor not clamped: %+v", sc.Rect)
	}
	if pc := cmds[6].(soft.BindBufferData); pc.Index != 7 || len(pc.Data) != 8 {
		t.Errorf("push constants = %+v", pc)
	}
	if ds.calls != 1 {
		t.Errorf("depth stencil lookups = %d", ds.calls)
	}
}

func TestMakeRenderCommandsIncompatiblePipeline(t *testing.T) {
	dev := capture.NewDevice()
	p := testPipeline(dev)
	p.SampleCount = 4

	s := New()
	s.SetTarget(testTarget())
	s.SetRenderPipeline(p)
	for _, c := range s.MakeRenderCommands(resource.AspectColor, nil) {
		if c.Kind() == soft.KindBindPipeline {
			t.Fatal("incompatible pipeline was bound")
		}
	}
}

func TestMakeComputeCommands(t *testing.T) {
	dev := capture.NewDevice()
	s := New()
	layout := &resource.PipelineLayout{}
	layout.PushConstants[resource.StageCompute] = &resource.PushConstantInfo{Slot: 3, Count: 1}
	s.SetComputePipeline(&resource.ComputePipeline{Raw: dev.NewComputePipeline("cs"), Layout: layout, WorkGroupSize: native.Size{Width: 8, Height: 1, Depth: 1}})
	s.Stages[resource.StageCompute].BindBuffer(1, dev.NewBufferSize("b", 4), 0)

	cmds := s.MakeComputeCommands()
	if len(cmds) != 3 {
		t.Fatalf("got %d commands: %v", len(cmds), cmds)
	}
	if _, ok := cmds[0].(soft.BindComputePipeline); !ok {
		t.Errorf("first command %T", cmds[0])
	}
	bind := cmds[1].(soft.BindBuffers)
	if bind.Index != 0 || len(bind.Buffers) != 2 || bind.Buffers[0] != nil {
		t.Errorf("bind = %+v", bind)
	}
	if s.WorkGroupSize.Width != 8 {
		t.Errorf("work group size = %+v", s.WorkGroupSize)
	}
}

func TestInvalidate(t *testing.T) {
	dev := capture.NewDevice()
	s := New()
	s.SetTarget(testTarget())
	p := testPipeline(dev)
	s.SetRenderPipeline(p)
	if _, ok := s.SetScissor(native.ScissorRect{Width: 10, Height: 10}); !ok {
		t.Fatal("first scissor suppressed")
	}

	s.Invalidate()

	if !s.SetRenderPipeline(p) {
		t.Error("pipeline suppressed after Invalidate")
	}
	if _, ok := s.SetScissor(native.ScissorRect{Width: 10, Height: 10}); !ok {
		t.Error("scissor suppressed after Invalidate")
	}
	if _, changed := s.BuildDepthStencil(); !changed {
		t.Error("depth-stencil suppressed after Invalidate")
	}
	if _, changed := s.BuildDepthStencil(); changed {
		t.Error("depth-stencil still stale after reissue")
	}
	if s.Viewport != nil || s.Target.Extent.Width != 800 {
		t.Error("Invalidate touched abstract state")
	}
}
