package cmdbuf

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/cmdbuf/native"
	"github.com/gogpu/cmdbuf/native/capture"
	"github.com/gogpu/cmdbuf/resource"
)

type fixture struct {
	dev   *capture.Device
	queue *Queue
	pool  *CommandPool
	rp    *resource.RenderPass
	fb    *resource.Framebuffer
}

func newFixture(t *testing.T, mode Recording, opts ...QueueOption) *fixture {
	t.Helper()
	dev := capture.NewDevice()
	q := newTestQueue(t, dev, opts...)
	pool := NewCommandPool(q, WithRecording(mode))
	t.Cleanup(pool.Close)
	rp, fb := colorPass(dev, 1)
	return &fixture{dev: dev, queue: q, pool: pool, rp: rp, fb: fb}
}

// colorPass returns a render pass of n subpasses drawing into one color
// attachment that is cleared on first use.
func colorPass(dev *capture.Device, n int) (*resource.RenderPass, *resource.Framebuffer) {
	rp := &resource.RenderPass{
		Attachments: []resource.Attachment{{
			Format:  gputypes.TextureFormatRGBA8Unorm,
			Samples: 1,
			Aspects: resource.AspectColor,
			LoadOp:  gputypes.LoadOpClear,
			StoreOp: gputypes.StoreOpStore,
		}},
	}
	for range n {
		rp.Subpasses = append(rp.Subpasses, resource.Subpass{Colors: []int{0}, DepthStencil: resource.Unused})
	}
	tex := dev.NewTexture("color")
	fb := &resource.Framebuffer{
		Attachments: []*resource.ImageView{{Raw: tex, Format: gputypes.TextureFormatRGBA8Unorm, Aspects: resource.AspectColor}},
		Extent:      gputypes.Extent3D{Width: 64, Height: 64, DepthOrArrayLayers: 1},
	}
	return rp, fb
}

func colorPipeline(dev *capture.Device, label string) *resource.GraphicsPipeline {
	return &resource.GraphicsPipeline{
		Raw:          dev.NewRenderPipeline(label),
		Primitive:    gputypes.PrimitiveTopologyTriangleList,
		ColorFormats: []gputypes.TextureFormat{gputypes.TextureFormatRGBA8Unorm},
		SampleCount:  1,
	}
}

func (f *fixture) begin(t *testing.T) *CommandBuffer {
	t.Helper()
	cb := f.pool.AllocateCommandBuffer(LevelPrimary)
	if err := cb.Begin(UsageOneTimeSubmit, nil); err != nil {
		t.Fatal(err)
	}
	return cb
}

func (f *fixture) submit(t *testing.T, cbs ...*CommandBuffer) {
	t.Helper()
	for _, cb := range cbs {
		if cb.State() == StateRecording {
			if err := cb.Finish(); err != nil {
				t.Fatal(err)
			}
		}
	}
	fence := NewFence(false)
	if err := f.queue.Submit(SubmitInfo{CommandBuffers: cbs}, fence); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := fence.Wait(ctx); err != nil {
		t.Fatal(err)
	}
}

// encoderOps keeps the encoder-level calls of a trace.
func encoderOps(dev *capture.Device) []string {
	var out []string
	for _, op := range dev.Trace.Ops() {
		switch {
		case strings.HasPrefix(op, "render."), strings.HasPrefix(op, "compute."), strings.HasPrefix(op, "blit."),
			op == "cb.RenderCommandEncoder", op == "cb.ComputeCommandEncoder", op == "cb.BlitCommandEncoder":
			out = append(out, op)
		}
	}
	return out
}

var allModes = []Recording{RecordDeferred, RecordImmediate, RecordRemote}

// mixedScript records a render pass, a blit fill, a dispatch and a
// compute fill into cb.
func mixedScript(t *testing.T, f *fixture, cb *CommandBuffer, dst *resource.Buffer) {
	t.Helper()
	cb.BeginRenderPass(f.rp, f.fb, []ClearValue{{Color: gputypes.Color{A: 1}}}, ContentsInline)
	cb.BindGraphicsPipeline(colorPipeline(f.dev, "tri"))
	if err := cb.SetViewports(0, []native.Viewport{{Width: 64, Height: 64, ZFar: 1}}); err != nil {
		t.Fatal(err)
	}
	cb.Draw(3, 1, 0, 0)
	cb.EndRenderPass()

	if err := cb.FillBuffer(dst, 0, 16, 0x01010101); err != nil {
		t.Fatal(err)
	}
	cb.BindComputePipeline(&resource.ComputePipeline{
		Raw:           f.dev.NewComputePipeline("cs"),
		WorkGroupSize: native.Size{Width: 8, Height: 1, Depth: 1},
	})
	cb.Dispatch(4, 1, 1)
	if err := cb.FillBuffer(dst, 16, resource.WholeSize, 0x01020304); err != nil {
		t.Fatal(err)
	}
}

var mixedOps = []string{
	"cb.RenderCommandEncoder", "render.SetRenderPipelineState", "render.SetViewport",
	"render.DrawPrimitives", "render.EndEncoding",
	"cb.BlitCommandEncoder", "blit.FillBuffer", "blit.EndEncoding",
	"cb.ComputeCommandEncoder", "compute.SetComputePipelineState", "compute.DispatchThreadgroups", "compute.EndEncoding",
	"cb.ComputeCommandEncoder", "compute.SetLabel", "compute.SetComputePipelineState",
	"compute.SetBuffers", "compute.SetBytes", "compute.DispatchThreadgroups", "compute.EndEncoding",
}

func TestRecordingModesAgree(t *testing.T) {
	want := append(bytes.Repeat([]byte{1}, 16), bytes.Repeat([]byte{4, 3, 2, 1}, 4)...)
	for _, mode := range allModes {
		t.Run(mode.String(), func(t *testing.T) {
			f := newFixture(t, mode)
			raw := f.dev.NewBufferSize("dst", 32)
			dst := &resource.Buffer{Raw: raw, Size: 32}

			cb := f.begin(t)
			mixedScript(t, f, cb, dst)
			f.submit(t, cb)

			if got := encoderOps(f.dev); !slices.Equal(got, mixedOps) {
				t.Errorf("ops =\n%v\nwant\n%v", got, mixedOps)
			}
			if got := raw.Bytes(); !bytes.Equal(got, want) {
				t.Errorf("buffer = %v, want %v", got, want)
			}
			cb.Reset(false)
			if f.queue.Outstanding() != 0 {
				t.Errorf("Outstanding = %d after reset, want 0", f.queue.Outstanding())
			}
		})
	}
}

func TestBindGraphicsPipelineDedupe(t *testing.T) {
	f := newFixture(t, RecordImmediate)
	p := colorPipeline(f.dev, "p")

	cb := f.begin(t)
	cb.BeginRenderPass(f.rp, f.fb, nil, ContentsInline)
	cb.BindGraphicsPipeline(p)
	cb.BindGraphicsPipeline(p)
	cb.Draw(3, 1, 0, 0)
	cb.EndRenderPass()
	f.submit(t, cb)

	if n := f.dev.Trace.Count("render.SetRenderPipelineState"); n != 1 {
		t.Errorf("SetRenderPipelineState issued %d times, want 1", n)
	}
}

func TestIncompatiblePipelineBindsOnNextSubpass(t *testing.T) {
	f := newFixture(t, RecordImmediate)
	p := colorPipeline(f.dev, "bgra")
	p.ColorFormats = []gputypes.TextureFormat{gputypes.TextureFormatBGRA8Unorm}

	cb := f.begin(t)
	cb.BeginRenderPass(f.rp, f.fb, nil, ContentsInline)
	cb.BindGraphicsPipeline(p)
	if cb.Cache().RenderPSOIsCompatible {
		t.Fatal("pipeline reported compatible with a mismatched target")
	}
	cb.EndRenderPass()
	f.submit(t, cb)

	if n := f.dev.Trace.Count("render.SetRenderPipelineState"); n != 0 {
		t.Errorf("incompatible pipeline bound %d times, want 0", n)
	}
}

func TestSubpassLoadStoreOps(t *testing.T) {
	f := newFixture(t, RecordImmediate)
	rp, fb := colorPass(f.dev, 2)

	cb := f.begin(t)
	cb.BeginRenderPass(rp, fb, []ClearValue{{Color: gputypes.Color{R: 1, A: 1}}}, ContentsInline)
	cb.NextSubpass(ContentsInline)
	cb.EndRenderPass()
	f.submit(t, cb)

	calls := f.dev.Trace.Filter("cb.RenderCommandEncoder")
	if len(calls) != 2 {
		t.Fatalf("%d render encoders, want 2", len(calls))
	}
	first := calls[0].Args[0].(*native.RenderPassDescriptor).ColorAttachments[0]
	second := calls[1].Args[0].(*native.RenderPassDescriptor).ColorAttachments[0]
	if first.LoadOp != gputypes.LoadOpClear || first.ClearColor.R != 1 {
		t.Errorf("first subpass load = %v clear %v, want clear to red", first.LoadOp, first.ClearColor)
	}
	if second.LoadOp != gputypes.LoadOpLoad {
		t.Errorf("second subpass load = %v, want load", second.LoadOp)
	}
	desc := calls[1].Args[0].(*native.RenderPassDescriptor)
	if desc.RenderTargetWidth != 64 || desc.VisibilityResultBuffer == nil {
		t.Errorf("descriptor = %+v, want 64 wide with the visibility buffer", desc)
	}
}

func TestNextSubpassRestoresState(t *testing.T) {
	f := newFixture(t, RecordImmediate)
	rp, fb := colorPass(f.dev, 2)

	cb := f.begin(t)
	cb.BeginRenderPass(rp, fb, nil, ContentsInline)
	cb.BindGraphicsPipeline(colorPipeline(f.dev, "p"))
	cb.SetBlendConstants(gputypes.Color{G: 1})
	cb.NextSubpass(ContentsInline)
	cb.EndRenderPass()
	f.submit(t, cb)

	if n := f.dev.Trace.Count("render.SetRenderPipelineState"); n != 2 {
		t.Errorf("pipeline bound %d times, want once per subpass", n)
	}
	if n := f.dev.Trace.Count("render.SetBlendColor"); n != 2 {
		t.Errorf("blend color set %d times, want once per subpass", n)
	}
}

func TestDeferredStitching(t *testing.T) {
	tests := []struct {
		name   string
		stitch bool
		want   int
	}{
		{"stitched", true, 1},
		{"separate", false, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, RecordDeferred, WithStitchDeferred(tt.stitch))
			dst := &resource.Buffer{Raw: f.dev.NewBufferSize("dst", 8), Size: 8}
			var cbs []*CommandBuffer
			for range 2 {
				cb := f.begin(t)
				if err := cb.FillBuffer(dst, 0, 8, 0); err != nil {
					t.Fatal(err)
				}
				cbs = append(cbs, cb)
			}
			f.submit(t, cbs...)

			n := 0
			for _, c := range f.dev.Trace.Filter("cb.Commit") {
				if c.Buffer == "deferred" {
					n++
				}
			}
			if n != tt.want {
				t.Errorf("%d deferred buffers committed, want %d", n, tt.want)
			}
			if f.queue.Outstanding() != 0 {
				t.Errorf("Outstanding = %d, want 0", f.queue.Outstanding())
			}
		})
	}
}

func TestResubmitDeferred(t *testing.T) {
	f := newFixture(t, RecordDeferred)
	dst := &resource.Buffer{Raw: f.dev.NewBufferSize("dst", 4), Size: 4}
	cb := f.pool.AllocateCommandBuffer(LevelPrimary)
	if err := cb.Begin(0, nil); err != nil {
		t.Fatal(err)
	}
	if err := cb.FillBuffer(dst, 0, 4, 0x07070707); err != nil {
		t.Fatal(err)
	}
	f.submit(t, cb)
	f.submit(t, cb)
	if n := f.dev.Trace.Count("blit.FillBuffer"); n != 2 {
		t.Errorf("fill replayed %d times, want 2", n)
	}
}

func TestOneTimeSubmitTwicePanics(t *testing.T) {
	f := newFixture(t, RecordImmediate)
	cb := f.begin(t)
	f.submit(t, cb)
	defer func() {
		if recover() == nil {
			t.Error("second submit of a one-time buffer did not panic")
		}
	}()
	_ = f.queue.Submit(SubmitInfo{CommandBuffers: []*CommandBuffer{cb}}, nil)
}

func TestLifecycle(t *testing.T) {
	f := newFixture(t, RecordImmediate)
	cb := f.pool.AllocateCommandBuffer(LevelPrimary)
	if cb.State() != StateUnrecorded {
		t.Fatalf("state = %v, want unrecorded", cb.State())
	}
	if err := cb.Finish(); !errors.Is(err, ErrNotRecording) {
		t.Errorf("Finish before Begin = %v, want ErrNotRecording", err)
	}
	if err := cb.Begin(UsageOneTimeSubmit, nil); err != nil {
		t.Fatal(err)
	}
	func() {
		defer func() {
			if recover() == nil {
				t.Error("Begin while recording did not panic")
			}
		}()
		_ = cb.Begin(UsageOneTimeSubmit, nil)
	}()
	if err := cb.Finish(); err != nil {
		t.Fatal(err)
	}
	if cb.State() != StateSubmittable {
		t.Errorf("state = %v, want submittable", cb.State())
	}
	if f.queue.Outstanding() != 1 {
		t.Errorf("Outstanding = %d, want 1", f.queue.Outstanding())
	}

	// Begin on a finished buffer resets it and checks out a new token.
	if err := cb.Begin(UsageOneTimeSubmit, nil); err != nil {
		t.Fatal(err)
	}
	if f.queue.Outstanding() != 1 {
		t.Errorf("Outstanding = %d after re-begin, want 1", f.queue.Outstanding())
	}
	f.pool.Reset(true)
	if cb.State() != StateUnrecorded || f.queue.Outstanding() != 0 {
		t.Errorf("after pool reset: state %v, outstanding %d", cb.State(), f.queue.Outstanding())
	}
}

func TestBeginOutOfResources(t *testing.T) {
	f := newFixture(t, RecordImmediate, WithReserve(1))
	f.begin(t)
	cb := f.pool.AllocateCommandBuffer(LevelPrimary)
	if err := cb.Begin(UsageOneTimeSubmit, nil); !errors.Is(err, ErrOutOfResources) {
		t.Errorf("Begin = %v, want ErrOutOfResources", err)
	}
}

func TestSecondaryBuffersAreDeferred(t *testing.T) {
	f := newFixture(t, RecordImmediate)
	sec := f.pool.AllocateCommandBuffer(LevelSecondary)
	if err := sec.Begin(UsageOneTimeSubmit, nil); err != nil {
		t.Fatal(err)
	}
	if f.queue.Outstanding() != 0 {
		t.Error("secondary buffer checked out a native buffer")
	}
	// Primaries without one-time submit also record deferred.
	p := f.pool.AllocateCommandBuffer(LevelPrimary)
	if err := p.Begin(0, nil); err != nil {
		t.Fatal(err)
	}
	if f.queue.Outstanding() != 0 {
		t.Error("reusable primary checked out a native buffer")
	}
}

func TestUnsupportedDynamicState(t *testing.T) {
	f := newFixture(t, RecordDeferred)
	cb := f.begin(t)
	tests := []struct {
		name string
		err  error
	}{
		{"line width", cb.SetLineWidth(2)},
		{"depth bounds", cb.SetDepthBounds(0, 1)},
		{"viewports", cb.SetViewports(0, make([]native.Viewport, 2))},
		{"scissors", cb.SetScissors(1, make([]native.ScissorRect, 1))},
	}
	for _, tt := range tests {
		if !errors.Is(tt.err, ErrUnsupported) {
			t.Errorf("%s: err = %v, want ErrUnsupported", tt.name, tt.err)
		}
	}
	if err := cb.SetLineWidth(1); err != nil {
		t.Errorf("SetLineWidth(1) = %v", err)
	}
}

func TestWaitEventsHoldsSubmission(t *testing.T) {
	f := newFixture(t, RecordImmediate)
	e := NewEvent()
	dst := &resource.Buffer{Raw: f.dev.NewBufferSize("dst", 4), Size: 4}

	cb := f.begin(t)
	cb.WaitEvents(e)
	if err := cb.FillBuffer(dst, 0, 4, 0x09090909); err != nil {
		t.Fatal(err)
	}
	if err := cb.Finish(); err != nil {
		t.Fatal(err)
	}
	fence := NewFence(false)
	if err := f.queue.Submit(SubmitInfo{CommandBuffers: []*CommandBuffer{cb}}, fence); err != nil {
		t.Fatal(err)
	}
	if f.queue.Blocker().Len() != 1 || fence.Status() != FencePending {
		t.Fatalf("blocked %d, fence %v; want one blocked submission", f.queue.Blocker().Len(), fence.Status())
	}

	f.queue.SetEvent(e)
	if err := fence.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := f.dev.Trace.Count("blit.FillBuffer"); got != 1 {
		t.Errorf("fill ran %d times, want 1", got)
	}
}

func TestSetEventOnCompletion(t *testing.T) {
	f := newFixture(t, RecordDeferred)
	e := NewEvent()
	cb := f.begin(t)
	cb.SetEvent(e)
	f.submit(t, cb)
	if !e.IsSet() {
		t.Error("event not set by the completed submission")
	}

	cb = f.begin(t)
	cb.ResetEvent(e)
	f.submit(t, cb)
	if e.IsSet() {
		t.Error("event not reset by the completed submission")
	}
}

func TestDrawIndexedOffsetsFirstIndex(t *testing.T) {
	f := newFixture(t, RecordImmediate)
	ib := &resource.Buffer{Raw: f.dev.NewBufferSize("ib", 64), Offset: 8, Size: 56}

	cb := f.begin(t)
	cb.BeginRenderPass(f.rp, f.fb, nil, ContentsInline)
	cb.BindIndexBuffer(ib, 4, gputypes.IndexFormatUint16)
	cb.DrawIndexed(6, 1, 3, 0, 0)
	cb.EndRenderPass()
	f.submit(t, cb)

	calls := f.dev.Trace.Filter("render.DrawIndexedPrimitives")
	if len(calls) != 1 {
		t.Fatalf("%d indexed draws, want 1", len(calls))
	}
	if got := calls[0].Args[1].(native.IndexBuffer).Offset; got != 8+4+3*2 {
		t.Errorf("index offset = %d, want %d", got, 8+4+3*2)
	}
}

func TestDrawIndirectExpands(t *testing.T) {
	f := newFixture(t, RecordDeferred)
	args := &resource.Buffer{Raw: f.dev.NewBufferSize("args", 64), Size: 64}

	cb := f.begin(t)
	cb.BeginRenderPass(f.rp, f.fb, nil, ContentsInline)
	cb.DrawIndirect(args, 0, 3, 16)
	cb.EndRenderPass()
	f.submit(t, cb)

	calls := f.dev.Trace.Filter("render.DrawPrimitivesIndirect")
	if len(calls) != 3 {
		t.Fatalf("%d indirect draws, want 3", len(calls))
	}
	for i, c := range calls {
		if got := c.Args[2].(uint64); got != uint64(i)*16 {
			t.Errorf("draw %d offset = %d, want %d", i, got, i*16)
		}
	}
}

func TestDebugMarkers(t *testing.T) {
	f := newFixture(t, RecordImmediate)
	cb := f.begin(t)
	cb.InsertDebugMarker("dropped")
	cb.BeginRenderPass(f.rp, f.fb, nil, ContentsInline)
	cb.BeginDebugMarker("scene")
	cb.EndDebugMarker()
	cb.EndRenderPass()
	f.submit(t, cb)

	got := f.dev.Trace.Filter("render.")
	var ops []string
	for _, c := range got {
		ops = append(ops, c.Op)
	}
	want := []string{"render.PushDebugGroup", "render.PopDebugGroup", "render.EndEncoding"}
	if !slices.Equal(ops, want) {
		t.Errorf("render ops = %v, want %v", ops, want)
	}
	if n := f.dev.Trace.Count("render.InsertDebugSignpost") + f.dev.Trace.Count("compute.InsertDebugSignpost"); n != 0 {
		t.Errorf("marker outside a pass was issued %d times", n)
	}
}
