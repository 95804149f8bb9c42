package sink

import (
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/cmdbuf/internal/dispatch"
	"github.com/gogpu/cmdbuf/native"
	"github.com/gogpu/cmdbuf/native/capture"
	"github.com/gogpu/cmdbuf/soft"
)

func newBuffer(t *testing.T, dev *capture.Device) native.CommandBuffer {
	t.Helper()
	q, err := dev.NewCommandQueue(0)
	if err != nil {
		t.Fatal(err)
	}
	cb, err := q.NewCommandBuffer()
	if err != nil {
		t.Fatal(err)
	}
	return cb
}

// encoderOps drops queue-level calls so traces of different sinks compare.
func encoderOps(tr *capture.Trace) []string {
	var out []string
	for _, op := range tr.Ops() {
		if strings.HasPrefix(op, "queue.") || op == "cb.SetLabel" {
			continue
		}
		out = append(out, op)
	}
	return out
}

func draw(n uint32) soft.Draw {
	return soft.Draw{Primitive: gputypes.PrimitiveTopologyTriangleList, VertexCount: n, InstanceCount: 1}
}

// script drives a sink through every pass kind.
func script(s Sink, pool *DescriptorPool, pipeline native.ComputePipelineState, buf native.Buffer) {
	r := s.SwitchRender(pool.Get(), "main")
	r.Issue(soft.SetViewport{Viewport: native.Viewport{Width: 8, Height: 8, ZFar: 1}})
	r.IssueMany([]soft.RenderCommand{draw(3), draw(6)})
	c, _ := s.SwitchCompute("")
	c.Issue(soft.BindComputePipeline{Pipeline: pipeline})
	s.PreCompute().Issue(soft.Dispatch{Groups: native.Size{Width: 1, Height: 1, Depth: 1}, ThreadsPerGroup: native.Size{Width: 32, Height: 1, Depth: 1}})
	s.BlitCommands(soft.FillBuffer{Dst: buf, Size: 4, Value: 7})
	s.BlitCommands(soft.CopyBuffer{Src: buf, Dst: buf, DstOffset: 4, Size: 4})
	s.QuickCompute("quick", soft.PushDebugGroup{Label: "g"}, soft.PopDebugGroup{})
	s.StopEncoding()
}

var scriptOps = []string{
	"cb.RenderCommandEncoder", "render.SetLabel", "render.SetViewport",
	"render.DrawPrimitives", "render.DrawPrimitives", "render.EndEncoding",
	"cb.ComputeCommandEncoder", "compute.SetComputePipelineState",
	"compute.DispatchThreadgroups", "compute.EndEncoding",
	"cb.BlitCommandEncoder", "blit.FillBuffer", "blit.CopyBuffer", "blit.EndEncoding",
	"cb.ComputeCommandEncoder", "compute.SetLabel", "compute.PushDebugGroup",
	"compute.PopDebugGroup", "compute.EndEncoding",
}

func TestImmediateScript(t *testing.T) {
	dev := capture.NewDevice()
	pool := NewDescriptorPool()
	s := NewImmediate(newBuffer(t, dev), nil, pool)

	script(s, pool, dev.NewComputePipeline("p"), dev.NewBufferSize("b", 16))

	if got := encoderOps(&dev.Trace); !slices.Equal(got, scriptOps) {
		t.Errorf("ops =\n%v\nwant\n%v", got, scriptOps)
	}
	if s.NumPasses() != 4 {
		t.Errorf("NumPasses = %d, want 4", s.NumPasses())
	}
	if s.State != EncoderNone {
		t.Errorf("state = %v after StopEncoding", s.State)
	}
	if pool.Free() != 1 {
		t.Errorf("descriptor not returned on encoder creation: free = %d", pool.Free())
	}
}

func TestDeferredReplayMatchesImmediate(t *testing.T) {
	dev := capture.NewDevice()
	pool := NewDescriptorPool()
	s := NewDeferred("deferred", false, pool)

	script(s, pool, dev.NewComputePipeline("p"), dev.NewBufferSize("b", 16))
	if n := len(dev.Trace.Ops()); n != 0 {
		t.Fatalf("deferred recording touched the device (%d calls)", n)
	}
	s.Journal.Record(newBuffer(t, dev))

	if got := encoderOps(&dev.Trace); !slices.Equal(got, scriptOps) {
		t.Errorf("ops =\n%v\nwant\n%v", got, scriptOps)
	}
	if pool.Free() != 0 {
		t.Errorf("journal released its descriptor early")
	}
	s.Clear()
	if pool.Free() != 1 || s.NumPasses() != 0 {
		t.Errorf("Clear: free = %d passes = %d", pool.Free(), s.NumPasses())
	}
}

func TestRemoteEncodesOnQueue(t *testing.T) {
	dev := capture.NewDevice()
	pool := NewDescriptorPool()
	q := dispatch.New("remote")
	defer q.Close()
	s := NewRemote(q, newBuffer(t, dev), nil, pool)

	script(s, pool, dev.NewComputePipeline("p"), dev.NewBufferSize("b", 16))
	q.Wait()

	if got := encoderOps(&dev.Trace); !slices.Equal(got, scriptOps) {
		t.Errorf("ops =\n%v\nwant\n%v", got, scriptOps)
	}
	if pool.Free() != 1 {
		t.Errorf("queue did not return the descriptor: free = %d", pool.Free())
	}
	if s.Capacity.Render != 3 || s.Capacity.Blit != 2 {
		t.Errorf("capacity = %+v", s.Capacity)
	}
}

func TestRemoteOwnsPayloads(t *testing.T) {
	dev := capture.NewDevice()
	pool := NewDescriptorPool()
	q := dispatch.New("remote")
	defer q.Close()
	s := NewRemote(q, newBuffer(t, dev), nil, pool)

	data := []byte{1, 2, 3, 4}
	s.SwitchRender(pool.Get(), "").Issue(soft.BindBufferData{Stage: gputypes.ShaderStageVertex, Data: data})
	data[0] = 9
	s.StopEncoding()
	q.Wait()

	calls := dev.Trace.Filter("render.SetBytes")
	if len(calls) != 1 {
		t.Fatalf("SetBytes calls = %d", len(calls))
	}
	if got := calls[0].Args[2].([]byte); got[0] != 1 {
		t.Errorf("payload aliased caller memory: %v", got)
	}
}

func TestVoidCursors(t *testing.T) {
	dev := capture.NewDevice()
	pool := NewDescriptorPool()
	q := dispatch.New("remote")
	defer q.Close()

	sinks := map[string]Sink{
		"immediate": NewImmediate(newBuffer(t, dev), nil, pool),
		"deferred":  NewDeferred("d", false, pool),
		"remote":    NewRemote(q, newBuffer(t, dev), nil, pool),
	}
	for name, s := range sinks {
		t.Run(name, func(t *testing.T) {
			if !s.PreRender().IsVoid() || !s.PreCompute().IsVoid() {
				t.Fatal("cursor not void before any pass")
			}
			s.PreRender().Issue(draw(3))
			s.SwitchCompute("")
			if !s.PreRender().IsVoid() {
				t.Error("render cursor live inside a compute pass")
			}
			if s.PreCompute().IsVoid() {
				t.Error("compute cursor void inside a compute pass")
			}
			if _, switched := s.SwitchCompute(""); switched {
				t.Error("second SwitchCompute reported a switch")
			}
			s.StopEncoding()
			if s.NumPasses() != 1 {
				t.Errorf("NumPasses = %d, want 1", s.NumPasses())
			}
		})
	}
	q.Wait()
	if n := dev.Trace.Count("render.DrawPrimitives"); n != 0 {
		t.Errorf("void cursor issued %d draws", n)
	}
}

func TestDeferredInheritingPanics(t *testing.T) {
	pool := NewDescriptorPool()
	tests := []struct {
		name string
		fn   func(s *Deferred)
	}{
		{"SwitchRender", func(s *Deferred) { s.SwitchRender(pool.Get(), "") }},
		{"SwitchCompute", func(s *Deferred) { s.SwitchCompute("") }},
		{"BlitCommands", func(s *Deferred) { s.BlitCommands(soft.PopDebugGroup{}) }},
		{"QuickRender", func(s *Deferred) { s.QuickRender("", pool.Get()) }},
		{"QuickCompute", func(s *Deferred) { s.QuickCompute("") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewDeferred("secondary", true, pool)
			defer func() {
				if recover() == nil {
					t.Errorf("%s did not panic", tt.name)
				}
			}()
			tt.fn(s)
		})
	}
}

func TestDeferredInheritedPass(t *testing.T) {
	pool := NewDescriptorPool()
	secondary := NewDeferred("secondary", true, pool)
	if secondary.PreRender().IsVoid() {
		t.Fatal("inherited render pass is not open")
	}
	secondary.PreRender().Issue(draw(3))
	secondary.StopEncoding()

	primary := NewDeferred("primary", false, pool)
	primary.SwitchRender(pool.Get(), "main").Issue(draw(1))
	primary.Extend(secondary.Journal, true)
	primary.StopEncoding()

	if primary.NumPasses() != 1 || len(primary.Journal.Render) != 2 {
		t.Errorf("passes = %d render = %d", primary.NumPasses(), len(primary.Journal.Render))
	}
}

func TestScheduleJournal(t *testing.T) {
	dev := capture.NewDevice()
	pool := NewDescriptorPool()
	q := dispatch.New("remote")
	defer q.Close()
	s := NewRemote(q, newBuffer(t, dev), nil, pool)

	secondary := NewDeferred("secondary", false, pool)
	secondary.SwitchRender(pool.Get(), "").Issue(draw(3))
	secondary.StopEncoding()

	s.ScheduleJournal(secondary.Journal)
	secondary.Clear()
	q.Wait()

	if n := dev.Trace.Count("render.DrawPrimitives"); n != 1 {
		t.Errorf("replayed draws = %d, want 1", n)
	}
	if pool.Free() != pool.Allocated() {
		t.Errorf("descriptors leaked: free %d of %d", pool.Free(), pool.Allocated())
	}
}

func TestDescriptorPoolReuse(t *testing.T) {
	pool := NewDescriptorPool()
	d := pool.Get()
	d.RenderTargetWidth = 64
	pool.Put(d)
	again := pool.Get()
	if again != d {
		t.Error("descriptor not reused")
	}
	if again.RenderTargetWidth != 0 {
		t.Error("reused descriptor not reset")
	}
	pool.Put(nil)
	if pool.Free() != 0 {
		t.Error("nil descriptor pooled")
	}
}

func TestDescriptorPoolConcurrent(t *testing.T) {
	const workers = 8
	pool := NewDescriptorPool()
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				pool.Put(pool.Get())
			}
		}()
	}
	wg.Wait()
	if pool.Allocated() > workers {
		t.Errorf("allocated %d descriptors for %d workers", pool.Allocated(), workers)
	}
	if pool.Free() != pool.Allocated() {
		t.Errorf("free = %d, allocated = %d", pool.Free(), pool.Allocated())
	}
}
