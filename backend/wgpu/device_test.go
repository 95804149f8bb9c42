package wgpu_test

import (
	"context"
	"testing"
	"time"

	"github.com/gogpu/cmdbuf"
	"github.com/gogpu/cmdbuf/backend/wgpu"
	"github.com/gogpu/cmdbuf/resource"
)

func openNoop(t *testing.T) *wgpu.Device {
	t.Helper()
	d, err := wgpu.OpenNoop()
	if err != nil {
		t.Fatalf("OpenNoop failed: %v", err)
	}
	t.Cleanup(d.Destroy)
	return d
}

func TestOpenNoop(t *testing.T) {
	d := openNoop(t)
	if d.Name() != "wgpu" {
		t.Errorf("Name() = %q, want %q", d.Name(), "wgpu")
	}
	fill, err := d.FillBufferPipeline()
	if err != nil {
		t.Fatal(err)
	}
	if w := fill.ThreadExecutionWidth(); w != 64 {
		t.Errorf("fill width = %d, want 64", w)
	}
}

func TestFillBufferThroughQueue(t *testing.T) {
	d := openNoop(t)
	q, err := cmdbuf.NewQueue(d)
	if err != nil {
		t.Fatal(err)
	}
	pool := cmdbuf.NewCommandPool(q)
	defer pool.Close()

	dst := &resource.Buffer{Raw: d.NewBufferSize("dst", 64), Size: 64}
	cb := pool.AllocateCommandBuffer(cmdbuf.LevelPrimary)
	if err := cb.Begin(cmdbuf.UsageOneTimeSubmit, nil); err != nil {
		t.Fatal(err)
	}
	if err := cb.FillBuffer(dst, 0, resource.WholeSize, 0x01020304); err != nil {
		t.Fatal(err)
	}
	if err := cb.Finish(); err != nil {
		t.Fatal(err)
	}

	fence := cmdbuf.NewFence(false)
	if err := q.Submit(cmdbuf.SubmitInfo{CommandBuffers: []*cmdbuf.CommandBuffer{cb}}, fence); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := fence.Wait(ctx); err != nil {
		t.Fatalf("fence wait: %v", err)
	}

	var dispatched bool
	for _, op := range d.Trace.Ops() {
		if op == "compute.DispatchThreadgroups" {
			dispatched = true
		}
	}
	if !dispatched {
		t.Errorf("fill was not dispatched: %v", d.Trace.Ops())
	}
}

func TestWaitIdle(t *testing.T) {
	d := openNoop(t)
	q, err := cmdbuf.NewQueue(d)
	if err != nil {
		t.Fatal(err)
	}
	if err := q.WaitIdle(); err != nil {
		t.Errorf("WaitIdle: %v", err)
	}
}
