// Command cmdtrace records a sample command buffer and prints the native
// calls it produced.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/cmdbuf"
	"github.com/gogpu/cmdbuf/backend/wgpu"
	"github.com/gogpu/cmdbuf/native"
	"github.com/gogpu/cmdbuf/native/capture"
	"github.com/gogpu/cmdbuf/resource"
)

func main() {
	var (
		mode      = flag.String("mode", "deferred", "recording strategy: deferred, immediate or remote")
		backend   = flag.String("backend", "capture", "device: capture or wgpu (noop HAL)")
		subpasses = flag.Int("subpasses", 2, "subpasses in the sample render pass")
		verbose   = flag.Bool("v", false, "log at debug level to stderr")
	)
	flag.Parse()

	if *verbose {
		cmdbuf.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	recording, err := parseRecording(*mode)
	if err != nil {
		log.Fatal(err)
	}
	if *subpasses < 1 {
		log.Fatalf("subpasses must be at least 1, got %d", *subpasses)
	}

	dev, trace, cleanup, err := openDevice(*backend)
	if err != nil {
		log.Fatalf("Failed to open device: %v", err)
	}
	defer cleanup()

	if err := run(dev, trace, recording, *subpasses); err != nil {
		log.Fatalf("Failed to record sample: %v", err)
	}
	fmt.Print(trace.Trace.String())
}

func parseRecording(s string) (cmdbuf.Recording, error) {
	for _, r := range []cmdbuf.Recording{cmdbuf.RecordDeferred, cmdbuf.RecordImmediate, cmdbuf.RecordRemote} {
		if r.String() == s {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown recording mode %q", s)
}

// openDevice returns the device to record on and the capture device that
// traces it.
func openDevice(name string) (native.Device, *capture.Device, func(), error) {
	switch name {
	case "capture":
		d := capture.NewDevice()
		return d, d, func() {}, nil
	case "wgpu":
		d, err := wgpu.OpenNoop()
		if err != nil {
			return nil, nil, nil, err
		}
		return d, d.Device, d.Destroy, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown backend %q", name)
	}
}

func run(dev native.Device, objs *capture.Device, recording cmdbuf.Recording, subpasses int) error {
	q, err := cmdbuf.NewQueue(dev)
	if err != nil {
		return err
	}
	pool := cmdbuf.NewCommandPool(q, cmdbuf.WithRecording(recording))
	defer pool.Close()

	dst := &resource.Buffer{Raw: objs.NewBufferSize("dst", 64), Size: 64}
	rp, fb := samplePass(objs, subpasses)
	pipeline := &resource.GraphicsPipeline{
		Raw:          objs.NewRenderPipeline("triangle"),
		Primitive:    gputypes.PrimitiveTopologyTriangleList,
		ColorFormats: []gputypes.TextureFormat{gputypes.TextureFormatBGRA8Unorm},
		SampleCount:  1,
	}

	cb := pool.AllocateCommandBuffer(cmdbuf.LevelPrimary)
	cb.SetLabel("sample")
	if err := cb.Begin(cmdbuf.UsageOneTimeSubmit, nil); err != nil {
		return err
	}

	cb.BeginRenderPass(rp, fb, []cmdbuf.ClearValue{{Color: gputypes.Color{R: 0.1, G: 0.2, B: 0.3, A: 1}}}, cmdbuf.ContentsInline)
	for i := range subpasses {
		if i > 0 {
			cb.NextSubpass(cmdbuf.ContentsInline)
		}
		cb.BindGraphicsPipeline(pipeline)
		if err := cb.SetViewports(0, []native.Viewport{{Width: 256, Height: 256, ZFar: 1}}); err != nil {
			return err
		}
		cb.Draw(3, 1, 0, 0)
	}
	cb.EndRenderPass()

	if err := cb.FillBuffer(dst, 0, resource.WholeSize, 0xFF00FF00); err != nil {
		return err
	}
	if err := cb.Finish(); err != nil {
		return err
	}

	fence := cmdbuf.NewFence(false)
	if err := q.Submit(cmdbuf.SubmitInfo{CommandBuffers: []*cmdbuf.CommandBuffer{cb}}, fence); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return fence.Wait(ctx)
}

// samplePass returns a render pass of n subpasses over one cleared color
// attachment.
func samplePass(dev *capture.Device, n int) (*resource.RenderPass, *resource.Framebuffer) {
	rp := &resource.RenderPass{
		Attachments: []resource.Attachment{{
			Format:  gputypes.TextureFormatBGRA8Unorm,
			Samples: 1,
			Aspects: resource.AspectColor,
			LoadOp:  gputypes.LoadOpClear,
			StoreOp: gputypes.StoreOpStore,
		}},
	}
	for range n {
		rp.Subpasses = append(rp.Subpasses, resource.Subpass{Colors: []int{0}, DepthStencil: resource.Unused})
	}
	fb := &resource.Framebuffer{
		Attachments: []*resource.ImageView{{
			Raw:     dev.NewTexture("swapchain"),
			Format:  gputypes.TextureFormatBGRA8Unorm,
			Aspects: resource.AspectColor,
		}},
		Extent: gputypes.Extent3D{Width: 256, Height: 256, DepthOrArrayLayers: 1},
	}
	return rp, fb
}
