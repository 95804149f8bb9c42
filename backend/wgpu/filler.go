package wgpu

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// fenceTimeout bounds the wait for a single fill submission.
const fenceTimeout = 5 * time.Second

// ErrTimeout is returned when the GPU does not signal a fill submission's
// fence in time.
var ErrTimeout = errors.New("wgpu: timeout waiting for GPU")

// filler owns the HAL objects of the fill-buffer pipeline.
type filler struct {
	device hal.Device
	queue  hal.Queue

	mu             sync.Mutex
	module         hal.ShaderModule
	bindLayout     hal.BindGroupLayout
	pipelineLayout hal.PipelineLayout
	pipeline       hal.ComputePipeline
}

func newFiller(device hal.Device, queue hal.Queue) (*filler, error) {
	f := &filler{device: device, queue: queue}
	if err := f.init(); err != nil {
		f.destroy()
		return nil, err
	}
	return f, nil
}

func (f *filler) init() error {
	code, err := compileShader(fillShaderWGSL)
	if err != nil {
		return err
	}
	f.module, err = f.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "fill_buffer",
		Source: hal.ShaderSource{SPIRV: code},
	})
	if err != nil {
		return fmt.Errorf("wgpu: create fill shader module: %w", err)
	}

	f.bindLayout, err = f.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "fill_buffer_bgl",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageCompute,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageCompute,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("wgpu: create fill bind group layout: %w", err)
	}

	f.pipelineLayout, err = f.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "fill_buffer_pl",
		BindGroupLayouts: []hal.BindGroupLayout{f.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("wgpu: create fill pipeline layout: %w", err)
	}

	f.pipeline, err = f.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:  "fill_buffer",
		Layout: f.pipelineLayout,
		Compute: hal.ComputeState{
			Module:     f.module,
			EntryPoint: "main",
		},
	})
	if err != nil {
		return fmt.Errorf("wgpu: create fill pipeline: %w", err)
	}
	slogger().Debug("wgpu: fill pipeline created", "spirv_words", len(code))
	return nil
}

func (f *filler) destroy() {
	if f.pipeline != nil {
		f.device.DestroyComputePipeline(f.pipeline)
		f.pipeline = nil
	}
	if f.pipelineLayout != nil {
		f.device.DestroyPipelineLayout(f.pipelineLayout)
		f.pipelineLayout = nil
	}
	if f.bindLayout != nil {
		f.device.DestroyBindGroupLayout(f.bindLayout)
		f.bindLayout = nil
	}
	if f.module != nil {
		f.device.DestroyShaderModule(f.module)
		f.module = nil
	}
}

// fillResources tracks the per-dispatch objects of one fill.
type fillResources struct {
	device  hal.Device
	buffers []hal.Buffer
	group   hal.BindGroup
	cmdBuf  hal.CommandBuffer
	fence   hal.Fence
}

func (r *fillResources) cleanup() {
	if r.fence != nil {
		r.device.DestroyFence(r.fence)
	}
	if r.cmdBuf != nil {
		r.device.FreeCommandBuffer(r.cmdBuf)
	}
	if r.group != nil {
		r.device.DestroyBindGroup(r.group)
	}
	for _, b := range r.buffers {
		r.device.DestroyBuffer(b)
	}
}

func (r *fillResources) buffer(label string, size uint64, usage gputypes.BufferUsage) (hal.Buffer, error) {
	b, err := r.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: usage,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create %s buffer: %w", label, err)
	}
	r.buffers = append(r.buffers, b)
	return b, nil
}

// fill runs the fill pipeline over a words-long GPU buffer and returns its
// contents.
func (f *filler) fill(pattern, words uint32) ([]byte, error) {
	if words == 0 {
		return nil, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	size := uint64(words) * 4
	res := &fillResources{device: f.device}
	defer res.cleanup()

	dst, err := res.buffer("fill_dst", size, gputypes.BufferUsageStorage|gputypes.BufferUsageCopySrc)
	if err != nil {
		return nil, err
	}
	params, err := res.buffer("fill_params", 16, gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst)
	if err != nil {
		return nil, err
	}
	staging, err := res.buffer("fill_staging", size, gputypes.BufferUsageMapRead|gputypes.BufferUsageCopyDst)
	if err != nil {
		return nil, err
	}

	p := make([]byte, 16)
	binary.LittleEndian.PutUint32(p, pattern)
	binary.LittleEndian.PutUint32(p[4:], words)
	f.queue.WriteBuffer(params, 0, p)

	res.group, err = f.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "fill_buffer_bg",
		Layout: f.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: dst.NativeHandle(), Size: size}},
			{Binding: 1, Resource: gputypes.BufferBinding{Buffer: params.NativeHandle(), Size: 16}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create fill bind group: %w", err)
	}

	if err := f.encode(res, dst, staging, words, size); err != nil {
		return nil, err
	}
	if err := f.submitAndWait(res); err != nil {
		return nil, err
	}

	out := make([]byte, size)
	if err := f.queue.ReadBuffer(staging, 0, out); err != nil {
		return nil, fmt.Errorf("wgpu: fill readback: %w", err)
	}
	return out, nil
}

func (f *filler) encode(res *fillResources, dst, staging hal.Buffer, words uint32, size uint64) error {
	encoder, err := f.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "fill_buffer"})
	if err != nil {
		return fmt.Errorf("wgpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("fill_buffer"); err != nil {
		return fmt.Errorf("wgpu: begin encoding: %w", err)
	}

	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "fill_buffer"})
	pass.SetPipeline(f.pipeline)
	pass.SetBindGroup(0, res.group, nil)
	pass.Dispatch((words+fillWorkgroupSize-1)/fillWorkgroupSize, 1, 1)
	pass.End()

	encoder.CopyBufferToBuffer(dst, staging, []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: size},
	})
	res.cmdBuf, err = encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("wgpu: end encoding: %w", err)
	}
	return nil
}

func (f *filler) submitAndWait(res *fillResources) error {
	fence, err := f.device.CreateFence()
	if err != nil {
		return fmt.Errorf("wgpu: create fence: %w", err)
	}
	res.fence = fence

	if err := f.queue.Submit([]hal.CommandBuffer{res.cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("wgpu: submit: %w", err)
	}
	ok, err := f.device.Wait(fence, 1, fenceTimeout)
	if err != nil {
		return fmt.Errorf("wgpu: wait for GPU: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w after %v", ErrTimeout, fenceTimeout)
	}
	return nil
}
