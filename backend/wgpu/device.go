package wgpu

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gogpu/cmdbuf/native"
	"github.com/gogpu/cmdbuf/native/capture"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// ErrNoAdapter is returned when a HAL instance exposes no adapter.
var ErrNoAdapter = errors.New("wgpu: no adapter available")

// Device is a native.Device backed by a HAL device for its service
// pipelines.
type Device struct {
	*capture.Device

	fill    *filler
	release func()
}

var _ native.Device = (*Device)(nil)

// New creates a device over an open HAL device and queue. opts configure
// the underlying capture device.
func New(device hal.Device, queue hal.Queue, opts ...capture.Option) (*Device, error) {
	f, err := newFiller(device, queue)
	if err != nil {
		return nil, err
	}
	opts = append([]capture.Option{
		capture.WithThreadExecutionWidth(fillWorkgroupSize),
		capture.WithFillFunc(f.fill),
	}, opts...)
	slogger().Info("wgpu: device created", "workgroup_size", fillWorkgroupSize)
	return &Device{Device: capture.NewDevice(opts...), fill: f}, nil
}

// OpenNoop creates a device over the HAL noop backend.
func OpenNoop(opts ...capture.Option) (*Device, error) {
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		return nil, fmt.Errorf("wgpu: create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, ErrNoAdapter
	}
	open, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("wgpu: open adapter: %w", err)
	}
	d, err := New(open.Device, open.Queue, opts...)
	if err != nil {
		open.Device.Destroy()
		instance.Destroy()
		return nil, err
	}
	d.release = func() {
		open.Device.Destroy()
		instance.Destroy()
	}
	return d, nil
}

// Name returns "wgpu".
func (d *Device) Name() string { return "wgpu" }

// SetLogger sets the logger used by the package. cmdbuf.SetLogger calls it
// for every device handed to a queue.
func (d *Device) SetLogger(l *slog.Logger) { setLogger(l) }

// Destroy releases the HAL objects owned by d. Command buffers must not be
// committed afterwards.
func (d *Device) Destroy() {
	d.fill.destroy()
	if d.release != nil {
		d.release()
		d.release = nil
	}
}
