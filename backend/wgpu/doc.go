// Package wgpu provides a native device whose service compute work runs on
// a gogpu/wgpu HAL device.
//
// The device keeps the ordering, host-visible buffers and trace of
// [capture.Device] and moves the fill-buffer pipeline onto the GPU: every
// dispatch of the fill pipeline is encoded as a HAL compute pass, submitted
// with a fence and read back into the destination buffer before the
// command buffer completes.
//
// The fill shader is written in WGSL and compiled to SPIR-V with
// gogpu/naga when the device is created.
//
// # Usage
//
//	dev, err := wgpu.New(halDevice, halQueue)
//	if err != nil {
//	    return err
//	}
//	defer dev.Destroy()
//	q, err := cmdbuf.NewQueue(dev)
//
// Any hal.Device works, including the noop backend:
//
//	dev, err := wgpu.OpenNoop()
//
// # Errors
//
// A failed HAL submission puts the command buffer in StatusError, which
// cmdbuf reports as ErrDeviceLost from fences and WaitIdle.
package wgpu
