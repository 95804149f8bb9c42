// Package native declares the native GPU command API that the recording
// engine drives: a command queue that vends command buffers, and the
// render, compute and blit encoders a command buffer records into.
//
// The shape follows explicit encoder APIs such as Metal. A command buffer
// holds at most one open encoder at a time; every encoder must be ended
// with EndEncoding before the next one is created or the buffer is
// committed. Command buffers complete in the order they were enqueued.
//
// Concrete devices live elsewhere:
//   - native/capture records every call into an inspectable trace
//   - backend/wgpu translates calls onto gogpu/wgpu HAL devices
package native
