// Package capture provides an in-process native.Device that records every
// native call into a Trace.
//
// The device executes buffer fills and copies against host memory, runs
// the fill-buffer service pipeline, and completes command buffers strictly
// in enqueue order. By default a committed command buffer completes as
// soon as every buffer enqueued ahead of it has completed; WithManualCompletion
// holds completion until the test calls CompleteAll.
//
// Encoder misuse that a real driver would reject is reported by panicking:
// opening a second encoder, committing with an open encoder, adding a
// completed handler after commit.
package capture
