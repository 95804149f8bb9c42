// Package cmdbuf records Vulkan-style command buffers onto a Metal-style
// native command API.
//
// # Overview
//
// A Queue wraps a native device and command queue. CommandPools allocate
// CommandBuffers, which expose the abstract recording surface: render
// passes with subpasses, pipelines, descriptor sets, dynamic state, draws,
// dispatches, transfers, events and queries. Each call goes through a
// per-buffer state cache that drops redundant native calls, then into one
// of three recording strategies:
//
//   - Immediate records onto a live native command buffer.
//   - Deferred records into a replayable journal that is encoded at
//     submit time, possibly stitched with other deferred buffers.
//   - Remote encodes every pass on a background dispatch queue.
//
// Only primary buffers begun with UsageOneTimeSubmit qualify for
// Immediate or Remote recording; everything else is Deferred.
//
// # Quick Start
//
//	q, err := cmdbuf.NewQueue(device)
//	if err != nil {
//	    return err
//	}
//	pool := cmdbuf.NewCommandPool(q, cmdbuf.WithRecording(cmdbuf.RecordImmediate))
//	defer pool.Close()
//
//	cb := pool.AllocateCommandBuffer(cmdbuf.LevelPrimary)
//	if err := cb.Begin(cmdbuf.UsageOneTimeSubmit, nil); err != nil {
//	    return err
//	}
//	cb.BeginRenderPass(renderPass, framebuffer, clears, cmdbuf.ContentsInline)
//	cb.BindGraphicsPipeline(pipeline)
//	cb.Draw(3, 1, 0, 0)
//	cb.EndRenderPass()
//	if err := cb.Finish(); err != nil {
//	    return err
//	}
//
//	fence := cmdbuf.NewFence(false)
//	if err := q.Submit(cmdbuf.SubmitInfo{CommandBuffers: []*cmdbuf.CommandBuffer{cb}}, fence); err != nil {
//	    return err
//	}
//	return fence.Wait(ctx)
//
// # Synchronization
//
// Submissions that wait on host events not yet set are held by the
// queue's QueueBlocker and committed, in order, once every event fired.
// Queue.SetEvent sets an event and triages the blocked submissions.
//
// # Logging
//
// The package is silent by default. SetLogger installs a slog.Logger that
// is shared with the sink package and with native devices that accept
// one.
package cmdbuf
