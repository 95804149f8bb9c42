// Package resource holds the already-resolved resource objects the
// recording engine reads: buffers, images, samplers, pipelines, pipeline
// layouts, descriptor sets, render passes and framebuffers.
//
// Objects are created by upstream layers (allocators, pipeline compilers,
// descriptor pools) and are treated as immutable once handed to a command
// buffer. The engine never validates them.
package resource
