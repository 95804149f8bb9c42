// Package sink implements the recording strategies a command buffer writes
// soft commands through.
//
// A Sink is chosen once when recording begins and never changes:
//
//   - Immediate executes every command on a live native encoder.
//   - Deferred appends commands to a journal that is replayed at submit.
//   - Remote accumulates each pass locally and encodes it on a background
//     dispatch queue when the pass ends.
//
// All three expose the same pass-switching surface, so the recording
// front end never branches on the strategy for ordinary commands.
package sink
