package cmdbuf

import (
	"github.com/gogpu/cmdbuf/sink"
	"github.com/gogpu/cmdbuf/soft"
)

// SetEvent sets e when the submission containing the buffer completes.
func (c *CommandBuffer) SetEvent(e *Event) {
	c.mustRecord("SetEvent")
	c.events = append(c.events, eventUpdate{event: e, value: true})
}

// ResetEvent resets e when the submission containing the buffer completes.
func (c *CommandBuffer) ResetEvent(e *Event) {
	c.mustRecord("ResetEvent")
	c.events = append(c.events, eventUpdate{event: e, value: false})
}

// WaitEvents holds the submission of the buffer until every event in
// events is set on the host. Events set by command buffers are only
// observed through Queue.SetEvent or Queue.Triage.
func (c *CommandBuffer) WaitEvents(events ...*Event) {
	c.mustRecord("WaitEvents")
	c.waitEvents = append(c.waitEvents, events...)
}

// PipelineBarrier is accepted and ignored. Native passes are ordered and
// tracked by the driver.
func (c *CommandBuffer) PipelineBarrier() {
	c.mustRecord("PipelineBarrier")
}

// ExecuteCommands replays finished secondary buffers into c. Secondaries
// begun with UsageRenderPassContinue join the open render pass; the others
// append their own passes. The native state of c is unknown afterwards
// and is re-established by the next bind.
func (c *CommandBuffer) ExecuteCommands(secondaries ...*CommandBuffer) {
	c.mustRecord("ExecuteCommands")
	for _, sec := range secondaries {
		if sec.level != LevelSecondary || sec.status != StateSubmittable {
			panic("cmdbuf: ExecuteCommands needs finished secondary command buffers")
		}
		src := sec.sink.(*sink.Deferred)
		j := src.Journal

		if src.IsInheriting && j.NumPasses() > 0 {
			if dst, ok := c.sink.(*sink.Deferred); ok {
				dst.Extend(j, true)
			} else {
				cur := c.sink.PreRender()
				if cur.IsVoid() {
					panic("cmdbuf: ExecuteCommands of a render pass continuation outside a render pass")
				}
				cur.IssueMany(j.RenderCommands(j.Passes[0]))
			}
		} else if j.NumPasses() > 0 {
			switch dst := c.sink.(type) {
			case *sink.Immediate:
				dst.Replay(j)
			case *sink.Deferred:
				dst.Extend(j, false)
			case *sink.Remote:
				dst.ScheduleJournal(j)
			}
		}

		c.events = append(c.events, sec.events...)
		c.waitEvents = append(c.waitEvents, sec.waitEvents...)
		c.queries = append(c.queries, sec.queries...)
		c.retained = append(c.retained, sec.retained...)
		if sec.usage&UsageOneTimeSubmit != 0 {
			sec.status = StateRetired
		}
	}
	c.state.Invalidate()
}

func (c *CommandBuffer) marker(render soft.RenderCommand, compute soft.ComputeCommand) {
	if cur := c.sink.PreRender(); !cur.IsVoid() {
		cur.Issue(render)
		return
	}
	if cur := c.sink.PreCompute(); !cur.IsVoid() {
		cur.Issue(compute)
	}
}

// BeginDebugMarker opens a labeled debug group in the current pass.
// Markers outside a render or compute pass are dropped.
func (c *CommandBuffer) BeginDebugMarker(label string) {
	c.mustRecord("BeginDebugMarker")
	c.marker(soft.PushDebugGroup{Label: label}, soft.PushDebugGroup{Label: label})
}

// EndDebugMarker closes the innermost debug group.
func (c *CommandBuffer) EndDebugMarker() {
	c.mustRecord("EndDebugMarker")
	c.marker(soft.PopDebugGroup{}, soft.PopDebugGroup{})
}

// InsertDebugMarker inserts a single debug label.
func (c *CommandBuffer) InsertDebugMarker(label string) {
	c.mustRecord("InsertDebugMarker")
	c.marker(soft.InsertDebugSignpost{Label: label}, soft.InsertDebugSignpost{Label: label})
}
