package cmdbuf

import (
	"fmt"

	"github.com/gogpu/cmdbuf/native"
	"github.com/gogpu/cmdbuf/resource"
	"github.com/gogpu/cmdbuf/soft"
)

// BeginQuery starts occlusion query q of pool. A precise query counts
// samples; otherwise it only records whether any sample passed. The
// result becomes available when the submission containing the buffer
// completes.
func (c *CommandBuffer) BeginQuery(pool *QueryPool, q uint32, precise bool) {
	c.mustRecord("BeginQuery")
	if pool.Kind != QueryOcclusion {
		panic("cmdbuf: BeginQuery on a timestamp pool")
	}
	mode := native.VisibilityBoolean
	if precise {
		mode = native.VisibilityCounting
	}
	offset := pool.vis.resultOffset(pool.slot(q))
	c.sink.PreRender().Issue(c.state.SetVisibilityQuery(mode, offset))
	c.queries = append(c.queries, queryRef{pool: pool, query: q})
}

// EndQuery ends the active occlusion query.
func (c *CommandBuffer) EndQuery(pool *QueryPool, q uint32) {
	c.mustRecord("EndQuery")
	c.sink.PreRender().Issue(c.state.SetVisibilityQuery(native.VisibilityDisabled, 0))
}

// ResetQueryPool zeroes the results and availability of queries
// [first, first+count).
func (c *CommandBuffer) ResetQueryPool(pool *QueryPool, first, count uint32) {
	c.mustRecord("ResetQueryPool")
	if pool.Kind != QueryOcclusion || count == 0 {
		return
	}
	v := pool.vis
	base := pool.slot(first)
	pool.slot(first + count - 1) // range check
	c.sink.BlitCommands(
		soft.FillBuffer{Dst: v.buffer, Offset: v.resultOffset(base), Size: uint64(count) * occlusionResultSize},
		soft.FillBuffer{Dst: v.buffer, Offset: v.availOffset(base), Size: uint64(count) * availabilitySize},
	)
}

// CopyQueryPoolResults copies results of queries [first, first+count)
// into dst at offset, one result every stride bytes, laid out as
// QueryPool.Results does. Timestamp results are zero and always available.
func (c *CommandBuffer) CopyQueryPoolResults(pool *QueryPool, first, count uint32, dst *resource.Buffer, offset, stride uint64, flags QueryResultFlags) error {
	c.mustRecord("CopyQueryPoolResults")
	size := uint64(4)
	if flags&Query64 != 0 {
		size = 8
	}
	withAvail := flags&QueryWithAvailability != 0
	need := size
	if withAvail {
		need += size
	}
	stride = max(stride, need)

	var cmds []soft.BlitCommand
	if pool.Kind != QueryOcclusion {
		var one native.Buffer
		if withAvail {
			var err error
			if one, err = c.pool.queue.device.NewBuffer([]byte{1, 0, 0, 0}); err != nil {
				return fmt.Errorf("%w: query availability: %w", ErrOutOfResources, err)
			}
			c.retained = append(c.retained, one)
		}
		for i := range uint64(count) {
			at := dst.Offset + offset + i*stride
			cmds = append(cmds, soft.FillBuffer{Dst: dst.Raw, Offset: at, Size: need})
			if withAvail {
				cmds = append(cmds, soft.CopyBuffer{Src: one, Dst: dst.Raw, DstOffset: at + size, Size: availabilitySize})
			}
		}
		c.sink.BlitCommands(cmds...)
		return nil
	}

	v := pool.vis
	for i := range count {
		s := pool.slot(first + i)
		at := dst.Offset + offset + uint64(i)*stride
		cmds = append(cmds, soft.CopyBuffer{Src: v.buffer, SrcOffset: v.resultOffset(s), Dst: dst.Raw, DstOffset: at, Size: size})
		if withAvail {
			if size > availabilitySize {
				cmds = append(cmds, soft.FillBuffer{Dst: dst.Raw, Offset: at + size, Size: size})
			}
			cmds = append(cmds, soft.CopyBuffer{Src: v.buffer, SrcOffset: v.availOffset(s), Dst: dst.Raw, DstOffset: at + size, Size: availabilitySize})
		}
	}
	c.sink.BlitCommands(cmds...)
	return nil
}

// WriteTimestamp is accepted and ignored; timestamp pools read back zero.
func (c *CommandBuffer) WriteTimestamp(pool *QueryPool, q uint32) {
	c.mustRecord("WriteTimestamp")
	slogger().Debug("cmdbuf: timestamp write ignored", "query", q)
}
