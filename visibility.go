package cmdbuf

import (
	"cmp"
	"encoding/binary"
	"fmt"
	"slices"
	"sync"

	"github.com/gogpu/cmdbuf/native"
)

const (
	// occlusionResultSize is the size of one visibility result slot.
	occlusionResultSize = 8
	// availabilitySize is the size of one availability word.
	availabilitySize = 4
)

// visibility is the occlusion result buffer shared by every query pool of
// a queue. Results occupy capacity 8-byte slots; one availability word per
// slot follows them. Completion handlers publish availability and wake
// waiting readers.
type visibility struct {
	buffer             native.Buffer
	capacity           uint32
	availabilityOffset uint64

	mu   sync.Mutex
	cond *sync.Cond
	free []slotRange // sorted by base, never adjacent
}

// slotRange is a run of free visibility slots.
type slotRange struct {
	base, count uint32
}

func newVisibility(dev native.Device, capacity uint32) (*visibility, error) {
	size := uint64(capacity) * (occlusionResultSize + availabilitySize)
	buf, err := dev.NewBuffer(make([]byte, size))
	if err != nil {
		return nil, fmt.Errorf("cmdbuf: visibility buffer: %w", err)
	}
	v := &visibility{
		buffer:             buf,
		capacity:           capacity,
		availabilityOffset: uint64(capacity) * occlusionResultSize,
	}
	if capacity > 0 {
		v.free = []slotRange{{0, capacity}}
	}
	v.cond = sync.NewCond(&v.mu)
	return v, nil
}

// allocate takes count contiguous slots from the first free range large
// enough to hold them.
func (v *visibility) allocate(count uint32) (uint32, error) {
	if count == 0 {
		return 0, nil
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	var largest uint32
	for i, r := range v.free {
		if r.count < count {
			largest = max(largest, r.count)
			continue
		}
		if r.count == count {
			v.free = slices.Delete(v.free, i, i+1)
		} else {
			v.free[i] = slotRange{r.base + count, r.count - count}
		}
		return r.base, nil
	}
	return 0, fmt.Errorf("%w: %d occlusion queries requested, largest free run is %d", ErrOutOfResources, count, largest)
}

// release zeroes slots [base, base+count) and returns them to the free
// list, merging with neighbouring free ranges.
func (v *visibility) release(base, count uint32) {
	if count == 0 {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	mem := v.buffer.Contents()
	clear(mem[v.resultOffset(base):v.resultOffset(base+count)])
	clear(mem[v.availOffset(base):v.availOffset(base+count)])

	i, _ := slices.BinarySearchFunc(v.free, base, func(r slotRange, b uint32) int { return cmp.Compare(r.base, b) })
	v.free = slices.Insert(v.free, i, slotRange{base, count})
	if i+1 < len(v.free) && v.free[i].base+v.free[i].count == v.free[i+1].base {
		v.free[i].count += v.free[i+1].count
		v.free = slices.Delete(v.free, i+1, i+2)
	}
	if i > 0 && v.free[i-1].base+v.free[i-1].count == v.free[i].base {
		v.free[i-1].count += v.free[i].count
		v.free = slices.Delete(v.free, i, i+1)
	}
}

func (v *visibility) resultOffset(slot uint32) uint64 {
	return uint64(slot) * occlusionResultSize
}

func (v *visibility) availOffset(slot uint32) uint64 {
	return v.availabilityOffset + uint64(slot)*availabilitySize
}

// publish marks slots available and wakes readers.
func (v *visibility) publish(slots []uint32) {
	if len(slots) == 0 {
		return
	}
	v.mu.Lock()
	mem := v.buffer.Contents()
	for _, s := range slots {
		binary.LittleEndian.PutUint32(mem[v.availOffset(s):], 1)
	}
	v.mu.Unlock()
	v.cond.Broadcast()
}

func (v *visibility) available(slot uint32) bool {
	return binary.LittleEndian.Uint32(v.buffer.Contents()[v.availOffset(slot):]) != 0
}

// QueryKind is the type of a query pool.
type QueryKind uint8

// Query kinds.
const (
	QueryOcclusion QueryKind = iota
	QueryTimestamp
)

// QueryResultFlags control how results are read or copied.
type QueryResultFlags uint8

// Query result flags.
const (
	// Query64 writes 64-bit results instead of 32-bit ones.
	Query64 QueryResultFlags = 1 << iota
	// QueryWait blocks until every requested result is available.
	QueryWait
	// QueryWithAvailability appends an availability word to each result.
	QueryWithAvailability
)

// QueryPool is a range of query slots.
type QueryPool struct {
	Kind  QueryKind
	Count uint32

	vis       *visibility
	base      uint32
	destroyed bool
}

// NewQueryPool allocates count queries of kind. Occlusion pools take their
// slots from the queue's shared visibility buffer.
func (q *Queue) NewQueryPool(kind QueryKind, count uint32) (*QueryPool, error) {
	p := &QueryPool{Kind: kind, Count: count}
	if kind == QueryOcclusion {
		base, err := q.visibility.allocate(count)
		if err != nil {
			return nil, err
		}
		p.vis, p.base = q.visibility, base
	}
	return p, nil
}

// Destroy returns the pool's occlusion slots to the queue. The pool must
// not be used afterwards, and no submitted buffer may still reference it.
// Destroying a pool twice does nothing.
func (p *QueryPool) Destroy() {
	if p.destroyed {
		return
	}
	p.destroyed = true
	if p.vis != nil {
		p.vis.release(p.base, p.Count)
		slogger().Debug("cmdbuf: query pool destroyed", "base", p.base, "count", p.Count)
	}
}

func (p *QueryPool) slot(query uint32) uint32 {
	if p.destroyed {
		panic("cmdbuf: use of a destroyed query pool")
	}
	if query >= p.Count {
		panic(fmt.Sprintf("cmdbuf: query %d out of range for pool of %d", query, p.Count))
	}
	return p.base + query
}

// Results reads queries [first, first+count) into data, one result every
// stride bytes. It reports whether every result was available; with
// QueryWait it blocks until they are. Timestamp pools always report zero.
func (p *QueryPool) Results(first, count uint32, data []byte, stride uint64, flags QueryResultFlags) bool {
	size := uint64(4)
	if flags&Query64 != 0 {
		size = 8
	}
	need := size
	if flags&QueryWithAvailability != 0 {
		need += size
	}
	if stride < need {
		stride = need
	}
	if count > 0 && uint64(len(data)) < uint64(count-1)*stride+need {
		panic(fmt.Sprintf("cmdbuf: query result buffer of %d bytes too small", len(data)))
	}

	if p.Kind != QueryOcclusion {
		for i := range count {
			clear(data[uint64(i)*stride : uint64(i)*stride+need])
			if flags&QueryWithAvailability != 0 {
				putWord(data[uint64(i)*stride+size:], 1, size)
			}
		}
		return true
	}

	v := p.vis
	v.mu.Lock()
	defer v.mu.Unlock()
	if flags&QueryWait != 0 {
		for !p.allAvailable(first, count) {
			v.cond.Wait()
		}
	}
	mem := v.buffer.Contents()
	all := true
	for i := range count {
		s := p.slot(first + i)
		out := data[uint64(i)*stride:]
		avail := v.available(s)
		all = all && avail
		if avail || flags&QueryWait != 0 {
			putWord(out, binary.LittleEndian.Uint64(mem[v.resultOffset(s):]), size)
		}
		if flags&QueryWithAvailability != 0 {
			var a uint64
			if avail {
				a = 1
			}
			putWord(out[size:], a, size)
		}
	}
	return all
}

// allAvailable must be called with vis.mu held.
func (p *QueryPool) allAvailable(first, count uint32) bool {
	for i := range count {
		if !p.vis.available(p.slot(first + i)) {
			return false
		}
	}
	return true
}

func putWord(dst []byte, v, size uint64) {
	if size == 8 {
		binary.LittleEndian.PutUint64(dst, v)
		return
	}
	binary.LittleEndian.PutUint32(dst, uint32(v))
}

type queryRef struct {
	pool  *QueryPool
	query uint32
}
