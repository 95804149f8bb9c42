// Package reserve tracks checkouts from a bounded pool of native command
// buffers.
//
// Every Acquire returns a Token that must be passed to Release exactly
// once. Releasing a token twice, or a token from another Reserve, panics.
// A token that becomes unreachable while still checked out is reported
// through the leak callback.
package reserve

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
)

// ErrExhausted is returned by Acquire when every slot is checked out.
var ErrExhausted = errors.New("reserve: exhausted")

// Token proves a slot was checked out of a Reserve.
type Token struct {
	id      uint64
	reserve *Reserve
}

// ID returns the token's opaque identifier.
func (t *Token) ID() uint64 { return t.id }

// String returns "token#<id>".
func (t *Token) String() string { return fmt.Sprintf("token#%d", t.id) }

// Reserve is a bounded set of outstanding tokens.
//
// Reserve is safe for concurrent use.
type Reserve struct {
	mu          sync.Mutex
	limit       int
	next        uint64
	outstanding map[uint64]struct{}
	onLeak      func(id uint64)
}

// New creates a reserve allowing limit outstanding tokens. onLeak, when
// non-nil, is called from a cleanup goroutine for every token collected
// while still outstanding.
func New(limit int, onLeak func(id uint64)) *Reserve {
	return &Reserve{
		limit:       limit,
		outstanding: make(map[uint64]struct{}, limit),
		onLeak:      onLeak,
	}
}

type leakCheck struct {
	reserve *Reserve
	id      uint64
}

// Acquire checks out a slot.
func (r *Reserve) Acquire() (*Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.outstanding) >= r.limit {
		return nil, fmt.Errorf("%w: %d of %d in use", ErrExhausted, len(r.outstanding), r.limit)
	}
	r.next++
	t := &Token{id: r.next, reserve: r}
	r.outstanding[t.id] = struct{}{}
	runtime.AddCleanup(t, func(c leakCheck) { c.reserve.leaked(c.id) }, leakCheck{reserve: r, id: t.id})
	return t, nil
}

func (r *Reserve) leaked(id uint64) {
	r.mu.Lock()
	_, live := r.outstanding[id]
	r.mu.Unlock()
	if live && r.onLeak != nil {
		r.onLeak(id)
	}
}

// Release returns t to the reserve. It panics if t was already released
// or belongs to another reserve.
func (r *Reserve) Release(t *Token) {
	if t == nil || t.reserve != r {
		panic("reserve: release of a foreign token")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.outstanding[t.id]; !ok {
		panic(fmt.Sprintf("reserve: %v released twice", t))
	}
	delete(r.outstanding, t.id)
}

// Outstanding returns the number of tokens checked out.
func (r *Reserve) Outstanding() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.outstanding)
}

// Limit returns the maximum number of outstanding tokens.
func (r *Reserve) Limit() int { return r.limit }
