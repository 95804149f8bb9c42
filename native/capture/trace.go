package capture

import (
	"fmt"
	"strings"
	"sync"
)

// Call is one recorded native call.
type Call struct {
	// Buffer is the label of the command buffer the call was recorded on.
	Buffer string
	// Op is "<scope>.<Method>", for example "render.DrawPrimitives".
	Op   string
	Args []any
}

// String formats the call with its arguments.
func (c Call) String() string {
	if len(c.Args) == 0 {
		return c.Op
	}
	parts := make([]string, len(c.Args))
	for i, a := range c.Args {
		parts[i] = fmt.Sprint(a)
	}
	return c.Op + "(" + strings.Join(parts, ", ") + ")"
}

// Trace is a concurrency-safe append-only list of calls.
type Trace struct {
	mu    sync.Mutex
	calls []Call
}

func (t *Trace) add(c Call) {
	t.mu.Lock()
	t.calls = append(t.calls, c)
	t.mu.Unlock()
}

// Calls returns a snapshot of every recorded call.
func (t *Trace) Calls() []Call {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Call, len(t.calls))
	copy(out, t.calls)
	return out
}

// Ops returns the Op of every recorded call, in order.
func (t *Trace) Ops() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.calls))
	for i, c := range t.calls {
		out[i] = c.Op
	}
	return out
}

// Filter returns the calls whose Op starts with prefix.
func (t *Trace) Filter(prefix string) []Call {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []Call
	for _, c := range t.calls {
		if strings.HasPrefix(c.Op, prefix) {
			out = append(out, c)
		}
	}
	return out
}

// Count returns how many calls have exactly the given Op.
func (t *Trace) Count(op string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, c := range t.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Reset discards every recorded call.
func (t *Trace) Reset() {
	t.mu.Lock()
	t.calls = t.calls[:0]
	t.mu.Unlock()
}

// String renders the trace one call per line, prefixed by buffer label.
func (t *Trace) String() string {
	var sb strings.Builder
	for _, c := range t.Calls() {
		if c.Buffer != "" {
			sb.WriteString("[")
			sb.WriteString(c.Buffer)
			sb.WriteString("] ")
		}
		sb.WriteString(c.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
