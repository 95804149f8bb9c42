package cmdbuf

import (
	"sync"

	"github.com/gogpu/cmdbuf/native"
)

// BlockedSubmission is a group of commits held back until every one of
// its host events is set.
type BlockedSubmission struct {
	WaitEvents []*Event

	commits []func()
}

// Len returns the number of commits held by s.
func (s *BlockedSubmission) Len() int { return len(s.commits) }

// QueueBlocker holds submissions gated on host events. Buffers submitted
// while any submission is blocked join the last blocked submission, so
// the committed order always matches the submitted order.
//
// QueueBlocker is safe for concurrent use.
type QueueBlocker struct {
	mu          sync.Mutex
	submissions []*BlockedSubmission
}

// Len returns the number of blocked submissions.
func (b *QueueBlocker) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.submissions)
}

// Submit commits cb, or buffers it behind the blocked submissions.
func (b *QueueBlocker) Submit(cb native.CommandBuffer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.submitLocked(cb)
}

func (b *QueueBlocker) submitLocked(cb native.CommandBuffer) {
	b.commitLocked(cb.Commit)
}

// commitLocked runs commit, or holds it in the last blocked submission.
func (b *QueueBlocker) commitLocked(commit func()) {
	if n := len(b.submissions); n > 0 {
		last := b.submissions[n-1]
		last.commits = append(last.commits, commit)
		return
	}
	commit()
}

// Head returns the oldest blocked submission, or nil.
func (b *QueueBlocker) Head() *BlockedSubmission {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.submissions) == 0 {
		return nil
	}
	return b.submissions[0]
}

// Block starts a new blocked submission waiting on the events of events
// that are not set yet. It does nothing when all are set.
func (b *QueueBlocker) Block(events []*Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.blockLocked(events)
}

func (b *QueueBlocker) blockLocked(events []*Event) bool {
	var unset []*Event
	for _, e := range events {
		if !e.IsSet() {
			unset = append(unset, e)
		}
	}
	if len(unset) == 0 {
		return false
	}
	slogger().Debug("cmdbuf: submission blocked on host events", "events", len(unset))
	b.submissions = append(b.submissions, &BlockedSubmission{WaitEvents: unset})
	return true
}

// Triage commits every blocked submission at the head of the queue whose
// events are all set, in order.
func (b *QueueBlocker) Triage() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.triageLocked()
}

func (b *QueueBlocker) triageLocked() {
	for len(b.submissions) > 0 {
		head := b.submissions[0]
		unset := head.WaitEvents[:0]
		for _, e := range head.WaitEvents {
			if !e.IsSet() {
				unset = append(unset, e)
			}
		}
		clear(head.WaitEvents[len(unset):])
		head.WaitEvents = unset
		if len(unset) > 0 {
			return
		}
		b.submissions[0] = nil
		b.submissions = b.submissions[1:]
		slogger().Debug("cmdbuf: releasing blocked submission", "commits", len(head.commits))
		for _, commit := range head.commits {
			commit()
		}
	}
}
