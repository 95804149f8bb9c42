package cmdbuf

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gogpu/cmdbuf/native/capture"
)

func TestEvent(t *testing.T) {
	e := NewEvent()
	if e.IsSet() {
		t.Fatal("new event is set")
	}
	e.Set()
	if !e.IsSet() {
		t.Fatal("Set did not raise the event")
	}
	eventUpdate{event: e, value: false}.apply()
	if e.IsSet() {
		t.Fatal("reset update did not lower the event")
	}
}

func TestSemaphore(t *testing.T) {
	s := NewSemaphore()
	done := make(chan struct{})
	go func() {
		s.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Wait returned before Signal")
	case <-time.After(10 * time.Millisecond):
	}
	s.Signal()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after Signal")
	}
	if s.Count() != 0 {
		t.Errorf("Count = %d, want 0", s.Count())
	}
}

func TestFenceIdle(t *testing.T) {
	f := NewFence(false)
	if err := f.Wait(context.Background()); !errors.Is(err, ErrNotSubmitted) {
		t.Errorf("Wait on idle fence = %v, want ErrNotSubmitted", err)
	}
	f = NewFence(true)
	if err := f.Wait(context.Background()); err != nil {
		t.Errorf("Wait on signaled fence = %v", err)
	}
	f.Reset()
	if f.Status() != FenceUnsignaled {
		t.Errorf("status after Reset = %v", f.Status())
	}
}

func TestFenceSignal(t *testing.T) {
	dev := capture.NewDevice(capture.WithManualCompletion())
	cb := newRawBuffer(t, dev)
	other := newRawBuffer(t, dev)

	f := NewFence(false)
	f.pend(cb)
	if f.Status() != FencePending {
		t.Fatalf("status = %v, want pending", f.Status())
	}

	f.signal(other, false)
	if f.Status() != FencePending {
		t.Fatal("signal from a foreign buffer completed the fence")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := f.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait on pending fence = %v, want deadline exceeded", err)
	}

	f.signal(cb, true)
	if err := f.Wait(context.Background()); !errors.Is(err, ErrDeviceLost) {
		t.Errorf("Wait after failed buffer = %v, want ErrDeviceLost", err)
	}
}

func TestFenceStatusString(t *testing.T) {
	tests := []struct {
		s    FenceStatus
		want string
	}{
		{FenceUnsignaled, "unsignaled"},
		{FencePending, "pending"},
		{FenceSignaled, "signaled"},
		{FenceStatus(9), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("FenceStatus(%d).String() = %q, want %q", tt.s, got, tt.want)
		}
	}
}
