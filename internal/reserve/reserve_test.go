package reserve

import (
	"errors"
	"runtime"
	"sync/atomic"
	"testing"
	"time"
)

func TestAcquireRelease(t *testing.T) {
	r := New(2, nil)
	a, err := r.Acquire()
	if err != nil {
		t.Fatal(err)
	}
	b, err := r.Acquire()
	if err != nil {
		t.Fatal(err)
	}
	if a.ID() == b.ID() {
		t.Error("tokens share an id")
	}
	if r.Outstanding() != 2 {
		t.Errorf("outstanding = %d", r.Outstanding())
	}
	if _, err := r.Acquire(); !errors.Is(err, ErrExhausted) {
		t.Errorf("third Acquire err = %v, want ErrExhausted", err)
	}
	r.Release(a)
	r.Release(b)
	if r.Outstanding() != 0 {
		t.Errorf("outstanding after release = %d", r.Outstanding())
	}
}

func TestDoubleReleasePanics(t *testing.T) {
	r := New(1, nil)
	tok, _ := r.Acquire()
	r.Release(tok)
	defer func() {
		if recover() == nil {
			t.Error("double release did not panic")
		}
	}()
	r.Release(tok)
}

func TestForeignReleasePanics(t *testing.T) {
	a, b := New(1, nil), New(1, nil)
	tok, _ := a.Acquire()
	defer func() {
		if recover() == nil {
			t.Error("foreign release did not panic")
		}
	}()
	b.Release(tok)
}

func TestLeakReported(t *testing.T) {
	var leaks atomic.Int32
	r := New(4, func(uint64) { leaks.Add(1) })
	func() {
		_, _ = r.Acquire()
	}()
	deadline := time.Now().Add(2 * time.Second)
	for leaks.Load() == 0 && time.Now().Before(deadline) {
		runtime.GC()
		time.Sleep(10 * time.Millisecond)
	}
	if leaks.Load() != 1 {
		t.Errorf("leaks = %d, want 1", leaks.Load())
	}
	if r.Outstanding() != 1 {
		t.Errorf("leaked token should stay outstanding, got %d", r.Outstanding())
	}
}

func TestReleasedTokenNotReportedAsLeak(t *testing.T) {
	var leaks atomic.Int32
	r := New(4, func(uint64) { leaks.Add(1) })
	func() {
		tok, _ := r.Acquire()
		r.Release(tok)
	}()
	for range 5 {
		runtime.GC()
		time.Sleep(5 * time.Millisecond)
	}
	if leaks.Load() != 0 {
		t.Errorf("released token reported as leak")
	}
}
