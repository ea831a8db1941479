package binding

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncerCollapsesBursts(t *testing.T) {
	var fired int32
	db := newDebouncer(5*time.Millisecond, func() {
		atomic.AddInt32(&fired, 1)
	})

	db.trigger()
	db.trigger()
	db.trigger()

	time.Sleep(30 * time.Millisecond)

	if got := atomic.LoadInt32(&fired); got != 1 {
		t.Errorf("fired = %v, expected 1\n", got)
	}
}

func TestDebouncerCancel(t *testing.T) {
	var fired int32
	db := newDebouncer(5*time.Millisecond, func() {
		atomic.AddInt32(&fired, 1)
	})

	db.trigger()
	db.cancel()

	time.Sleep(30 * time.Millisecond)

	if got := atomic.LoadInt32(&fired); got != 0 {
		t.Errorf("fired = %v, expected 0\n", got)
	}

	// cancel only drops the pending call; later triggers still fire.
	db.trigger()
	time.Sleep(30 * time.Millisecond)

	if got := atomic.LoadInt32(&fired); got != 1 {
		t.Errorf("fired after re-trigger = %v, expected 1\n", got)
	}
}

func TestDebouncerStop(t *testing.T) {
	var fired int32
	db := newDebouncer(0, func() {
		atomic.AddInt32(&fired, 1)
	})

	db.trigger()
	db.stop()
	db.trigger()

	if got := atomic.LoadInt32(&fired); got != 1 {
		t.Errorf("fired = %v, expected 1\n", got)
	}
}
