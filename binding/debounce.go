package binding

import (
	"sync"
	"time"
)

// debouncer collapses bursts of triggers into one callback after a quiet
// interval. A zero interval fires synchronously.
type debouncer struct {
	mu      sync.Mutex
	d       time.Duration
	fn      func()
	timer   *time.Timer
	stopped bool
}

func newDebouncer(d time.Duration, fn func()) *debouncer {
	return &debouncer{d: d, fn: fn}
}

func (db *debouncer) trigger() {
	db.mu.Lock()
	if db.stopped {
		db.mu.Unlock()
		return
	}

	if db.d == 0 {
		db.mu.Unlock()
		db.fn()
		return
	}

	if db.timer != nil {
		db.timer.Stop()
	}
	db.timer = time.AfterFunc(db.d, db.fn)
	db.mu.Unlock()
}

// cancel drops a pending callback without disabling future triggers.
func (db *debouncer) cancel() {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.timer != nil {
		db.timer.Stop()
		db.timer = nil
	}
}

func (db *debouncer) stop() {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.stopped = true
	if db.timer != nil {
		db.timer.Stop()
		db.timer = nil
	}
}
