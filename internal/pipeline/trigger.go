package pipeline

import (
	"sync"
	"time"

	"github.com/bep/debounce"
)

// Trigger collapses bursts of edits into a single call of fire. Every Touch
// replaces the pending timer, so at most one fire is outstanding and it runs
// once the edits have paused for the configured delay.
type Trigger struct {
	debounced func(f func())
	fire      func()

	mu      sync.Mutex
	pending bool
	stopped bool
	fired   uint64
}

// NewTrigger creates a trigger that calls fire after delay of quiet.
// fire runs on a timer goroutine; callers hand off to their loop from there.
func NewTrigger(delay time.Duration, fire func()) *Trigger {
	return &Trigger{
		debounced: debounce.New(delay),
		fire:      fire,
	}
}

// Touch is called on every text mutation
func (t *Trigger) Touch() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.pending = true
	t.mu.Unlock()

	t.debounced(t.onTimer)
}

func (t *Trigger) onTimer() {
	t.mu.Lock()
	if t.stopped || !t.pending {
		t.mu.Unlock()
		return
	}
	t.pending = false
	t.fired++
	t.mu.Unlock()

	t.fire()
}

// Pending reports whether a fire is scheduled
func (t *Trigger) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending
}

// Fired returns how many times fire has been called
func (t *Trigger) Fired() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fired
}

// Cancel drops the pending fire, if any
func (t *Trigger) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending = false
}

// Shutdown cancels the pending fire and ignores later touches
func (t *Trigger) Shutdown() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending = false
	t.stopped = true
}
