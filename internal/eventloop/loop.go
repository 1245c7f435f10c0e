// Package eventloop hands work from background goroutines back to the UI loop.
// UI-owned state is only ever touched by functions passed to a Poster.
package eventloop

import (
	"context"
	"sync"

	"fyne.io/fyne/v2"
)

// Poster schedules fn to run on the loop that owns UI state
type Poster interface {
	Post(fn func())
}

// FynePoster posts onto the Fyne main goroutine
type FynePoster struct{}

func (FynePoster) Post(fn func()) {
	fyne.Do(fn)
}

// Queue is an unbounded FIFO loop. Run drains it on the calling goroutine,
// which becomes the owner of everything posted. Post never blocks, so tasks
// may post further tasks.
type Queue struct {
	mu     sync.Mutex
	tasks  []func()
	closed bool
	wake   chan struct{}
	done   chan struct{}
}

// NewQueue creates a queue with initial room for size pending tasks
func NewQueue(size int) *Queue {
	return &Queue{
		tasks: make([]func(), 0, size),
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

func (q *Queue) Post(fn func()) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.tasks = append(q.tasks, fn)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *Queue) pop() (func(), bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tasks) == 0 {
		return nil, false
	}
	fn := q.tasks[0]
	q.tasks[0] = nil
	q.tasks = q.tasks[1:]
	return fn, true
}

// Run executes tasks until ctx is done or the queue is closed and empty
func (q *Queue) Run(ctx context.Context) {
	for q.RunOne(ctx) {
	}
}

// RunOne executes the next task, waiting until ctx is done.
// It reports whether a task ran.
func (q *Queue) RunOne(ctx context.Context) bool {
	for {
		if fn, ok := q.pop(); ok {
			fn()
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-q.done:
			if fn, ok := q.pop(); ok {
				fn()
				return true
			}
			return false
		case <-q.wake:
		}
	}
}

// Drain executes every task already queued without waiting for more
func (q *Queue) Drain() int {
	n := 0
	for {
		fn, ok := q.pop()
		if !ok {
			return n
		}
		fn()
		n++
	}
}

// Len returns the number of queued tasks
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Close stops accepting tasks; queued tasks can still be drained
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.done)
	}
}
