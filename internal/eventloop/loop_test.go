package eventloop

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestQueueRunsTasksOnDrainingGoroutine(t *testing.T) {
	q := NewQueue(16)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Post(func() {})
		}()
	}
	wg.Wait()

	assert.Equal(t, 4, q.Drain())
	assert.Equal(t, 0, q.Drain())
}

func TestQueuePreservesOrder(t *testing.T) {
	q := NewQueue(4)
	var got []int
	for i := 1; i <= 3; i++ {
		i := i
		q.Post(func() { got = append(got, i) })
	}
	q.Drain()
	assert.Equal(t, []int{1, 2, 3}, got)
}

func TestRunOneWaitsForWork(t *testing.T) {
	q := NewQueue(1)
	ran := false
	go func() {
		time.Sleep(10 * time.Millisecond)
		q.Post(func() { ran = true })
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.True(t, q.RunOne(ctx))
	assert.True(t, ran)
}

func TestRunOneTimesOut(t *testing.T) {
	q := NewQueue(1)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.False(t, q.RunOne(ctx))
}

func TestPostAfterCloseIsDropped(t *testing.T) {
	q := NewQueue(1)
	q.Close()
	q.Post(func() { t.Fatal("must not run") })
	assert.Equal(t, 0, q.Drain())
}

func TestPostBeyondInitialSizeDoesNotBlock(t *testing.T) {
	q := NewQueue(1)
	posted := make(chan struct{})
	go func() {
		defer close(posted)
		for i := 0; i < 8; i++ {
			q.Post(func() {})
		}
		q.Close()
	}()

	select {
	case <-posted:
	case <-time.After(time.Second):
		t.Fatal("post or close blocked on a full queue")
	}
	assert.Equal(t, 8, q.Len())
	assert.Equal(t, 8, q.Drain())
}

func TestTaskMayPostFromDrainingGoroutine(t *testing.T) {
	q := NewQueue(1)
	var got []int
	q.Post(func() {
		got = append(got, 1)
		q.Post(func() { got = append(got, 3) })
		q.Post(func() { got = append(got, 4) })
	})
	q.Post(func() { got = append(got, 2) })

	assert.Equal(t, 4, q.Drain())
	assert.Equal(t, []int{1, 2, 3, 4}, got)
}

func TestRunStopsWhenClosedAndEmpty(t *testing.T) {
	q := NewQueue(1)
	ran := 0
	q.Post(func() { ran++ })
	q.Close()

	finished := make(chan struct{})
	go func() {
		q.Run(context.Background())
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("run did not return after close")
	}
	assert.Equal(t, 1, ran)
}
