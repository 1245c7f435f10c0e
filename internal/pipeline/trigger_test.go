package pipeline

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTriggerCollapsesBurst(t *testing.T) {
	var calls atomic.Int32
	var text, observed atomic.Value
	buffer := ""

	done := make(chan struct{}, 4)
	trigger := NewTrigger(50*time.Millisecond, func() {
		calls.Add(1)
		observed.Store(text.Load())
		done <- struct{}{}
	})

	for _, ch := range "hello" {
		buffer += string(ch)
		text.Store(buffer)
		trigger.Touch()
		time.Sleep(5 * time.Millisecond)
	}
	assert.True(t, trigger.Pending())

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("trigger never fired")
	}
	time.Sleep(120 * time.Millisecond)

	assert.EqualValues(t, 1, calls.Load())
	assert.Equal(t, "hello", observed.Load(), "fire observes the text of the last edit")
	assert.False(t, trigger.Pending())
	assert.EqualValues(t, 1, trigger.Fired())
}

func TestTriggerFiresAgainAfterQuietPeriod(t *testing.T) {
	fired := make(chan struct{}, 4)
	trigger := NewTrigger(20*time.Millisecond, func() { fired <- struct{}{} })

	for i := 0; i < 2; i++ {
		trigger.Touch()
		select {
		case <-fired:
		case <-time.After(2 * time.Second):
			t.Fatalf("fire %d missing", i)
		}
	}
	assert.EqualValues(t, 2, trigger.Fired())
}

func TestTriggerShutdownDropsPending(t *testing.T) {
	var calls atomic.Int32
	trigger := NewTrigger(20*time.Millisecond, func() { calls.Add(1) })

	trigger.Touch()
	trigger.Shutdown()
	trigger.Touch()
	time.Sleep(80 * time.Millisecond)

	require.False(t, trigger.Pending())
	assert.Zero(t, calls.Load())
}

func TestTriggerCancel(t *testing.T) {
	var calls atomic.Int32
	trigger := NewTrigger(20*time.Millisecond, func() { calls.Add(1) })

	trigger.Touch()
	trigger.Cancel()
	time.Sleep(80 * time.Millisecond)
	assert.Zero(t, calls.Load())

	trigger.Touch()
	time.Sleep(80 * time.Millisecond)
	assert.EqualValues(t, 1, calls.Load())
}
