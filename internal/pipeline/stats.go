package pipeline

import (
	"sync"
	"time"
)

const maxSamples = 64

// Stats counts what happened to conversions and keeps recent durations
type Stats struct {
	mu         sync.RWMutex
	dispatched uint64
	delivered  uint64
	superseded uint64
	failed     uint64
	durations  []time.Duration
}

// Snapshot is a copy of the counters at one moment
type Snapshot struct {
	Dispatched   uint64
	Delivered    uint64
	Superseded   uint64
	Failed       uint64
	LastDuration time.Duration
	AverageTime  time.Duration
}

func (s *Stats) recordDispatch() {
	s.mu.Lock()
	s.dispatched++
	s.mu.Unlock()
}

func (s *Stats) recordDelivered(d time.Duration, failed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delivered++
	if failed {
		s.failed++
	}
	s.durations = append(s.durations, d)
	if len(s.durations) > maxSamples {
		s.durations = s.durations[len(s.durations)-maxSamples:]
	}
}

func (s *Stats) recordSuperseded() {
	s.mu.Lock()
	s.superseded++
	s.mu.Unlock()
}

// Snapshot returns the current counters
func (s *Stats) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Dispatched: s.dispatched,
		Delivered:  s.delivered,
		Superseded: s.superseded,
		Failed:     s.failed,
	}
	if n := len(s.durations); n > 0 {
		snap.LastDuration = s.durations[n-1]
		var total time.Duration
		for _, d := range s.durations {
			total += d
		}
		snap.AverageTime = total / time.Duration(n)
	}
	return snap
}
