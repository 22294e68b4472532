// Package clock provides the monotonic "time since a fixed epoch" source the
// button logic is driven by.
package clock

import (
	"sync"
	"time"
)

// Uptime reports elapsed time since an arbitrary fixed epoch. Readings must
// never decrease.
type Uptime interface {
	Uptime() time.Duration
}

// Since measures uptime from a start instant using the monotonic reading
// carried by time.Now.
type Since struct {
	start time.Time
}

// NewSince starts counting at the moment of the call.
func NewSince() *Since {
	return &Since{start: time.Now()}
}

// Start returns the epoch.
func (s *Since) Start() time.Time {
	return s.start
}

// Uptime returns the elapsed time since Start.
func (s *Since) Uptime() time.Duration {
	return time.Since(s.start)
}

// Now returns Start plus Uptime. The result carries the monotonic reading,
// so successive calls never go backwards even if the wall clock is stepped.
func (s *Since) Now() time.Time {
	return s.start.Add(s.Uptime())
}

// Manual is a hand-advanced clock for tests and simulations.
// It is safe for concurrent use.
type Manual struct {
	mu  sync.Mutex
	now time.Duration
}

// NewManual returns a clock reading at.
func NewManual(at time.Duration) *Manual {
	return &Manual{now: at}
}

// Uptime returns the current reading.
func (m *Manual) Uptime() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward by d. Negative values are ignored.
func (m *Manual) Advance(d time.Duration) {
	if d < 0 {
		return
	}
	m.mu.Lock()
	m.now += d
	m.mu.Unlock()
}

// Set moves the clock to at if that is not in the past.
func (m *Manual) Set(at time.Duration) {
	m.mu.Lock()
	if at > m.now {
		m.now = at
	}
	m.mu.Unlock()
}

// Millis converts an uptime reading to whole milliseconds, clamping
// negative readings to zero.
func Millis(d time.Duration) uint64 {
	if d < 0 {
		return 0
	}
	return uint64(d / time.Millisecond)
}
