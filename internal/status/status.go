// Package status keeps the daemon's shared view of the button. The run loop
// writes it; the HTTP handlers and lifecycle messages read copies of it.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/button-sensor/internal/logic"
)

// Config is the subset of settings shown to operators.
type Config struct {
	Name        string
	Backend     string
	Line        int
	Direction   string
	PollMs      int64
	HeartbeatMs int64
	Timing      logic.Timing
	Broker      string
	HTTPAddr    string
	HomeKit     bool
}

// LastEvent is the most recent gesture seen by the daemon.
type LastEvent struct {
	Type      logic.EventType
	Gesture   string
	Count     uint32
	Timestamp time.Time
}

// Snapshot is a copy of the tracked state, taken under the lock.
type Snapshot struct {
	State         logic.State
	Ready         bool
	Counts        logic.EventCounts
	HoldClicks    uint32
	LastEvent     *LastEvent
	ReadErrors    int
	MQTTConnected bool
	Config        Config

	StartTime time.Time
	Now       time.Time
}

// Uptime is Now minus StartTime.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker is safe for concurrent use.
type Tracker struct {
	now func() time.Time

	mu  sync.RWMutex
	cur Snapshot
}

// NewTracker starts tracking at startTime with the given display config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		now: time.Now,
		cur: Snapshot{StartTime: startTime, Config: cfg},
	}
}

func (t *Tracker) edit(fn func(s *Snapshot)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn(&t.cur)
}

// Update stores what the detector reported on the latest tick.
func (t *Tracker) Update(state logic.State, ready bool, counts logic.EventCounts, holdClicks uint32) {
	t.edit(func(s *Snapshot) {
		s.State, s.Ready = state, ready
		s.Counts = counts
		s.HoldClicks = holdClicks
	})
}

// RecordEvent remembers e as the most recent gesture.
func (t *Tracker) RecordEvent(e logic.Event) {
	last := &LastEvent{Type: e.Type, Gesture: e.Gesture(), Count: e.Count, Timestamp: e.Timestamp}
	t.edit(func(s *Snapshot) { s.LastEvent = last })
}

// RecordReadError counts a failed pin read.
func (t *Tracker) RecordReadError() {
	t.edit(func(s *Snapshot) { s.ReadErrors++ })
}

// SetTiming replaces the displayed timing after a reload.
func (t *Tracker) SetTiming(timing logic.Timing) {
	t.edit(func(s *Snapshot) { s.Config.Timing = timing })
}

func (t *Tracker) SetMQTTConnected(connected bool) {
	t.edit(func(s *Snapshot) { s.MQTTConnected = connected })
}

// Snapshot copies the tracked state and stamps it with the current time.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.cur
	t.mu.RUnlock()

	if s.LastEvent != nil {
		last := *s.LastEvent
		s.LastEvent = &last
	}
	s.Now = t.now()
	return s
}
