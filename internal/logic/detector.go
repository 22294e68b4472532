package logic

import "time"

// Detector steps a Button and turns its accessors into a stream of events.
type Detector struct {
	button        *Button
	startTime     time.Time
	ready         bool
	wasHolding    bool
	eventCounts   EventCounts
	lastHeartbeat time.Time
}

// NewDetector creates a new gesture detector around b.
// The startTime is the epoch for the button clock and for uptime in
// heartbeat events.
func NewDetector(b *Button, startTime time.Time) *Detector {
	return &Detector{
		button:        b,
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
}

// Button returns the underlying button.
func (d *Detector) Button() *Button {
	return d.button
}

// Process samples the button at now and returns any events that should be
// emitted. A read error is returned unchanged and produces no events.
func (d *Detector) Process(now time.Time) ([]Event, error) {
	ms := uint64(0)
	if since := now.Sub(d.startTime); since > 0 {
		ms = uint64(since / time.Millisecond)
	}

	if err := d.button.Step(ms); err != nil {
		return nil, err
	}
	d.ready = true

	b := d.button
	state := d.currentState()

	var events []Event
	emit := func(e Event) {
		e.Timestamp = now
		e.State = state
		events = append(events, e)
	}

	if b.TookPress() {
		emit(Event{Type: EventPress})
	}
	if b.TookHoldStarted() {
		emit(Event{Type: EventHoldStart, HoldClicks: b.TakeHoldClickCount()})
	}
	if b.TookRelease() {
		emit(Event{Type: EventRelease})
	}
	holding := b.IsHoldingNow()
	if d.wasHolding && !holding {
		emit(Event{Type: EventHoldEnd})
	}
	d.wasHolding = holding
	if b.TookSingleClick() {
		emit(Event{Type: EventClick})
	}
	if b.HasAnyClicks() {
		emit(Event{Type: EventClicks, Count: b.TakeClickCount()})
	}

	// Count events
	for _, e := range events {
		switch e.Type {
		case EventPress:
			d.eventCounts.Press++
		case EventRelease:
			d.eventCounts.Release++
		case EventClick:
			d.eventCounts.Click++
		case EventClicks:
			d.eventCounts.Clicks++
		case EventHoldStart:
			d.eventCounts.HoldStart++
		case EventHoldEnd:
			d.eventCounts.HoldEnd++
		}
	}

	return events, nil
}

// Reconfigure applies new timing and resets all gesture state.
func (d *Detector) Reconfigure(t Timing) {
	d.button.SetTiming(t)
	d.button.ResetAll()
	d.wasHolding = false
}

func (d *Detector) currentState() State {
	switch {
	case d.button.flags.holdingNow:
		return StateHolding
	case d.button.confirmed:
		return StatePressed
	default:
		return StateReleased
	}
}

// IsReady returns whether the detector has sampled the pin successfully.
func (d *Detector) IsReady() bool {
	return d.ready
}

// CurrentState returns the debounced button state.
func (d *Detector) CurrentState() State {
	return d.currentState()
}

// EventCountsSnapshot returns the event counts since startup.
func (d *Detector) EventCountsSnapshot() EventCounts {
	return d.eventCounts
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if not yet ready, if the
// interval has not elapsed, or if interval is <= 0 (disabled).
func (d *Detector) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if !d.ready {
		return nil
	}

	if now.Sub(d.lastHeartbeat) < interval {
		return nil
	}

	d.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(d.startTime),
		Counts:    d.eventCounts,
	}
}
