// Package logic contains the pure button gesture logic.
// This package has NO external dependencies (no GPIO backends, MQTT, OS, or time.Sleep).
// Time is always injectable: milliseconds for Button, time.Time for Detector.
package logic

import (
	"fmt"
	"time"
)

// Timing holds the gesture thresholds in milliseconds.
type Timing struct {
	// Debounce is how long the input must stay asserted before a press counts.
	Debounce uint64
	// Hold is how long a confirmed press lasts before it becomes a hold.
	Hold uint64
	// ClickGroup is the quiet time after a release that closes a click group.
	ClickGroup uint64
	// Repeat is reserved for repeat-while-held events and is not used by Step.
	Repeat uint64
}

// DefaultTiming returns 60/500/500/400 ms.
func DefaultTiming() Timing {
	return Timing{
		Debounce:   60,
		Hold:       500,
		ClickGroup: 500,
		Repeat:     400,
	}
}

// State represents the logical state of the button.
type State string

const (
	StateReleased State = "RELEASED"
	StatePressed  State = "PRESSED"
	StateHolding  State = "HOLDING"
)

// EventType represents a recognised gesture.
type EventType string

const (
	EventPress     EventType = "PRESS"
	EventRelease   EventType = "RELEASE"
	EventClick     EventType = "CLICK"
	EventClicks    EventType = "CLICKS"
	EventHoldStart EventType = "HOLD_START"
	EventHoldEnd   EventType = "HOLD_END"
)

// Event represents a gesture to be published.
type Event struct {
	Timestamp time.Time
	Type      EventType
	// Count is the click group size (CLICKS only).
	Count uint32
	// HoldClicks is the number of taps before the hold (HOLD_START only).
	HoldClicks uint32
	// State is the button state after the step that produced the event.
	State State
}

// Gesture names a click group: SINGLE, DOUBLE, TRIPLE or MULTI.
// It is empty for events other than CLICKS.
func (e Event) Gesture() string {
	if e.Type != EventClicks {
		return ""
	}
	return GestureName(e.Count)
}

// GestureName names a click count.
func GestureName(n uint32) string {
	switch n {
	case 1:
		return "SINGLE"
	case 2:
		return "DOUBLE"
	case 3:
		return "TRIPLE"
	default:
		return "MULTI"
	}
}

func (e Event) String() string {
	switch e.Type {
	case EventClicks:
		return fmt.Sprintf("%s %s(%d)", e.Type, e.Gesture(), e.Count)
	case EventHoldStart:
		return fmt.Sprintf("%s after %d clicks", e.Type, e.HoldClicks)
	default:
		return string(e.Type)
	}
}

// EventCounts tracks the number of each event type since startup.
type EventCounts struct {
	Press     int
	Release   int
	Click     int
	Clicks    int
	HoldStart int
	HoldEnd   int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    EventCounts
}
