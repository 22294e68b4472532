package logic

import (
	"fmt"

	"github.com/sweeney/button-sensor/internal/clock"
	"github.com/sweeney/button-sensor/internal/pin"
)

// ReadError is returned by Step when the pin could not be sampled.
// The button state is left untouched.
type ReadError struct {
	Err error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("button: read pin: %v", e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// flags holds the sticky one-shot events and internal markers.
type flags struct {
	debouncing   bool
	hold         bool // hold already started for the current press
	holdingNow   bool
	tapInFlight  bool
	groupReady   bool
	ackRequested bool

	press       bool
	release     bool
	singleClick bool
	holdStarted bool
}

// Button is a debounced multi-gesture detector over a single switch.
// It is driven by Step and drained through its accessors. It is not safe for
// concurrent use.
type Button struct {
	sw     pin.Switch
	timing Timing
	flags  flags

	lastEdge   uint64
	level      bool
	confirmed  bool
	pending    uint32
	finalized  uint32
	holdClicks uint32

	autoTick    clock.Uptime
	autoTickErr error
}

// NewButton takes ownership of sw with default timing.
func NewButton(sw pin.Switch) *Button {
	return &Button{sw: sw, timing: DefaultTiming()}
}

// Switch gives back the wrapped switch.
func (b *Button) Switch() pin.Switch {
	return b.sw
}

// Timing returns the active timing.
func (b *Button) Timing() Timing {
	return b.timing
}

// SetTiming replaces all timing values at once.
func (b *Button) SetTiming(t Timing) {
	b.timing = t
}

func (b *Button) SetDebounce(ms uint64)       { b.timing.Debounce = ms }
func (b *Button) SetHoldTimeout(ms uint64)    { b.timing.Hold = ms }
func (b *Button) SetClickTimeout(ms uint64)   { b.timing.ClickGroup = ms }
func (b *Button) SetRepeatInterval(ms uint64) { b.timing.Repeat = ms }

// SetAutoTick makes every accessor step the button first, reading now from
// src. A nil src turns auto-tick off.
func (b *Button) SetAutoTick(src clock.Uptime) {
	b.autoTick = src
	b.autoTickErr = nil
}

// AutoTickErr returns the error from the most recent auto-tick, if any.
func (b *Button) AutoTickErr() error {
	return b.autoTickErr
}

// elapsed is now - since, saturating at zero.
func elapsed(now, since uint64) uint64 {
	if now < since {
		return 0
	}
	return now - since
}

// Step samples the switch once and advances the state machine to nowMs.
// It must be called several times per debounce period.
func (b *Button) Step(nowMs uint64) error {
	level, err := b.sw.IsAsserted()
	if err != nil {
		return &ReadError{Err: err}
	}
	b.level = level

	// press
	if b.level && !b.confirmed {
		if !b.flags.debouncing {
			b.flags.debouncing = true
			b.lastEdge = nowMs
		} else if elapsed(nowMs, b.lastEdge) >= b.timing.Debounce {
			b.confirmed = true
			b.flags.press = true
			b.flags.tapInFlight = true
		}
	} else {
		b.flags.debouncing = false
	}

	// release
	if !b.level && b.confirmed {
		b.confirmed = false
		if !b.flags.hold {
			b.pending++
		}
		b.flags.hold = false
		b.flags.release = true
		b.lastEdge = nowMs
		if b.flags.holdingNow {
			b.pending = 0
			b.flags.holdingNow = false
		}
		if b.flags.tapInFlight {
			b.flags.tapInFlight = false
			b.flags.singleClick = true
		}
	}

	// hold
	if b.confirmed && b.level && !b.flags.hold &&
		elapsed(nowMs, b.lastEdge) >= b.timing.Hold {
		b.flags.hold = true
		b.holdClicks = b.pending
		b.pending = 0
		b.flags.holdStarted = true
		b.flags.holdingNow = true
		b.flags.tapInFlight = false
		b.lastEdge = nowMs
	}

	// click group
	if !b.level && b.pending != 0 &&
		elapsed(nowMs, b.lastEdge) >= b.timing.ClickGroup {
		b.finalized = b.pending
		b.pending = 0
		b.flags.groupReady = true
	}

	if b.flags.ackRequested {
		b.finalized = 0
		b.flags.groupReady = false
		b.flags.ackRequested = false
	}

	return nil
}

// Tick steps the button with the current reading of src.
func (b *Button) Tick(src clock.Uptime) error {
	return b.Step(clock.Millis(src.Uptime()))
}

// MustTick is Tick for switches over infallible pins. It panics on error.
func (b *Button) MustTick(src clock.Uptime) {
	if err := b.Tick(src); err != nil {
		panic(err)
	}
}

func (b *Button) maybeTick() {
	if b.autoTick == nil {
		return
	}
	b.autoTickErr = b.Tick(b.autoTick)
}

func take(f *bool) bool {
	v := *f
	*f = false
	return v
}

// TookPress reports a confirmed press once.
func (b *Button) TookPress() bool {
	b.maybeTick()
	return take(&b.flags.press)
}

// TookRelease reports a release of a confirmed press once.
func (b *Button) TookRelease() bool {
	b.maybeTick()
	return take(&b.flags.release)
}

// TookSingleClick reports once that a tap was released without becoming a hold.
func (b *Button) TookSingleClick() bool {
	b.maybeTick()
	return take(&b.flags.singleClick)
}

// TookHoldStarted reports once that a press crossed the hold timeout.
func (b *Button) TookHoldStarted() bool {
	b.maybeTick()
	return take(&b.flags.holdStarted)
}

// IsHoldingNow is true for the whole duration of an active hold.
func (b *Button) IsHoldingNow() bool {
	b.maybeTick()
	return b.flags.holdingNow
}

// IsPressedNow reports the last sampled level.
func (b *Button) IsPressedNow() bool {
	b.maybeTick()
	return b.level
}

// IsExactly reports whether a finished click group of exactly n taps is
// waiting. A true result acknowledges the group on the next Step.
func (b *Button) IsExactly(n uint32) bool {
	b.maybeTick()
	if b.flags.groupReady && b.finalized == n {
		b.flags.ackRequested = true
		return true
	}
	return false
}

func (b *Button) IsSingle() bool { return b.IsExactly(1) }
func (b *Button) IsDouble() bool { return b.IsExactly(2) }
func (b *Button) IsTriple() bool { return b.IsExactly(3) }

// HasAnyClicks reports whether a finished click group is waiting and
// acknowledges it.
func (b *Button) HasAnyClicks() bool {
	b.maybeTick()
	if b.flags.groupReady {
		b.flags.ackRequested = true
		return true
	}
	return false
}

// TakeClickCount returns the finished click group size (0 if none) and
// acknowledges it.
func (b *Button) TakeClickCount() uint32 {
	b.maybeTick()
	b.flags.ackRequested = true
	return b.finalized
}

// TakeHoldClickCount returns how many taps preceded the most recent hold.
// It is not cleared.
func (b *Button) TakeHoldClickCount() uint32 {
	b.maybeTick()
	return b.holdClicks
}

// PendingClicks returns taps counted in the open click group.
func (b *Button) PendingClicks() uint32 {
	return b.pending
}

// ResetAll returns every event flag and counter to idle. The debounced level
// and the state of the press in progress are kept, so a button held across
// the reset is neither reported as a new press nor left half-counted.
func (b *Button) ResetAll() {
	b.flags = flags{
		debouncing:  b.flags.debouncing,
		hold:        b.flags.hold,
		tapInFlight: b.flags.tapInFlight,
	}
	b.pending = 0
	b.finalized = 0
	b.holdClicks = 0
	b.autoTickErr = nil
}
