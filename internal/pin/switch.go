package pin

import "fmt"

// Direction selects how logical states map onto electrical levels.
//
//	| Operation   | Normal   | Reverse  |
//	|-------------|----------|----------|
//	| Assert      | SetHigh  | SetLow   |
//	| Deassert    | SetLow   | SetHigh  |
//	| IsAsserted  | IsHigh   | IsLow    |
type Direction int

const (
	// Normal means high is asserted (active-high wiring).
	Normal Direction = iota
	// Reverse means low is asserted (active-low wiring, e.g. a button to
	// ground with a pull-up).
	Reverse
)

func (d Direction) String() string {
	switch d {
	case Normal:
		return "normal"
	case Reverse:
		return "reverse"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// ParseDirection converts "normal"/"active-high" or "reverse"/"active-low".
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "normal", "active-high", "high":
		return Normal, nil
	case "reverse", "active-low", "low":
		return Reverse, nil
	}
	return Normal, fmt.Errorf("unknown direction %q", s)
}

// State is the logical state of a switch.
type State int

const (
	Deasserted State = iota
	Asserted
)

func (s State) String() string {
	if s == Asserted {
		return "ASSERTED"
	}
	return "DEASSERTED"
}

// StateOf converts a logical boolean to a State.
func StateOf(asserted bool) State {
	if asserted {
		return Asserted
	}
	return Deasserted
}

// Switch wraps a raw pin so that callers deal only in logical states.
// Errors from the raw pin are returned unchanged.
type Switch struct {
	inner Input
	dir   Direction
}

// NewSwitch takes ownership of p and interprets it with the given direction.
func NewSwitch(p Input, dir Direction) Switch {
	return Switch{inner: p, dir: dir}
}

// Direction reports how the switch interprets its pin.
func (s Switch) Direction() Direction {
	return s.dir
}

// IntoInner gives back the wrapped pin.
func (s Switch) IntoInner() Input {
	return s.inner
}

// IntoNormal re-wraps the same pin with the Normal direction.
func (s Switch) IntoNormal() Switch {
	return NewSwitch(s.inner, Normal)
}

// IntoReverse re-wraps the same pin with the Reverse direction.
func (s Switch) IntoReverse() Switch {
	return NewSwitch(s.inner, Reverse)
}

// Flip re-wraps the same pin with the opposite direction. Used when the
// wiring polarity is only discovered at runtime.
func (s Switch) Flip() Switch {
	if s.dir == Normal {
		return s.IntoReverse()
	}
	return s.IntoNormal()
}

func (s Switch) output() (Output, error) {
	out, ok := s.inner.(Output)
	if !ok {
		return nil, ErrNotOutput
	}
	return out, nil
}

// Assert drives the pin to the level meaning "pressed".
func (s Switch) Assert() error {
	out, err := s.output()
	if err != nil {
		return err
	}
	if s.dir == Normal {
		return out.SetHigh()
	}
	return out.SetLow()
}

// Deassert drives the pin to the level meaning "released".
func (s Switch) Deassert() error {
	out, err := s.output()
	if err != nil {
		return err
	}
	if s.dir == Normal {
		return out.SetLow()
	}
	return out.SetHigh()
}

// SetState drives the pin to the given logical state.
func (s Switch) SetState(st State) error {
	if st == Asserted {
		return s.Assert()
	}
	return s.Deassert()
}

// IsAsserted reads the pin and reports whether it is logically pressed.
func (s Switch) IsAsserted() (bool, error) {
	if s.dir == Normal {
		return s.inner.IsHigh()
	}
	return s.inner.IsLow()
}

// IsDeasserted reads the pin and reports whether it is logically released.
func (s Switch) IsDeasserted() (bool, error) {
	if s.dir == Normal {
		return s.inner.IsLow()
	}
	return s.inner.IsHigh()
}

// ReadState reads the pin as a State.
func (s Switch) ReadState() (State, error) {
	on, err := s.IsAsserted()
	if err != nil {
		return Deasserted, err
	}
	return StateOf(on), nil
}

// The Must variants are for pins whose operations cannot fail, such as
// FakePin without an injected error. They panic otherwise.

// MustAssert is Assert for infallible pins.
func (s Switch) MustAssert() {
	if err := s.Assert(); err != nil {
		panic(err)
	}
}

// MustDeassert is Deassert for infallible pins.
func (s Switch) MustDeassert() {
	if err := s.Deassert(); err != nil {
		panic(err)
	}
}

// MustSetState is SetState for infallible pins.
func (s Switch) MustSetState(st State) {
	if err := s.SetState(st); err != nil {
		panic(err)
	}
}

// MustIsAsserted is IsAsserted for infallible pins.
func (s Switch) MustIsAsserted() bool {
	on, err := s.IsAsserted()
	if err != nil {
		panic(err)
	}
	return on
}

// MustIsDeasserted is IsDeasserted for infallible pins.
func (s Switch) MustIsDeasserted() bool {
	off, err := s.IsDeasserted()
	if err != nil {
		panic(err)
	}
	return off
}

// MustReadState is ReadState for infallible pins.
func (s Switch) MustReadState() State {
	st, err := s.ReadState()
	if err != nil {
		panic(err)
	}
	return st
}
