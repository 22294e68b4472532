// Package pin provides the raw digital pin contract and the polarity adapter
// that turns electrical levels into logical "asserted"/"deasserted" states.
// The real implementations use the Linux GPIO character device or the
// Raspberry Pi GPIO memory map.
// The fake implementation allows testing without hardware.
package pin

import (
	"errors"
	"fmt"
)

// Input reads the electrical level of a pin.
type Input interface {
	IsHigh() (bool, error)
	IsLow() (bool, error)
}

// Output drives the electrical level of a pin.
type Output interface {
	SetHigh() error
	SetLow() error
}

// IO is a pin that can be both read and driven.
type IO interface {
	Input
	Output
}

// Closer is implemented by pins that hold OS resources.
type Closer interface {
	Close() error
}

// ErrNotOutput is returned when driving a pin that cannot be driven.
var ErrNotOutput = errors.New("pin: not an output")

// ErrUnsupported is returned by hardware backends on platforms that lack them.
var ErrUnsupported = errors.New("pin: not supported on this platform (requires Linux)")

// Default pin and chip (BCM numbering).
const (
	DefaultChip = "gpiochip0"
	DefaultLine = 17
)

// Bias selects the internal pull resistor of an input.
type Bias int

const (
	BiasNone Bias = iota
	PullUp
	PullDown
)

// ParseBias converts "up", "down" or "none".
func ParseBias(s string) (Bias, error) {
	switch s {
	case "up", "pull-up":
		return PullUp, nil
	case "down", "pull-down":
		return PullDown, nil
	case "none", "":
		return BiasNone, nil
	}
	return BiasNone, fmt.Errorf("unknown bias %q", s)
}

// Backend names accepted by Open.
const (
	BackendChip = "gpiocdev"
	BackendRPIO = "rpio"
	BackendFake = "fake"
)

// Open returns a raw pin from the named backend. The fake backend idles low.
func Open(backend, chip string, line int, bias Bias) (Input, error) {
	switch backend {
	case BackendChip, "":
		p, err := NewChipPin(chip, line, bias)
		if err != nil {
			return nil, err
		}
		return p, nil
	case BackendRPIO:
		p, err := NewRPIOPin(line, bias)
		if err != nil {
			return nil, err
		}
		return p, nil
	case BackendFake:
		return NewFakePin(false), nil
	}
	return nil, fmt.Errorf("unknown pin backend %q", backend)
}
