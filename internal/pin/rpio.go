//go:build linux

package pin

import (
	"fmt"

	"github.com/stianeikeland/go-rpio/v4"
)

// RPIOPin reads and drives a Raspberry Pi pin through /dev/gpiomem.
type RPIOPin struct {
	pin rpio.Pin
}

// NewRPIOPin maps GPIO memory and configures bcm as an input with the given bias.
func NewRPIOPin(bcm int, bias Bias) (*RPIOPin, error) {
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("open gpio memory: %w", err)
	}

	p := rpio.Pin(bcm)
	p.Input()
	switch bias {
	case PullUp:
		p.PullUp()
	case PullDown:
		p.PullDown()
	default:
		p.PullOff()
	}

	return &RPIOPin{pin: p}, nil
}

// IsHigh never fails once the memory map is open.
func (p *RPIOPin) IsHigh() (bool, error) {
	return p.pin.Read() == rpio.High, nil
}

// IsLow never fails once the memory map is open.
func (p *RPIOPin) IsLow() (bool, error) {
	return p.pin.Read() == rpio.Low, nil
}

// SetHigh switches the pin to output and drives it high.
func (p *RPIOPin) SetHigh() error {
	p.pin.Output()
	p.pin.High()
	return nil
}

// SetLow switches the pin to output and drives it low.
func (p *RPIOPin) SetLow() error {
	p.pin.Output()
	p.pin.Low()
	return nil
}

// Close returns the pin to input and unmaps GPIO memory.
func (p *RPIOPin) Close() error {
	p.pin.Input()
	if err := rpio.Close(); err != nil {
		return fmt.Errorf("close gpio memory: %w", err)
	}
	return nil
}
