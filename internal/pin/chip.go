//go:build linux

package pin

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// line is the subset of *gpiocdev.Line a ChipPin uses.
type line interface {
	Value() (int, error)
	SetValue(value int) error
	Reconfigure(options ...gpiocdev.LineConfigOption) error
	Close() error
}

// ChipPin reads and drives a line on the Linux GPIO character device.
// The line starts as an input and becomes an output on the first
// SetHigh or SetLow.
type ChipPin struct {
	chip   *gpiocdev.Chip
	line   line
	bias   Bias
	output bool
}

// NewChipPin requests offset on the named chip as an input with the given bias.
func NewChipPin(chipName string, offset int, bias Bias) (*ChipPin, error) {
	chip, err := gpiocdev.NewChip(chipName, gpiocdev.WithConsumer("button-sensor"))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	l, err := chip.RequestLine(offset, gpiocdev.AsInput, biasOption(bias))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request line %d: %w", offset, err)
	}

	return &ChipPin{chip: chip, line: l, bias: bias}, nil
}

func biasOption(b Bias) gpiocdev.LineBias {
	switch b {
	case PullUp:
		return gpiocdev.WithPullUp
	case PullDown:
		return gpiocdev.WithPullDown
	default:
		return gpiocdev.WithBiasDisabled
	}
}

// IsHigh reports whether the line reads active (1).
func (p *ChipPin) IsHigh() (bool, error) {
	v, err := p.line.Value()
	if err != nil {
		return false, fmt.Errorf("read line: %w", err)
	}
	return v == 1, nil
}

// IsLow reports whether the line reads inactive (0).
func (p *ChipPin) IsLow() (bool, error) {
	high, err := p.IsHigh()
	return !high, err
}

// SetHigh drives the line to 1.
func (p *ChipPin) SetHigh() error {
	return p.drive(1)
}

// SetLow drives the line to 0.
func (p *ChipPin) SetLow() error {
	return p.drive(0)
}

func (p *ChipPin) drive(v int) error {
	if !p.output {
		if err := p.line.Reconfigure(gpiocdev.AsOutput(v)); err != nil {
			return fmt.Errorf("reconfigure line as output: %w", err)
		}
		p.output = true
		return nil
	}
	if err := p.line.SetValue(v); err != nil {
		return fmt.Errorf("set line: %w", err)
	}
	return nil
}

// Close returns the line to an input with its original bias and releases it.
func (p *ChipPin) Close() error {
	var errs []error

	if p.line != nil {
		if err := p.line.Reconfigure(gpiocdev.AsInput, biasOption(p.bias)); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure line: %w", err))
		}
		if err := p.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close line: %w", err))
		}
	}
	if p.chip != nil {
		if err := p.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
