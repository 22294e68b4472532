//go:build !linux

package pin

// ChipPin is not available on non-Linux platforms.
type ChipPin struct{}

// NewChipPin returns ErrUnsupported on non-Linux platforms.
func NewChipPin(chipName string, offset int, bias Bias) (*ChipPin, error) {
	return nil, ErrUnsupported
}

func (p *ChipPin) IsHigh() (bool, error) { return false, ErrUnsupported }
func (p *ChipPin) IsLow() (bool, error)  { return false, ErrUnsupported }
func (p *ChipPin) SetHigh() error        { return ErrUnsupported }
func (p *ChipPin) SetLow() error         { return ErrUnsupported }
func (p *ChipPin) Close() error          { return nil }

// RPIOPin is not available on non-Linux platforms.
type RPIOPin struct{}

// NewRPIOPin returns ErrUnsupported on non-Linux platforms.
func NewRPIOPin(bcm int, bias Bias) (*RPIOPin, error) {
	return nil, ErrUnsupported
}

func (p *RPIOPin) IsHigh() (bool, error) { return false, ErrUnsupported }
func (p *RPIOPin) IsLow() (bool, error)  { return false, ErrUnsupported }
func (p *RPIOPin) SetHigh() error        { return ErrUnsupported }
func (p *RPIOPin) SetLow() error         { return ErrUnsupported }
func (p *RPIOPin) Close() error          { return nil }
