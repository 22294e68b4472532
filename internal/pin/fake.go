package pin

import "errors"

// FakePin is a test double that returns scripted electrical levels.
type FakePin struct {
	// Levels contains scripted raw levels (true = high).
	// Each read consumes the next level.
	Levels []bool

	// index tracks current position in Levels
	index int

	// Driven records every level written through SetHigh/SetLow.
	Driven []bool

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by IsHigh/IsLow.
	ReadError error

	// WriteError, if set, will be returned by SetHigh/SetLow.
	WriteError error
}

// NewFakePin creates a FakePin with the given raw levels.
func NewFakePin(levels ...bool) *FakePin {
	return &FakePin{Levels: levels}
}

// read returns the next scripted level.
// If levels are exhausted, returns the last level repeatedly.
func (f *FakePin) read() (bool, error) {
	if f.ReadError != nil {
		return false, f.ReadError
	}

	if len(f.Levels) == 0 {
		return false, errors.New("no levels configured")
	}

	level := f.Levels[f.index]
	if f.index < len(f.Levels)-1 {
		f.index++
	}
	return level, nil
}

// IsHigh consumes the next scripted level.
func (f *FakePin) IsHigh() (bool, error) {
	return f.read()
}

// IsLow consumes the next scripted level.
func (f *FakePin) IsLow() (bool, error) {
	high, err := f.read()
	if err != nil {
		return false, err
	}
	return !high, nil
}

// Set replaces the remaining script with a single level held indefinitely.
func (f *FakePin) Set(high bool) {
	f.Levels = []bool{high}
	f.index = 0
}

// SetHigh records a high drive. A driven level is also what reads return.
func (f *FakePin) SetHigh() error {
	if f.WriteError != nil {
		return f.WriteError
	}
	f.Driven = append(f.Driven, true)
	f.Set(true)
	return nil
}

// SetLow records a low drive.
func (f *FakePin) SetLow() error {
	if f.WriteError != nil {
		return f.WriteError
	}
	f.Driven = append(f.Driven, false)
	f.Set(false)
	return nil
}

// Close marks the pin as closed.
func (f *FakePin) Close() error {
	f.Closed = true
	return nil
}

// Reset rewinds the script to the beginning.
func (f *FakePin) Reset() {
	f.index = 0
	f.Closed = false
}
