package cc1101

import (
	"errors"
	"fmt"
)

var (
	// ErrChipUnresponsive indicates the chip reported a version byte that
	// means nothing answered on the bus.
	ErrChipUnresponsive = errors.New("cc1101 not responding")
	// ErrFrequencyRange indicates a carrier frequency the chip can't tune.
	ErrFrequencyRange = errors.New("frequency out of range")
)

// RegisterMismatchError reports a register reading back a different value
// than written.
type RegisterMismatchError struct {
	Reg  Register
	Want byte
	Got  byte
}

// Error implements error.
func (e *RegisterMismatchError) Error() string {
	return fmt.Sprintf("register %#02x: wrote %#02x, read %#02x", byte(e.Reg), e.Want, e.Got)
}
