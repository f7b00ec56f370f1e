package wmbus

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Mode is the wM-Bus link mode a frame was received in.
type Mode byte

// Link modes.
const (
	ModeUnknown Mode = iota
	ModeT
	ModeC
)

// String implements fmt.Stringer.
func (m Mode) String() string {
	switch m {
	case ModeT:
		return "T"
	case ModeC:
		return "C"
	default:
		return "?"
	}
}

// ParseMode parses the String form of a Mode.
func ParseMode(s string) Mode {
	switch strings.ToUpper(s) {
	case "T":
		return ModeT
	case "C":
		return ModeC
	default:
		return ModeUnknown
	}
}

// Block is the frame format (A or B).
type Block byte

// Frame formats.
const (
	BlockUnknown Block = iota
	BlockA
	BlockB
)

// String implements fmt.Stringer.
func (b Block) String() string {
	switch b {
	case BlockA:
		return "A"
	case BlockB:
		return "B"
	default:
		return "?"
	}
}

// ParseBlock parses the String form of a Block.
func ParseBlock(s string) Block {
	switch strings.ToUpper(s) {
	case "A":
		return BlockA
	case "B":
		return BlockB
	default:
		return BlockUnknown
	}
}

// Frame is an immutable received telegram.
type Frame struct {
	data      []byte
	rssi      int8
	timestamp time.Time
	mode      Mode
	block     Block
}

// NewFrame creates a Frame. data is copied.
func NewFrame(data []byte, rssi int8, timestamp time.Time, mode Mode, block Block) *Frame {
	return &Frame{
		data:      append([]byte(nil), data...),
		rssi:      rssi,
		timestamp: timestamp,
		mode:      mode,
		block:     block,
	}
}

// Data returns a copy of the frame bytes.
func (f *Frame) Data() []byte {
	return append([]byte(nil), f.data...)
}

// Len returns the number of frame bytes.
func (f *Frame) Len() int {
	return len(f.data)
}

// RSSI returns the signal strength in dBm.
func (f *Frame) RSSI() int8 {
	return f.rssi
}

// Timestamp returns when the frame was completed.
func (f *Frame) Timestamp() time.Time {
	return f.timestamp
}

// Mode returns the link mode.
func (f *Frame) Mode() Mode {
	return f.mode
}

// Block returns the frame format.
func (f *Frame) Block() Block {
	return f.block
}

// Payload returns a copy of the telegram starting at the L-field.
func (f *Frame) Payload() []byte {
	data := f.data
	if f.mode == ModeC && f.block != BlockUnknown && len(data) >= 2 && data[0] == PreambleModeC {
		data = data[2:]
	}
	return append([]byte(nil), data...)
}

// Hex returns the frame bytes as upper case hex.
func (f *Frame) Hex() string {
	return strings.ToUpper(hex.EncodeToString(f.data))
}

// PayloadHex returns the payload as upper case hex.
func (f *Frame) PayloadHex() string {
	return strings.ToUpper(hex.EncodeToString(f.Payload()))
}

// RTLWMBus formats the frame as an rtl-wmbus output line.
func (f *Frame) RTLWMBus() string {
	return fmt.Sprintf("%s1;1;1;%s;%d;;;0x%s",
		f.mode, f.timestamp.UTC().Format("2006-01-02 15:04:05.000"),
		f.rssi, hex.EncodeToString(f.Payload()))
}

// LinkHeader parses the data link layer header from the payload.
func (f *Frame) LinkHeader() (LinkHeader, error) {
	return ParseLinkHeader(f.Payload())
}

// String implements fmt.Stringer.
func (f *Frame) String() string {
	return fmt.Sprintf("%s%s %d bytes %ddBm", f.mode, f.block, len(f.data), f.rssi)
}
