package wmbus

import (
	"fmt"

	"github.com/robotalks/wmbus.go/pkg/wmbus/threeofsix"
)

// Mode C preamble bytes following the sync word.
const (
	PreambleModeC byte = 0x54
	MarkerBlockA  byte = 0xcd
	MarkerBlockB  byte = 0x3d
)

// HeaderSize is the number of bytes needed to classify a frame.
// Three bytes hold four 3-of-6 symbols, enough for the Mode T L-field.
const HeaderSize = 3

// Header is the result of classifying the first bytes of a frame.
type Header struct {
	Mode   Mode
	Block  Block
	LField byte
	// ExpectedLength is the number of bytes to receive after the sync word,
	// including the header itself.
	ExpectedLength int
}

// ModeTPacketSize returns the size of a format A packet carrying an L-field
// of l: the L-field itself, l bytes, and a 2 byte CRC per 16 byte block.
func ModeTPacketSize(l byte) int {
	n := int(l)
	return n + 2*((n+15)/16) + 1
}

// ClassifyHeader detects the link mode from the first HeaderSize bytes after
// the sync word. Mode C is recognized by its preamble; anything else is tried
// as 3-of-6 encoded Mode T. Errors wrap ErrUnclassifiableHeader.
func ClassifyHeader(h []byte) (Header, error) {
	if len(h) < HeaderSize {
		return Header{}, fmt.Errorf("%w: %d bytes", ErrUnclassifiableHeader, len(h))
	}
	if h[0] == PreambleModeC {
		switch h[1] {
		case MarkerBlockA:
			return Header{
				Mode:           ModeC,
				Block:          BlockA,
				LField:         h[2],
				ExpectedLength: 2 + ModeTPacketSize(h[2]),
			}, nil
		case MarkerBlockB:
			return Header{
				Mode:           ModeC,
				Block:          BlockB,
				LField:         h[2],
				ExpectedLength: 2 + 1 + int(h[2]),
			}, nil
		default:
			return Header{}, fmt.Errorf("%w: mode C marker %02x", ErrUnclassifiableHeader, h[1])
		}
	}
	decoded, err := threeofsix.Decode(h[:HeaderSize])
	if err != nil {
		return Header{}, fmt.Errorf("%w: %v", ErrUnclassifiableHeader, err)
	}
	l := decoded[0]
	hdr := Header{
		Mode:           ModeT,
		Block:          BlockA,
		LField:         l,
		ExpectedLength: threeofsix.EncodedSize(ModeTPacketSize(l)),
	}
	// the header window must not exceed the frame
	if hdr.ExpectedLength < HeaderSize {
		return Header{}, fmt.Errorf("%w: mode T L=%d", ErrUnclassifiableHeader, l)
	}
	return hdr, nil
}

// DecodedLength returns the frame length after line decoding.
func (h Header) DecodedLength() int {
	if h.Mode == ModeT {
		return ModeTPacketSize(h.LField)
	}
	return h.ExpectedLength
}
