// Package threeofsix implements the 3-of-6 line code used by wM-Bus Mode T.
//
// Every 4-bit value is transmitted as a 6-bit codeword with exactly three
// bits set. Codewords are packed big-endian into a contiguous bitstream, two
// codewords per decoded byte, so every 2 decoded bytes occupy 3 encoded bytes.
package threeofsix

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidLength indicates the encoded input is not made of whole
	// 3-byte groups.
	ErrInvalidLength = errors.New("encoded length is not a multiple of 3")
	// ErrShortInput indicates the encoded input is too short for the
	// requested number of decoded bytes.
	ErrShortInput = errors.New("encoded input too short")
	// ErrInvalidSymbol indicates a 6-bit group is not a valid codeword.
	ErrInvalidSymbol = errors.New("invalid 3-of-6 symbol")
)

// SymbolError reports the first invalid codeword found during decoding.
type SymbolError struct {
	Index int  // symbol position in the bitstream
	Code  byte // the offending 6-bit group
}

// Error implements error.
func (e *SymbolError) Error() string {
	return fmt.Sprintf("invalid 3-of-6 symbol %06b at %d", e.Code, e.Index)
}

// Unwrap makes errors.Is(err, ErrInvalidSymbol) work.
func (e *SymbolError) Unwrap() error {
	return ErrInvalidSymbol
}

const invalid = 0xff

var (
	codewords = [16]byte{
		0x16, 0x0d, 0x0e, 0x0b, 0x1c, 0x19, 0x1a, 0x13,
		0x2c, 0x25, 0x26, 0x23, 0x34, 0x31, 0x32, 0x29,
	}

	nibbles [64]byte
)

func init() {
	for i := range nibbles {
		nibbles[i] = invalid
	}
	for n, code := range codewords {
		nibbles[code] = byte(n)
	}
}

// EncodedSize returns the number of encoded bytes carrying n decoded bytes.
func EncodedSize(n int) int {
	return (3*n + 1) / 2
}

// Decode decodes a complete encoded stream. The input must consist of whole
// 3-byte groups and every 6-bit group must be a valid codeword.
func Decode(encoded []byte) ([]byte, error) {
	if len(encoded)%3 != 0 {
		return nil, ErrInvalidLength
	}
	return decode(encoded, len(encoded)/3*2)
}

// DecodeN decodes exactly n bytes from the beginning of encoded. Bytes
// beyond EncodedSize(n) are ignored, which allows an odd n whose last
// codeword pair shares a byte with padding bits.
func DecodeN(encoded []byte, n int) ([]byte, error) {
	if n < 0 || len(encoded) < EncodedSize(n) {
		return nil, ErrShortInput
	}
	return decode(encoded, n)
}

func decode(encoded []byte, n int) ([]byte, error) {
	out := make([]byte, n)
	for i := range out {
		hi, err := symbolAt(encoded, 2*i)
		if err != nil {
			return nil, err
		}
		lo, err := symbolAt(encoded, 2*i+1)
		if err != nil {
			return nil, err
		}
		out[i] = hi<<4 | lo
	}
	return out, nil
}

// symbolAt extracts the index-th 6-bit group and maps it to its nibble.
func symbolAt(encoded []byte, index int) (byte, error) {
	bit := index * 6
	pos, shift := bit/8, bit%8
	if pos >= len(encoded) {
		return 0, ErrShortInput
	}
	word := uint16(encoded[pos]) << 8
	if shift > 2 {
		if pos+1 >= len(encoded) {
			return 0, ErrShortInput
		}
		word |= uint16(encoded[pos+1])
	}
	code := byte(word>>(10-shift)) & 0x3f
	if v := nibbles[code]; v != invalid {
		return v, nil
	}
	return 0, &SymbolError{Index: index, Code: code}
}

// Encode encodes decoded bytes. When the input has an odd length the final
// codeword pair is followed by four zero padding bits.
func Encode(decoded []byte) []byte {
	out := make([]byte, EncodedSize(len(decoded)))
	bit := 0
	put := func(code byte) {
		for i := 5; i >= 0; i-- {
			if code&(1<<uint(i)) != 0 {
				out[bit/8] |= 0x80 >> uint(bit%8)
			}
			bit++
		}
	}
	for _, b := range decoded {
		put(codewords[b>>4])
		put(codewords[b&0x0f])
	}
	return out
}
