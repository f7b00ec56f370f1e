package wmbus

import (
	"errors"
	"testing"

	"github.com/robotalks/wmbus.go/pkg/wmbus/threeofsix"
	"github.com/stretchr/testify/require"
)

func TestModeTPacketSize(t *testing.T) {
	tests := []struct {
		l      byte
		expect int
	}{
		{0, 1},
		{5, 8},
		{15, 18},
		{16, 19},
		{17, 22},
		{32, 37},
		{255, 288},
	}
	for _, test := range tests {
		require.Equal(t, test.expect, ModeTPacketSize(test.l), "L=%d", test.l)
	}
}

func TestClassifyHeader(t *testing.T) {
	tests := []struct {
		name   string
		in     []byte
		expect Header
	}{
		{
			name:   "mode C block A",
			in:     []byte{0x54, 0xcd, 0x05},
			expect: Header{Mode: ModeC, Block: BlockA, LField: 5, ExpectedLength: 10},
		},
		{
			name:   "mode C block B",
			in:     []byte{0x54, 0x3d, 0x14},
			expect: Header{Mode: ModeC, Block: BlockB, LField: 0x14, ExpectedLength: 23},
		},
		{
			name:   "mode T",
			in:     threeofsix.Encode([]byte{0x0a, 0x44}),
			expect: Header{Mode: ModeT, Block: BlockA, LField: 0x0a, ExpectedLength: 20},
		},
		{
			name:   "mode C block A L=0",
			in:     []byte{0x54, 0xcd, 0x00},
			expect: Header{Mode: ModeC, Block: BlockA, LField: 0, ExpectedLength: 3},
		},
		{
			name:   "mode C block B L=0",
			in:     []byte{0x54, 0x3d, 0x00},
			expect: Header{Mode: ModeC, Block: BlockB, LField: 0, ExpectedLength: 3},
		},
		{
			name:   "mode T L=1",
			in:     threeofsix.Encode([]byte{0x01, 0x44}),
			expect: Header{Mode: ModeT, Block: BlockA, LField: 1, ExpectedLength: 6},
		},
		{
			name:   "mode T with margin byte",
			in:     append(threeofsix.Encode([]byte{0x2e, 0x44}), 0xff),
			expect: Header{Mode: ModeT, Block: BlockA, LField: 0x2e, ExpectedLength: 80},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			h, err := ClassifyHeader(test.in)
			require.NoError(t, err)
			require.Equal(t, test.expect, h)
		})
	}
}

func TestClassifyHeaderUnclassifiable(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
	}{
		{"short", []byte{0x54, 0xcd}},
		{"bad mode C marker", []byte{0x54, 0x00, 0x05}},
		{"not 3-of-6", []byte{0x00, 0x00, 0x00}},
		{"mode T L=0 shorter than header", threeofsix.Encode([]byte{0x00, 0x00})},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := ClassifyHeader(test.in)
			require.True(t, errors.Is(err, ErrUnclassifiableHeader), "%v", err)
		})
	}
}

func TestHeaderDecodedLength(t *testing.T) {
	h, err := ClassifyHeader(threeofsix.Encode([]byte{0x0a, 0x44}))
	require.NoError(t, err)
	require.Equal(t, 13, h.DecodedLength())
	h, err = ClassifyHeader([]byte{0x54, 0xcd, 0x05})
	require.NoError(t, err)
	require.Equal(t, 10, h.DecodedLength())
}
