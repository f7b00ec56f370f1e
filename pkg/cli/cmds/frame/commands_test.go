package frame

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/wmbus.go/pkg/wmbus"
	"github.com/robotalks/wmbus.go/pkg/wmbus/threeofsix"
)

func TestHexArg(t *testing.T) {
	data, err := hexArg([]string{"0x54cd", "05"})
	require.NoError(t, err)
	require.Equal(t, []byte{0x54, 0xcd, 0x05}, data)

	_, err = hexArg(nil)
	require.Error(t, err)
	_, err = hexArg([]string{"5g"})
	require.Error(t, err)
}

func TestClassify(t *testing.T) {
	info, err := Classify([]byte{0x54, 0x3d, 0x14, 0xff})
	require.NoError(t, err)
	require.Equal(t, &Info{Mode: "C", Block: "B", LField: 0x14, ExpectedLength: 23, DecodedLength: 23}, info)

	info, err = Classify(threeofsix.Encode([]byte{0x0a, 0x44}))
	require.NoError(t, err)
	require.Equal(t, "T", info.Mode)
	require.Equal(t, 20, info.ExpectedLength)
	require.Equal(t, 13, info.DecodedLength)

	_, err = Classify([]byte{0x54, 0x3d})
	require.Error(t, err)
	_, err = Classify([]byte{0x00, 0x00, 0x00})
	require.ErrorIs(t, err, wmbus.ErrUnclassifiableHeader)
}

func TestParse(t *testing.T) {
	tg, err := Parse("T1;1;1;2024-03-01 12:30:45.123;-81;;;0x0a4493157856341233031122", time.Now())
	require.NoError(t, err)
	require.Equal(t, "T", tg.Mode)
	require.Equal(t, -81, tg.RSSI)
	require.Equal(t, "ELS", tg.Manufacturer)
	require.Equal(t, "12345678", tg.MeterID)
	require.Equal(t, 0x33, tg.Version)
	require.Equal(t, 0x03, tg.DeviceType)
	require.Equal(t, "0A4493157856341233031122", tg.Payload)

	_, err = Parse("zz", time.Now())
	require.Error(t, err)
}
