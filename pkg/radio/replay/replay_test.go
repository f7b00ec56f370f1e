package replay

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const capture = `
# captured on the bench
543D3D0344AABB
T1;1;1;2024-03-01 12:30:45.123;-81;;;0x0a4493157856341233031122
`

func TestLoad(t *testing.T) {
	frames, err := Load(strings.NewReader(capture))
	require.NoError(t, err)
	require.Len(t, frames, 2)
	require.Equal(t, "CB", frames[0].Mode().String()+frames[0].Block().String())
	require.Equal(t, int8(-81), frames[1].RSSI())

	_, err = Load(strings.NewReader("543D\nnot hex\n"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "line 2")
}

func TestTransceiver(t *testing.T) {
	frames, err := Load(strings.NewReader(capture))
	require.NoError(t, err)
	now := time.Unix(1700000000, 0)
	tr := New(frames)
	tr.Now = func() time.Time { return now }
	tr.RestartRx()

	require.Nil(t, tr.ReadFrame())
	now = now.Add(DefaultInterval)
	f := tr.ReadFrame()
	require.NotNil(t, f)
	require.Equal(t, frames[0].Data(), f.Data())
	require.Equal(t, now, f.Timestamp())
	require.Nil(t, tr.ReadFrame())

	now = now.Add(DefaultInterval)
	require.NotNil(t, tr.ReadFrame())
	require.Equal(t, int8(-81), tr.RSSI())
	now = now.Add(DefaultInterval)
	require.Nil(t, tr.ReadFrame())

	tr.Loop = true
	require.Equal(t, frames[0].Data(), tr.ReadFrame().Data())
	require.True(t, tr.Idle())
	require.False(t, tr.HasInterrupt())
}
