package cc1101

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/wmbus.go/pkg/wmbus"
	"github.com/robotalks/wmbus.go/pkg/wmbus/threeofsix"
)

type engineTest struct {
	*testing.T
	chip   *fakeChip
	clock  *fakeClock
	engine *Engine
}

func newEngineTest(t *testing.T) *engineTest {
	chip := newFakeChip()
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	e := NewEngine(chip, chip)
	e.Now = clock.Now
	e.Sleep = func(time.Duration) {}
	return &engineTest{T: t, chip: chip, clock: clock, engine: e}
}

// started runs InitRx.
func (t *engineTest) started() *engineTest {
	require.Nil(t, t.engine.Poll())
	require.Equal(t, StateWaitForSync, t.engine.State())
	require.True(t, t.engine.Initialized())
	return t
}

func (t *engineTest) poll(expect State) *wmbus.Frame {
	f := t.engine.Poll()
	require.Equal(t, expect, t.engine.State())
	return f
}

// frameReady checks the completed frame invariants.
func (t *engineTest) frameReady(f *wmbus.Frame) *wmbus.Frame {
	require.NotNil(t, f)
	require.Equal(t, StateInitRx, t.engine.State())
	require.Equal(t, t.engine.header.ExpectedLength, t.engine.received)
	require.Len(t, t.engine.buf, t.engine.received)
	require.False(t, t.chip.underrun)
	return f
}

func testPayload(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i + 1)
	}
	return data
}

func TestInitRx(t *testing.T) {
	et := newEngineTest(t).started()
	require.Equal(t, fifoThresholdInit, et.chip.regs[FIFOTHR])
	require.Equal(t, pktctrl0Infinite, et.chip.regs[PKTCTRL0])
	require.Equal(t, []Strobe{SIDLE, SFTX, SFRX, SRX}, et.chip.strobes)
	require.Equal(t, MarcStateRx, et.chip.marc)
	require.Equal(t, uint64(0), et.engine.Stats().Restarts)
}

func TestInitRxNotConfirmed(t *testing.T) {
	chip := &stuckMarcChip{fakeChip: newFakeChip(), marc: MarcStateRxOverflow}
	e := NewEngine(chip, chip)
	sleeps := 0
	e.Sleep = func(time.Duration) { sleeps++ }
	require.Nil(t, e.Poll())
	require.Equal(t, StateWaitForSync, e.State())
	require.Equal(t, 2*marcStateChecks, sleeps)
}

type stuckMarcChip struct {
	*fakeChip
	marc byte
}

func (c *stuckMarcChip) ReadStatus(reg Status) byte {
	if reg == MARCSTATE {
		return c.marc
	}
	return c.fakeChip.ReadStatus(reg)
}

func TestModeCBlockA(t *testing.T) {
	et := newEngineTest(t).started()
	et.chip.sync, et.chip.data = true, true
	et.chip.feed(0x54, 0xcd, 0x05).feed(testPayload(7)...)

	f := et.frameReady(et.poll(StateInitRx))
	require.Equal(t, append([]byte{0x54, 0xcd, 0x05}, testPayload(7)...), f.Data())
	require.Equal(t, wmbus.ModeC, f.Mode())
	require.Equal(t, wmbus.BlockA, f.Block())
	require.Equal(t, 10, et.engine.header.ExpectedLength)
	require.Equal(t, byte(10), et.chip.regs[PKTLEN])
	require.Equal(t, pktctrl0Fixed, et.chip.regs[PKTCTRL0])
	require.Equal(t, fifoThresholdRead, et.chip.regs[FIFOTHR])
	require.Equal(t, et.clock.now, f.Timestamp())
	require.Equal(t, uint64(1), et.engine.Stats().Frames)

	et.poll(StateWaitForSync)
	require.Equal(t, uint64(1), et.engine.Stats().Restarts)
}

func TestModeCBlockBInChunks(t *testing.T) {
	et := newEngineTest(t).started()
	et.chip.sync = true
	et.poll(StateWaitForData)

	et.chip.data = true
	et.chip.rssi = 0xf0
	et.chip.feed(0x54, 0x3d, 0x0a, 1, 2, 3)
	require.Nil(t, et.poll(StateReadData))
	// one byte withheld
	require.Equal(t, 5, et.engine.received)
	require.Len(t, et.chip.fifo, 1)

	et.chip.feed(4, 5)
	require.Nil(t, et.poll(StateReadData))
	require.Equal(t, 7, et.engine.received)

	et.chip.feed(6, 7, 8, 9, 10)
	f := et.frameReady(et.poll(StateInitRx))
	require.Equal(t, []byte{0x54, 0x3d, 0x0a, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, f.Data())
	require.Equal(t, wmbus.BlockB, f.Block())
	require.Equal(t, int8(-82), f.RSSI())
}

func TestModeT(t *testing.T) {
	et := newEngineTest(t).started()
	decoded := append([]byte{0x0a}, testPayload(12)...)
	encoded := threeofsix.Encode(decoded)
	require.Len(t, encoded, 20)

	et.chip.sync, et.chip.data = true, true
	et.chip.feed(encoded...)
	f := et.frameReady(et.poll(StateInitRx))
	require.Equal(t, decoded, f.Data())
	require.Equal(t, wmbus.ModeT, f.Mode())
	require.Equal(t, 20, et.engine.received)
}

func TestModeTDecodeFailure(t *testing.T) {
	et := newEngineTest(t).started()
	encoded := threeofsix.Encode(append([]byte{0x0a}, testPayload(12)...))
	encoded[10] = 0x00

	et.chip.sync, et.chip.data = true, true
	et.chip.feed(encoded...)
	require.Nil(t, et.poll(StateInitRx))
	require.Equal(t, uint64(1), et.engine.Stats().DecodeFailures)
	require.Equal(t, uint64(0), et.engine.Stats().Frames)
}

func TestResidualBytesDiscarded(t *testing.T) {
	et := newEngineTest(t).started()
	et.chip.sync, et.chip.data = true, true
	et.chip.feed(0x54, 0x3d, 0x02, 0xaa, 0xbb).feed(0xee, 0xee)
	f := et.frameReady(et.poll(StateInitRx))
	require.Equal(t, []byte{0x54, 0x3d, 0x02, 0xaa, 0xbb}, f.Data())
	require.Empty(t, et.chip.fifo)
	require.Equal(t, uint64(2), et.engine.Stats().ResidualBytes)
}

func TestUnclassifiableHeaderRetries(t *testing.T) {
	et := newEngineTest(t).started()
	et.chip.sync, et.chip.data = true, true
	et.chip.feed(0x54, 0x00, 0x05, 0x00)
	require.Nil(t, et.poll(StateWaitForData))
	require.Equal(t, []int{3}, et.chip.fifoReads)
	require.Equal(t, uint64(0), et.engine.Stats().Restarts)

	// not enough bytes for another header
	require.Nil(t, et.poll(StateWaitForData))
	require.Equal(t, []int{3}, et.chip.fifoReads)
}

func TestModeTZeroLFieldRecovers(t *testing.T) {
	et := newEngineTest(t).started()
	et.chip.sync, et.chip.data = true, true
	et.chip.feed(threeofsix.Encode([]byte{0x00, 0x00})...)

	done := make(chan *wmbus.Frame, 1)
	go func() { done <- et.engine.Poll() }()
	select {
	case f := <-done:
		require.Nil(t, f)
	case <-time.After(2 * time.Second):
		t.Fatal("Poll blocked on a header shorter than its window")
	}
	require.Equal(t, StateWaitForData, et.engine.State())
	require.Equal(t, 0, et.engine.received)

	et.clock.advance(DefaultSyncTimeout + time.Millisecond)
	et.poll(StateInitRx)
	et.poll(StateWaitForSync)
	require.Equal(t, uint64(0), et.engine.Stats().Frames)
}

func TestHeaderOnlyFrame(t *testing.T) {
	et := newEngineTest(t).started()
	et.chip.sync, et.chip.data = true, true
	et.chip.feed(0x54, 0x3d, 0x00)
	f := et.frameReady(et.poll(StateInitRx))
	require.Equal(t, []byte{0x54, 0x3d, 0x00}, f.Data())
	require.Equal(t, 3, et.engine.received)
}

func TestReadDataPastExpectedAborts(t *testing.T) {
	et := newEngineTest(t).started()
	et.engine.header = wmbus.Header{Mode: wmbus.ModeC, Block: wmbus.BlockB, ExpectedLength: 2}
	et.engine.buf = append(et.engine.buf[:0], 0x54, 0x3d, 0x00)
	et.engine.received = 3
	et.engine.state = StateReadData
	et.chip.feed(1, 2, 3)

	require.Nil(t, et.poll(StateInitRx))
	require.Equal(t, uint64(0), et.engine.Stats().Frames)
}

func TestNoiseFlushedWithoutSync(t *testing.T) {
	et := newEngineTest(t).started()
	et.chip.feed(make([]byte, 40)...)
	require.Nil(t, et.poll(StateWaitForSync))
	require.Empty(t, et.chip.fifo)

	et.chip.feed(make([]byte, 20)...)
	require.Nil(t, et.poll(StateWaitForSync))
	require.Len(t, et.chip.fifo, 20)
}

func TestSyncTimeout(t *testing.T) {
	et := newEngineTest(t).started()
	et.chip.sync = true
	et.poll(StateWaitForData)
	et.clock.advance(DefaultSyncTimeout)
	et.poll(StateWaitForData)
	et.clock.advance(time.Millisecond)
	et.poll(StateInitRx)
	require.Equal(t, uint64(1), et.engine.Stats().SyncTimeouts)
}

func TestOverflowRestarts(t *testing.T) {
	tests := []struct {
		name  string
		setup func(et *engineTest)
	}{
		{"WaitForSync", func(et *engineTest) {}},
		{"WaitForData", func(et *engineTest) {
			et.chip.sync = true
			et.poll(StateWaitForData)
			et.chip.data = true
		}},
		{"ReadData", func(et *engineTest) {
			et.chip.sync, et.chip.data = true, true
			et.chip.feed(0x54, 0xcd, 0x20, 1, 2, 3)
			et.poll(StateReadData)
		}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			et := newEngineTest(t).started()
			test.setup(et)
			et.chip.overflow = true
			require.Nil(t, et.poll(StateInitRx))
			require.Equal(t, uint64(1), et.engine.Stats().Overflows)
			et.poll(StateWaitForSync)
			require.False(t, et.chip.overflow)
		})
	}
}

func TestHighWaterDrainsAll(t *testing.T) {
	et := newEngineTest(t).started()
	et.chip.sync, et.chip.data = true, true
	// L=200: 2 + 200 + 26 + 1 bytes
	et.chip.feed(0x54, 0xcd, 200).feed(testPayload(60)...)
	require.Nil(t, et.poll(StateReadData))
	require.Equal(t, 229, et.engine.header.ExpectedLength)
	require.Equal(t, []int{3, 60}, et.chip.fifoReads)
	require.Equal(t, 63, et.engine.received)
}

func TestLongFrameSwitchesToFixedLength(t *testing.T) {
	et := newEngineTest(t).started()
	et.chip.sync, et.chip.data = true, true
	et.chip.feed(0x54, 0xcd, 0xff)
	require.Nil(t, et.poll(StateReadData))
	require.Equal(t, 290, et.engine.header.ExpectedLength)
	require.Equal(t, pktctrl0Infinite, et.chip.regs[PKTCTRL0])

	et.chip.feed(make([]byte, 40)...)
	require.Nil(t, et.poll(StateReadData))
	require.Equal(t, 42, et.engine.received)
	require.Equal(t, pktctrl0Fixed, et.chip.regs[PKTCTRL0])
	require.Equal(t, byte(290-256), et.chip.regs[PKTLEN])

	for et.engine.State() == StateReadData {
		et.chip.feed(make([]byte, 40)...)
		et.engine.Poll()
	}
	require.Equal(t, uint64(1), et.engine.Stats().Frames)
}

func TestFrameTooLarge(t *testing.T) {
	et := newEngineTest(t).started()
	et.engine.MaxFrameSize = 100
	et.chip.sync, et.chip.data = true, true
	et.chip.feed(0x54, 0xcd, 200)
	require.Nil(t, et.poll(StateInitRx))
	require.Equal(t, uint64(1), et.engine.Stats().TooLarge)
}

func TestBusErrorRestarts(t *testing.T) {
	et := newEngineTest(t).started()
	et.chip.sync = true
	et.chip.err = errors.New("spi failure")
	require.Nil(t, et.poll(StateInitRx))
	require.Equal(t, uint64(1), et.engine.Stats().BusErrors)
}

func TestHealthCheck(t *testing.T) {
	et := newEngineTest(t).started()
	et.clock.advance(DefaultHealthInterval)
	et.poll(StateWaitForSync)

	et.chip.marc = MarcStateIdle
	et.clock.advance(time.Second)
	et.poll(StateWaitForSync)
	et.clock.advance(DefaultHealthInterval)
	et.poll(StateInitRx)
	et.poll(StateWaitForSync)
	require.Equal(t, MarcStateRx, et.chip.marc)
}

func TestDrainSize(t *testing.T) {
	tests := []struct {
		occupancy, remaining, expect int
	}{
		{60, 100, 60},
		{49, 100, 49},
		{60, 20, 20},
		{48, 100, 47},
		{10, 10, 10},
		{10, 5, 5},
		{10, 20, 9},
		{1, 20, 0},
		{0, 20, 0},
		{0, 0, 0},
		{10, 0, 0},
		{10, -1, 0},
	}
	for _, test := range tests {
		require.Equal(t, test.expect, drainSize(test.occupancy, test.remaining),
			"occupancy=%d remaining=%d", test.occupancy, test.remaining)
	}
}

func TestConvertRSSI(t *testing.T) {
	require.Equal(t, int8(-74), ConvertRSSI(0x00))
	require.Equal(t, int8(-11), ConvertRSSI(0x7f))
	require.Equal(t, int8(-82), ConvertRSSI(0xf0))
	require.Equal(t, int8(-128), ConvertRSSI(0x80))
}
