package cc1101

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/wmbus.go/pkg/wmbus"
	"github.com/robotalks/wmbus.go/pkg/wmbus/threeofsix"
)

// State is the state of the receive Engine.
type State int

const (
	StateInitRx      State = iota // restart the receiver
	StateWaitForSync              // listening for a sync word
	StateWaitForData              // sync seen, waiting for the header bytes
	StateReadData                 // frame length known, draining the FIFO
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateInitRx:
		return "InitRx"
	case StateWaitForSync:
		return "WaitForSync"
	case StateWaitForData:
		return "WaitForData"
	case StateReadData:
		return "ReadData"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// LengthMode is the packet length configuration of the chip.
type LengthMode int

const (
	LengthInfinite LengthMode = iota
	LengthFixed
)

// Signals are the chip's GDO lines.
type Signals interface {
	// SyncDetected is GDO2: asserted from sync word to end of packet.
	SyncDetected() bool
	// DataReady is GDO0: asserted while the RX FIFO is at or above FIFOTHR.
	DataReady() bool
}

const (
	// DefaultSyncTimeout bounds the wait for header bytes after a sync word.
	DefaultSyncTimeout = 50 * time.Millisecond
	// DefaultHealthInterval is how often the chip state is checked while
	// waiting for a sync word.
	DefaultHealthInterval = 10 * time.Second
	// DefaultMaxFrameSize caps the session buffer.
	DefaultMaxFrameSize = 512

	// PKTLEN is 8 bits, longer frames start in infinite mode.
	fixedLengthCeiling = 256
	// FIFO occupancy without a sync word considered noise.
	syncDrainThreshold = 32
	// Above this the FIFO is drained completely.
	highWaterMark = 48

	fifoThresholdInit byte = 0x01 // 8 bytes, covers the header window
	fifoThresholdRead byte = 0x00 // 4 bytes

	pktctrl0Fixed    byte = 0x00
	pktctrl0Infinite byte = 0x02

	marcStateChecks = 10
)

// Stats counts Engine outcomes.
type Stats struct {
	Frames         uint64
	Restarts       uint64
	Overflows      uint64
	SyncTimeouts   uint64
	DecodeFailures uint64
	TooLarge       uint64
	BusErrors      uint64
	ResidualBytes  uint64
}

// String formats the counters for logs.
func (s Stats) String() string {
	return fmt.Sprintf("frames=%d restarts=%d overflows=%d sync-timeouts=%d decode-failures=%d too-large=%d bus-errors=%d residual-bytes=%d",
		s.Frames, s.Restarts, s.Overflows, s.SyncTimeouts, s.DecodeFailures, s.TooLarge, s.BusErrors, s.ResidualBytes)
}

// Engine is the frame acquisition state machine. It is not safe for
// concurrent use: Poll and everything else must be called from the single
// acquisition goroutine.
type Engine struct {
	SyncTimeout    time.Duration
	HealthInterval time.Duration
	MaxFrameSize   int
	Now            func() time.Time
	Sleep          func(time.Duration)

	regs    RegisterAccess
	signals Signals

	state       State
	initialized bool
	buf         []byte
	received    int
	header      wmbus.Header
	lengthMode  LengthMode
	syncAt      time.Time
	lastHealth  time.Time
	stats       Stats
}

// NewEngine creates an Engine in StateInitRx.
func NewEngine(regs RegisterAccess, signals Signals) *Engine {
	return &Engine{
		SyncTimeout:    DefaultSyncTimeout,
		HealthInterval: DefaultHealthInterval,
		MaxFrameSize:   DefaultMaxFrameSize,
		Now:            time.Now,
		Sleep:          time.Sleep,
		regs:           regs,
		signals:        signals,
		buf:            make([]byte, 0, DefaultMaxFrameSize),
	}
}

// State returns the current state.
func (e *Engine) State() State {
	return e.state
}

// Initialized reports whether the receiver has been started at least once.
func (e *Engine) Initialized() bool {
	return e.initialized
}

// Stats returns a snapshot of the counters.
func (e *Engine) Stats() Stats {
	return e.stats
}

// Restart abandons any frame in progress and restarts the receiver now.
func (e *Engine) Restart() {
	e.initRx()
	e.takeBusError()
}

// Poll advances the state machine. It returns a completed frame or nil.
// Failures are handled internally by restarting the receiver.
func (e *Engine) Poll() *wmbus.Frame {
	frame := e.step()
	if e.takeBusError() {
		return nil
	}
	return frame
}

func (e *Engine) step() *wmbus.Frame {
	switch e.state {
	case StateInitRx:
		e.initRx()
		return nil
	case StateWaitForSync:
		if !e.checkHealth() || !e.waitForSync() {
			return nil
		}
		fallthrough
	case StateWaitForData:
		if !e.waitForData() {
			return nil
		}
		fallthrough
	case StateReadData:
		return e.readData()
	}
	return nil
}

func (e *Engine) takeBusError() bool {
	err := e.regs.TakeErr()
	if err == nil {
		return false
	}
	e.stats.BusErrors++
	glog.Errorf("cc1101: bus error in %s: %v", e.state, err)
	e.state = StateInitRx
	return true
}

func (e *Engine) initRx() {
	e.regs.Strobe(SIDLE)
	if !e.waitMarcState(MarcStateIdle) {
		glog.V(1).Infof("cc1101: chip not idle before restart")
	}
	e.regs.Strobe(SFTX)
	e.regs.Strobe(SFRX)
	e.regs.WriteRegister(FIFOTHR, fifoThresholdInit)
	e.regs.WriteRegister(PKTCTRL0, pktctrl0Infinite)
	e.lengthMode = LengthInfinite
	e.buf = e.buf[:0]
	e.received = 0
	e.header = wmbus.Header{}
	e.syncAt = time.Time{}
	e.regs.Strobe(SRX)
	if !e.waitMarcState(MarcStateRx) {
		glog.Warningf("cc1101: receiver not in RX after restart")
	}
	if e.initialized {
		e.stats.Restarts++
	} else {
		e.initialized = true
		e.lastHealth = e.Now()
	}
	e.state = StateWaitForSync
}

func (e *Engine) waitMarcState(want byte) bool {
	for i := 0; i < marcStateChecks; i++ {
		if e.regs.ReadStatus(MARCSTATE)&marcStateMask == want {
			return true
		}
		e.Sleep(time.Millisecond)
	}
	return false
}

// checkHealth returns false when the receiver had to be restarted.
func (e *Engine) checkHealth() bool {
	if e.HealthInterval <= 0 {
		return true
	}
	now := e.Now()
	if now.Sub(e.lastHealth) < e.HealthInterval {
		return true
	}
	e.lastHealth = now
	marc := e.regs.ReadStatus(MARCSTATE) & marcStateMask
	rxBytes := e.regs.ReadStatus(RXBYTES)
	glog.V(1).Infof("cc1101: MARCSTATE=%#02x RXBYTES=%#02x %+v", marc, rxBytes, e.stats)
	if marc != MarcStateRx {
		glog.Warningf("cc1101: chip left RX (MARCSTATE=%#02x), restarting receiver", marc)
		e.state = StateInitRx
		return false
	}
	return true
}

func (e *Engine) abort(cause error) {
	switch {
	case errors.Is(cause, wmbus.ErrRxOverflow):
		e.stats.Overflows++
	case errors.Is(cause, wmbus.ErrSyncTimeout):
		e.stats.SyncTimeouts++
	case errors.Is(cause, wmbus.ErrLineDecode):
		e.stats.DecodeFailures++
	case errors.Is(cause, wmbus.ErrFrameTooLarge):
		e.stats.TooLarge++
	}
	glog.V(1).Infof("cc1101: frame aborted in %s after %d bytes: %v", e.state, e.received, cause)
	e.state = StateInitRx
}

func (e *Engine) waitForSync() bool {
	rxBytes := e.regs.ReadStatus(RXBYTES)
	if rxBytes&rxOverflowBit != 0 {
		e.abort(wmbus.ErrRxOverflow)
		return false
	}
	if !e.signals.SyncDetected() {
		if n := rxBytes & rxBytesMask; n > syncDrainThreshold {
			glog.V(3).Infof("cc1101: flushing %d bytes of noise", n)
			e.regs.Strobe(SFRX)
		}
		return false
	}
	e.syncAt = e.Now()
	e.state = StateWaitForData
	return true
}

func (e *Engine) waitForData() bool {
	if e.Now().Sub(e.syncAt) > e.SyncTimeout {
		e.abort(wmbus.ErrSyncTimeout)
		return false
	}
	if !e.signals.DataReady() {
		return false
	}
	rxBytes := e.regs.ReadStatus(RXBYTES)
	if rxBytes&rxOverflowBit != 0 {
		e.abort(wmbus.ErrRxOverflow)
		return false
	}
	if int(rxBytes&rxBytesMask) < wmbus.HeaderSize {
		return false
	}

	var hdr [wmbus.HeaderSize]byte
	e.regs.ReadFIFO(hdr[:])
	h, err := wmbus.ClassifyHeader(hdr[:])
	if err != nil {
		glog.V(3).Infof("cc1101: % x: %v", hdr[:], err)
		return false
	}
	e.header = h
	e.buf = append(e.buf[:0], hdr[:]...)
	e.received = len(hdr)
	if h.ExpectedLength > e.MaxFrameSize {
		e.abort(fmt.Errorf("%w: %d bytes", wmbus.ErrFrameTooLarge, h.ExpectedLength))
		return false
	}
	glog.V(2).Infof("cc1101: mode %s block %s L=%d, expecting %d bytes",
		h.Mode, h.Block, h.LField, h.ExpectedLength)
	if h.ExpectedLength < fixedLengthCeiling {
		e.setFixedLength(h.ExpectedLength)
	}
	e.regs.WriteRegister(FIFOTHR, fifoThresholdRead)
	e.state = StateReadData
	return true
}

func (e *Engine) setFixedLength(n int) {
	e.regs.WriteRegister(PKTLEN, byte(n))
	e.regs.WriteRegister(PKTCTRL0, pktctrl0Fixed)
	e.lengthMode = LengthFixed
}

// drainSize picks how many bytes to read from a FIFO holding occupancy
// bytes when remaining bytes complete the frame. Unless the FIFO is nearly
// full or the frame completes, the last byte stays in the FIFO: reading it
// while it is still being received can return a corrupt value.
func drainSize(occupancy, remaining int) int {
	if remaining <= 0 {
		return 0
	}
	var n int
	switch {
	case occupancy > highWaterMark:
		n = occupancy
	case occupancy >= remaining:
		n = remaining
	case occupancy > 1:
		n = occupancy - 1
	}
	if n > remaining {
		n = remaining
	}
	return n
}

func (e *Engine) readData() *wmbus.Frame {
	for {
		rxBytes := e.regs.ReadStatus(RXBYTES)
		if rxBytes&rxOverflowBit != 0 {
			e.abort(wmbus.ErrRxOverflow)
			return nil
		}
		remaining := e.header.ExpectedLength - e.received
		if remaining < 0 {
			e.abort(fmt.Errorf("%w: %d of %d bytes", wmbus.ErrShortFrame, e.received, e.header.ExpectedLength))
			return nil
		}
		if remaining == 0 {
			return e.complete()
		}
		n := drainSize(int(rxBytes&rxBytesMask), remaining)
		if n > 0 {
			if e.received+n > e.MaxFrameSize {
				e.abort(fmt.Errorf("%w: %d bytes", wmbus.ErrFrameTooLarge, e.received+n))
				return nil
			}
			e.buf = append(e.buf, make([]byte, n)...)
			e.regs.ReadFIFO(e.buf[e.received:])
			e.received += n
		}
		if e.received == e.header.ExpectedLength {
			return e.complete()
		}
		if e.lengthMode == LengthInfinite && e.header.ExpectedLength-e.received < fixedLengthCeiling {
			// the chip's byte counter wraps at 256
			e.setFixedLength(e.header.ExpectedLength % fixedLengthCeiling)
		}
		if n == 0 {
			return nil
		}
	}
}

func (e *Engine) complete() *wmbus.Frame {
	if n := int(e.regs.ReadStatus(RXBYTES) & rxBytesMask); n > 0 {
		residual := make([]byte, n)
		e.regs.ReadFIFO(residual)
		e.stats.ResidualBytes += uint64(n)
		glog.V(3).Infof("cc1101: discarded %d bytes after frame", n)
	}
	data := e.buf
	if e.header.Mode == wmbus.ModeT {
		decoded, err := threeofsix.DecodeN(e.buf, e.header.DecodedLength())
		if err != nil {
			e.abort(fmt.Errorf("%w: %v", wmbus.ErrLineDecode, err))
			return nil
		}
		data = decoded
	}
	frame := wmbus.NewFrame(data, ConvertRSSI(e.regs.ReadStatus(RSSI)), e.Now(),
		e.header.Mode, e.header.Block)
	e.stats.Frames++
	e.state = StateInitRx
	return frame
}

// rssiOffset is the RSSI offset at 100 kbps in the 868 MHz band.
const rssiOffset = 74

// ConvertRSSI converts the RSSI status register to dBm.
func ConvertRSSI(raw byte) int8 {
	dbm := int(int8(raw))/2 - rssiOffset
	if dbm < -128 {
		dbm = -128
	}
	return int8(dbm)
}
