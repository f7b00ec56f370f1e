package cc1101

import (
	"time"
)

// fakeChip simulates the CC1101 registers, RX FIFO and GDO lines.
type fakeChip struct {
	regs     [0x2f]byte
	stuck    map[Register]byte
	fifo     []byte
	overflow bool
	marc     byte
	rssi     byte
	version  byte
	sync     bool
	data     bool
	err      error

	strobes   []Strobe
	fifoReads []int
	underrun  bool
}

func newFakeChip() *fakeChip {
	return &fakeChip{version: 0x14, marc: MarcStateIdle}
}

func (c *fakeChip) feed(data ...byte) *fakeChip {
	c.fifo = append(c.fifo, data...)
	return c
}

func (c *fakeChip) ReadRegister(reg Register) byte {
	if v, ok := c.stuck[reg]; ok {
		return v
	}
	return c.regs[reg]
}

func (c *fakeChip) WriteRegister(reg Register, value byte) {
	c.regs[reg] = value
}

func (c *fakeChip) ReadStatus(reg Status) byte {
	switch reg {
	case VERSION:
		return c.version
	case MARCSTATE:
		return c.marc
	case RSSI:
		return c.rssi
	case RXBYTES:
		n := len(c.fifo)
		if n > int(rxBytesMask) {
			n = int(rxBytesMask)
		}
		if c.overflow {
			return byte(n) | rxOverflowBit
		}
		return byte(n)
	}
	return 0
}

func (c *fakeChip) ReadBurst(reg Register, buf []byte) {
	if reg == FIFO {
		c.ReadFIFO(buf)
		return
	}
	for i := range buf {
		buf[i] = c.ReadRegister(reg + Register(i))
	}
}

func (c *fakeChip) WriteBurst(reg Register, data []byte) {
	for i, v := range data {
		c.WriteRegister(reg+Register(i), v)
	}
}

func (c *fakeChip) Strobe(cmd Strobe) byte {
	c.strobes = append(c.strobes, cmd)
	switch cmd {
	case SRES:
		c.regs = [0x2f]byte{}
	case SIDLE:
		c.marc = MarcStateIdle
	case SRX:
		c.marc = MarcStateRx
	case SFRX:
		c.fifo = nil
		c.overflow = false
	}
	return 0
}

func (c *fakeChip) ReadFIFO(buf []byte) {
	c.fifoReads = append(c.fifoReads, len(buf))
	if len(buf) > len(c.fifo) {
		c.underrun = true
	}
	n := copy(buf, c.fifo)
	c.fifo = c.fifo[n:]
}

func (c *fakeChip) WriteFIFO(data []byte) {}

func (c *fakeChip) TakeErr() error {
	err := c.err
	c.err = nil
	return err
}

func (c *fakeChip) SyncDetected() bool { return c.sync }
func (c *fakeChip) DataReady() bool    { return c.data }

func (c *fakeChip) countStrobes(cmd Strobe) int {
	var n int
	for _, s := range c.strobes {
		if s == cmd {
			n++
		}
	}
	return n
}

// fakeClock is advanced manually.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) advance(d time.Duration) {
	c.now = c.now.Add(d)
}
