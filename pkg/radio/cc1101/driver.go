package cc1101

// Bus is one full duplex SPI transaction with chip select held for its
// whole duration. len(r) == len(w).
type Bus interface {
	Tx(w, r []byte) error
}

// RegisterAccess is the register level view of the chip.
//
// Methods don't return errors individually; the first failed bus transaction
// is latched and reported by TakeErr.
type RegisterAccess interface {
	ReadRegister(reg Register) byte
	WriteRegister(reg Register, value byte)
	ReadStatus(reg Status) byte
	ReadBurst(reg Register, buf []byte)
	WriteBurst(reg Register, data []byte)
	Strobe(cmd Strobe) byte
	ReadFIFO(buf []byte)
	WriteFIFO(data []byte)
	// TakeErr returns and clears the latched bus error.
	TakeErr() error
}

// Driver implements RegisterAccess over a Bus.
type Driver struct {
	bus Bus
	err error
}

// NewDriver creates a Driver.
func NewDriver(bus Bus) *Driver {
	return &Driver{bus: bus}
}

func (d *Driver) tx(w []byte) []byte {
	r := make([]byte, len(w))
	if err := d.bus.Tx(w, r); err != nil {
		if d.err == nil {
			d.err = err
		}
		for i := range r {
			r[i] = 0
		}
	}
	return r
}

// ReadRegister implements RegisterAccess.
func (d *Driver) ReadRegister(reg Register) byte {
	return d.tx([]byte{byte(reg) | accessReadSingle, 0})[1]
}

// WriteRegister implements RegisterAccess.
func (d *Driver) WriteRegister(reg Register, value byte) {
	d.tx([]byte{byte(reg), value})
}

// ReadStatus implements RegisterAccess.
func (d *Driver) ReadStatus(reg Status) byte {
	return d.tx([]byte{byte(reg) | accessReadBurst, 0})[1]
}

// ReadBurst implements RegisterAccess.
func (d *Driver) ReadBurst(reg Register, buf []byte) {
	w := make([]byte, len(buf)+1)
	w[0] = byte(reg) | accessReadBurst
	copy(buf, d.tx(w)[1:])
}

// WriteBurst implements RegisterAccess.
func (d *Driver) WriteBurst(reg Register, data []byte) {
	w := make([]byte, len(data)+1)
	w[0] = byte(reg) | accessWriteBurst
	copy(w[1:], data)
	d.tx(w)
}

// Strobe implements RegisterAccess. It returns the chip status byte.
func (d *Driver) Strobe(cmd Strobe) byte {
	return d.tx([]byte{byte(cmd)})[0]
}

// ReadFIFO implements RegisterAccess.
func (d *Driver) ReadFIFO(buf []byte) {
	if len(buf) > 0 {
		d.ReadBurst(FIFO, buf)
	}
}

// WriteFIFO implements RegisterAccess.
func (d *Driver) WriteFIFO(data []byte) {
	if len(data) > 0 {
		d.WriteBurst(FIFO, data)
	}
}

// TakeErr implements RegisterAccess.
func (d *Driver) TakeErr() error {
	err := d.err
	d.err = nil
	return err
}
