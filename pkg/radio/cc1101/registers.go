package cc1101

// Register is a configuration register address.
type Register byte

// Configuration registers.
const (
	IOCFG2   Register = 0x00 // GDO2 output pin configuration
	IOCFG1   Register = 0x01 // GDO1 output pin configuration
	IOCFG0   Register = 0x02 // GDO0 output pin configuration
	FIFOTHR  Register = 0x03 // RX FIFO and TX FIFO thresholds
	SYNC1    Register = 0x04 // sync word, high byte
	SYNC0    Register = 0x05 // sync word, low byte
	PKTLEN   Register = 0x06 // packet length
	PKTCTRL1 Register = 0x07 // packet automation control
	PKTCTRL0 Register = 0x08 // packet automation control
	ADDR     Register = 0x09 // device address
	CHANNR   Register = 0x0a // channel number
	FSCTRL1  Register = 0x0b // frequency synthesizer control
	FSCTRL0  Register = 0x0c // frequency synthesizer control
	FREQ2    Register = 0x0d // frequency control word, high byte
	FREQ1    Register = 0x0e // frequency control word, middle byte
	FREQ0    Register = 0x0f // frequency control word, low byte
	MDMCFG4  Register = 0x10 // modem configuration
	MDMCFG3  Register = 0x11 // modem configuration
	MDMCFG2  Register = 0x12 // modem configuration
	MDMCFG1  Register = 0x13 // modem configuration
	MDMCFG0  Register = 0x14 // modem configuration
	DEVIATN  Register = 0x15 // modem deviation setting
	MCSM2    Register = 0x16 // main radio control state machine configuration
	MCSM1    Register = 0x17 // main radio control state machine configuration
	MCSM0    Register = 0x18 // main radio control state machine configuration
	FOCCFG   Register = 0x19 // frequency offset compensation configuration
	BSCFG    Register = 0x1a // bit synchronization configuration
	AGCCTRL2 Register = 0x1b // AGC control
	AGCCTRL1 Register = 0x1c // AGC control
	AGCCTRL0 Register = 0x1d // AGC control
	WOREVT1  Register = 0x1e // high byte event0 timeout
	WOREVT0  Register = 0x1f // low byte event0 timeout
	WORCTRL  Register = 0x20 // wake on radio control
	FREND1   Register = 0x21 // front end RX configuration
	FREND0   Register = 0x22 // front end TX configuration
	FSCAL3   Register = 0x23 // frequency synthesizer calibration
	FSCAL2   Register = 0x24 // frequency synthesizer calibration
	FSCAL1   Register = 0x25 // frequency synthesizer calibration
	FSCAL0   Register = 0x26 // frequency synthesizer calibration
	RCCTRL1  Register = 0x27 // RC oscillator configuration
	RCCTRL0  Register = 0x28 // RC oscillator configuration
	FSTEST   Register = 0x29 // frequency synthesizer calibration control
	PTEST    Register = 0x2a // production test
	AGCTEST  Register = 0x2b // AGC test
	TEST2    Register = 0x2c // various test settings
	TEST1    Register = 0x2d // various test settings
	TEST0    Register = 0x2e // various test settings

	PATABLE Register = 0x3e
	FIFO    Register = 0x3f
)

// Status is a read-only status register address. Status registers share
// addresses with the command strobes and are told apart by the burst bit.
type Status byte

// Status registers.
const (
	PARTNUM    Status = 0x30
	VERSION    Status = 0x31
	FREQEST    Status = 0x32
	LQI        Status = 0x33
	RSSI       Status = 0x34
	MARCSTATE  Status = 0x35
	WORTIME1   Status = 0x36
	WORTIME0   Status = 0x37
	PKTSTATUS  Status = 0x38
	VCOVCDAC   Status = 0x39
	TXBYTES    Status = 0x3a
	RXBYTES    Status = 0x3b
	RCCTRL1STS Status = 0x3c
	RCCTRL0STS Status = 0x3d
)

// Strobe is a command strobe.
type Strobe byte

// Command strobes.
const (
	SRES    Strobe = 0x30 // reset chip
	SFSTXON Strobe = 0x31 // enable and calibrate frequency synthesizer
	SXOFF   Strobe = 0x32 // turn off crystal oscillator
	SCAL    Strobe = 0x33 // calibrate frequency synthesizer and turn it off
	SRX     Strobe = 0x34 // enable RX
	STX     Strobe = 0x35 // enable TX
	SIDLE   Strobe = 0x36 // exit RX/TX
	SWOR    Strobe = 0x38 // start wake on radio
	SPWD    Strobe = 0x39 // power down
	SFRX    Strobe = 0x3a // flush the RX FIFO
	SFTX    Strobe = 0x3b // flush the TX FIFO
	SWORRST Strobe = 0x3c // reset real time clock
	SNOP    Strobe = 0x3d // no operation
)

// Header byte access bits.
const (
	accessWriteBurst byte = 0x40
	accessReadSingle byte = 0x80
	accessReadBurst  byte = 0xc0
)

// MARCSTATE values (low 5 bits).
const (
	MarcStateSleep       byte = 0x00
	MarcStateIdle        byte = 0x01
	MarcStateRx          byte = 0x0d
	MarcStateRxOverflow  byte = 0x11
	MarcStateTxUnderflow byte = 0x16

	marcStateMask byte = 0x1f
)

// RXBYTES fields.
const (
	rxOverflowBit byte = 0x80
	rxBytesMask   byte = 0x7f
)

// FIFOSize is the size of the RX FIFO.
const FIFOSize = 64

// CrystalMHz is the reference crystal frequency.
const CrystalMHz = 26.0
