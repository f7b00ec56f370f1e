package cc1101

import (
	"fmt"
	"math"
)

// Setting is one register value of an RF configuration.
type Setting struct {
	Reg   Register
	Value byte
}

// WMBusSettings configures the chip for wM-Bus Mode T/C reception at
// 868.95 MHz, 100 kbps 2-FSK, sync word 0x543D (TI SWRA234A).
//
// GDO2 asserts on sync word and deasserts at the end of the packet, GDO0
// asserts when the RX FIFO reaches FIFOTHR.
var WMBusSettings = []Setting{
	{IOCFG2, 0x06},
	{IOCFG1, 0x2e},
	{IOCFG0, 0x00},
	{FIFOTHR, 0x07},
	{SYNC1, 0x54},
	{SYNC0, 0x3d},
	{PKTLEN, 0xff},
	{PKTCTRL1, 0x00},
	{PKTCTRL0, 0x00},
	{ADDR, 0x00},
	{CHANNR, 0x00},
	{FSCTRL1, 0x08},
	{FSCTRL0, 0x00},
	{FREQ2, 0x21},
	{FREQ1, 0x6b},
	{FREQ0, 0xd0},
	{MDMCFG4, 0x5c},
	{MDMCFG3, 0x04},
	{MDMCFG2, 0x06},
	{MDMCFG1, 0x22},
	{MDMCFG0, 0xf8},
	{DEVIATN, 0x44},
	{MCSM2, 0x07},
	{MCSM1, 0x00},
	{MCSM0, 0x18},
	{FOCCFG, 0x2e},
	{BSCFG, 0xbf},
	{AGCCTRL2, 0x43},
	{AGCCTRL1, 0x09},
	{AGCCTRL0, 0xb5},
	{WOREVT1, 0x87},
	{WOREVT0, 0x6b},
	{WORCTRL, 0xfb},
	{FREND1, 0xb6},
	{FREND0, 0x10},
	{FSCAL3, 0xea},
	{FSCAL2, 0x2a},
	{FSCAL1, 0x00},
	{FSCAL0, 0x1f},
	{RCCTRL1, 0x41},
	{RCCTRL0, 0x00},
	{FSTEST, 0x59},
	{PTEST, 0x7f},
	{AGCTEST, 0x3f},
	{TEST2, 0x81},
	{TEST1, 0x35},
	{TEST0, 0x09},
}

// setupChecks are read back after applying WMBusSettings; the receive
// engine doesn't work without them.
var setupChecks = []Setting{
	{IOCFG2, 0x06},
	{IOCFG0, 0x00},
	{SYNC1, 0x54},
	{SYNC0, 0x3d},
}

// Supported carrier frequency range.
const (
	MinFrequencyMHz = 300.0
	MaxFrequencyMHz = 928.0
	// DefaultFrequencyMHz is the wM-Bus Mode T/C channel.
	DefaultFrequencyMHz = 868.95
)

// ApplySettings writes settings in order.
func ApplySettings(regs RegisterAccess, settings []Setting) {
	for _, s := range settings {
		regs.WriteRegister(s.Reg, s.Value)
	}
}

// VerifySettings reads back settings and reports every mismatch.
func VerifySettings(regs RegisterAccess, settings []Setting) []error {
	var errs []error
	for _, s := range settings {
		if v := regs.ReadRegister(s.Reg); v != s.Value {
			errs = append(errs, &RegisterMismatchError{Reg: s.Reg, Want: s.Value, Got: v})
		}
	}
	return errs
}

// FrequencyWord computes the 24 bit FREQ value for a carrier in MHz.
func FrequencyWord(mhz float64) uint32 {
	return uint32(math.Round(mhz * 65536 / CrystalMHz))
}

// SetFrequency programs FREQ2/FREQ1/FREQ0.
func SetFrequency(regs RegisterAccess, mhz float64) error {
	if mhz < MinFrequencyMHz || mhz > MaxFrequencyMHz {
		return fmt.Errorf("%w: %.3f MHz", ErrFrequencyRange, mhz)
	}
	w := FrequencyWord(mhz)
	regs.WriteBurst(FREQ2, []byte{byte(w >> 16), byte(w >> 8), byte(w)})
	return nil
}
