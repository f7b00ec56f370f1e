package cc1101

import (
	"fmt"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/wmbus.go/pkg/wmbus"
)

const (
	resetDelay       = 10 * time.Millisecond
	calibrationDelay = 4 * time.Millisecond
)

// Config configures a Transceiver.
type Config struct {
	FrequencyMHz   float64
	SyncTimeout    time.Duration
	HealthInterval time.Duration
	// StatsInterval is how often engine counters are logged, 0 disables.
	StatsInterval time.Duration
	// Interrupt is set when a GDO line is wired to wake the scheduler.
	Interrupt bool
}

// DefaultConfig returns the wM-Bus defaults.
func DefaultConfig() Config {
	return Config{
		FrequencyMHz:   DefaultFrequencyMHz,
		SyncTimeout:    DefaultSyncTimeout,
		HealthInterval: DefaultHealthInterval,
		StatsInterval:  DefaultStatsInterval,
	}
}

// DefaultStatsInterval is the default period of statistics logs.
const DefaultStatsInterval = 5 * time.Minute

// Transceiver is a CC1101 receiving wM-Bus frames.
// All methods must be called from the acquisition goroutine.
type Transceiver struct {
	regs    RegisterAccess
	engine  *Engine
	config  Config
	statsAt time.Time
}

// NewTransceiver creates a Transceiver. Setup must be called before use.
func NewTransceiver(regs RegisterAccess, signals Signals, config Config) *Transceiver {
	engine := NewEngine(regs, signals)
	if config.SyncTimeout > 0 {
		engine.SyncTimeout = config.SyncTimeout
	}
	engine.HealthInterval = config.HealthInterval
	return &Transceiver{regs: regs, engine: engine, config: config}
}

// Engine returns the receive state machine.
func (t *Transceiver) Engine() *Engine {
	return t.engine
}

// Setup resets and configures the chip. Receiving starts on the first
// RestartRx or Poll.
func (t *Transceiver) Setup() error {
	t.regs.Strobe(SRES)
	t.engine.Sleep(resetDelay)
	partnum := t.regs.ReadStatus(PARTNUM)
	version := t.regs.ReadStatus(VERSION)
	if err := t.regs.TakeErr(); err != nil {
		return fmt.Errorf("cc1101 reset: %w", err)
	}
	if version == 0x00 || version == 0xff {
		return fmt.Errorf("%w: version %#02x", ErrChipUnresponsive, version)
	}
	glog.Infof("cc1101: partnum=%#02x version=%#02x", partnum, version)

	ApplySettings(t.regs, WMBusSettings)
	for _, err := range VerifySettings(t.regs, setupChecks) {
		glog.Warningf("cc1101: %v", err)
	}
	if f := t.config.FrequencyMHz; f != 0 {
		if err := SetFrequency(t.regs, f); err != nil {
			return err
		}
		glog.Infof("cc1101: frequency %.3f MHz (FREQ=%#06x)", f, FrequencyWord(f))
	}
	t.regs.Strobe(SCAL)
	t.engine.Sleep(calibrationDelay)
	if err := t.regs.TakeErr(); err != nil {
		return fmt.Errorf("cc1101 configure: %w", err)
	}

	glog.Infof("cc1101: configured, MARCSTATE=%#02x",
		t.regs.ReadStatus(MARCSTATE)&marcStateMask)
	return t.regs.TakeErr()
}

// Name implements radio.Transceiver.
func (t *Transceiver) Name() string {
	return "CC1101"
}

// RestartRx implements radio.Transceiver.
func (t *Transceiver) RestartRx() {
	t.engine.Restart()
}

// RSSI implements radio.Transceiver.
func (t *Transceiver) RSSI() int8 {
	return ConvertRSSI(t.regs.ReadStatus(RSSI))
}

// HasInterrupt implements radio.Transceiver.
func (t *Transceiver) HasInterrupt() bool {
	return t.config.Interrupt
}

// ReadFrame implements radio.Transceiver.
func (t *Transceiver) ReadFrame() *wmbus.Frame {
	f := t.engine.Poll()
	if interval := t.config.StatsInterval; interval > 0 {
		now := t.engine.Now()
		if t.statsAt.IsZero() {
			t.statsAt = now
		} else if now.Sub(t.statsAt) >= interval {
			t.statsAt = now
			glog.Infof("cc1101: %s", t.engine.Stats())
		}
	}
	return f
}

// Idle implements radio.Transceiver.
func (t *Transceiver) Idle() bool {
	return t.engine.State() == StateWaitForSync
}
