// Package spidev connects a CC1101 to Linux spidev and GPIO character
// devices through periph.
package spidev

import (
	"context"
	"fmt"
	"time"

	"github.com/golang/glog"
	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/conn/physic"
	"periph.io/x/periph/conn/spi"
	"periph.io/x/periph/conn/spi/spireg"
	"periph.io/x/periph/host"
)

// DefaultSpeed is the SPI clock used for the CC1101.
const DefaultSpeed = 5 * physic.MegaHertz

// Init loads the host drivers. It is safe to call more than once.
func Init() error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("periph host init: %w", err)
	}
	return nil
}

// Bus is an SPI port connected in mode 0, 8 bits per word.
type Bus struct {
	port spi.PortCloser
	conn spi.Conn
}

// Open opens the SPI port name ("" for the first one).
func Open(name string, speed physic.Frequency) (*Bus, error) {
	if err := Init(); err != nil {
		return nil, err
	}
	port, err := spireg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open spi %q: %w", name, err)
	}
	if speed == 0 {
		speed = DefaultSpeed
	}
	conn, err := port.Connect(speed, spi.Mode0, 8)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("connect spi %q: %w", name, err)
	}
	glog.Infof("spi %s at %s", port, speed)
	return &Bus{port: port, conn: conn}, nil
}

// Tx implements cc1101.Bus.
func (b *Bus) Tx(w, r []byte) error {
	return b.conn.Tx(w, r)
}

// Close releases the port.
func (b *Bus) Close() error {
	return b.port.Close()
}

// Signals reads the GDO2 (sync) and GDO0 (FIFO threshold) lines.
type Signals struct {
	Sync gpio.PinIn
	Data gpio.PinIn
}

// OpenPin looks up a GPIO pin by name and configures it as a floating input.
func OpenPin(name string) (gpio.PinIO, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("gpio %q not found", name)
	}
	if err := p.In(gpio.Float, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("gpio %q: %w", name, err)
	}
	return p, nil
}

// OpenSignals opens the sync and data pins by name.
func OpenSignals(syncPin, dataPin string) (*Signals, error) {
	if err := Init(); err != nil {
		return nil, err
	}
	sync, err := OpenPin(syncPin)
	if err != nil {
		return nil, err
	}
	data, err := OpenPin(dataPin)
	if err != nil {
		return nil, err
	}
	return &Signals{Sync: sync, Data: data}, nil
}

// SyncDetected implements cc1101.Signals.
func (s *Signals) SyncDetected() bool {
	return s.Sync.Read() == gpio.High
}

// DataReady implements cc1101.Signals.
func (s *Signals) DataReady() bool {
	return s.Data.Read() == gpio.High
}

// edgeWaitTimeout bounds each WaitForEdge so cancellation is noticed.
const edgeWaitTimeout = 100 * time.Millisecond

// EdgeWatcher calls Wake on every rising edge of Pin.
type EdgeWatcher struct {
	Pin  gpio.PinIn
	Wake func()
}

// Name implements framework.Named.
func (w *EdgeWatcher) Name() string {
	return "irq:" + w.Pin.String()
}

// Run implements framework.Runnable.
func (w *EdgeWatcher) Run(ctx context.Context) error {
	if err := w.Pin.In(gpio.Float, gpio.RisingEdge); err != nil {
		return fmt.Errorf("gpio %s edge detection: %w", w.Pin, err)
	}
	defer w.Pin.In(gpio.Float, gpio.NoEdge)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if w.Pin.WaitForEdge(edgeWaitTimeout) {
			w.Wake()
		}
	}
}
