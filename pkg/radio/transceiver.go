package radio

import "github.com/robotalks/wmbus.go/pkg/wmbus"

// Transceiver is the capability set of a receiving radio. Methods are only
// called from the Scheduler goroutine.
type Transceiver interface {
	Name() string
	// RestartRx abandons any frame in progress and restarts receiving.
	RestartRx()
	// RSSI returns the current signal strength in dBm.
	RSSI() int8
	// HasInterrupt reports whether the radio wakes the Scheduler itself.
	HasInterrupt() bool
	// ReadFrame advances reception and returns a completed frame or nil.
	ReadFrame() *wmbus.Frame
	// Idle reports whether the radio is waiting for a frame to start.
	Idle() bool
}
