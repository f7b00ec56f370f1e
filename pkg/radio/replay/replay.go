// Package replay implements a radio.Transceiver playing back captured
// frames, one hex dump or rtl-wmbus line per frame.
package replay

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/wmbus.go/pkg/wmbus"
)

// DefaultInterval is the pause between replayed frames.
const DefaultInterval = time.Second

// Load reads frames from r. Blank lines and lines starting with # are
// skipped.
func Load(r io.Reader) ([]*wmbus.Frame, error) {
	var frames []*wmbus.Frame
	scanner := bufio.NewScanner(r)
	for n := 1; scanner.Scan(); n++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		f, err := wmbus.ParseFrameLine(line, time.Now())
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}
		frames = append(frames, f)
	}
	return frames, scanner.Err()
}

// LoadFile reads frames from a file.
func LoadFile(fn string) ([]*wmbus.Frame, error) {
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

// Transceiver replays frames at a fixed interval.
type Transceiver struct {
	Interval time.Duration
	// Loop restarts from the first frame after the last one.
	Loop bool
	Now  func() time.Time

	frames []*wmbus.Frame
	next   int
	due    time.Time
}

// New creates a Transceiver.
func New(frames []*wmbus.Frame) *Transceiver {
	return &Transceiver{Interval: DefaultInterval, Now: time.Now, frames: frames}
}

// Name implements radio.Transceiver.
func (t *Transceiver) Name() string {
	return "replay"
}

// RestartRx implements radio.Transceiver.
func (t *Transceiver) RestartRx() {
	t.due = t.Now().Add(t.Interval)
}

// RSSI implements radio.Transceiver.
func (t *Transceiver) RSSI() int8 {
	if t.next > 0 {
		return t.frames[t.next-1].RSSI()
	}
	return 0
}

// HasInterrupt implements radio.Transceiver.
func (t *Transceiver) HasInterrupt() bool {
	return false
}

// Idle implements radio.Transceiver.
func (t *Transceiver) Idle() bool {
	return true
}

// ReadFrame implements radio.Transceiver. Frames are restamped with the
// replay time.
func (t *Transceiver) ReadFrame() *wmbus.Frame {
	if len(t.frames) == 0 {
		return nil
	}
	now := t.Now()
	if now.Before(t.due) {
		return nil
	}
	if t.next >= len(t.frames) {
		if !t.Loop {
			return nil
		}
		glog.V(1).Info("replay: restarting")
		t.next = 0
	}
	f := t.frames[t.next]
	t.next++
	t.due = now.Add(t.Interval)
	return wmbus.NewFrame(f.Data(), f.RSSI(), now, f.Mode(), f.Block())
}
