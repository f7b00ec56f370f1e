package radio

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/wmbus.go/pkg/wmbus"
)

// DefaultDispatchInterval is how often the Dispatcher checks the queue.
const DefaultDispatchInterval = 10 * time.Millisecond

// AnalyzeURL is where an unhandled telegram can be inspected.
const AnalyzeURL = "https://wmbusmeters.org/analyze/"

// FrameHandler is interested in completed frames.
type FrameHandler interface {
	// HandleFrame returns true if the frame was consumed.
	HandleFrame(ctx context.Context, f *wmbus.Frame) bool
}

// HandleFrameFunc is the func form of FrameHandler.
type HandleFrameFunc func(ctx context.Context, f *wmbus.Frame) bool

// HandleFrame implements FrameHandler.
func (h HandleFrameFunc) HandleFrame(ctx context.Context, f *wmbus.Frame) bool {
	return h(ctx, f)
}

// Dispatcher pops frames from a FrameQueue and passes them to handlers.
type Dispatcher struct {
	Queue    *FrameQueue
	Interval time.Duration
	// OnUnhandled is called for frames no handler consumed.
	OnUnhandled func(f *wmbus.Frame)

	handlers  []FrameHandler
	lock      sync.RWMutex
	handled   atomic.Uint64
	unhandled atomic.Uint64
}

// NewDispatcher creates a Dispatcher reporting unhandled frames to the log.
func NewDispatcher(q *FrameQueue) *Dispatcher {
	return &Dispatcher{
		Queue:       q,
		Interval:    DefaultDispatchInterval,
		OnUnhandled: ReportUnhandled,
	}
}

// AddHandler registers handlers.
func (d *Dispatcher) AddHandler(handlers ...FrameHandler) *Dispatcher {
	d.lock.Lock()
	d.handlers = append(d.handlers, handlers...)
	d.lock.Unlock()
	return d
}

// Name implements framework.Named.
func (d *Dispatcher) Name() string {
	return "dispatcher"
}

// Handled returns the number of frames consumed by at least one handler.
func (d *Dispatcher) Handled() uint64 {
	return d.handled.Load()
}

// Unhandled returns the number of frames no handler consumed.
func (d *Dispatcher) Unhandled() uint64 {
	return d.unhandled.Load()
}

// Run implements framework.Runnable.
func (d *Dispatcher) Run(ctx context.Context) error {
	interval := d.Interval
	if interval <= 0 {
		interval = DefaultDispatchInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			d.Drain(ctx)
		}
	}
}

// Drain dispatches all queued frames and returns how many.
func (d *Dispatcher) Drain(ctx context.Context) int {
	var n int
	for {
		f, ok := d.Queue.TryPop()
		if !ok {
			return n
		}
		d.Dispatch(ctx, f)
		n++
	}
}

// Dispatch passes f to every handler and returns how many consumed it.
func (d *Dispatcher) Dispatch(ctx context.Context, f *wmbus.Frame) int {
	glog.Infof("frame received: %d bytes, RSSI %d dBm, mode %s, block %s",
		f.Len(), f.RSSI(), f.Mode(), f.Block())
	glog.V(2).Infof("frame: %s", f.Hex())

	d.lock.RLock()
	handlers := d.handlers
	d.lock.RUnlock()
	var count int
	for _, h := range handlers {
		if h.HandleFrame(ctx, f) {
			count++
		}
	}
	if count > 0 {
		d.handled.Add(1)
		glog.V(1).Infof("frame handled by %d handlers", count)
	} else {
		d.unhandled.Add(1)
		if d.OnUnhandled != nil {
			d.OnUnhandled(f)
		}
	}
	return count
}

// ReportUnhandled logs a frame no handler consumed.
func ReportUnhandled(f *wmbus.Frame) {
	if h, err := f.LinkHeader(); err == nil {
		glog.Warningf("frame from %s %s not handled, check if it can be parsed on:", h.Manufacturer, h.ID)
	} else {
		glog.Warning("frame not handled, check if it can be parsed on:")
	}
	glog.Warning(AnalyzeURL + f.PayloadHex())
}
