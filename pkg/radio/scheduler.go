package radio

import (
	"context"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/wmbus.go/pkg/wmbus"
)

const (
	// DefaultPollInterval keeps a 64 byte FIFO filling at 12.5 bytes/ms
	// from overflowing between polls.
	DefaultPollInterval = 2 * time.Millisecond
	// DefaultInterruptTimeout bounds the wait for an interrupt when idle.
	DefaultInterruptTimeout = time.Minute
)

// Scheduler drives a Transceiver and hands completed frames to a
// FrameQueue.
type Scheduler struct {
	Transceiver      Transceiver
	Queue            *FrameQueue
	PollInterval     time.Duration
	InterruptTimeout time.Duration

	wakeUpCh chan struct{}
}

// NewScheduler creates a Scheduler.
func NewScheduler(t Transceiver, q *FrameQueue) *Scheduler {
	return &Scheduler{
		Transceiver:      t,
		Queue:            q,
		PollInterval:     DefaultPollInterval,
		InterruptTimeout: DefaultInterruptTimeout,
		wakeUpCh:         make(chan struct{}, 1),
	}
}

// Name implements framework.Named.
func (s *Scheduler) Name() string {
	return "radio:" + s.Transceiver.Name()
}

// Wake requests an immediate poll. It never blocks and is safe to call from
// any goroutine.
func (s *Scheduler) Wake() {
	select {
	case s.wakeUpCh <- struct{}{}:
	default:
	}
}

// Timeout returns how long the Scheduler waits before the next poll.
func (s *Scheduler) Timeout() time.Duration {
	if s.Transceiver.HasInterrupt() && s.Transceiver.Idle() {
		return s.InterruptTimeout
	}
	return s.PollInterval
}

// Run implements framework.Runnable.
func (s *Scheduler) Run(ctx context.Context) error {
	glog.Infof("%s: receiving, interrupt=%v", s.Name(), s.Transceiver.HasInterrupt())
	s.Transceiver.RestartRx()
	timer := time.NewTimer(s.Timeout())
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.wakeUpCh:
		case <-timer.C:
		}
		s.Step()
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(s.Timeout())
	}
}

// Step polls the Transceiver once and queues a completed frame.
// It returns the frame, or nil when there is none or it was dropped.
func (s *Scheduler) Step() *wmbus.Frame {
	f := s.Transceiver.ReadFrame()
	if f == nil {
		return nil
	}
	if !s.Queue.TryPush(f) {
		glog.Warningf("%s: %v, dropped %s (%d dropped)", s.Name(), wmbus.ErrQueueFull, f, s.Queue.Dropped())
		return nil
	}
	glog.V(3).Infof("%s: queued %s", s.Name(), f)
	return f
}
