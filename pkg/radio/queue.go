package radio

import (
	"sync/atomic"

	"github.com/robotalks/wmbus.go/pkg/wmbus"
)

// DefaultQueueSize is the number of completed frames waiting for dispatch.
const DefaultQueueSize = 3

// FrameQueue is a bounded single-producer single-consumer frame queue.
// Neither side ever blocks.
type FrameQueue struct {
	ch      chan *wmbus.Frame
	pushed  atomic.Uint64
	dropped atomic.Uint64
}

// NewFrameQueue creates a FrameQueue holding up to size frames.
func NewFrameQueue(size int) *FrameQueue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &FrameQueue{ch: make(chan *wmbus.Frame, size)}
}

// TryPush enqueues f. It returns false and drops f if the queue is full.
func (q *FrameQueue) TryPush(f *wmbus.Frame) bool {
	select {
	case q.ch <- f:
		q.pushed.Add(1)
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

// TryPop dequeues the oldest frame if any.
func (q *FrameQueue) TryPop() (*wmbus.Frame, bool) {
	select {
	case f := <-q.ch:
		return f, true
	default:
		return nil, false
	}
}

// Len returns the number of queued frames.
func (q *FrameQueue) Len() int {
	return len(q.ch)
}

// Cap returns the queue capacity.
func (q *FrameQueue) Cap() int {
	return cap(q.ch)
}

// Pushed returns the number of frames accepted.
func (q *FrameQueue) Pushed() uint64 {
	return q.pushed.Load()
}

// Dropped returns the number of frames dropped on a full queue.
func (q *FrameQueue) Dropped() uint64 {
	return q.dropped.Load()
}
