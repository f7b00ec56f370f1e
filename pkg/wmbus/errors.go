package wmbus

import "errors"

var (
	// ErrUnclassifiableHeader indicates the header window does not identify
	// a link mode yet. It is not a failure, the receiver retries.
	ErrUnclassifiableHeader = errors.New("unclassifiable header")
	// ErrRxOverflow indicates the receive FIFO overflowed mid-frame.
	ErrRxOverflow = errors.New("rx overflow")
	// ErrSyncTimeout indicates no data followed the sync word in time.
	ErrSyncTimeout = errors.New("sync timeout")
	// ErrFrameTooLarge indicates the frame exceeds the receive buffer cap.
	ErrFrameTooLarge = errors.New("frame too large")
	// ErrLineDecode indicates a Mode T frame failed 3-of-6 decoding.
	ErrLineDecode = errors.New("line decode failure")
	// ErrQueueFull indicates a completed frame was dropped by the handoff queue.
	ErrQueueFull = errors.New("frame queue full")
	// ErrShortFrame indicates the frame is too short for the requested field.
	ErrShortFrame = errors.New("frame too short")
)
