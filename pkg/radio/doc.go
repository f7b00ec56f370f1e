// Package radio moves frames from a transceiver to frame handlers.
//
// A Scheduler owns the transceiver and polls it from a single goroutine,
// either every PollInterval or when woken by an interrupt. Completed frames
// are handed to a Dispatcher through a small FrameQueue which never blocks
// the Scheduler: when the queue is full the new frame is dropped.
package radio
