// Package framework runs the long-lived parts of the gateway.
package framework

import "context"

// Named is implemented by things with a name used in logs.
type Named interface {
	Name() string
}

// Runnable is a background task running until its context is done.
type Runnable interface {
	Run(context.Context) error
}

// RunFunc is the func form of Runnable.
type RunFunc func(context.Context) error

// Run implements Runnable.
func (f RunFunc) Run(ctx context.Context) error {
	return f(ctx)
}
