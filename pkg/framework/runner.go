package framework

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"github.com/golang/glog"
)

// ErrForcedExit is returned by Wait when a second stop signal arrives.
var ErrForcedExit = errors.New("forced exit")

type namedRunnable struct {
	Runnable
	name string
}

func (r *namedRunnable) Name() string {
	return r.name
}

// NamedRun gives a Runnable a name.
func NamedRun(name string, runnable Runnable) Runnable {
	return &namedRunnable{name: name, Runnable: runnable}
}

// NameOf returns the name of a Named runnable, or fallback.
func NameOf(runnable Runnable, fallback string) string {
	if named, ok := runnable.(Named); ok {
		return named.Name()
	}
	return fallback
}

type result struct {
	name string
	err  error
}

// Runner starts Runnables and waits for all of them. The first
// failure cancels the others.
type Runner struct {
	Context context.Context

	cancel  context.CancelFunc
	started int
	results chan result
	exitCh  chan struct{}
	exit    sync.Once
	running sync.WaitGroup
}

// NewRunner creates a Runner with a background context.
func NewRunner() *Runner {
	return NewRunnerWith(context.Background())
}

// NewRunnerWith creates a Runner derived from ctx.
func NewRunnerWith(ctx context.Context) *Runner {
	r := &Runner{
		results: make(chan result),
		exitCh:  make(chan struct{}),
	}
	r.Context, r.cancel = context.WithCancel(ctx)
	return r
}

// HandleSignals stops on SIGINT or SIGTERM and forces exit on the second.
func (r *Runner) HandleSignals() *Runner {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		glog.Info("stop requested")
		r.cancel()
		<-sigCh
		glog.Error("stop requested again, force exit")
		r.forceExit()
	}()
	return r
}

func (r *Runner) forceExit() {
	r.exit.Do(func() { close(r.exitCh) })
}

// Stop cancels all runnables.
func (r *Runner) Stop() {
	r.cancel()
}

// Go starts runnables.
func (r *Runner) Go(runners ...Runnable) *Runner {
	for _, runner := range runners {
		name := NameOf(runner, strconv.Itoa(r.started))
		r.started++
		r.running.Add(1)
		glog.V(4).Infof("start %s", name)
		go func(runner Runnable, name string) {
			defer r.running.Done()
			err := runner.Run(r.Context)
			glog.V(4).Infof("%s stopped: %v", name, err)
			// nobody collects results after a forced exit
			select {
			case r.results <- result{name: name, err: err}:
			case <-r.exitCh:
			}
		}(runner, name)
	}
	return r
}

// Wait waits for all runnables and aggregates their errors.
// Cancellation is not an error.
func (r *Runner) Wait() error {
	var errs AggregatedError
	for n := 0; n < r.started; n++ {
		select {
		case <-r.exitCh:
			r.cancel()
			return ErrForcedExit
		case res := <-r.results:
			if res.err == nil || errors.Is(res.err, context.Canceled) {
				continue
			}
			glog.Errorf("%s failed: %v", res.name, res.err)
			errs.Add(fmt.Errorf("%s: %w", res.name, res.err))
			r.cancel()
		}
	}
	r.cancel()
	return errs.Aggregate()
}
