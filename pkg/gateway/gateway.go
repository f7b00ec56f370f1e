package gateway

import (
	"context"
	"io"
	"time"

	"github.com/golang/glog"
	"periph.io/x/periph/conn/physic"

	"github.com/robotalks/wmbus.go/pkg/framework"
	"github.com/robotalks/wmbus.go/pkg/radio"
	"github.com/robotalks/wmbus.go/pkg/radio/cc1101"
	"github.com/robotalks/wmbus.go/pkg/radio/replay"
	"github.com/robotalks/wmbus.go/pkg/radio/spidev"
	"github.com/robotalks/wmbus.go/pkg/sink/mqtt"
	"github.com/robotalks/wmbus.go/pkg/sink/store"
	"github.com/robotalks/wmbus.go/pkg/sink/websocket"
)

// Gateway receives frames and passes them to the configured sinks.
type Gateway struct {
	Config      *Config
	Transceiver radio.Transceiver
	Queue       *radio.FrameQueue
	Scheduler   *radio.Scheduler
	Dispatcher  *radio.Dispatcher

	runnables []framework.Runnable
	closers   []io.Closer
}

// New creates a Gateway from the config, opening the radio and sinks.
func New(c *Config) (*Gateway, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	g := &Gateway{Config: c}
	if err := g.openRadio(); err != nil {
		g.Close()
		return nil, err
	}
	if err := g.openSinks(); err != nil {
		g.Close()
		return nil, err
	}
	return g, nil
}

func (g *Gateway) setupPipeline(t radio.Transceiver) {
	c := g.Config
	g.Transceiver = t
	g.Queue = radio.NewFrameQueue(c.QueueSize)
	g.Scheduler = radio.NewScheduler(t, g.Queue)
	g.Scheduler.PollInterval = c.PollInterval
	g.Scheduler.InterruptTimeout = c.InterruptTimeout
	g.Dispatcher = radio.NewDispatcher(g.Queue)
	g.Dispatcher.Interval = c.DispatchInterval
	g.runnables = append(g.runnables, g.Scheduler, g.Dispatcher)
}

func (g *Gateway) openRadio() error {
	c := g.Config
	switch c.Radio {
	case RadioReplay:
		frames, err := replay.LoadFile(c.ReplayFile)
		if err != nil {
			return err
		}
		t := replay.New(frames)
		t.Interval, t.Loop = c.ReplayInterval, c.ReplayLoop
		glog.Infof("replaying %d frames from %s", len(frames), c.ReplayFile)
		g.setupPipeline(t)
		return nil
	}

	bus, err := spidev.Open(c.SPIDevice, physic.Frequency(c.SPISpeedHz)*physic.Hertz)
	if err != nil {
		return err
	}
	g.closers = append(g.closers, bus)
	signals, err := spidev.OpenSignals(c.SyncPin, c.DataPin)
	if err != nil {
		return err
	}
	conf := cc1101.Config{
		FrequencyMHz:   c.FrequencyMHz,
		SyncTimeout:    c.SyncTimeout,
		HealthInterval: c.HealthInterval,
		StatsInterval:  c.StatusInterval,
		Interrupt:      c.InterruptPin != "",
	}
	t := cc1101.NewTransceiver(cc1101.NewDriver(bus), signals, conf)
	if err := t.Setup(); err != nil {
		return err
	}
	g.setupPipeline(t)
	if c.InterruptPin != "" {
		pin, err := spidev.OpenPin(c.InterruptPin)
		if err != nil {
			return err
		}
		g.runnables = append(g.runnables, &spidev.EdgeWatcher{Pin: pin, Wake: g.Scheduler.Wake})
	}
	return nil
}

func (g *Gateway) openSinks() error {
	c := g.Config
	g.Dispatcher.OnUnhandled = radio.ReportUnhandled
	if c.StorePath != "" {
		s, err := store.Open(c.StorePath)
		if err != nil {
			return err
		}
		g.closers = append(g.closers, s)
		g.Dispatcher.AddHandler(s)
	}
	if c.MQTTURL != "" {
		p, err := mqtt.NewPublisher(c.MQTTURL, c.GatewayID, g.Transceiver.Name())
		if err != nil {
			return err
		}
		p.StatusInterval = c.StatusInterval
		p.Counters = g.Counters
		g.Dispatcher.AddHandler(p)
		g.runnables = append(g.runnables, p)
	}
	if c.WebsocketAddr != "" {
		hub := websocket.NewHub(c.WebsocketAddr, c.GatewayID)
		g.Dispatcher.AddHandler(hub)
		g.runnables = append(g.runnables, hub)
	}
	return nil
}

// Counters returns frames received and frames dropped on a full queue.
func (g *Gateway) Counters() (frames, dropped uint64) {
	return g.Queue.Pushed(), g.Queue.Dropped()
}

// Run runs the pipeline until ctx is done or a part fails.
func (g *Gateway) Run(ctx context.Context) error {
	glog.Infof("gateway %s started with %s radio", g.Config.GatewayID, g.Transceiver.Name())
	runner := framework.NewRunnerWith(ctx).Go(g.runnables...)
	runner.Go(framework.NamedRun("status", framework.RunFunc(g.reportStatus)))
	return runner.Wait()
}

func (g *Gateway) reportStatus(ctx context.Context) error {
	interval := g.Config.StatusInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			frames, dropped := g.Counters()
			glog.Infof("status: %d frames received, %d dropped, %d handled, %d unhandled",
				frames, dropped, g.Dispatcher.Handled(), g.Dispatcher.Unhandled())
		}
	}
}

// Close releases the radio and sinks.
func (g *Gateway) Close() error {
	var errs framework.AggregatedError
	for n := len(g.closers) - 1; n >= 0; n-- {
		errs.Add(g.closers[n].Close())
	}
	g.closers = nil
	return errs.Aggregate()
}
