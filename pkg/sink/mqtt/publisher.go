package mqtt

import (
	"context"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"
	"github.com/golang/protobuf/proto"

	"github.com/robotalks/wmbus.go/pkg/wmbus"
	"github.com/robotalks/wmbus.go/pkg/wmbus/msgs"
)

// DefaultStatusInterval is the period of status updates.
const DefaultStatusInterval = time.Minute

// FramesTopic is the topic frames of a gateway are published to.
func FramesTopic(gatewayID string) string {
	return gatewayID + "/frames"
}

// StatusTopic is the retained status topic of a gateway.
func StatusTopic(gatewayID string) string {
	return gatewayID + "/status"
}

// Counters reports frame counters for status updates.
type Counters func() (frames, dropped uint64)

// Publisher publishes frames and gateway status.
type Publisher struct {
	Client         *Client
	GatewayID      string
	Radio          string
	QoS            byte
	StatusInterval time.Duration
	Counters       Counters
}

// NewPublisher connects a Publisher to the broker at brokerURL. The
// status topic carries an offline last will.
func NewPublisher(brokerURL, gatewayID, radioName string) (*Publisher, error) {
	opts, prefix, err := OptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	p := &Publisher{
		GatewayID:      gatewayID,
		Radio:          radioName,
		StatusInterval: DefaultStatusInterval,
	}
	will, err := proto.Marshal(p.status(false))
	if err != nil {
		return nil, err
	}
	opts.SetBinaryWill(prefix+StatusTopic(gatewayID), will, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("wmbus:" + gatewayID)
	}
	p.Client = NewClient(opts, prefix)
	p.Client.OnConnect = func(*Client) { p.PublishStatus(true) }
	return p, nil
}

// Name implements framework.Named.
func (p *Publisher) Name() string {
	return "mqtt"
}

// HandleFrame publishes the frame as a FrameEvent.
func (p *Publisher) HandleFrame(ctx context.Context, f *wmbus.Frame) bool {
	payload, err := proto.Marshal(msgs.NewFrameEvent(p.GatewayID, f))
	if err != nil {
		glog.Errorf("mqtt: encode frame: %v", err)
		return false
	}
	p.Client.Publish(FramesTopic(p.GatewayID), payload, p.QoS, false)
	return true
}

// PublishStatus publishes the retained gateway status.
func (p *Publisher) PublishStatus(online bool) paho.Token {
	payload, err := proto.Marshal(p.status(online))
	if err != nil {
		glog.Errorf("mqtt: encode status: %v", err)
		return &paho.DummyToken{}
	}
	return p.Client.Publish(StatusTopic(p.GatewayID), payload, 1, true)
}

func (p *Publisher) status(online bool) *msgs.GatewayStatus {
	s := &msgs.GatewayStatus{GatewayID: p.GatewayID, Online: online, Radio: p.Radio}
	if p.Counters != nil {
		s.Frames, s.Dropped = p.Counters()
	}
	return s
}

// Run connects, refreshes status periodically and publishes offline
// status on exit.
func (p *Publisher) Run(ctx context.Context) error {
	if err := p.Client.Connect(ctx); err != nil {
		return err
	}
	interval := p.StatusInterval
	if interval <= 0 {
		interval = DefaultStatusInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			p.PublishStatus(false).WaitTimeout(time.Second)
			return p.Client.Close()
		case <-ticker.C:
			p.PublishStatus(true)
		}
	}
}
