// Package gateway assembles the radio, the frame pipeline and the sinks.
package gateway

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"

	"github.com/robotalks/wmbus.go/pkg/radio"
	"github.com/robotalks/wmbus.go/pkg/radio/cc1101"
	"github.com/robotalks/wmbus.go/pkg/radio/replay"
)

// Radio kinds.
const (
	RadioCC1101 = "cc1101"
	RadioReplay = "replay"
)

// Config configures a Gateway.
type Config struct {
	GatewayID string
	Radio     string

	FrequencyMHz float64
	SPIDevice    string
	SPISpeedHz   int64
	SyncPin      string
	DataPin      string
	// InterruptPin wakes the scheduler on a rising edge when set.
	InterruptPin string

	PollInterval     time.Duration
	SyncTimeout      time.Duration
	InterruptTimeout time.Duration
	HealthInterval   time.Duration
	DispatchInterval time.Duration
	StatusInterval   time.Duration
	QueueSize        int

	MQTTURL       string
	StorePath     string
	WebsocketAddr string

	ReplayFile     string
	ReplayInterval time.Duration
	ReplayLoop     bool
}

var defaultConfig = Config{
	Radio:            RadioCC1101,
	FrequencyMHz:     cc1101.DefaultFrequencyMHz,
	SPISpeedHz:       5000000,
	SyncPin:          "GPIO24",
	DataPin:          "GPIO25",
	PollInterval:     radio.DefaultPollInterval,
	SyncTimeout:      cc1101.DefaultSyncTimeout,
	InterruptTimeout: radio.DefaultInterruptTimeout,
	HealthInterval:   cc1101.DefaultHealthInterval,
	DispatchInterval: radio.DefaultDispatchInterval,
	StatusInterval:   time.Minute,
	QueueSize:        radio.DefaultQueueSize,
	ReplayInterval:   replay.DefaultInterval,
}

func init() {
	defaultConfig.GatewayID = DefaultGatewayID()
	applyEnv(&defaultConfig, os.Getenv)
}

func applyEnv(c *Config, getenv func(string) string) {
	str := func(key string, val *string) {
		if v := getenv(key); v != "" {
			*val = v
		}
	}
	dur := func(key string, val *time.Duration) {
		if v := getenv(key); v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				*val = d
			} else {
				glog.Warningf("ignore %s=%q: %v", key, v, err)
			}
		}
	}
	str("WMBUS_GATEWAY_ID", &c.GatewayID)
	str("WMBUS_RADIO", &c.Radio)
	if v := getenv("WMBUS_FREQUENCY"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.FrequencyMHz = f
		} else {
			glog.Warningf("ignore WMBUS_FREQUENCY=%q: %v", v, err)
		}
	}
	str("WMBUS_SPI_DEVICE", &c.SPIDevice)
	str("WMBUS_SYNC_PIN", &c.SyncPin)
	str("WMBUS_DATA_PIN", &c.DataPin)
	str("WMBUS_INTERRUPT_PIN", &c.InterruptPin)
	dur("WMBUS_POLL_INTERVAL", &c.PollInterval)
	dur("WMBUS_SYNC_TIMEOUT", &c.SyncTimeout)
	str("WMBUS_MQTT_URL", &c.MQTTURL)
	str("WMBUS_STORE", &c.StorePath)
	str("WMBUS_WEBSOCKET_ADDR", &c.WebsocketAddr)
	str("WMBUS_REPLAY_FILE", &c.ReplayFile)
	dur("WMBUS_REPLAY_INTERVAL", &c.ReplayInterval)
}

// DefaultGatewayID derives a stable ID from the machine ID, falling
// back to the host name.
func DefaultGatewayID() string {
	if id, err := machineid.ProtectedID("wmbus"); err == nil {
		return id[:12]
	}
	if name, err := os.Hostname(); err == nil {
		return name
	}
	return "wmbus"
}

// SetupFlags binds the default config to command line flags.
func SetupFlags() {
	c := &defaultConfig
	flag.StringVar(&c.GatewayID, "gateway-id", c.GatewayID, "Gateway ID used in topics and status.")
	flag.StringVar(&c.Radio, "radio", c.Radio, "Radio: cc1101 or replay.")
	flag.Float64Var(&c.FrequencyMHz, "frequency", c.FrequencyMHz, "Carrier frequency in MHz.")
	flag.StringVar(&c.SPIDevice, "spi", c.SPIDevice, "SPI port name, empty for the first one.")
	flag.Int64Var(&c.SPISpeedHz, "spi-speed", c.SPISpeedHz, "SPI clock in Hz.")
	flag.StringVar(&c.SyncPin, "sync-pin", c.SyncPin, "GPIO connected to GDO2 (sync word).")
	flag.StringVar(&c.DataPin, "data-pin", c.DataPin, "GPIO connected to GDO0 (FIFO threshold).")
	flag.StringVar(&c.InterruptPin, "interrupt-pin", c.InterruptPin, "GPIO waking the receiver, empty to poll.")
	flag.DurationVar(&c.PollInterval, "poll-interval", c.PollInterval, "Receiver poll interval.")
	flag.DurationVar(&c.SyncTimeout, "sync-timeout", c.SyncTimeout, "Time to wait for data after sync.")
	flag.DurationVar(&c.InterruptTimeout, "interrupt-timeout", c.InterruptTimeout, "Maximum wait for an interrupt.")
	flag.DurationVar(&c.HealthInterval, "health-interval", c.HealthInterval, "Receiver health check interval.")
	flag.DurationVar(&c.DispatchInterval, "dispatch-interval", c.DispatchInterval, "Frame dispatch interval.")
	flag.DurationVar(&c.StatusInterval, "status-interval", c.StatusInterval, "Status report interval.")
	flag.IntVar(&c.QueueSize, "queue-size", c.QueueSize, "Frames buffered between receiver and handlers.")
	flag.StringVar(&c.MQTTURL, "mqtt", c.MQTTURL, "MQTT broker URL, e.g. mqtt://host:1883/wmbus/.")
	flag.StringVar(&c.StorePath, "store", c.StorePath, "SQLite frame log path.")
	flag.StringVar(&c.WebsocketAddr, "websocket", c.WebsocketAddr, "Websocket listen address.")
	flag.StringVar(&c.ReplayFile, "replay-file", c.ReplayFile, "Frames to replay, hex or rtl-wmbus lines.")
	flag.DurationVar(&c.ReplayInterval, "replay-interval", c.ReplayInterval, "Interval between replayed frames.")
	flag.BoolVar(&c.ReplayLoop, "replay-loop", c.ReplayLoop, "Restart replay after the last frame.")
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with defaults.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

type fileConfig struct {
	GatewayID        string  `toml:"gateway_id"`
	Radio            string  `toml:"radio"`
	FrequencyMHz     float64 `toml:"frequency"`
	SPIDevice        string  `toml:"spi"`
	SPISpeedHz       int64   `toml:"spi_speed"`
	SyncPin          string  `toml:"sync_pin"`
	DataPin          string  `toml:"data_pin"`
	InterruptPin     string  `toml:"interrupt_pin"`
	PollInterval     string  `toml:"poll_interval"`
	SyncTimeout      string  `toml:"sync_timeout"`
	InterruptTimeout string  `toml:"interrupt_timeout"`
	HealthInterval   string  `toml:"health_interval"`
	DispatchInterval string  `toml:"dispatch_interval"`
	StatusInterval   string  `toml:"status_interval"`
	QueueSize        int     `toml:"queue_size"`
	MQTTURL          string  `toml:"mqtt"`
	StorePath        string  `toml:"store"`
	WebsocketAddr    string  `toml:"websocket"`
	ReplayFile       string  `toml:"replay_file"`
	ReplayInterval   string  `toml:"replay_interval"`
	ReplayLoop       bool    `toml:"replay_loop"`
}

// LoadFile overlays the keys defined in a TOML file.
func (c *Config) LoadFile(path string) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	for _, key := range meta.Undecoded() {
		glog.Warningf("config %s: unknown key %q", path, key.String())
	}
	if meta.IsDefined("gateway_id") {
		c.GatewayID = strings.TrimSpace(raw.GatewayID)
	}
	if meta.IsDefined("radio") {
		c.Radio = strings.TrimSpace(raw.Radio)
	}
	if meta.IsDefined("frequency") {
		c.FrequencyMHz = raw.FrequencyMHz
	}
	if meta.IsDefined("spi") {
		c.SPIDevice = raw.SPIDevice
	}
	if meta.IsDefined("spi_speed") {
		c.SPISpeedHz = raw.SPISpeedHz
	}
	if meta.IsDefined("sync_pin") {
		c.SyncPin = raw.SyncPin
	}
	if meta.IsDefined("data_pin") {
		c.DataPin = raw.DataPin
	}
	if meta.IsDefined("interrupt_pin") {
		c.InterruptPin = raw.InterruptPin
	}
	if meta.IsDefined("queue_size") {
		c.QueueSize = raw.QueueSize
	}
	if meta.IsDefined("mqtt") {
		c.MQTTURL = raw.MQTTURL
	}
	if meta.IsDefined("store") {
		c.StorePath = raw.StorePath
	}
	if meta.IsDefined("websocket") {
		c.WebsocketAddr = raw.WebsocketAddr
	}
	if meta.IsDefined("replay_file") {
		c.ReplayFile = raw.ReplayFile
	}
	if meta.IsDefined("replay_loop") {
		c.ReplayLoop = raw.ReplayLoop
	}
	durations := []struct {
		key string
		raw string
		val *time.Duration
	}{
		{"poll_interval", raw.PollInterval, &c.PollInterval},
		{"sync_timeout", raw.SyncTimeout, &c.SyncTimeout},
		{"interrupt_timeout", raw.InterruptTimeout, &c.InterruptTimeout},
		{"health_interval", raw.HealthInterval, &c.HealthInterval},
		{"dispatch_interval", raw.DispatchInterval, &c.DispatchInterval},
		{"status_interval", raw.StatusInterval, &c.StatusInterval},
		{"replay_interval", raw.ReplayInterval, &c.ReplayInterval},
	}
	for _, d := range durations {
		if !meta.IsDefined(d.key) {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("config %s: %s: %w", path, d.key, err)
		}
		*d.val = v
	}
	return nil
}

// Validate checks the config is usable.
func (c *Config) Validate() error {
	switch c.Radio {
	case RadioCC1101:
		if c.FrequencyMHz < cc1101.MinFrequencyMHz || c.FrequencyMHz > cc1101.MaxFrequencyMHz {
			return fmt.Errorf("%w: %v MHz", cc1101.ErrFrequencyRange, c.FrequencyMHz)
		}
		if c.SyncPin == "" || c.DataPin == "" {
			return fmt.Errorf("sync and data pins are required")
		}
	case RadioReplay:
		if c.ReplayFile == "" {
			return fmt.Errorf("replay file is required")
		}
	default:
		return fmt.Errorf("unknown radio %q", c.Radio)
	}
	if c.GatewayID == "" {
		return fmt.Errorf("gateway id is required")
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("invalid queue size %d", c.QueueSize)
	}
	return nil
}
