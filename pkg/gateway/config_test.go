package gateway

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/wmbus.go/pkg/radio/cc1101"
)

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"WMBUS_GATEWAY_ID":    "attic",
		"WMBUS_RADIO":         "replay",
		"WMBUS_FREQUENCY":     "868.3",
		"WMBUS_POLL_INTERVAL": "5ms",
		"WMBUS_SYNC_TIMEOUT":  "soon",
		"WMBUS_MQTT_URL":      "mqtt://broker/wmbus/",
	}
	c := NewConfig()
	applyEnv(c, func(key string) string { return env[key] })
	require.Equal(t, "attic", c.GatewayID)
	require.Equal(t, RadioReplay, c.Radio)
	require.Equal(t, 868.3, c.FrequencyMHz)
	require.Equal(t, 5*time.Millisecond, c.PollInterval)
	require.Equal(t, cc1101.DefaultSyncTimeout, c.SyncTimeout)
	require.Equal(t, "mqtt://broker/wmbus/", c.MQTTURL)
}

func TestLoadFile(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "wmbus.toml")
	require.NoError(t, os.WriteFile(fn, []byte(`
gateway_id = "cellar"
frequency = 868.95
interrupt_pin = "GPIO23"
poll_interval = "4ms"
store = "/var/lib/wmbus/frames.db"
replay_loop = true
`), 0644))
	c := NewConfig()
	c.MQTTURL = "mqtt://keep/"
	require.NoError(t, c.LoadFile(fn))
	require.Equal(t, "cellar", c.GatewayID)
	require.Equal(t, "GPIO23", c.InterruptPin)
	require.Equal(t, 4*time.Millisecond, c.PollInterval)
	require.Equal(t, "/var/lib/wmbus/frames.db", c.StorePath)
	require.True(t, c.ReplayLoop)
	require.Equal(t, "mqtt://keep/", c.MQTTURL)
	require.Equal(t, Default().SyncPin, c.SyncPin)

	require.NoError(t, os.WriteFile(fn, []byte(`sync_timeout = "later"`), 0644))
	err := c.LoadFile(fn)
	require.Error(t, err)
	require.Contains(t, err.Error(), "sync_timeout")

	require.Error(t, c.LoadFile(filepath.Join(t.TempDir(), "missing.toml")))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		ok     bool
	}{
		{"default", func(*Config) {}, true},
		{"frequency too low", func(c *Config) { c.FrequencyMHz = 299 }, false},
		{"frequency too high", func(c *Config) { c.FrequencyMHz = 929 }, false},
		{"no pins", func(c *Config) { c.SyncPin = "" }, false},
		{"replay without file", func(c *Config) { c.Radio = RadioReplay }, false},
		{"replay", func(c *Config) { c.Radio, c.ReplayFile = RadioReplay, "frames.txt" }, true},
		{"unknown radio", func(c *Config) { c.Radio = "rfm69" }, false},
		{"no gateway id", func(c *Config) { c.GatewayID = "" }, false},
		{"no queue", func(c *Config) { c.QueueSize = 0 }, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := NewConfig()
			c.GatewayID = "gw"
			tc.modify(c)
			err := c.Validate()
			if tc.ok {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
}

func TestValidateFrequencyError(t *testing.T) {
	c := NewConfig()
	c.GatewayID, c.FrequencyMHz = "gw", 100
	require.ErrorIs(t, c.Validate(), cc1101.ErrFrequencyRange)
}
