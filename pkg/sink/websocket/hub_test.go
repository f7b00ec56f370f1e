package websocket

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"

	"github.com/robotalks/wmbus.go/pkg/wmbus"
)

func TestHubBroadcast(t *testing.T) {
	hub := NewHub("", "gw1")
	server := httptest.NewServer(hub)
	defer server.Close()

	f := wmbus.NewFrame([]byte{0x0a, 0x44, 0x93, 0x15, 0x78, 0x56, 0x34, 0x12, 0x33, 0x03, 0x00},
		-71, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), wmbus.ModeT, wmbus.BlockA)
	require.False(t, hub.HandleFrame(context.Background(), f))

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, err := websocket.Dial(url, "", server.URL)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	require.True(t, hub.HandleFrame(context.Background(), f))
	var msg FrameMessage
	require.NoError(t, websocket.JSON.Receive(conn, &msg))
	require.Equal(t, "gw1", msg.Gateway)
	require.Equal(t, "T", msg.Mode)
	require.Equal(t, "A", msg.Block)
	require.Equal(t, -71, msg.RSSI)
	require.Equal(t, "ELS", msg.Manufacturer)
	require.Equal(t, "12345678", msg.MeterID)
	require.Equal(t, f.Hex(), msg.Data)
	require.Equal(t, f.RTLWMBus(), msg.RTLWMBus)

	conn.Close()
	require.Eventually(t, func() bool { return hub.Clients() == 0 }, time.Second, 5*time.Millisecond)
}

func TestHubSlowClientDrops(t *testing.T) {
	hub := NewHub("", "")
	c := &client{addr: "slow", out: make(chan *FrameMessage, 1)}
	hub.clients[c] = struct{}{}
	f1 := wmbus.NewFrame([]byte{0x02, 0x44, 0x01}, -90, time.Now(), wmbus.ModeT, wmbus.BlockA)
	f2 := wmbus.NewFrame([]byte{0x02, 0x44, 0x02}, -90, time.Now(), wmbus.ModeT, wmbus.BlockA)
	require.True(t, hub.HandleFrame(context.Background(), f1))
	require.True(t, hub.HandleFrame(context.Background(), f2))
	require.Len(t, c.out, 1)

	hub.closeAll()
	require.Zero(t, hub.Clients())
	msg, ok := <-c.out
	require.True(t, ok)
	require.Equal(t, "024401", msg.Data)
	_, ok = <-c.out
	require.False(t, ok)
}
