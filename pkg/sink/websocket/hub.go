// Package websocket streams received frames to websocket clients as JSON.
package websocket

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	"github.com/robotalks/wmbus.go/pkg/wmbus"
)

// ClientBuffer is the number of messages queued per client before
// messages to that client are dropped.
const ClientBuffer = 16

// FrameMessage is the JSON form of a frame.
type FrameMessage struct {
	Gateway      string    `json:"gateway,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	Mode         string    `json:"mode"`
	Block        string    `json:"block"`
	RSSI         int       `json:"rssi"`
	Length       int       `json:"length"`
	Manufacturer string    `json:"manufacturer,omitempty"`
	MeterID      string    `json:"meter_id,omitempty"`
	Data         string    `json:"data"`
	RTLWMBus     string    `json:"rtlwmbus"`
}

// NewFrameMessage converts a frame.
func NewFrameMessage(gateway string, f *wmbus.Frame) *FrameMessage {
	m := &FrameMessage{
		Gateway:   gateway,
		Timestamp: f.Timestamp().UTC(),
		Mode:      f.Mode().String(),
		Block:     f.Block().String(),
		RSSI:      int(f.RSSI()),
		Length:    f.Len(),
		Data:      f.Hex(),
		RTLWMBus:  f.RTLWMBus(),
	}
	if h, err := f.LinkHeader(); err == nil {
		m.Manufacturer, m.MeterID = h.Manufacturer, h.ID
	}
	return m
}

type client struct {
	addr string
	out  chan *FrameMessage
}

// Hub fans frames out to connected clients.
type Hub struct {
	Addr    string
	Gateway string

	lock    sync.RWMutex
	clients map[*client]struct{}
	handler http.Handler
}

// NewHub creates a Hub serving on addr when run.
func NewHub(addr, gateway string) *Hub {
	h := &Hub{Addr: addr, Gateway: gateway, clients: make(map[*client]struct{})}
	h.handler = websocket.Handler(h.serve)
	return h
}

// Name implements framework.Named.
func (h *Hub) Name() string {
	return "websocket"
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.lock.RLock()
	defer h.lock.RUnlock()
	return len(h.clients)
}

// ServeHTTP implements http.Handler.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.handler.ServeHTTP(w, r)
}

// HandleFrame broadcasts the frame. A client with a full buffer misses it.
func (h *Hub) HandleFrame(ctx context.Context, f *wmbus.Frame) bool {
	msg := NewFrameMessage(h.Gateway, f)
	h.lock.RLock()
	defer h.lock.RUnlock()
	for c := range h.clients {
		select {
		case c.out <- msg:
		default:
			glog.Warningf("websocket: client %s too slow, frame dropped", c.addr)
		}
	}
	return len(h.clients) > 0
}

// Run serves websocket clients on Addr until ctx is done.
func (h *Hub) Run(ctx context.Context) error {
	server := &http.Server{Addr: h.Addr, Handler: h}
	errCh := make(chan error, 1)
	go func() {
		glog.Infof("websocket: listening on %s", h.Addr)
		errCh <- server.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	h.closeAll()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func (h *Hub) serve(conn *websocket.Conn) {
	c := &client{addr: conn.Request().RemoteAddr, out: make(chan *FrameMessage, ClientBuffer)}
	h.lock.Lock()
	h.clients[c] = struct{}{}
	h.lock.Unlock()
	glog.V(1).Infof("websocket: client %s connected", c.addr)

	done := make(chan struct{})
	go func() {
		// reads only detect the peer going away
		var ignored []byte
		for websocket.Message.Receive(conn, &ignored) == nil {
		}
		close(done)
	}()

	defer func() {
		h.lock.Lock()
		delete(h.clients, c)
		h.lock.Unlock()
		conn.Close()
		glog.V(1).Infof("websocket: client %s disconnected", c.addr)
	}()
	for {
		select {
		case <-done:
			return
		case msg, ok := <-c.out:
			if !ok {
				return
			}
			if err := websocket.JSON.Send(conn, msg); err != nil {
				glog.Warningf("websocket: send: %v", err)
				return
			}
		}
	}
}

func (h *Hub) closeAll() {
	h.lock.Lock()
	defer h.lock.Unlock()
	for c := range h.clients {
		close(c.out)
		delete(h.clients, c)
	}
}
