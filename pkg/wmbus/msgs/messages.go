// Package msgs defines the protobuf messages published by the gateway.
package msgs

import (
	"time"

	"github.com/golang/protobuf/proto"

	"github.com/robotalks/wmbus.go/pkg/wmbus"
)

// FrameEvent carries one received frame.
type FrameEvent struct {
	GatewayID    string `protobuf:"bytes,1,opt,name=gateway_id,proto3" json:"gateway_id,omitempty"`
	Data         []byte `protobuf:"bytes,2,opt,name=data,proto3" json:"data,omitempty"`
	RSSI         int32  `protobuf:"zigzag32,3,opt,name=rssi,proto3" json:"rssi,omitempty"`
	TimestampNs  int64  `protobuf:"varint,4,opt,name=timestamp_ns,proto3" json:"timestamp_ns,omitempty"`
	Mode         string `protobuf:"bytes,5,opt,name=mode,proto3" json:"mode,omitempty"`
	Block        string `protobuf:"bytes,6,opt,name=block,proto3" json:"block,omitempty"`
	Manufacturer string `protobuf:"bytes,7,opt,name=manufacturer,proto3" json:"manufacturer,omitempty"`
	MeterID      string `protobuf:"bytes,8,opt,name=meter_id,proto3" json:"meter_id,omitempty"`
}

// NewFrameEvent builds the event for a frame received by gatewayID.
func NewFrameEvent(gatewayID string, f *wmbus.Frame) *FrameEvent {
	m := &FrameEvent{
		GatewayID:   gatewayID,
		Data:        f.Data(),
		RSSI:        int32(f.RSSI()),
		TimestampNs: f.Timestamp().UnixNano(),
		Mode:        f.Mode().String(),
		Block:       f.Block().String(),
	}
	if h, err := f.LinkHeader(); err == nil {
		m.Manufacturer, m.MeterID = h.Manufacturer, h.ID
	}
	return m
}

// Frame converts the event back to a frame.
func (m *FrameEvent) Frame() *wmbus.Frame {
	return wmbus.NewFrame(m.Data, int8(m.RSSI), time.Unix(0, m.TimestampNs),
		wmbus.ParseMode(m.Mode), wmbus.ParseBlock(m.Block))
}

// ProtoMessage implements proto.Message.
func (m *FrameEvent) ProtoMessage() {}

// Reset implements proto.Message.
func (m *FrameEvent) Reset() { *m = FrameEvent{} }

// String implements proto.Message.
func (m *FrameEvent) String() string { return proto.CompactTextString(m) }

// GatewayStatus is the retained status of a gateway.
type GatewayStatus struct {
	GatewayID string `protobuf:"bytes,1,opt,name=gateway_id,proto3" json:"gateway_id,omitempty"`
	Online    bool   `protobuf:"varint,2,opt,name=online,proto3" json:"online,omitempty"`
	Radio     string `protobuf:"bytes,3,opt,name=radio,proto3" json:"radio,omitempty"`
	Frames    uint64 `protobuf:"varint,4,opt,name=frames,proto3" json:"frames,omitempty"`
	Dropped   uint64 `protobuf:"varint,5,opt,name=dropped,proto3" json:"dropped,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *GatewayStatus) ProtoMessage() {}

// Reset implements proto.Message.
func (m *GatewayStatus) Reset() { *m = GatewayStatus{} }

// String implements proto.Message.
func (m *GatewayStatus) String() string { return proto.CompactTextString(m) }
