package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/golang/glog"
	"github.com/golang/protobuf/proto"

	"github.com/robotalks/wmbus.go/pkg/sink/mqtt"
	"github.com/robotalks/wmbus.go/pkg/wmbus/msgs"
)

var (
	mqttURL = "mqtt://localhost:1883/wmbus/"
	meterID string
)

func init() {
	if val := os.Getenv("WMBUS_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
	flag.StringVar(&meterID, "meter", meterID, "Only print frames from this meter.")
}

func printStatus(topic string, payload []byte) {
	var st msgs.GatewayStatus
	if err := proto.Unmarshal(payload, &st); err != nil {
		glog.Warningf("%s: bad status: %v", topic, err)
		return
	}
	state := "offline"
	if st.Online {
		state = "online"
	}
	glog.Infof("%s: %s radio=%s frames=%d dropped=%d", st.GatewayID, state, st.Radio, st.Frames, st.Dropped)
}

func printFrame(topic string, payload []byte) {
	var ev msgs.FrameEvent
	if err := proto.Unmarshal(payload, &ev); err != nil {
		glog.Warningf("%s: bad frame: %v", topic, err)
		return
	}
	if meterID != "" && !strings.EqualFold(meterID, ev.MeterID) {
		return
	}
	f := ev.Frame()
	glog.Infof("%s: %s %s %s", ev.GatewayID, f, ev.Manufacturer+ev.MeterID, f.PayloadHex())
}

func main() {
	flag.Set("logtostderr", "true")
	flag.Parse()
	defer glog.Flush()

	client, err := mqtt.NewClientFromURL(mqttURL)
	if err != nil {
		glog.Exit(err)
	}
	client.Subscribe("+/status", printStatus)
	client.Subscribe("+/frames", printFrame)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := client.Connect(ctx); err != nil {
		glog.Exit(err)
	}
	<-ctx.Done()
	client.Close()
}
