// Package frame adds frame inspection commands to the shell.
package frame

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/wmbus.go/pkg/cli/sh"
	"github.com/robotalks/wmbus.go/pkg/wmbus"
	"github.com/robotalks/wmbus.go/pkg/wmbus/threeofsix"
)

// Info describes a classified header.
type Info struct {
	Mode           string `json:"mode"`
	Block          string `json:"block"`
	LField         int    `json:"l_field"`
	ExpectedLength int    `json:"expected_length"`
	DecodedLength  int    `json:"decoded_length"`
}

// Telegram describes a parsed frame line.
type Telegram struct {
	Mode         string `json:"mode"`
	Block        string `json:"block"`
	RSSI         int    `json:"rssi"`
	Length       int    `json:"length"`
	Manufacturer string `json:"manufacturer,omitempty"`
	MeterID      string `json:"meter_id,omitempty"`
	Version      int    `json:"version,omitempty"`
	DeviceType   int    `json:"device_type,omitempty"`
	Payload      string `json:"payload"`
	RTLWMBus     string `json:"rtlwmbus"`
}

func hexArg(args []string) ([]byte, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("HEX required")
	}
	s := strings.TrimPrefix(strings.Join(args, ""), "0x")
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid HEX: %v", err)
	}
	return data, nil
}

// Classify classifies the first bytes after a sync word.
func Classify(data []byte) (*Info, error) {
	if len(data) < wmbus.HeaderSize {
		return nil, fmt.Errorf("%d header bytes required", wmbus.HeaderSize)
	}
	h, err := wmbus.ClassifyHeader(data[:wmbus.HeaderSize])
	if err != nil {
		return nil, err
	}
	return &Info{
		Mode:           h.Mode.String(),
		Block:          h.Block.String(),
		LField:         int(h.LField),
		ExpectedLength: h.ExpectedLength,
		DecodedLength:  h.DecodedLength(),
	}, nil
}

// Parse parses a hex or rtl-wmbus line.
func Parse(line string, now time.Time) (*Telegram, error) {
	f, err := wmbus.ParseFrameLine(line, now)
	if err != nil {
		return nil, err
	}
	t := &Telegram{
		Mode:     f.Mode().String(),
		Block:    f.Block().String(),
		RSSI:     int(f.RSSI()),
		Length:   f.Len(),
		Payload:  f.PayloadHex(),
		RTLWMBus: f.RTLWMBus(),
	}
	if h, err := f.LinkHeader(); err == nil {
		t.Manufacturer, t.MeterID = h.Manufacturer, h.ID
		t.Version, t.DeviceType = int(h.Version), int(h.DeviceType)
	}
	return t, nil
}

var (
	// DecodeCmd decodes 3-of-6 encoded bytes.
	DecodeCmd = ishell.Cmd{
		Name:    "decode",
		Aliases: []string{"d"},
		Help:    "HEX",
		Func: func(c *ishell.Context) {
			data, err := hexArg(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			decoded, err := threeofsix.Decode(data)
			if err != nil {
				c.Err(err)
				return
			}
			out := strings.ToUpper(hex.EncodeToString(decoded))
			sh.Output(c, map[string]string{"decoded": out}, out)
		},
	}

	// EncodeCmd 3-of-6 encodes bytes.
	EncodeCmd = ishell.Cmd{
		Name:    "encode",
		Aliases: []string{"e"},
		Help:    "HEX",
		Func: func(c *ishell.Context) {
			data, err := hexArg(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			out := strings.ToUpper(hex.EncodeToString(threeofsix.Encode(data)))
			sh.Output(c, map[string]string{"encoded": out}, out)
		},
	}

	// ClassifyCmd classifies a header.
	ClassifyCmd = ishell.Cmd{
		Name:    "classify",
		Aliases: []string{"c"},
		Help:    "HEX (first 3 bytes after sync)",
		Func: func(c *ishell.Context) {
			data, err := hexArg(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			info, err := Classify(data)
			if err != nil {
				c.Err(err)
				return
			}
			sh.Output(c, info, fmt.Sprintf("mode %s block %s L=%d expect %d bytes, %d decoded",
				info.Mode, info.Block, info.LField, info.ExpectedLength, info.DecodedLength))
		},
	}

	// SizeCmd prints the on-air size of a Mode T packet.
	SizeCmd = ishell.Cmd{
		Name: "size",
		Help: "L (decimal or 0x hex)",
		Func: func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Err(fmt.Errorf("L required"))
				return
			}
			l, err := strconv.ParseUint(c.Args[0], 0, 8)
			if err != nil {
				c.Err(fmt.Errorf("invalid L: %v", err))
				return
			}
			size := wmbus.ModeTPacketSize(byte(l))
			encoded := threeofsix.EncodedSize(size)
			sh.Output(c, map[string]int{"decoded": size, "encoded": encoded},
				fmt.Sprintf("%d bytes decoded, %d bytes on air", size, encoded))
		},
	}

	// ParseCmd parses a frame line.
	ParseCmd = ishell.Cmd{
		Name:    "parse",
		Aliases: []string{"p", "header"},
		Help:    "HEX | rtl-wmbus line",
		Func: func(c *ishell.Context) {
			if len(c.Args) == 0 {
				c.Err(fmt.Errorf("frame required"))
				return
			}
			t, err := Parse(strings.Join(c.Args, " "), time.Now())
			if err != nil {
				c.Err(err)
				return
			}
			text := fmt.Sprintf("%s%s %d bytes %ddBm", t.Mode, t.Block, t.Length, t.RSSI)
			if t.MeterID != "" {
				text += fmt.Sprintf(" %s %s v%d type %d", t.Manufacturer, t.MeterID, t.Version, t.DeviceType)
			}
			sh.Output(c, t, text+"\n"+t.RTLWMBus)
		},
	}
)

func init() {
	sh.AddCmds(
		&DecodeCmd,
		&EncodeCmd,
		&ClassifyCmd,
		&SizeCmd,
		&ParseCmd,
	)
}
