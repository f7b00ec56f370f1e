package wmbus

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const rtlTimeLayout = "2006-01-02 15:04:05.000"

// ParseFrameLine parses a frame from either a hex dump of the bytes after the
// sync word or an rtl-wmbus output line. now is used when the line carries
// no timestamp.
func ParseFrameLine(line string, now time.Time) (*Frame, error) {
	line = strings.TrimSpace(line)
	if strings.Contains(line, ";") {
		return parseRTLWMBus(line)
	}
	data, err := parseHex(line)
	if err != nil {
		return nil, err
	}
	if len(data) >= 2 && data[0] == PreambleModeC {
		switch data[1] {
		case MarkerBlockA:
			return NewFrame(data, 0, now, ModeC, BlockA), nil
		case MarkerBlockB:
			return NewFrame(data, 0, now, ModeC, BlockB), nil
		}
	}
	return NewFrame(data, 0, now, ModeT, BlockA), nil
}

func parseRTLWMBus(line string) (*Frame, error) {
	fields := strings.Split(line, ";")
	if len(fields) < 8 || fields[0] == "" {
		return nil, fmt.Errorf("rtl-wmbus line with %d fields", len(fields))
	}
	mode := ParseMode(fields[0][:1])
	block := BlockUnknown
	if mode == ModeT {
		block = BlockA
	}
	ts, err := time.ParseInLocation(rtlTimeLayout, fields[3], time.UTC)
	if err != nil {
		return nil, fmt.Errorf("rtl-wmbus timestamp: %w", err)
	}
	rssi, err := strconv.Atoi(fields[4])
	if err != nil {
		return nil, fmt.Errorf("rtl-wmbus rssi: %w", err)
	}
	data, err := parseHex(fields[7])
	if err != nil {
		return nil, err
	}
	return NewFrame(data, int8(rssi), ts, mode, block), nil
}

func parseHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("frame hex: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrShortFrame
	}
	return data, nil
}
