package wmbus

import "fmt"

// LinkHeaderSize is the size of the data link layer header starting at the
// L-field.
const LinkHeaderSize = 10

// LinkHeader is the wM-Bus data link layer header.
type LinkHeader struct {
	L            byte
	C            byte
	Manufacturer string
	ID           string
	Version      byte
	DeviceType   byte
}

// ParseLinkHeader parses the header from a payload starting at the L-field.
func ParseLinkHeader(payload []byte) (LinkHeader, error) {
	if len(payload) < LinkHeaderSize {
		return LinkHeader{}, ErrShortFrame
	}
	m := uint16(payload[2]) | uint16(payload[3])<<8
	return LinkHeader{
		L:            payload[0],
		C:            payload[1],
		Manufacturer: manufacturer(m),
		ID:           fmt.Sprintf("%02x%02x%02x%02x", payload[7], payload[6], payload[5], payload[4]),
		Version:      payload[8],
		DeviceType:   payload[9],
	}, nil
}

// manufacturer decodes the 3 letter FLAG code packed 5 bits per letter.
func manufacturer(m uint16) string {
	return string([]byte{
		byte((m>>10)&0x1f) + 64,
		byte((m>>5)&0x1f) + 64,
		byte(m&0x1f) + 64,
	})
}

// String implements fmt.Stringer.
func (h LinkHeader) String() string {
	return fmt.Sprintf("%s %s ver=%02x type=%02x", h.Manufacturer, h.ID, h.Version, h.DeviceType)
}
