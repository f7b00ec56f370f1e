// Package wmbus defines the frames produced by the wM-Bus receive path.
//
// A Frame is what the radio hands to the rest of the gateway: the raw bytes
// of one telegram as they came off the air (Mode T frames already 3-of-6
// decoded), the signal strength, the receive time, and the link mode and
// frame format detected from the first header bytes.
//
// Mode C frames keep their two byte preamble (0x54 followed by 0xCD for
// format A or 0x3D for format B). Payload returns the telegram starting at
// the L-field for both modes.
package wmbus
