// Package ems decodes the proprietary serial-bus protocol used by a family
// of residential heating controllers (boiler, room controller, mixer and
// warm-water modules) into a typed value stream, and encodes outbound
// command telegrams in the same wire format.
package ems

// Address identifies one module on the bus. It is a single byte, treated
// as an opaque discriminator; the constants below are this
// implementation's choice, fixed only where a known worked example
// pins one (UBA).
const (
	UBA  byte = 0x08 // boiler controller
	BC10 byte = 0x09 // boiler controller extension
	RC   byte = 0x10 // room controller
	WM10 byte = 0x11 // mixer / warm-water module
	MM10 byte = 0x21 // second mixer module
	PC   byte = 0x0B // this program, as seen by the bus
)

// pollBit marks a destination byte as a polling request: no payload to
// decode, and consumers must never see a callback for it.
const pollBit byte = 0x80

// IsPolling reports whether dest carries the polling high bit.
func IsPolling(dest byte) bool {
	return dest&pollBit != 0
}

// WithResponseRequested sets the high bit of dest, the wire signal that a
// reply is expected from the addressed module.
func WithResponseRequested(dest byte) byte {
	return dest | pollBit
}
