package ems

// Frame is a decoded bus telegram, after the (external) link layer has
// stripped CRC/framing: source(1) | dest(1) | type(1) | offset(1)
// | payload(0..N).
type Frame struct {
	Source  byte
	Dest    byte
	Type    byte
	Offset  byte
	Payload []byte
}

// ParseFrame decodes raw link-layer bytes into a Frame. Frames shorter
// than four bytes are invalid and must be silently discarded.
func ParseFrame(raw []byte) (Frame, bool) {
	if len(raw) < 4 {
		return Frame{}, false
	}
	f := Frame{
		Source: raw[0],
		Dest:   raw[1],
		Type:   raw[2],
		Offset: raw[3],
	}
	if len(raw) > 4 {
		f.Payload = raw[4:]
	}
	return f, true
}

// IsAllZeroHeader reports the invalid source==dest==type==0 header.
func (f Frame) IsAllZeroHeader() bool {
	return f.Source == 0 && f.Dest == 0 && f.Type == 0
}

// IsPolling reports whether this frame is a polling request: its dest
// carries the high bit, and it must never be decoded.
func (f Frame) IsPolling() bool {
	return IsPolling(f.Dest)
}

// end is the logical index just past the frame's payload; bytes at
// [f.Offset, end) are physically present.
func (f Frame) end() int {
	return int(f.Offset) + len(f.Payload)
}

// CanAccess reports whether the closed-open logical byte range
// [logicalOffset, logicalOffset+width) lies entirely inside this frame's
// payload window. A descriptor only fires when this holds.
func (f Frame) CanAccess(logicalOffset, width int) bool {
	if logicalOffset < int(f.Offset) || width < 0 {
		return false
	}
	return logicalOffset+width <= f.end()
}

// byteAt returns the payload byte at the given logical offset. Callers
// must have checked CanAccess(logicalOffset, 1) first.
func (f Frame) byteAt(logicalOffset int) byte {
	return f.Payload[logicalOffset-int(f.Offset)]
}

// bytesAt returns width payload bytes starting at the given logical
// offset. Callers must have checked CanAccess(logicalOffset, width)
// first.
func (f Frame) bytesAt(logicalOffset, width int) []byte {
	start := logicalOffset - int(f.Offset)
	return f.Payload[start : start+width]
}

// At returns the width payload bytes at the given logical offset for
// callers outside this package, such as the command layer reading a
// setpoint straight out of a bus reply. Callers must check
// CanAccess(logicalOffset, width) first.
func (f Frame) At(logicalOffset, width int) []byte {
	return f.bytesAt(logicalOffset, width)
}

// IsPCDirected reports whether this inbound frame is addressed to this
// program, masking off the high bit a module sets when replying to a
// request.
func (f Frame) IsPCDirected() bool {
	return f.Dest&^pollBit == PC
}

// ParseFrameStrict is ParseFrame with the failure reported as
// ErrFrameTooShort instead of a bare bool, for callers that want to log
// or wrap the error as a value rather than branch on ok.
func ParseFrameStrict(raw []byte) (Frame, error) {
	f, ok := ParseFrame(raw)
	if !ok {
		return Frame{}, ErrFrameTooShort
	}
	return f, nil
}

// Numeric reads the scaled value of field from f, applying the same
// signed-extension rule the decoder uses for every numericDescriptor,
// and reports whether the bytes were present. Callers that need to read
// a field the decoder also decodes (such as the command layer echoing a
// setpoint back to a client) should get its offset/width/divider from
// the matching exported field accessor instead of hardcoding them, so
// the two layers cannot drift apart.
func (f Frame) Numeric(field NumericField) (float64, bool) {
	if !f.CanAccess(field.Offset, field.Width) {
		return 0, false
	}
	return decodeSigned(f.bytesAt(field.Offset, field.Width), field.Divider), true
}
