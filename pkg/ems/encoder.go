package ems

// ErrorRecordWidth is the fixed byte width of one error-log entry as
// delivered by the UBA.
const ErrorRecordWidth = 4

// Build serialises an outbound command into the on-wire byte layout:
// dest | type | offset | payload, with the source byte omitted (the
// link layer supplies it) and the high bit of dest set iff a reply is
// expected. It returns ErrPayloadTooLarge if offset+len(payload) would
// run past the single-byte addressable offset range.
func Build(dest, typ, offset byte, payload []byte, expectResponse bool) ([]byte, error) {
	if int(offset)+len(payload) > 0xff {
		return nil, ErrPayloadTooLarge
	}
	d := dest
	if expectResponse {
		d = WithResponseRequested(d)
	}
	out := make([]byte, 3+len(payload))
	out[0] = d
	out[1] = typ
	out[2] = offset
	copy(out[3:], payload)
	return out, nil
}
