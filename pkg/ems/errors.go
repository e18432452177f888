package ems

import "errors"

// Sentinel errors for the encoder/decoder boundary, following
// GoAethereal-modbus/error.go's split between narrowly-scoped protocol
// errors.
var (
	// ErrFrameTooShort is returned by callers that want an explicit error
	// instead of ParseFrame's (Frame{}, false) form.
	ErrFrameTooShort = errors.New("ems: frame shorter than 4 bytes")
	// ErrPayloadTooLarge signals an encode request whose payload would
	// not fit the wire layout's single-byte offset addressing.
	ErrPayloadTooLarge = errors.New("ems: payload exceeds addressable offset range")
)
