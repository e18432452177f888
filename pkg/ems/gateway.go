package ems

import "context"

// Gateway is the abstract bus transport contract consumed by the core.
// Implementations (serial line, TCP-tunnelled serial, ...) live outside
// this package as external collaborators.
type Gateway interface {
	// Send enqueues one outbound frame. It must be safe to call from
	// multiple goroutines; the reactor serialises writes on the caller's
	// behalf only if the implementation does not do so itself.
	Send(ctx context.Context, frame []byte) error
	// SetReceiver registers the callback invoked once per complete,
	// validated inbound frame, in receive order. It must be called
	// exactly once, before the gateway starts delivering frames, and
	// must not be changed afterwards.
	SetReceiver(receiver func(frame []byte, err error))
}

// ValueHandler receives one decoded Value at a time, synchronously and in
// decode order. It must not block.
type ValueHandler func(Value)
