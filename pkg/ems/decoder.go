package ems

import "github.com/sirupsen/logrus"

// Decoder turns raw inbound bus bytes into a stream of Values. A
// Decoder is not safe for concurrent Handle calls — the reactor model
// guarantees frames are handed to it one at a time, in receive
// order, and relies on that for the value-handler invocation order
// guarantee.
type Decoder struct {
	handler ValueHandler
	log     *logrus.Entry
	metrics *Metrics
}

// NewDecoder builds a Decoder. log and metrics may be nil in tests.
func NewDecoder(log *logrus.Entry, metrics *Metrics) *Decoder {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Decoder{log: log, metrics: metrics}
}

// SetHandler wires the value-sink callback. It must be called before the
// first Handle and must not change afterwards.
func (d *Decoder) SetHandler(h ValueHandler) {
	d.handler = h
}

// Handle is the decoder's entry point: it validates the raw frame,
// applies the discard preconditions in order, then dispatches to the
// (source, type) parser table.
func (d *Decoder) Handle(raw []byte) {
	f, ok := ParseFrame(raw)
	if !ok {
		d.discard(discardReasonShort)
		return
	}
	d.HandleFrame(f)
}

// HandleFrame runs the precondition checks and dispatch on an
// already-parsed Frame. Exported so callers that share frame parsing with
// the Response Router (internal/bus) do not need to re-serialise and
// re-parse a Frame to decode it.
func (d *Decoder) HandleFrame(f Frame) {
	if f.IsAllZeroHeader() {
		d.discard(discardReasonZero)
		return
	}
	if f.IsPolling() {
		d.discard(discardReasonPolling)
		return
	}
	if d.handler == nil {
		return
	}
	byType, ok := dispatchTable[f.Source]
	if !ok {
		d.unknown(f)
		return
	}
	parser, ok := byType[f.Type]
	if !ok {
		d.unknown(f)
		return
	}
	if d.metrics != nil {
		d.metrics.FramesDecoded.WithLabelValues(hex(f.Source)).Inc()
	}
	parser(f, d.emit)
}

func (d *Decoder) emit(v Value) {
	if d.metrics != nil {
		d.metrics.ValuesEmitted.Inc()
	}
	d.log.WithFields(logrus.Fields{"type": v.Type().String(), "subtype": v.SubType().String()}).Debug("value decoded")
	d.handler(v)
}

func (d *Decoder) discard(reason string) {
	if d.metrics != nil {
		d.metrics.FramesDiscarded.WithLabelValues(reason).Inc()
	}
}

func (d *Decoder) unknown(f Frame) {
	if d.metrics != nil {
		d.metrics.FramesDiscarded.WithLabelValues(discardReasonUnknown).Inc()
	}
	d.log.WithFields(logrus.Fields{"source": hex(f.Source), "type": hex(f.Type)}).Warn("unhandled (source,type) combination")
}

func hex(b byte) string {
	const digits = "0123456789abcdef"
	return string([]byte{digits[b>>4], digits[b&0x0f]})
}
