// Package bus wires a Bus Gateway's single inbound callback to the two
// independent consumers of a frame: the Telegram Decoder, which turns
// measurement telegrams into Values, and the Response Router, which
// hands PC-directed replies back to whichever command connection is
// waiting on them. A frame only ever goes to one of the two: this
// mirrors GoAethereal-modbus/server.go's handle method, which likewise
// parses each inbound ADU once and routes it to exactly one consumer
// before deciding whether to reply.
package bus

import (
	"github.com/sirupsen/logrus"

	"github.com/geowiwi/ems-gateway/internal/command"
	"github.com/geowiwi/ems-gateway/pkg/ems"
)

// Router is the minimal surface this package needs from the command
// layer's response router.
type Router interface {
	Dispatch(ems.Frame)
}

// Dispatcher is the single point where raw bytes off the wire become
// either a decoded Value stream or a routed command reply, never both.
type Dispatcher struct {
	decoder *ems.Decoder
	router  Router
	log     *logrus.Entry
}

// New builds a Dispatcher. decoder and router must already be
// configured (decoder.SetHandler called, router shared with the running
// command.Server).
func New(decoder *ems.Decoder, router *command.Router, log *logrus.Entry) *Dispatcher {
	return &Dispatcher{
		decoder: decoder,
		router:  router,
		log:     log.WithField("component", "bus.dispatcher"),
	}
}

// Receive is installed as the Bus Gateway's receiver callback. It parses
// the raw frame once, then hands it to the Router if it is addressed to
// this program (including a reply with the pending-bit set), or to the
// Decoder otherwise. Polling requests and other frames the Decoder
// itself discards still reach it, since only the Decoder knows how to
// classify them.
func (d *Dispatcher) Receive(raw []byte, err error) {
	if err != nil {
		d.log.WithError(err).Warn("bus gateway reported a read error")
		return
	}
	f, err := ems.ParseFrameStrict(raw)
	if err != nil {
		d.log.WithError(err).WithField("len", len(raw)).Debug("discarding undersized frame")
		return
	}
	if f.IsPCDirected() {
		d.router.Dispatch(f)
		return
	}
	d.decoder.HandleFrame(f)
}
