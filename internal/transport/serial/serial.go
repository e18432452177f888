// Package serial implements the ems.Gateway contract against a local
// RS-232/RS-485 bus adapter using github.com/daedaluz/goserial.
package serial

import (
	"context"
	"sync"
	"time"

	serial "github.com/daedaluz/goserial"
	"github.com/sirupsen/logrus"
)

// Config configures the serial line: device path and line speed. Frame
// boundaries on the wire are caller-supplied (the bus gateway is a
// dumb byte pipe); Gap is the idle period after which a partial read is
// flushed as one frame to the receiver, approximating the controller's
// own inter-telegram silence.
type Config struct {
	Device string
	Baud   serial.CFlag
	Gap    time.Duration
}

// DefaultGap is the inter-byte silence treated as a frame boundary on a
// typical residential heating bus.
const DefaultGap = 20 * time.Millisecond

// Gateway is a serial-line ems.Gateway. Inbound bytes are split into
// frames by the idle gap alone and passed to the receiver as read: no
// CRC is checked or removed.
type Gateway struct {
	cfg Config
	log *logrus.Entry

	mu       sync.Mutex
	port     *serial.Port
	receiver func(frame []byte, err error)
}

// New builds a Gateway. Open must be called before Send/receive loop use.
func New(cfg Config, log *logrus.Entry) *Gateway {
	if cfg.Gap <= 0 {
		cfg.Gap = DefaultGap
	}
	return &Gateway{cfg: cfg, log: log.WithField("component", "transport.serial")}
}

// Open opens the configured device and starts the background read loop
// that assembles bytes into frames and hands them to the receiver.
func (g *Gateway) Open(ctx context.Context) error {
	port, err := serial.Open(g.cfg.Device, serial.NewOptions().SetReadTimeout(g.cfg.Gap))
	if err != nil {
		return err
	}
	if attrs, err := port.GetAttr(); err == nil {
		attrs.MakeRaw()
		attrs.SetSpeed(g.cfg.Baud)
		_ = port.SetAttr(serial.TCSANOW, attrs)
	}

	g.mu.Lock()
	g.port = port
	g.mu.Unlock()

	go g.readLoop(ctx, port)
	return nil
}

// Close releases the underlying device.
func (g *Gateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.port == nil {
		return nil
	}
	return g.port.Close()
}

// SetReceiver implements ems.Gateway.
func (g *Gateway) SetReceiver(receiver func(frame []byte, err error)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.receiver = receiver
}

// Send implements ems.Gateway. A source byte identifying this program is
// prepended by the bus arbitration layer on real hardware; here the
// encoder's own payload already begins at dest, so it is written as-is.
func (g *Gateway) Send(ctx context.Context, frame []byte) error {
	g.mu.Lock()
	port := g.port
	g.mu.Unlock()
	if port == nil {
		return serial.ErrClosed
	}
	_, err := port.Write(frame)
	return err
}

func (g *Gateway) readLoop(ctx context.Context, port *serial.Port) {
	buf := make([]byte, 256)
	var frame []byte
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		n, err := port.Read(buf)
		if err != nil {
			if len(frame) > 0 {
				g.emit(frame)
				frame = nil
			}
			if isTimeout(err) {
				continue
			}
			g.emit2(err)
			return
		}
		if n == 0 {
			if len(frame) > 0 {
				g.emit(frame)
				frame = nil
			}
			continue
		}
		frame = append(frame, buf[:n]...)
	}
}

func (g *Gateway) emit(frame []byte) {
	g.mu.Lock()
	r := g.receiver
	g.mu.Unlock()
	if r != nil {
		cp := make([]byte, len(frame))
		copy(cp, frame)
		r(cp, nil)
	}
}

func (g *Gateway) emit2(err error) {
	g.mu.Lock()
	r := g.receiver
	g.mu.Unlock()
	if r != nil {
		r(nil, err)
	}
}

func isTimeout(err error) bool {
	type timeouter interface{ Timeout() bool }
	t, ok := err.(timeouter)
	return ok && t.Timeout()
}
