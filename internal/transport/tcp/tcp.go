// Package tcp implements the ems.Gateway contract against a TCP-tunnelled
// serial line such as ser2net, dialing the endpoint the way
// GoAethereal-modbus/config.go's connection() dials its transport.
package tcp

import (
	"bufio"
	"context"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Config is the dial target and idle-gap framing window.
type Config struct {
	Endpoint string
	Gap      time.Duration
}

// DefaultGap mirrors transport/serial's inter-telegram silence window.
const DefaultGap = 20 * time.Millisecond

// Gateway is a TCP-tunnelled-serial ems.Gateway. Inbound bytes are split
// into frames by the idle gap alone and passed to the receiver as read:
// no CRC is checked or removed.
type Gateway struct {
	cfg Config
	log *logrus.Entry

	mu       sync.Mutex
	conn     net.Conn
	receiver func(frame []byte, err error)
}

// New builds a Gateway. Dial must be called before use.
func New(cfg Config, log *logrus.Entry) *Gateway {
	if cfg.Gap <= 0 {
		cfg.Gap = DefaultGap
	}
	return &Gateway{cfg: cfg, log: log.WithField("component", "transport.tcp")}
}

// Dial connects to the configured endpoint and starts the background
// read loop.
func (g *Gateway) Dial(ctx context.Context) error {
	conn, err := new(net.Dialer).DialContext(ctx, "tcp", g.cfg.Endpoint)
	if err != nil {
		return err
	}
	g.mu.Lock()
	g.conn = conn
	g.mu.Unlock()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()
	go g.readLoop(conn)
	return nil
}

// Close closes the underlying connection.
func (g *Gateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.conn == nil {
		return nil
	}
	return g.conn.Close()
}

// SetReceiver implements ems.Gateway.
func (g *Gateway) SetReceiver(receiver func(frame []byte, err error)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.receiver = receiver
}

// Send implements ems.Gateway.
func (g *Gateway) Send(ctx context.Context, frame []byte) error {
	g.mu.Lock()
	conn := g.conn
	g.mu.Unlock()
	if conn == nil {
		return net.ErrClosed
	}
	if dl, ok := ctx.Deadline(); ok {
		conn.SetWriteDeadline(dl)
	}
	_, err := conn.Write(frame)
	return err
}

func (g *Gateway) readLoop(conn net.Conn) {
	r := bufio.NewReader(conn)
	buf := make([]byte, 256)
	var frame []byte
	for {
		conn.SetReadDeadline(time.Now().Add(g.cfg.Gap))
		n, err := r.Read(buf)
		if n > 0 {
			frame = append(frame, buf[:n]...)
		}
		if err != nil {
			if isTimeout(err) {
				if len(frame) > 0 {
					g.emit(frame)
					frame = nil
				}
				continue
			}
			if len(frame) > 0 {
				g.emit(frame)
			}
			g.emitErr(err)
			return
		}
	}
}

func (g *Gateway) emit(frame []byte) {
	g.mu.Lock()
	recv := g.receiver
	g.mu.Unlock()
	if recv != nil {
		cp := make([]byte, len(frame))
		copy(cp, frame)
		recv(cp, nil)
	}
}

func (g *Gateway) emitErr(err error) {
	g.mu.Lock()
	recv := g.receiver
	g.mu.Unlock()
	if recv != nil {
		recv(nil, err)
	}
}

func isTimeout(err error) bool {
	type timeouter interface{ Timeout() bool }
	t, ok := err.(timeouter)
	return ok && t.Timeout()
}
