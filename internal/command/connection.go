package command

import (
	"bufio"
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/GoAethereal/cancel"
	"github.com/sirupsen/logrus"

	"github.com/geowiwi/ems-gateway/pkg/ems"
)

// pendingRequest is the connection's single in-flight bus request: at
// most one command per connection is ever awaiting a reply. The
// cancellable signal is woken either by a matching reply (offer) or by
// the deadline timer, mirroring GoAethereal-modbus/client.go's
// `sig := cancel.New().Propagate(ctx)` / `sig.Cancel()` correlation idiom.
type pendingRequest struct {
	dest, typ, offset byte
	seq               uint32
	sig               *cancel.Signal
	matched           atomic.Bool
	reply             ems.Frame
}

// Connection is one client's line protocol, command parser, response
// correlator and reply timeout. Its lifecycle is:
//
//	Idle --accept-cmd--> Parsing --ok--> Dispatching --wait--> AwaitingReply
//	                                         |--frame matches--> Responded --> Idle
//	                                         |--timer fires----> TimedOut  --> Idle
//	Parsing --bad--> Responded(error) --> Idle
//	AwaitingReply --client closes--> Closed
type Connection struct {
	id     uint64
	conn   net.Conn
	gw     ems.Gateway
	router *Router
	cfg    Config
	log    *logrus.Entry

	mu      sync.Mutex
	pending *pendingRequest
	seq     uint32
}

// newConnection wires a freshly accepted socket into the command layer.
func newConnection(id uint64, conn net.Conn, gw ems.Gateway, router *Router, cfg Config, log *logrus.Entry) *Connection {
	return &Connection{
		id:     id,
		conn:   conn,
		gw:     gw,
		router: router,
		cfg:    cfg,
		log:    log.WithField("conn", id),
	}
}

// serve runs the connection's read loop until the client disconnects or
// a transport error occurs. Reads are serialised: the next line is not
// read until the current command's reply has been written.
func (c *Connection) serve(ctx context.Context) {
	defer c.close()
	scanner := bufio.NewScanner(c.conn)
	for scanner.Scan() {
		line := scanner.Text()
		reply := dispatch(ctx, c, line)
		if _, err := c.conn.Write([]byte(reply + "\n")); err != nil {
			c.log.WithError(err).Debug("write failed, closing connection")
			return
		}
	}
}

func (c *Connection) close() {
	c.router.Unregister(c.id)
	c.conn.Close()
	c.mu.Lock()
	p := c.pending
	c.pending = nil
	c.mu.Unlock()
	if p != nil {
		p.sig.Cancel()
	}
}

// offer implements the receiver interface the Router dispatches to. It
// is called on the single reactor thread driving the bus gateway's
// inbound callback; it must never block.
func (c *Connection) offer(f ems.Frame) {
	c.mu.Lock()
	p := c.pending
	c.mu.Unlock()
	if p == nil {
		return
	}
	if f.Source == p.dest && f.Type == p.typ && f.Offset == p.offset {
		p.reply = f
		p.matched.Store(true)
		p.sig.Cancel()
	}
}

// request builds and sends one correlated bus command and blocks until
// either a matching reply arrives, the deadline fires, or ctx is done.
// Only one request may be in flight per connection; a second call while
// one is pending is rejected.
func (c *Connection) request(ctx context.Context, dest, typ, offset byte, payload []byte) (ems.Frame, error) {
	c.mu.Lock()
	if c.pending != nil {
		c.mu.Unlock()
		return ems.Frame{}, invalidCmd()
	}
	c.seq++
	pend := &pendingRequest{dest: dest, typ: typ, offset: offset, seq: c.seq}
	pend.sig = cancel.New()
	c.pending = pend
	c.mu.Unlock()

	reqCtx := pend.sig.Propagate(ctx)
	timer := time.AfterFunc(c.cfg.ReplyTimeout, pend.sig.Cancel)
	defer timer.Stop()

	frame, err := ems.Build(dest, typ, offset, payload, true)
	if err != nil {
		c.clearPending(pend)
		return ems.Frame{}, invalidArgs()
	}
	if err := c.gw.Send(ctx, frame); err != nil {
		c.clearPending(pend)
		return ems.Frame{}, busFailure(err)
	}

	<-reqCtx.Done()
	c.clearPending(pend)

	if pend.matched.Load() {
		return pend.reply, nil
	}
	if err := ctx.Err(); err != nil {
		return ems.Frame{}, err
	}
	return ems.Frame{}, timeout()
}

func (c *Connection) clearPending(p *pendingRequest) {
	c.mu.Lock()
	if c.pending == p {
		c.pending = nil
	}
	c.mu.Unlock()
}

// getErrors implements the multi-reply error-log assembly: it requests
// successive record windows starting at startOffset until a reply
// contains no new records.
func (c *Connection) getErrors(ctx context.Context, startOffset int) ([]ems.Value, error) {
	var all []ems.Value
	offset := startOffset
	for {
		if offset > 0xff {
			break
		}
		reply, err := c.request(ctx, ems.UBA, 0x10, byte(offset), nil)
		if err != nil {
			return nil, err
		}
		recs := ems.ParseErrorRecords(0x10, reply)
		if len(recs) == 0 {
			break
		}
		all = append(all, recs...)
		offset += len(recs) * ems.ErrorRecordWidth
	}
	return all, nil
}
