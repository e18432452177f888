package command

import (
	"context"
	"net"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/geowiwi/ems-gateway/pkg/ems"
)

// Server is the TCP acceptor for the line-oriented command protocol. It
// owns the Router every accepted Connection registers with, so that bus
// replies reach whichever connection is waiting on them regardless of
// which socket originated the request.
type Server struct {
	cfg    Config
	gw     ems.Gateway
	router *Router
	log    *logrus.Entry

	liveConns prometheus.Gauge
}

// NewServer builds a Server bound to gw's bus gateway. router may be
// shared with whatever component feeds it PC-directed frames; the
// gateway's own inbound loop is expected to hand those to router.Dispatch.
func NewServer(cfg Config, gw ems.Gateway, router *Router, reg prometheus.Registerer, log *logrus.Entry) *Server {
	liveConns := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "ems",
		Subsystem: "command",
		Name:      "live_connections",
		Help:      "Number of open command-protocol TCP connections.",
	})
	if reg != nil {
		reg.MustRegister(liveConns)
	}
	return &Server{
		cfg:       cfg.WithDefaults(),
		gw:        gw,
		router:    router,
		log:       log.WithField("component", "command.server"),
		liveConns: liveConns,
	}
}

// Serve listens on cfg.ListenAddr and runs one Connection per accepted
// socket until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.cfg.Validate(); err != nil {
		return err
	}
	l, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		l.Close()
	}()

	for {
		conn, err := l.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				wg.Wait()
				return ctx.Err()
			default:
				s.log.WithError(err).Warn("accept failed")
				continue
			}
		}
		wg.Add(1)
		go func(conn net.Conn) {
			defer wg.Done()
			s.handle(ctx, conn)
		}(conn)
	}
}

func (s *Server) handle(ctx context.Context, conn net.Conn) {
	c := newConnection(0, conn, s.gw, s.router, s.cfg, s.log)
	c.id = s.router.Register(c)
	c.log = s.log.WithField("conn", c.id)
	if s.liveConns != nil {
		s.liveConns.Inc()
		defer s.liveConns.Dec()
	}
	c.serve(ctx)
}
