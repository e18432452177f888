// Package sink provides concrete ems.ValueHandler implementations: a
// structured-logging sink and a Prometheus gauge sink. Either can be
// wrapped in Chain to fan one decoded Value out to several sinks,
// mirroring how an exporter registers several collectors against one
// registry.
package sink

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/geowiwi/ems-gateway/pkg/ems"
)

// Chain fans a Value out to every handler in order. A handler must not
// block; callers run it synchronously on the decoder's single receive
// path.
func Chain(handlers ...ems.ValueHandler) ems.ValueHandler {
	return func(v ems.Value) {
		for _, h := range handlers {
			h(v)
		}
	}
}

// Logging returns a ValueHandler that logs one structured line per
// decoded Value.
func Logging(log *logrus.Entry) ems.ValueHandler {
	return func(v ems.Value) {
		log.WithFields(logrus.Fields{
			"type":    v.Type().String(),
			"subtype": v.SubType().String(),
			"value":   v.String(),
		}).Info("ems value")
	}
}

// Metrics holds one Prometheus gauge per (Type, SubType) pair seen so
// far, created lazily on first observation.
type Metrics struct {
	reg    prometheus.Registerer
	gauges map[string]prometheus.Gauge
}

// NewMetrics builds a Metrics sink registered against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{reg: reg, gauges: make(map[string]prometheus.Gauge)}
}

// Handle implements ems.ValueHandler. Only Numeric and Boolean values
// carry a meaningful scalar; other kinds are ignored by this sink (a
// logging sink still sees them via Chain).
func (m *Metrics) Handle(v ems.Value) {
	var val float64
	switch v.Kind() {
	case ems.KindNumeric:
		val, _ = v.Numeric()
	case ems.KindBoolean:
		b, _ := v.Boolean()
		if b {
			val = 1
		}
	default:
		return
	}
	key := fmt.Sprintf("%s_%s", v.Type().String(), v.SubType().String())
	g, ok := m.gauges[key]
	if !ok {
		g = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ems",
			Subsystem: "value",
			Name:      sanitize(key),
			Help:      fmt.Sprintf("Last observed %s %s value.", v.Type(), v.SubType()),
		})
		m.reg.MustRegister(g)
		m.gauges[key] = g
	}
	g.Set(val)
}

func sanitize(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			out[i] = c
		case c >= 'A' && c <= 'Z':
			out[i] = c + ('a' - 'A')
		default:
			out[i] = '_'
		}
	}
	return string(out)
}
