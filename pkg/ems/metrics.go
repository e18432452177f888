package ems

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the Prometheus instruments the decoder updates as it
// works through the inbound frame stream. Grounded on
// runZeroInc-sockstats/pkg/exporter/exporter.go's direct use of
// prometheus.Collector-shaped counters for per-event bookkeeping.
type Metrics struct {
	FramesDecoded   *prometheus.CounterVec
	FramesDiscarded *prometheus.CounterVec
	ValuesEmitted   prometheus.Counter
}

// NewMetrics constructs and registers the decoder's instruments against
// reg. Pass prometheus.NewRegistry() in tests to avoid collisions with
// the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FramesDecoded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ems",
			Subsystem: "decoder",
			Name:      "frames_decoded_total",
			Help:      "Frames dispatched to a (source,type) parser, by source address.",
		}, []string{"source"}),
		FramesDiscarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ems",
			Subsystem: "decoder",
			Name:      "frames_discarded_total",
			Help:      "Frames discarded before parsing, by reason.",
		}, []string{"reason"}),
		ValuesEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ems",
			Subsystem: "decoder",
			Name:      "values_emitted_total",
			Help:      "Values handed to the value-handler callback.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.FramesDecoded, m.FramesDiscarded, m.ValuesEmitted)
	}
	return m
}

const (
	discardReasonShort   = "short"
	discardReasonZero    = "zero_header"
	discardReasonPolling = "polling"
	discardReasonUnknown = "unknown_source_type"
)
