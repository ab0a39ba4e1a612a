// Package metrics exports the Prometheus collectors the host loop, channel
// manager and channels update as they process traffic: session counts, byte/packet
// throughput, retransmits, reorder-buffer occupancy, and decode errors by
// kind.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collectors groups every metric the gateway touches. Construct one with
// NewCollectors and register it with a prometheus.Registerer.
type Collectors struct {
	UnauthenticatedSessions prometheus.Gauge
	AuthenticatedSessions   prometheus.Gauge

	BytesIn    prometheus.Counter
	BytesOut   prometheus.Counter
	PacketsIn  prometheus.Counter
	PacketsOut prometheus.Counter

	Retransmits       prometheus.Counter
	ReorderBufferSize prometheus.Gauge

	DecodeErrors *prometheus.CounterVec
}

// NewCollectors builds the collector set with the given metric name
// prefix (e.g. "soegateway").
func NewCollectors(namespace string) *Collectors {
	return &Collectors{
		UnauthenticatedSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "unauthenticated_sessions",
			Help:      "Channels awaiting session authentication.",
		}),
		AuthenticatedSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "authenticated_sessions",
			Help:      "Channels with a completed handshake.",
		}),
		BytesIn: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_in_total",
			Help:      "Datagram bytes received.",
		}),
		BytesOut: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_out_total",
			Help:      "Datagram bytes sent.",
		}),
		PacketsIn: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_in_total",
			Help:      "Datagrams received.",
		}),
		PacketsOut: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_out_total",
			Help:      "Datagrams sent.",
		}),
		Retransmits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retransmits_total",
			Help:      "Sequenced packets resent after the retransmit interval elapsed.",
		}),
		ReorderBufferSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reorder_buffer_packets",
			Help:      "Packets currently held in reorder buffers across all channels.",
		}),
		DecodeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_errors_total",
			Help:      "Decode failures by error kind.",
		}, []string{"kind"}),
	}
}

// MustRegister registers every collector with reg, panicking on a
// duplicate-registration error since that indicates a wiring bug, not a
// runtime condition.
func (c *Collectors) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(
		c.UnauthenticatedSessions,
		c.AuthenticatedSessions,
		c.BytesIn,
		c.BytesOut,
		c.PacketsIn,
		c.PacketsOut,
		c.Retransmits,
		c.ReorderBufferSize,
		c.DecodeErrors,
	)
}
