package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Stream outcomes recorded in StreamsTotal.
const (
	OutcomeCompleted = "completed"
	OutcomeCancelled = "cancelled"
	OutcomeFailed    = "failed"
	OutcomeRejected  = "rejected"
)

// Metrics holds the hub collectors. A nil *Metrics records nothing, so
// components can be built without a registry in tests.
type Metrics struct {
	SessionsActive prometheus.Gauge
	StreamsTotal   *prometheus.CounterVec
	ChunksSent     *prometheus.CounterVec
	StreamDuration *prometheus.HistogramVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "dirstream_sessions_active",
				Help: "Number of connected streaming sessions",
			},
		),
		StreamsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dirstream_streams_total",
				Help: "Total number of stream requests by outcome",
			},
			[]string{"kind", "outcome"},
		),
		ChunksSent: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dirstream_chunks_sent_total",
				Help: "Total number of data chunks pushed to clients",
			},
			[]string{"kind"},
		),
		StreamDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dirstream_stream_duration_seconds",
				Help:    "Time from stream start to its last envelope",
				Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"kind"},
		),
	}
}

// SessionOpened increments the active session gauge.
func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.SessionsActive.Inc()
}

// SessionClosed decrements the active session gauge.
func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.SessionsActive.Dec()
}

// ChunkSent counts one delivered data chunk.
func (m *Metrics) ChunkSent(kind string) {
	if m == nil {
		return
	}
	m.ChunksSent.WithLabelValues(kind).Inc()
}

// StreamFinished records the outcome and, for streams that ran, their duration.
func (m *Metrics) StreamFinished(kind, outcome string, started time.Time) {
	if m == nil {
		return
	}
	m.StreamsTotal.WithLabelValues(kind, outcome).Inc()
	if outcome != OutcomeRejected {
		m.StreamDuration.WithLabelValues(kind).Observe(time.Since(started).Seconds())
	}
}
