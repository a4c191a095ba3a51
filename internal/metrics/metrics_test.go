package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()
	require.Equal(t, float64(1), testutil.ToFloat64(m.SessionsActive))

	m.ChunkSent("users")
	m.ChunkSent("users")
	require.Equal(t, float64(2), testutil.ToFloat64(m.ChunksSent.WithLabelValues("users")))

	m.StreamFinished("users", OutcomeCompleted, time.Now())
	m.StreamFinished("users", OutcomeRejected, time.Now())
	require.Equal(t, float64(1), testutil.ToFloat64(m.StreamsTotal.WithLabelValues("users", OutcomeCompleted)))
	require.Equal(t, float64(1), testutil.ToFloat64(m.StreamsTotal.WithLabelValues("users", OutcomeRejected)))
	require.Equal(t, 1, testutil.CollectAndCount(m.StreamDuration))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.SessionOpened()
		m.SessionClosed()
		m.ChunkSent("projects")
		m.StreamFinished("projects", OutcomeFailed, time.Now())
	})
}
